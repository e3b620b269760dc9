package ipc

import (
	"os"
	"path/filepath"
	"testing"
)

func socketPath(t *testing.T) string {
	dir, err := os.MkdirTemp("", "miku")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

func TestSendReceivesReply(t *testing.T) {
	path := socketPath(t)
	srv, err := Serve(path, func(m ControlMessage) Reply {
		if m.Cmd == "toggle" {
			return Reply{OK: true, Listening: true, Message: "listening"}
		}
		return Reply{Message: "unknown command " + m.Cmd}
	})
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	defer srv.Close()

	r, err := Send(path, "toggle")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !r.OK || !r.Listening || r.Message != "listening" {
		t.Errorf("reply = %+v", r)
	}

	r, err = Send(path, "dance")
	if err != nil {
		t.Fatal(err)
	}
	if r.OK || r.Message != "unknown command dance" {
		t.Errorf("reply = %+v", r)
	}
}

func TestServeReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	srv, err := Serve(path, func(ControlMessage) Reply { return Reply{OK: true} })
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("socket left behind: %v", err)
	}
}

func TestSendWithoutDaemon(t *testing.T) {
	if _, err := Send(socketPath(t), "status"); err == nil {
		t.Error("Send() error = nil with no daemon")
	}
}
