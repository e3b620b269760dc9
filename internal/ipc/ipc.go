// Package ipc is the local control channel between miku-ctl and the daemon:
// one JSON request and one JSON reply per unix socket connection.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/miku.sock"

const ioTimeout = 5 * time.Second

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

type Reply struct {
	OK        bool   `json:"ok"`
	Listening bool   `json:"listening"`
	Message   string `json:"message,omitempty"`
}

type Handler func(ControlMessage) Reply

type Server struct {
	path string
	ln   net.Listener
	done chan struct{}
}

// Serve listens on path, replacing a stale socket file, and answers every
// connection with handler in the background.
func Serve(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{path: path, ln: ln, done: make(chan struct{})}
	go s.accept(handler)
	return s, nil
}

func (s *Server) accept(handler Handler) {
	defer close(s.done)
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Control accept failed", "err", err)
			continue
		}
		go handleConn(conn, handler)
	}
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		return
	}
	if err := json.NewEncoder(conn).Encode(handler(msg)); err != nil {
		log.Debug("Control reply failed", "err", err)
	}
}

func (s *Server) Close() error {
	err := s.ln.Close()
	<-s.done
	os.Remove(s.path)
	return err
}

// Send delivers cmd to the daemon listening on path and returns its reply.
func Send(path, cmd string) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	conn, err := net.DialTimeout("unix", path, ioTimeout)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}
	var r Reply
	if err := json.NewDecoder(conn).Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return r, nil
}
