package proxy

import (
	"testing"
	"time"
)

func TestNewSocksClient(t *testing.T) {
	c, err := NewSocksClient("127.0.0.1:1080", 30*time.Second)
	if err != nil {
		t.Fatalf("NewSocksClient() error = %v", err)
	}
	if c.Timeout != 30*time.Second || c.Transport == nil {
		t.Errorf("client = %+v", c)
	}

	if _, err := NewSocksClient("", 0); err == nil {
		t.Error("NewSocksClient(\"\") error = nil")
	}
}
