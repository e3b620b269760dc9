package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/pkg/browser"
)

// System performs actions on the local desktop: the default browser and
// file handler, and detached child processes.
type System struct{}

func NewSystem() *System {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &System{}
}

func (System) OpenURL(url string) error {
	if url == "" {
		return errors.New("empty url")
	}
	return browser.OpenURL(url)
}

func (System) OpenFile(path string) error {
	return browser.OpenFile(path)
}

// Launch starts argv without waiting for it to exit.
func (System) Launch(_ context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	go cmd.Wait()
	return nil
}
