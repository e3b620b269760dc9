//go:build !whisper

package stt

import (
	"context"
	"fmt"
)

// Whisper is compiled out; build with -tags whisper and libwhisper
// installed to enable it.
type Whisper struct{}

func NewWhisper(modelPath string) (*Whisper, error) {
	return nil, fmt.Errorf("whisper %s: %w", modelPath, ErrUnavailable)
}

func (w *Whisper) Recognize(context.Context, []float32, string) (string, error) {
	return "", ErrUnavailable
}

func (w *Whisper) Close() error { return nil }
