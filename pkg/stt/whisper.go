//go:build whisper

package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"miku/internal/fault"
)

// Whisper recognizes speech locally with a whisper.cpp model. It expects
// 16 kHz input.
type Whisper struct {
	mu      sync.Mutex
	model   whisper.Model
	threads int
}

func NewWhisper(modelPath string) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Whisper{model: m, threads: runtime.NumCPU()}, nil
}

// Recognize runs one whisper pass forced to the base language of lang, or
// auto-detection when lang is empty.
func (w *Whisper) Recognize(ctx context.Context, pcm []float32, lang string) (string, error) {
	if len(pcm) == 0 {
		return "", fault.New(fault.NoMatch, "whisper", ErrNoMatch)
	}

	// a model context is not safe to share between passes
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}

	code := "auto"
	if lang != "" {
		code = BaseLanguage(lang)
	}
	if err := wctx.SetLanguage(code); err != nil {
		return "", fmt.Errorf("set language %s: %w", code, err)
	}
	wctx.SetTranslate(false)
	wctx.SetThreads(uint(w.threads))

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", fault.New(fault.Cancelled, "whisper", err)
		}
		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		if t := strings.TrimSpace(s.Text); t != "" && !isNonSpeech(t) {
			parts = append(parts, t)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return "", fault.New(fault.NoMatch, "whisper", ErrNoMatch)
	}
	return text, nil
}

// isNonSpeech reports whisper's bracketed annotations like "[BLANK_AUDIO]".
func isNonSpeech(s string) bool {
	return (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))
}

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}
