// Package tts turns reply text into audible speech.
package tts

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Speaker speaks text and returns once playback has finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Synthesizer renders text to an encoded audio file body. ext is the file
// extension the body should be saved with, e.g. ".mp3".
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (data []byte, ext string, err error)
}

// Player plays an audio file synchronously.
type Player interface {
	PlayFile(ctx context.Context, path string) error
}

// Voice speaks through a remote synthesizer: the audio is written to a
// temporary file, played to completion and removed.
type Voice struct {
	synth   Synthesizer
	player  Player
	tempDir string

	// SynthTimeout bounds the synthesis request; playback is not bounded.
	SynthTimeout time.Duration
}

func NewVoice(synth Synthesizer, player Player, tempDir string) *Voice {
	return &Voice{synth: synth, player: player, tempDir: tempDir}
}

func (v *Voice) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	sctx, cancel := ctx, context.CancelFunc(func() {})
	if v.SynthTimeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, v.SynthTimeout)
	}
	data, ext, err := v.synth.Synthesize(sctx, text)
	cancel()
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	f, err := os.CreateTemp(v.tempDir, "miku-reply-*"+ext)
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := v.player.PlayFile(ctx, path); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
