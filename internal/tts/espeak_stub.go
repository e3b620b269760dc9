//go:build !espeak

package tts

import (
	"context"
	"errors"
)

// ErrEspeakUnavailable is returned when the binary was built without the
// espeak tag.
var ErrEspeakUnavailable = errors.New("espeak not built into this binary (build with -tags espeak)")

type Espeak struct{}

func NewEspeak(lang string, rate float64) (*Espeak, error) {
	return nil, ErrEspeakUnavailable
}

func (e *Espeak) Speak(context.Context, string) error {
	return ErrEspeakUnavailable
}
