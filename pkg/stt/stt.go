// Package stt wraps the speech recognizers a turn can use. Every recognizer
// takes mono float32 PCM in [-1, 1] at the rate it was constructed with.
package stt

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// ErrNoMatch means the recognizer heard audio but produced no transcript.
// Recognizers return it as the cause of a fault.NoMatch error; request
// failures are fault.Service.
var ErrNoMatch = errors.New("speech not recognized")

// ErrUnavailable is returned by constructors of backends compiled out of the
// binary.
var ErrUnavailable = errors.New("recognizer not built into this binary")

// Recognizer transcribes one utterance. An empty lang asks for the
// recognizer's default locale.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []float32, lang string) (string, error)
	Close() error
}

// BaseLanguage reduces a BCP-47 tag such as "en-GB" to its base language
// code ("en"). Unparseable tags are returned lowercased.
func BaseLanguage(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return strings.ToLower(tag)
	}
	base, _ := t.Base()
	return base.String()
}
