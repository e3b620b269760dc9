package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"miku/internal/fault"
	"miku/pkg/stt"
)

// ErrNotUnderstood is the cause of the NoMatch fault returned when no
// language produced a transcript.
var ErrNotUnderstood = errors.New("could not understand audio in any language")

// Language is one recognition attempt: a BCP-47 tag and the name shown to
// the user.
type Language struct {
	Tag  string
	Name string
}

// AutoDetect is the last-resort attempt in the recognizer's default locale.
var AutoDetect = Language{Tag: "", Name: "Auto-detected"}

// DefaultLanguages is the recognition order used when none is configured.
var DefaultLanguages = []Language{
	{Tag: "en-US", Name: "English"},
	{Tag: "ja-JP", Name: "Japanese"},
	{Tag: "en-GB", Name: "English (UK)"},
	{Tag: "es-ES", Name: "Spanish"},
	{Tag: "fr-FR", Name: "French"},
	{Tag: "de-DE", Name: "German"},
}

// Recognition is the outcome of Recognize.
type Recognition struct {
	Text     string
	Language Language
	Attempts []Language // in the order tried
}

// Recognize tries each language in order, then AutoDetect, and returns the
// first non-empty transcript. "Not recognized" moves on silently; a service
// failure is reported and also moves on. timeout bounds each attempt.
func Recognize(ctx context.Context, rec stt.Recognizer, pcm []float32, langs []Language, timeout time.Duration, rep Reporter) (Recognition, error) {
	var res Recognition

	attempts := append(append([]Language(nil), langs...), AutoDetect)
	for _, l := range attempts {
		rep.Status(fmt.Sprintf("Trying %s recognition...", l.Name))

		actx, cancel := withTimeout(ctx, timeout)
		text, err := rec.Recognize(actx, pcm, l.Tag)
		cancel()
		res.Attempts = append(res.Attempts, l)

		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				res.Text = text
				res.Language = l
				return res, nil
			}
			continue
		}
		if ctx.Err() != nil {
			return res, fault.New(fault.Cancelled, "recognize", ctx.Err())
		}
		switch fault.KindOf(err) {
		case fault.NoMatch:
			continue
		case fault.Cancelled:
			return res, err
		}

		if l == AutoDetect {
			log.Debug("Default recognition failed", "err", err)
			continue
		}
		log.Warn("Recognition request failed", "lang", l.Tag, "err", err)
		rep.Status(fmt.Sprintf("Speech service error for %s: %v", l.Name, err))
	}

	return res, fault.New(fault.NoMatch, "recognize", ErrNotUnderstood)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
