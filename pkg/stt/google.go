package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"miku/internal/fault"
	"miku/pkg/audioconv"
)

// Google recognizes speech with the Cloud Speech-to-Text API.
type Google struct {
	client        *speech.Client
	sampleRate    int
	defaultLocale string
}

// NewGoogle dials the Speech-to-Text service. An empty apiKey uses
// application default credentials.
func NewGoogle(ctx context.Context, sampleRate int, defaultLocale, apiKey string) (*Google, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if defaultLocale == "" {
		defaultLocale = "en-US"
	}

	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &Google{client: client, sampleRate: sampleRate, defaultLocale: defaultLocale}, nil
}

func (g *Google) Recognize(ctx context.Context, pcm []float32, lang string) (string, error) {
	if len(pcm) == 0 {
		return "", fault.New(fault.NoMatch, "recognize", ErrNoMatch)
	}
	if lang == "" {
		lang = g.defaultLocale
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(g.sampleRate),
			LanguageCode:               lang,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audioconv.ToLinear16(pcm),
			},
		},
	})
	if err != nil {
		return "", fault.Remote(ctx, "recognize "+lang, err)
	}

	text := bestTranscript(resp.GetResults())
	if text == "" {
		return "", fault.New(fault.NoMatch, "recognize "+lang, ErrNoMatch)
	}
	return text, nil
}

// bestTranscript joins the top alternative of every result.
func bestTranscript(results []*speechpb.SpeechRecognitionResult) string {
	var parts []string
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (g *Google) Close() error {
	return g.client.Close()
}
