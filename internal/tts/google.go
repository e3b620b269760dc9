package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"miku/internal/fault"
)

// Google synthesizes MP3 speech with the Cloud Text-to-Speech API.
type Google struct {
	client *texttospeech.Client
	voice  *texttospeechpb.VoiceSelectionParams
	config *texttospeechpb.AudioConfig
}

// NewGoogle dials the Text-to-Speech service. voice may be empty to let the
// service pick one for lang. An empty apiKey uses application default
// credentials.
func NewGoogle(ctx context.Context, lang, voice string, rate float64, apiKey string) (*Google, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts client: %w", err)
	}
	if rate <= 0 {
		rate = 1.0
	}

	return &Google{
		client: client,
		voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice,
		},
		config: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  rate,
		},
	}, nil
}

func (g *Google) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice:       g.voice,
		AudioConfig: g.config,
	})
	if err != nil {
		return nil, "", fault.Remote(ctx, "synthesize speech", err)
	}
	return resp.GetAudioContent(), ".mp3", nil
}

func (g *Google) Close() error {
	return g.client.Close()
}
