package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"miku/internal/fault"
)

type decodeFunc func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

func decoderFor(path string) (decodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode, nil
	case ".wav":
		return func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
			return wav.Decode(rc)
		}, nil
	case ".ogg", ".oga":
		return vorbis.Decode, nil
	}
	return nil, fmt.Errorf("unsupported audio file %s", path)
}

// Player plays audio files through the default output device, one at a
// time. The speaker is opened on first use at a fixed rate and every file is
// resampled to it.
type Player struct {
	mu    sync.Mutex
	rate  beep.SampleRate
	ready bool
}

func NewPlayer(sampleRate int) *Player {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Player{rate: beep.SampleRate(sampleRate)}
}

// PlayFile blocks until the file has been played or ctx is done.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	decode, err := decoderFor(path)
	if err != nil {
		return fault.New(fault.Playback, "play", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fault.New(fault.Playback, "play", err)
	}

	streamer, format, err := decode(f)
	if err != nil {
		f.Close()
		return fault.New(fault.Playback, "decode "+filepath.Base(path), err)
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		if err := speaker.Init(p.rate, p.rate.N(time.Second/10)); err != nil {
			return fault.New(fault.Device, "open speaker", err)
		}
		p.ready = true
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return fault.New(fault.Cancelled, "play", ctx.Err())
	}
}

func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		speaker.Close()
		p.ready = false
	}
}
