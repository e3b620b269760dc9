// Package audio owns the local sound devices: the microphone, the speaker
// and the volume of other applications while the assistant talks.
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"miku/internal/fault"
	"miku/pkg/audioconv"
)

// ErrNoSpeech is the cause of a Timeout fault from Listen.
var ErrNoSpeech = errors.New("no speech detected")

// ListenOptions bound one utterance capture.
type ListenOptions struct {
	Calibrate       time.Duration // ambient noise measurement before listening
	Timeout         time.Duration // max wait for speech to start
	PhraseLimit     time.Duration // max utterance length once started
	Pause           time.Duration // trailing silence that ends the utterance
	EnergyThreshold float64       // RMS floor for speech
	Dynamic         bool          // track ambient level while waiting
}

// Recorder captures mono float32 audio from the default input device.
type Recorder struct {
	sampleRate int
	frameSize  int
}

// NewRecorder reads 20 ms frames at sampleRate.
func NewRecorder(sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = audioconv.DefaultSampleRate
	}
	return &Recorder{sampleRate: sampleRate, frameSize: sampleRate / 50}
}

func (r *Recorder) SampleRate() int { return r.sampleRate }

func (r *Recorder) frameDuration() time.Duration {
	return time.Duration(r.frameSize) * time.Second / time.Duration(r.sampleRate)
}

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fault.New(fault.Device, "portaudio init", err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Devices lists the names of the input-capable devices.
func (r *Recorder) Devices() ([]string, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fault.New(fault.Device, "list devices", err)
	}
	var names []string
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

type input struct {
	stream *portaudio.Stream
	buf    []float32
}

func (r *Recorder) open() (*input, error) {
	buf := make([]float32, r.frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.sampleRate), len(buf), buf)
	if err != nil {
		return nil, fault.New(fault.Device, "open microphone", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fault.New(fault.Device, "start microphone", err)
	}
	return &input{stream: stream, buf: buf}, nil
}

func (in *input) close() {
	in.stream.Stop()
	in.stream.Close()
}

// read blocks for one frame. Cancellation is checked between frames, so a
// stop request abandons the capture within one frame duration.
func (in *input) read(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fault.New(fault.Cancelled, "listen", err)
	}
	if err := in.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return fault.New(fault.Device, "read microphone", err)
	}
	return nil
}

func (r *Recorder) calibrate(ctx context.Context, in *input, d time.Duration) (float64, error) {
	frames := int(d / r.frameDuration())
	if frames <= 0 {
		return 0, nil
	}
	var sum float64
	for i := 0; i < frames; i++ {
		if err := in.read(ctx); err != nil {
			return 0, err
		}
		sum += audioconv.RMS(in.buf)
	}
	return sum / float64(frames), nil
}

// Probe opens the microphone and measures the ambient level for d.
func (r *Recorder) Probe(ctx context.Context, d time.Duration) (float64, error) {
	in, err := r.open()
	if err != nil {
		return 0, err
	}
	defer in.close()
	return r.calibrate(ctx, in, d)
}

// Listen calibrates for ambient noise, waits for speech and returns the
// utterance. No speech before opt.Timeout yields a Timeout fault wrapping
// ErrNoSpeech.
func (r *Recorder) Listen(ctx context.Context, opt ListenOptions) ([]float32, error) {
	in, err := r.open()
	if err != nil {
		return nil, err
	}
	defer in.close()

	ep := newEndpointer(opt, r.frameDuration())

	ambient, err := r.calibrate(ctx, in, opt.Calibrate)
	if err != nil {
		return nil, err
	}
	ep.calibrate(ambient)

	for {
		if err := in.read(ctx); err != nil {
			return nil, err
		}
		switch ep.push(in.buf) {
		case stepDone:
			return ep.audio(), nil
		case stepTimeout:
			return nil, fault.New(fault.Timeout, fmt.Sprintf("listen %s", opt.Timeout), ErrNoSpeech)
		}
	}
}
