package audio

import (
	"math"
	"time"

	"miku/pkg/audioconv"
)

const (
	// energyRatio scales the calibrated ambient level into a speech threshold.
	energyRatio = 1.5
	// dynamicDamping is the fraction of the old threshold kept per second of
	// ambient audio while waiting for speech.
	dynamicDamping = 0.15
	// preRoll is how much audio before the first loud frame is kept so word
	// onsets are not clipped.
	preRoll = 300 * time.Millisecond
)

type step int

const (
	stepWaiting step = iota
	stepSpeaking
	stepDone
	stepTimeout
)

// endpointer decides, frame by frame, when an utterance starts and ends.
type endpointer struct {
	frameDur time.Duration
	opt      ListenOptions

	threshold float64
	waited    time.Duration
	speaking  bool
	phrase    time.Duration
	silence   time.Duration

	pre [][]float32
	out []float32
}

func newEndpointer(opt ListenOptions, frameDur time.Duration) *endpointer {
	return &endpointer{
		frameDur:  frameDur,
		opt:       opt,
		threshold: opt.EnergyThreshold,
	}
}

// calibrate raises the threshold above the measured ambient level. It never
// drops below the configured floor.
func (e *endpointer) calibrate(ambient float64) {
	if t := ambient * energyRatio; t > e.opt.EnergyThreshold {
		e.threshold = t
	}
}

func (e *endpointer) push(frame []float32) step {
	rms := audioconv.RMS(frame)

	if !e.speaking {
		if rms > e.threshold {
			e.speaking = true
			for _, f := range e.pre {
				e.out = append(e.out, f...)
			}
			e.pre = nil
			e.out = append(e.out, frame...)
			e.phrase = e.frameDur
			return e.checkLimit()
		}

		e.waited += e.frameDur
		if e.opt.Dynamic {
			damping := math.Pow(dynamicDamping, e.frameDur.Seconds())
			target := rms * energyRatio
			e.threshold = e.threshold*damping + target*(1-damping)
			if e.threshold < e.opt.EnergyThreshold {
				e.threshold = e.opt.EnergyThreshold
			}
		}
		e.keepPreRoll(frame)

		if e.opt.Timeout > 0 && e.waited >= e.opt.Timeout {
			return stepTimeout
		}
		return stepWaiting
	}

	e.out = append(e.out, frame...)
	e.phrase += e.frameDur
	if rms > e.threshold {
		e.silence = 0
	} else {
		e.silence += e.frameDur
		if e.opt.Pause > 0 && e.silence >= e.opt.Pause {
			return stepDone
		}
	}
	return e.checkLimit()
}

func (e *endpointer) checkLimit() step {
	if e.opt.PhraseLimit > 0 && e.phrase >= e.opt.PhraseLimit {
		return stepDone
	}
	return stepSpeaking
}

func (e *endpointer) keepPreRoll(frame []float32) {
	limit := int(preRoll / e.frameDur)
	if limit <= 0 {
		return
	}
	e.pre = append(e.pre, append([]float32(nil), frame...))
	if len(e.pre) > limit {
		e.pre = e.pre[len(e.pre)-limit:]
	}
}

func (e *endpointer) audio() []float32 { return e.out }
