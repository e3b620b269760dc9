// Package fault classifies failures of the external calls a turn makes
// (microphone, recognition, generation, synthesis, playback) so the
// orchestrator can branch on a kind instead of on concrete error types.
package fault

import (
	"context"
	"errors"
	"fmt"
)

type Kind int

const (
	None Kind = iota
	Unknown
	Device    // microphone or speaker could not be opened
	Timeout   // no speech before the listen deadline
	NoMatch   // audio captured but nothing recognized
	Service   // remote recognition/generation/synthesis request failed
	Playback  // synthesis or playback failed locally
	Cancelled // stop requested while the call was in flight
)

var kindNames = map[Kind]string{
	None:      "none",
	Unknown:   "unknown",
	Device:    "device",
	Timeout:   "timeout",
	NoMatch:   "no-match",
	Service:   "service",
	Playback:  "playback",
	Cancelled: "cancelled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error carries the kind of a failed operation along with its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a failure of the given kind. A nil err still yields an
// error so callers can signal kinds like Timeout without a cause.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err. Context cancellation anywhere in the chain
// is Cancelled and deadline expiry is Service unless a fault.Error says
// otherwise.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled
	case errors.Is(err, context.DeadlineExceeded):
		return Service
	}
	return Unknown
}

// Is reports whether err is a failure of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Remote classifies the failure of a request to a remote service: Cancelled
// when ctx was cancelled by the caller, Service otherwise.
func Remote(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return New(Cancelled, op, err)
	}
	return New(Service, op, err)
}
