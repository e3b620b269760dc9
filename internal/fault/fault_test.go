package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: None},
		{name: "plain", err: base, want: Unknown},
		{name: "device", err: New(Device, "open mic", base), want: Device},
		{name: "wrapped timeout", err: fmt.Errorf("listen: %w", New(Timeout, "wait", nil)), want: Timeout},
		{name: "canceled", err: fmt.Errorf("read: %w", context.Canceled), want: Cancelled},
		{name: "deadline", err: context.DeadlineExceeded, want: Service},
		{name: "explicit beats context", err: New(Playback, "play", context.Canceled), want: Playback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(Service, "recognize en-US", errors.New("unavailable"))
	if got := err.Error(); got != "recognize en-US: unavailable" {
		t.Errorf("Error() = %q", got)
	}

	err = New(Timeout, "listen", nil)
	if got := err.Error(); got != "listen: timeout" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, Timeout) {
		t.Error("Is(Timeout) = false")
	}
}

func TestRemote(t *testing.T) {
	cause := errors.New("503 unavailable")

	if got := KindOf(Remote(context.Background(), "generate", cause)); got != Service {
		t.Errorf("KindOf(Remote) = %v, want %v", got, Service)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := KindOf(Remote(ctx, "generate", cause)); got != Cancelled {
		t.Errorf("KindOf(Remote, cancelled ctx) = %v, want %v", got, Cancelled)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()
	err := Remote(ctx, "generate", ctx.Err())
	if got := KindOf(err); got != Service {
		t.Errorf("KindOf(Remote, expired ctx) = %v, want %v", got, Service)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Remote() dropped the cause")
	}
}
