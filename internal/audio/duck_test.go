package audio

import (
	"context"
	"strings"
	"testing"
	"time"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "miku"
Sink Input #bogus
	Volume: 10%
`

type fakePactl struct {
	listing string
	sets    []string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	if args[0] == "list" {
		return []byte(f.listing), nil
	}
	f.sets = append(f.sets, strings.Join(args[1:], " "))
	return nil, nil
}

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	if len(got) != 2 {
		t.Fatalf("parsed %d inputs, want 2: %+v", len(got), got)
	}
	if got[0] != (sinkInput{ID: 41, Volume: 80, AppName: "Firefox"}) {
		t.Errorf("first = %+v", got[0])
	}
	if got[1] != (sinkInput{ID: 57, Volume: 100, AppName: "miku"}) {
		t.Errorf("second = %+v", got[1])
	}
}

func TestDuckAndRestoreSkipsSelf(t *testing.T) {
	fake := &fakePactl{listing: sinkInputs}
	d := NewDucker([]string{"miku"}, 10)
	d.run = fake.run

	ctx := context.Background()
	if err := d.DuckOthers(ctx, 0.25, 0); err != nil {
		t.Fatalf("DuckOthers() error = %v", err)
	}
	if want := []string{"41 20%"}; strings.Join(fake.sets, ",") != strings.Join(want, ",") {
		t.Errorf("duck sets = %v, want %v", fake.sets, want)
	}

	// second duck while active does nothing
	if err := d.DuckOthers(ctx, 0.25, 0); err != nil || len(fake.sets) != 1 {
		t.Errorf("repeated duck: err=%v sets=%v", err, fake.sets)
	}

	fake.listing = strings.Replace(sinkInputs, "80%", "20%", 2)
	fake.sets = nil
	if err := d.UnduckOthers(ctx, 0); err != nil {
		t.Fatalf("UnduckOthers() error = %v", err)
	}
	if strings.Join(fake.sets, ",") != "41 80%" {
		t.Errorf("restore sets = %v", fake.sets)
	}
}

func TestFadeSteps(t *testing.T) {
	fake := &fakePactl{}
	d := NewDucker(nil, 0)
	d.run = fake.run
	var slept time.Duration
	d.sleep = func(dur time.Duration) { slept += dur }

	err := d.fade(context.Background(), []fade{{id: 1, from: 100, to: 50}}, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	want := "1 100%,1 75%,1 50%"
	if got := strings.Join(fake.sets, ","); got != want {
		t.Errorf("fade sets = %s, want %s", got, want)
	}
	if slept != 20*time.Millisecond {
		t.Errorf("slept %v, want 20ms", slept)
	}
}
