package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeActions struct {
	urls     []string
	files    []string
	launched [][]string
	err      error
}

func (f *fakeActions) OpenURL(url string) error {
	f.urls = append(f.urls, url)
	return f.err
}

func (f *fakeActions) OpenFile(path string) error {
	f.files = append(f.files, path)
	return f.err
}

func (f *fakeActions) Launch(_ context.Context, argv []string) error {
	f.launched = append(f.launched, argv)
	return f.err
}

type fakeGen struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func newTestRouter(t *testing.T, gen *fakeGen) (*Router, *fakeActions, string) {
	t.Helper()
	resume := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(resume, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	actions := &fakeActions{}
	r := New(Config{
		YouTubeURL: "https://www.youtube.com",
		SearchURL:  "https://www.google.com/search?q=",
		ResumePath: resume,
		Programs: map[string][]string{
			"notepad":    {"gedit"},
			"calculator": {"gnome-calculator"},
		},
		Now: func() time.Time { return time.Date(2024, 5, 1, 15, 4, 0, 0, time.Local) },
	}, gen, actions)
	return r, actions, resume
}

func TestMatchPriority(t *testing.T) {
	r, _, _ := newTestRouter(t, &fakeGen{})

	tests := []struct {
		text string
		want string
	}{
		{"open resume please", TriggerResume},
		{"Open Notepad", TriggerNotepad},
		{"could you open calculator", TriggerCalculator},
		{"play something on YouTube", TriggerYouTube},
		{"search cats online", TriggerSearch},
		{"what TIME is it", TriggerTime},
		{"search what time it is in tokyo", TriggerTime},
		{"search for sunset", TriggerSearch},
		{"search youtube for songs", TriggerYouTube},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := r.Match(tt.text)
			if !ok || got != tt.want {
				t.Errorf("Match(%q) = %q, %v; want %q", tt.text, got, ok, tt.want)
			}
		})
	}

	if got, ok := r.Match("tell me a joke"); ok {
		t.Errorf("Match(joke) = %q, want no match", got)
	}
}

func TestHandleResume(t *testing.T) {
	r, actions, resume := newTestRouter(t, &fakeGen{})

	reply := r.Handle(context.Background(), "open resume please")
	if reply.Trigger != TriggerResume || reply.Text != "Opening your resume" {
		t.Errorf("reply = %+v", reply)
	}
	if len(actions.files) != 1 || actions.files[0] != resume {
		t.Errorf("opened files = %v", actions.files)
	}
	if len(actions.urls) != 0 {
		t.Errorf("opened urls = %v", actions.urls)
	}

	os.Remove(resume)
	reply = r.Handle(context.Background(), "open resume")
	if reply.Text != "Resume file not found" {
		t.Errorf("missing resume reply = %q", reply.Text)
	}
}

func TestSearchQuery(t *testing.T) {
	tests := map[string]string{
		"search cats online":      "cats online",
		"Search  CATS   online ":  "cats online",
		"please search for pizza": "please for pizza",
		"search":                  "",
	}
	for in, want := range tests {
		if got := SearchQuery(in); got != want {
			t.Errorf("SearchQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleSearch(t *testing.T) {
	r, actions, _ := newTestRouter(t, &fakeGen{})

	reply := r.Handle(context.Background(), "search cats online")
	if reply.Text != "Searching for cats online" {
		t.Errorf("reply = %q", reply.Text)
	}
	if len(actions.urls) != 1 || actions.urls[0] != "https://www.google.com/search?q=cats+online" {
		t.Errorf("urls = %v", actions.urls)
	}
}

func TestHandleFixedActions(t *testing.T) {
	r, actions, _ := newTestRouter(t, &fakeGen{})
	ctx := context.Background()

	if got := r.Handle(ctx, "youtube").Text; got != "Opening YouTube" {
		t.Errorf("youtube reply = %q", got)
	}
	if got := r.Handle(ctx, "what time is it").Text; got != "The current time is 03:04 PM" {
		t.Errorf("time reply = %q", got)
	}
	if got := r.Handle(ctx, "open notepad").Text; got != "Opening Notepad" {
		t.Errorf("notepad reply = %q", got)
	}
	if got := r.Handle(ctx, "open calculator").Text; got != "Opening Calculator" {
		t.Errorf("calculator reply = %q", got)
	}
	if len(actions.launched) != 2 || actions.launched[0][0] != "gedit" || actions.launched[1][0] != "gnome-calculator" {
		t.Errorf("launched = %v", actions.launched)
	}
}

func TestHandleUnconfiguredProgram(t *testing.T) {
	actions := &fakeActions{}
	r := New(Config{}, nil, actions)
	if got := r.Handle(context.Background(), "open notepad").Text; got != "Notepad is not configured" {
		t.Errorf("reply = %q", got)
	}
	if len(actions.launched) != 0 {
		t.Errorf("launched = %v", actions.launched)
	}
}

func TestHandleActionFailure(t *testing.T) {
	r, actions, _ := newTestRouter(t, &fakeGen{})
	actions.err = errors.New("no display")

	reply := r.Handle(context.Background(), "youtube")
	if !errors.Is(reply.Err, actions.err) || reply.Text == "" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestHandleFallsThroughToGeneration(t *testing.T) {
	gen := &fakeGen{reply: "  Here's a joke.  "}
	r, _, _ := newTestRouter(t, gen)

	reply := r.Handle(context.Background(), "Tell me a joke")
	if reply.Trigger != TriggerGenerate || reply.Text != "Here's a joke." || reply.Err != nil {
		t.Errorf("reply = %+v", reply)
	}
	if gen.prompt != "Tell me a joke" {
		t.Errorf("prompt = %q", gen.prompt)
	}
}

func TestHandleGenerationFailure(t *testing.T) {
	gen := &fakeGen{err: errors.New("quota exceeded")}
	r, _, _ := newTestRouter(t, gen)

	reply := r.Handle(context.Background(), "tell me a joke")
	if !strings.HasPrefix(reply.Text, "Sorry, something went wrong") || !strings.Contains(reply.Text, "quota exceeded") {
		t.Errorf("reply text = %q", reply.Text)
	}
	if !errors.Is(reply.Err, gen.err) {
		t.Errorf("reply err = %v", reply.Err)
	}

	r = New(Config{}, nil, &fakeActions{})
	if reply := r.Handle(context.Background(), "hello"); reply.Err == nil {
		t.Error("nil generator produced no error")
	}
}
