// Package router answers canned phrases with fixed actions and hands
// everything else to the language model.
package router

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"miku/internal/llm"
)

// Trigger names as reported in Reply.Trigger.
const (
	TriggerResume     = "open resume"
	TriggerNotepad    = "open notepad"
	TriggerCalculator = "open calculator"
	TriggerYouTube    = "youtube"
	TriggerSearch     = "search"
	TriggerTime       = "time"
	TriggerGenerate   = "generate"
)

// Actions performs the side effects of matched triggers.
type Actions interface {
	OpenURL(url string) error
	OpenFile(path string) error
	Launch(ctx context.Context, argv []string) error
}

type Config struct {
	YouTubeURL string
	SearchURL  string // the escaped query is appended
	ResumePath string
	Programs   map[string][]string
	Now        func() time.Time
}

// Reply is the router's answer. Err records a failed side effect or
// generation; Text already explains it to the user.
type Reply struct {
	Trigger string
	Text    string
	Err     error
}

type handler func(ctx context.Context, text string) Reply

type trigger struct {
	phrase string
	handle handler
}

type Router struct {
	cfg      Config
	gen      llm.Generator
	actions  Actions
	triggers []trigger
}

// New builds a router. gen may be nil, in which case unmatched text is
// answered with an apology.
func New(cfg Config, gen llm.Generator, actions Actions) *Router {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	r := &Router{cfg: cfg, gen: gen, actions: actions}

	// first match wins, so the more specific phrases go first
	r.triggers = []trigger{
		{TriggerResume, r.openResume},
		{TriggerNotepad, r.launch("notepad", "Notepad")},
		{TriggerCalculator, r.launch("calculator", "Calculator")},
		{TriggerYouTube, r.openYouTube},
		{TriggerTime, r.tellTime},
		{TriggerSearch, r.search},
	}
	return r
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Match returns the trigger phrase text would be routed to, if any.
func (r *Router) Match(text string) (string, bool) {
	t, ok := r.match(fold(text))
	if !ok {
		return "", false
	}
	return t.phrase, true
}

func (r *Router) match(folded string) (trigger, bool) {
	for _, t := range r.triggers {
		if strings.Contains(folded, t.phrase) {
			return t, true
		}
	}
	return trigger{}, false
}

// Handle routes text to the first matching trigger, or to generation.
func (r *Router) Handle(ctx context.Context, text string) Reply {
	folded := fold(text)
	if t, ok := r.match(folded); ok {
		log.Debug("Routed command", "trigger", t.phrase)
		reply := t.handle(ctx, folded)
		reply.Trigger = t.phrase
		return reply
	}
	return r.generate(ctx, text)
}

func (r *Router) generate(ctx context.Context, text string) Reply {
	reply := Reply{Trigger: TriggerGenerate}
	if r.gen == nil {
		reply.Err = errors.New("no language model configured")
	} else {
		out, err := r.gen.Generate(ctx, text)
		if err == nil {
			reply.Text = strings.TrimSpace(out)
			return reply
		}
		reply.Err = err
	}
	reply.Text = fmt.Sprintf("Sorry, something went wrong: %v", reply.Err)
	return reply
}

func (r *Router) openYouTube(_ context.Context, _ string) Reply {
	if err := r.actions.OpenURL(r.cfg.YouTubeURL); err != nil {
		return Reply{Text: "I couldn't open YouTube", Err: err}
	}
	return Reply{Text: "Opening YouTube"}
}

func (r *Router) tellTime(_ context.Context, _ string) Reply {
	return Reply{Text: "The current time is " + r.cfg.Now().Format("03:04 PM")}
}

// SearchQuery strips the search trigger from text and returns what remains,
// with whitespace collapsed.
func SearchQuery(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(fold(text), TriggerSearch, "")), " ")
}

func (r *Router) search(_ context.Context, text string) Reply {
	q := SearchQuery(text)
	if err := r.actions.OpenURL(r.cfg.SearchURL + url.QueryEscape(q)); err != nil {
		return Reply{Text: "I couldn't open the browser", Err: err}
	}
	return Reply{Text: "Searching for " + q}
}

func (r *Router) launch(program, display string) handler {
	return func(ctx context.Context, _ string) Reply {
		argv := r.cfg.Programs[program]
		if len(argv) == 0 {
			return Reply{Text: display + " is not configured"}
		}
		if err := r.actions.Launch(ctx, argv); err != nil {
			return Reply{Text: "I couldn't open " + display, Err: err}
		}
		return Reply{Text: "Opening " + display}
	}
}

func (r *Router) openResume(_ context.Context, _ string) Reply {
	path := r.cfg.ResumePath
	if path == "" {
		return Reply{Text: "Resume file not found"}
	}
	if _, err := os.Stat(path); err != nil {
		return Reply{Text: "Resume file not found"}
	}
	if err := r.actions.OpenFile(path); err != nil {
		return Reply{Text: "I couldn't open your resume", Err: err}
	}
	return Reply{Text: "Opening your resume"}
}
