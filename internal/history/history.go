// Package history keeps the bounded conversation log that is replayed into
// every generation prompt.
package history

import (
	"strings"
	"sync"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultLimit is the number of turns retained when New is given zero.
const DefaultLimit = 20

// Turn is one utterance in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is an append-only log that keeps only the most recent limit turns.
// It is safe for concurrent use; the control socket may clear it while a
// turn is running.
type History struct {
	mu    sync.Mutex
	limit int
	turns []Turn
}

func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Append adds turns in order and discards the oldest ones beyond the limit.
func (h *History) Append(turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turns...)
	if over := len(h.turns) - h.limit; over > 0 {
		kept := make([]Turn, h.limit)
		copy(kept, h.turns[over:])
		h.turns = kept
	}
}

// Turns returns a copy of the retained turns, oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Turn(nil), h.turns...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

func (h *History) Limit() int { return h.limit }

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// Label is the speaker prefix a role gets in a prompt.
func Label(r Role) string {
	if r == RoleUser {
		return "You"
	}
	return "Assistant"
}

// Transcript renders turns as "You: ..." / "Assistant: ..." lines.
func Transcript(turns []Turn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(Label(t.Role))
		sb.WriteString(": ")
		sb.WriteString(t.Content)
	}
	return sb.String()
}

// BuildPrompt assembles the persona preamble, the prior conversation and the
// new utterance, ending with an open assistant line for the model to fill.
func BuildPrompt(persona string, turns []Turn, utterance string) string {
	var sb strings.Builder
	if p := strings.TrimSpace(persona); p != "" {
		sb.WriteString(p)
		sb.WriteString("\n\n")
	}
	if len(turns) > 0 {
		sb.WriteString(Transcript(turns))
		sb.WriteString("\n")
	}
	sb.WriteString(Label(RoleUser))
	sb.WriteString(": ")
	sb.WriteString(utterance)
	sb.WriteString("\n")
	sb.WriteString(Label(RoleAssistant))
	sb.WriteString(":")
	return sb.String()
}
