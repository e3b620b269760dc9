package history

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendKeepsMostRecent(t *testing.T) {
	h := New(20)
	for i := 0; i < 25; i++ {
		h.Append(Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	turns := h.Turns()
	if len(turns) != 20 {
		t.Fatalf("len = %d, want 20", len(turns))
	}
	for i, turn := range turns {
		want := fmt.Sprintf("m%d", i+5)
		if turn.Content != want {
			t.Errorf("turns[%d] = %q, want %q", i, turn.Content, want)
		}
	}
}

func TestAppendPairCrossingLimit(t *testing.T) {
	h := New(20)
	for i := 0; i < 10; i++ {
		h.Append(
			Turn{Role: RoleUser, Content: fmt.Sprintf("q%d", i)},
			Turn{Role: RoleAssistant, Content: fmt.Sprintf("a%d", i)},
		)
	}
	if h.Len() != 20 {
		t.Fatalf("Len = %d, want 20", h.Len())
	}

	h.Append(Turn{Role: RoleUser, Content: "q10"}, Turn{Role: RoleAssistant, Content: "a10"})
	turns := h.Turns()
	if len(turns) != 20 {
		t.Fatalf("len = %d, want 20", len(turns))
	}
	if turns[0].Content != "q1" || turns[19].Content != "a10" {
		t.Errorf("window = %q..%q, want q1..a10", turns[0].Content, turns[19].Content)
	}
}

func TestTurnsIsCopy(t *testing.T) {
	h := New(0)
	h.Append(Turn{Role: RoleUser, Content: "hi"})
	turns := h.Turns()
	turns[0].Content = "changed"
	if h.Turns()[0].Content != "hi" {
		t.Error("Turns() aliases internal storage")
	}
	if h.Limit() != DefaultLimit {
		t.Errorf("Limit = %d, want %d", h.Limit(), DefaultLimit)
	}
}

func TestClear(t *testing.T) {
	h := New(4)
	h.Append(Turn{Role: RoleUser, Content: "a"}, Turn{Role: RoleAssistant, Content: "b"})
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len after Clear = %d", h.Len())
	}
}

func TestConcurrentAppend(t *testing.T) {
	h := New(20)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Append(Turn{Role: RoleUser, Content: "x"})
			}
		}()
	}
	wg.Wait()
	if h.Len() != 20 {
		t.Errorf("Len = %d, want 20", h.Len())
	}
}

func TestBuildPrompt(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there"},
	}

	got := BuildPrompt("Be nice.", turns, "what's up")
	want := "Be nice.\n\nYou: hello\nAssistant: hi there\nYou: what's up\nAssistant:"
	if got != want {
		t.Errorf("BuildPrompt() =\n%q\nwant\n%q", got, want)
	}

	got = BuildPrompt("", nil, "first")
	if got != "You: first\nAssistant:" {
		t.Errorf("BuildPrompt() without persona = %q", got)
	}
}
