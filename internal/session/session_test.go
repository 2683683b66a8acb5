package session

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stonebridgeco/parley/internal/llm"
)

// mockCompleter answers summarization requests with a fixed summary and
// everything else via replyFn.
type mockCompleter struct {
	replyFn func(messages []llm.Message) (string, error)
	calls   int
}

func (m *mockCompleter) Complete(messages []llm.Message) (string, error) {
	m.calls++
	if m.replyFn != nil {
		return m.replyFn(messages)
	}
	return "ok", nil
}

func isSummarizeRequest(messages []llm.Message) bool {
	return len(messages) == 2 && messages[0].Content == summarizeSystem
}

func TestChat_AppendsUserAndAssistantTurns(t *testing.T) {
	s := New(&mockCompleter{replyFn: func(messages []llm.Message) (string, error) {
		if messages[0].Role != "system" {
			t.Fatalf("first message role = %q, want system", messages[0].Role)
		}
		return "hello back", nil
	}}, Limits{MaxMessages: 10, MaxChars: 5000, MaxWords: 1000, SummarizeEvery: 3})

	reply, err := s.Chat("hello")
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if reply != "hello back" {
		t.Errorf("reply = %q", reply)
	}

	h := s.History()
	if len(h) != 2 {
		t.Fatalf("history = %d turns, want 2", len(h))
	}
	if h[0].Role != "user" || h[0].Content != "hello" {
		t.Errorf("first turn = %+v", h[0])
	}
	if h[1].Role != "assistant" || h[1].Content != "hello back" {
		t.Errorf("second turn = %+v", h[1])
	}

	stats := s.Stats()
	if stats.Turns != 1 || stats.Messages != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestChat_CompletionFailureRollsBackTurn(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := New(&mockCompleter{replyFn: func(messages []llm.Message) (string, error) {
		return "", boom
	}}, Limits{SummarizeEvery: 3})

	if _, err := s.Chat("hello"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped quota error, got %v", err)
	}
	if got := len(s.History()); got != 0 {
		t.Errorf("history = %d turns, want 0 after rollback", got)
	}
	if s.Stats().Turns != 0 {
		t.Errorf("turn count = %d, want 0 after rollback", s.Stats().Turns)
	}
}

func TestChat_CountsWithinLimitsAfterEveryTurn(t *testing.T) {
	limits := Limits{MaxMessages: 6, MaxChars: 400, MaxWords: 80, SummarizeEvery: 3}
	s := New(&mockCompleter{replyFn: func(messages []llm.Message) (string, error) {
		if isSummarizeRequest(messages) {
			return "summary of earlier discussion", nil
		}
		return strings.Repeat("reply word ", 10), nil
	}}, limits)

	for i := 0; i < 12; i++ {
		if _, err := s.Chat(fmt.Sprintf("turn %d with a medium length question about databases", i)); err != nil {
			t.Fatalf("Chat %d error: %v", i, err)
		}
		stats := s.Stats()
		if stats.Messages > limits.MaxMessages {
			t.Fatalf("turn %d: messages = %d > %d", i, stats.Messages, limits.MaxMessages)
		}
		if stats.Characters > limits.MaxChars {
			t.Fatalf("turn %d: characters = %d > %d", i, stats.Characters, limits.MaxChars)
		}
		if stats.Words > limits.MaxWords {
			t.Fatalf("turn %d: words = %d > %d", i, stats.Words, limits.MaxWords)
		}
	}
}

func TestChat_SummarizesExactlyEveryN(t *testing.T) {
	summaries := 0
	s := New(&mockCompleter{replyFn: func(messages []llm.Message) (string, error) {
		if isSummarizeRequest(messages) {
			summaries++
			return "condensed history", nil
		}
		return "a reply", nil
	}}, Limits{MaxMessages: 100, MaxChars: 100000, MaxWords: 20000, SummarizeEvery: 3})

	for i := 0; i < 9; i++ {
		if _, err := s.Chat(fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Chat error: %v", err)
		}
	}

	// Triggers at turns 3, 6, and 9, never in between.
	if summaries != 3 {
		t.Errorf("summarize calls = %d, want 3", summaries)
	}
	if s.Stats().Summaries != summaries {
		t.Errorf("stats.Summaries = %d, want %d", s.Stats().Summaries, summaries)
	}
}

func TestChat_SummaryReplacesOldTurns(t *testing.T) {
	s := New(&mockCompleter{replyFn: func(messages []llm.Message) (string, error) {
		if isSummarizeRequest(messages) {
			return "they discussed databases", nil
		}
		return "a reply", nil
	}}, Limits{MaxMessages: 100, MaxChars: 100000, MaxWords: 20000, SummarizeEvery: 2})

	for i := 0; i < 4; i++ {
		if _, err := s.Chat(fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Chat error: %v", err)
		}
	}

	h := s.History()
	found := false
	for _, turn := range h {
		if strings.HasPrefix(turn.Content, "[SUMMARY: ") {
			if turn.Role != "assistant" {
				t.Errorf("summary turn role = %q, want assistant", turn.Role)
			}
			found = true
		}
	}
	if !found {
		t.Errorf("no summary turn in history: %+v", h)
	}
}

func TestChat_SummarizeFailureIsNotFatal(t *testing.T) {
	s := New(&mockCompleter{replyFn: func(messages []llm.Message) (string, error) {
		if isSummarizeRequest(messages) {
			return "", errors.New("summarizer down")
		}
		return "a reply", nil
	}}, Limits{MaxMessages: 100, MaxChars: 100000, MaxWords: 20000, SummarizeEvery: 2})

	for i := 0; i < 4; i++ {
		if _, err := s.Chat(fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Chat %d error: %v", i, err)
		}
	}
	if s.Stats().Summaries != 0 {
		t.Errorf("summaries = %d, want 0 when summarizer fails", s.Stats().Summaries)
	}
	if s.Stats().Messages != 8 {
		t.Errorf("messages = %d, want 8 (nothing compressed)", s.Stats().Messages)
	}
}

func TestReset(t *testing.T) {
	s := New(&mockCompleter{}, Limits{SummarizeEvery: 3})
	if _, err := s.Chat("hello"); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	s.Reset()
	stats := s.Stats()
	if stats.Messages != 0 || stats.Turns != 0 {
		t.Errorf("stats after reset = %+v", stats)
	}
}

func TestTranscript(t *testing.T) {
	s := New(&mockCompleter{replyFn: func(messages []llm.Message) (string, error) {
		return "the answer", nil
	}}, Limits{SummarizeEvery: 3})
	if _, err := s.Chat("the question"); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	got := s.Transcript()
	want := "user: the question\nassistant: the answer\n"
	if got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}
