package session

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/stonebridgeco/parley/internal/config"
	"github.com/stonebridgeco/parley/internal/llm"
)

const (
	systemPrompt    = "You are helpful."
	summarizeSystem = "Summarize in 2 sentences."

	// Turns preserved verbatim when older history collapses into a summary.
	keepRecent = 2
)

// Turn is one user or assistant message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Limits are the soft caps enforced after every completed turn.
type Limits struct {
	MaxMessages    int
	MaxChars       int
	MaxWords       int
	SummarizeEvery int
}

func LimitsFromConfig(cfg config.SessionConfig) Limits {
	return Limits{
		MaxMessages:    cfg.MaxMessages,
		MaxChars:       cfg.MaxChars,
		MaxWords:       cfg.MaxWords,
		SummarizeEvery: cfg.SummarizeEvery,
	}
}

// Stats is a snapshot of the session counters.
type Stats struct {
	Messages   int
	Characters int
	Words      int
	Turns      int
	Summaries  int
}

// Completer is the remote completion surface a session needs.
type Completer interface {
	Complete(messages []llm.Message) (string, error)
}

// Session holds an ordered turn history with rolling summarization and
// count-based trimming. State is in-memory only; a crash loses it.
type Session struct {
	mu        sync.Mutex
	client    Completer
	limits    Limits
	turns     []Turn
	turnCount int
	summaries int
}

func New(client Completer, limits Limits) *Session {
	if limits.MaxMessages <= 0 {
		limits.MaxMessages = config.DefaultMaxMessages
	}
	if limits.MaxChars <= 0 {
		limits.MaxChars = config.DefaultMaxChars
	}
	if limits.MaxWords <= 0 {
		limits.MaxWords = config.DefaultMaxWords
	}
	if limits.SummarizeEvery <= 0 {
		limits.SummarizeEvery = config.DefaultSummarizeEvery
	}
	return &Session{client: client, limits: limits}
}

// Chat records a user turn, obtains the assistant reply, and enforces the
// configured limits. On completion failure the user turn is rolled back and
// the error returns to the caller; nothing is recorded for that turn.
func (s *Session) Chat(userText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, Turn{Role: "user", Content: userText})
	s.turnCount++

	if s.turnCount%s.limits.SummarizeEvery == 0 && len(s.turns) > 3 {
		s.summarize()
	}

	messages := make([]llm.Message, 0, len(s.turns)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, t := range s.turns {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}

	reply, err := s.client.Complete(messages)
	if err != nil {
		s.turns = s.turns[:len(s.turns)-1]
		s.turnCount--
		return "", fmt.Errorf("chat completion: %w", err)
	}

	s.turns = append(s.turns, Turn{Role: "assistant", Content: reply})
	s.trim()
	return reply, nil
}

// summarize collapses all but the most recent turns into one assistant turn.
// A failed summarization is logged and the turn proceeds uncompressed.
func (s *Session) summarize() {
	if len(s.turns) < 3 {
		return
	}

	old := s.turns[:len(s.turns)-keepRecent]
	var sb strings.Builder
	for _, t := range old {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}

	summary, err := s.client.Complete([]llm.Message{
		{Role: "system", Content: summarizeSystem},
		{Role: "user", Content: "Summarize: " + strings.TrimSpace(sb.String())},
	})
	if err != nil {
		log.Printf("[session] summarization failed: %v", err)
		return
	}

	kept := make([]Turn, 0, keepRecent+1)
	kept = append(kept, Turn{Role: "assistant", Content: "[SUMMARY: " + summary + "]"})
	kept = append(kept, s.turns[len(s.turns)-keepRecent:]...)
	s.turns = kept
	s.summaries++
	log.Printf("[session] summarized after %d turns, now %d messages", s.turnCount, len(s.turns))
}

// trim discards oldest turns until message, character, and word counts are
// all within limits. It runs after the assistant turn lands, so the counts
// hold at the end of every completed turn. At least one turn is kept.
func (s *Session) trim() {
	if n := len(s.turns); n > s.limits.MaxMessages {
		s.turns = s.turns[n-s.limits.MaxMessages:]
		log.Printf("[session] truncated to %d messages", s.limits.MaxMessages)
	}

	for totalChars(s.turns) > s.limits.MaxChars && len(s.turns) > 1 {
		s.turns = s.turns[1:]
	}
	for totalWords(s.turns) > s.limits.MaxWords && len(s.turns) > 1 {
		s.turns = s.turns[1:]
	}
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Messages:   len(s.turns),
		Characters: totalChars(s.turns),
		Words:      totalWords(s.turns),
		Turns:      s.turnCount,
		Summaries:  s.summaries,
	}
}

// History returns a copy of the current turns.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Transcript renders the current turns as "role: content" lines.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sb strings.Builder
	for _, t := range s.turns {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Reset clears all turns and counters.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.turnCount = 0
	s.summaries = 0
}

func totalChars(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += len(t.Content)
	}
	return total
}

func totalWords(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += len(strings.Fields(t.Content))
	}
	return total
}
