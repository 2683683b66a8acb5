package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stonebridgeco/parley/internal/extract"
	"github.com/stonebridgeco/parley/internal/llm"
	"github.com/stonebridgeco/parley/internal/session"
)

// runDemo drives the three fixed scenarios sequentially. Remote errors are
// printed and the demo moves on; only config problems abort.
func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigWithKey()
	if err != nil {
		return err
	}

	client := llm.NewClient(cfg)
	out := os.Stdout

	fmt.Fprintln(out, "PARLEY DEMO")
	fmt.Fprintln(out, "Conversation Management & Information Extraction")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	demoConversation(client, out)
	demoExtraction(client, out)
	demoCombined(client, out)

	fmt.Fprintln(out, "\nAll demonstrations completed.")
	return nil
}

func demoConversation(client llm.Client, out io.Writer) {
	fmt.Fprintln(out, "\nSCENARIO 1: CONVERSATION MANAGEMENT")
	fmt.Fprintln(out, strings.Repeat("=", 50))

	fmt.Fprintln(out, "\nTest 1: summarize every 3 turns (max 6 messages, 2000 chars, 500 words)")
	runConversation(client, out, session.Limits{
		MaxMessages: 6, MaxChars: 2000, MaxWords: 500, SummarizeEvery: 3,
	}, []string{
		"Hi! I'm working on a Go project.",
		"I need help with data structures.",
		"What's the best way to store user data?",
		"Should I use a database or files?",
		"What about SQLite vs PostgreSQL?",
		"How do I connect to a database?",
		"Can you show me code examples?",
		"What about error handling?",
	})

	fmt.Fprintln(out, "\nTest 2: different limits (max 4 messages, 1000 chars, 200 words)")
	runConversation(client, out, session.Limits{
		MaxMessages: 4, MaxChars: 1000, MaxWords: 200, SummarizeEvery: 2,
	}, []string{
		"Hello! I need help with machine learning.",
		"What's the difference between supervised and unsupervised learning?",
		"Can you explain neural networks?",
		"How do I implement a simple neural network?",
		"What about deep learning frameworks?",
	})
}

func runConversation(client llm.Client, out io.Writer, limits session.Limits, topics []string) {
	s := session.New(client, limits)

	for i, topic := range topics {
		fmt.Fprintf(out, "\nTurn %d: %s\n", i+1, topic)
		reply, err := s.Chat(topic)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Response: %s\n", preview(reply, 80))
		stats := s.Stats()
		fmt.Fprintf(out, "Stats: %d msgs, %d chars, %d words\n",
			stats.Messages, stats.Characters, stats.Words)
	}

	history := s.History()
	fmt.Fprintf(out, "\nHistory (%d messages):\n", len(history))
	for i, turn := range history {
		fmt.Fprintf(out, "%d. %s: %s\n", i+1, turn.Role, preview(turn.Content, 60))
	}
}

func demoExtraction(client llm.Client, out io.Writer) {
	fmt.Fprintln(out, "\n\nSCENARIO 2: INFORMATION EXTRACTION")
	fmt.Fprintln(out, strings.Repeat("=", 50))

	extractor := extract.New(client)
	cases := []string{
		"Hi, I'm John Smith, 28, from New York. Email: john@email.com, Phone: (555) 123-4567",
		"Hello! My name is Sarah. I'm 35 and live in California. Contact: sarah@company.com",
		"Hey, I'm Mike from Seattle. You can reach me at mike@tech.io",
		"I need help with my coding project. Can you assist me?",
	}

	for i, text := range cases {
		fmt.Fprintf(out, "\nTest %d: %s\n", i+1, text)
		fields, err := extractor.Extract(text)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprint(out, extract.FormatResult(text, fields, extract.Validate(fields)))
	}
}

func demoCombined(client llm.Client, out io.Writer) {
	fmt.Fprintln(out, "\n\nSCENARIO 3: COMBINED WORKFLOW")
	fmt.Fprintln(out, strings.Repeat("=", 50))

	s := session.New(client, session.Limits{
		MaxMessages: 5, MaxChars: 1500, MaxWords: 300, SummarizeEvery: 4,
	})
	extractor := extract.New(client)

	conversation := []string{
		"Hi, I'm calling about my account. I'm David Chen, 34, from Vancouver.",
		"My email is david@email.com and phone is 604-555-0198.",
		"I'm having trouble with my subscription billing.",
		"Can you help me understand why I was charged twice?",
		"I'd like to speak to a manager about this issue.",
	}

	var fullText strings.Builder
	for i, msg := range conversation {
		fmt.Fprintf(out, "\nTurn %d: %s\n", i+1, msg)
		fullText.WriteString("Customer: " + msg + "\n")

		reply, err := s.Chat(msg)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Agent: %s\n", preview(reply, 60))
		fullText.WriteString("Agent: " + reply + "\n")

		stats := s.Stats()
		fmt.Fprintf(out, "History: %d msgs, %d chars, %d words\n",
			stats.Messages, stats.Characters, stats.Words)
	}

	fmt.Fprintln(out, "\nExtracting customer info from the transcript")
	fields, err := extractor.Extract(fullText.String())
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(out, extract.FormatResult(fullText.String(), fields, extract.Validate(fields)))
}

func preview(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
