package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stonebridgeco/parley/internal/archive"
	"github.com/stonebridgeco/parley/internal/config"
	"github.com/stonebridgeco/parley/internal/extract"
	"github.com/stonebridgeco/parley/internal/gateway"
	"github.com/stonebridgeco/parley/internal/llm"
	"github.com/stonebridgeco/parley/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "parley - conversation management and information extraction over an LLM API",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in single message or REPL mode",
	RunE:  runChat,
}

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract personal info fields from text",
	RunE:  runExtract,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the three demonstration scenarios",
	RunE:  runDemo,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway (channels + archive maintenance)",
	RunE:  runServe,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show parley status",
	RunE:  runStatus,
}

var messageFlag string

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	rootCmd.AddCommand(chatCmd, extractCmd, demoCmd, serveCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfigWithKey() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("API key not set. Run 'parley onboard' or set PARLEY_API_KEY / GROQ_API_KEY")
	}
	return cfg, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigWithKey()
	if err != nil {
		return err
	}

	client := llm.NewClient(cfg)
	s := session.New(client, session.LimitsFromConfig(cfg.Session))

	if messageFlag != "" {
		reply, err := s.Chat(messageFlag)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	return chatREPL(s, os.Stdin, os.Stdout, os.Stderr)
}

func chatREPL(s *session.Session, stdin io.Reader, stdout, stderr io.Writer) error {
	fmt.Fprintln(stdout, "parley chat (type 'exit' to quit, '/stats' for counters)")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if input == "/stats" {
			stats := s.Stats()
			fmt.Fprintf(stdout, "%d messages, %d characters, %d words, %d turns\n",
				stats.Messages, stats.Characters, stats.Words, stats.Turns)
			continue
		}

		reply, err := s.Chat(input)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(stdout, reply)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigWithKey()
	if err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		return fmt.Errorf("no text to extract from; pass it as arguments or on stdin")
	}

	extractor := extract.New(llm.NewClient(cfg))
	fields, err := extractor.Extract(text)
	if err != nil {
		return err
	}
	report := extract.Validate(fields)
	fmt.Print(extract.FormatResult(text, fields, report))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigWithKey()
	if err != nil {
		return err
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set PARLEY_API_KEY / GROQ_API_KEY")
	fmt.Println("  3. Run 'parley demo' to try it out")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Provider.Model)
	fmt.Printf("Base URL: %s\n", cfg.Provider.BaseURL)
	fmt.Printf("API Key: %s\n", maskKey(cfg.Provider.APIKey))
	fmt.Printf("Limits: %d messages, %d chars, %d words, summarize every %d\n",
		cfg.Session.MaxMessages, cfg.Session.MaxChars, cfg.Session.MaxWords, cfg.Session.SummarizeEvery)
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)

	if !cfg.Archive.Enabled {
		fmt.Println("Archive: disabled")
		return nil
	}
	store, err := archive.Open(cfg.Archive.DBPath)
	if err != nil {
		fmt.Printf("Archive: error (%v)\n", err)
		return nil
	}
	defer store.Close()
	stats, err := store.Stats()
	if err != nil {
		fmt.Printf("Archive: error (%v)\n", err)
		return nil
	}
	fmt.Printf("Archive: %d transcripts, %d extractions (%s)\n",
		stats.Transcripts, stats.Extractions, cfg.Archive.DBPath)
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return "set"
}
