package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stonebridgeco/parley/internal/archive"
	"github.com/stonebridgeco/parley/internal/bus"
	"github.com/stonebridgeco/parley/internal/channel"
	"github.com/stonebridgeco/parley/internal/config"
	"github.com/stonebridgeco/parley/internal/cron"
	"github.com/stonebridgeco/parley/internal/extract"
	"github.com/stonebridgeco/parley/internal/llm"
	"github.com/stonebridgeco/parley/internal/session"
)

// Options for creating a Gateway.
type Options struct {
	Client     llm.Client     // overrides the default HTTP client (for testing)
	SignalChan chan os.Signal // for testing signal handling
}

// Gateway owns per-chat sessions, the extractor, the archive, channels, and
// the maintenance scheduler. Inbound messages are processed sequentially.
type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	channels   *channel.ChannelManager
	client     llm.Client
	extractor  *extract.Extractor
	store      *archive.Store
	cron       *cron.Service
	sessions   map[string]*session.Session
	signalChan chan os.Signal
}

// New creates a Gateway with default options.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing.
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{
		cfg:        cfg,
		bus:        bus.NewMessageBus(100),
		sessions:   make(map[string]*session.Session),
		signalChan: opts.SignalChan,
	}

	g.client = opts.Client
	if g.client == nil {
		g.client = llm.NewClient(cfg)
	}
	g.extractor = extract.New(g.client)

	channels, err := channel.NewChannelManager(cfg.Channels, g.bus)
	if err != nil {
		return nil, fmt.Errorf("init channels: %w", err)
	}
	if channels.Count() == 0 {
		return nil, fmt.Errorf("no channels enabled; enable telegram in %s", config.ConfigPath())
	}
	g.channels = channels

	if cfg.Archive.Enabled {
		store, err := archive.Open(cfg.Archive.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		g.store = store
		g.cron = cron.NewService(store, cfg.Archive.RetentionDays)
	}

	return g, nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	if g.cron != nil {
		if err := g.cron.Start(ctx); err != nil {
			return fmt.Errorf("start maintenance: %w", err)
		}
	}

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
	}
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log.Printf("[gateway] running")
	for {
		select {
		case msg := <-g.bus.Inbound:
			g.handleInbound(msg)
		case sig := <-sigCh:
			log.Printf("[gateway] received %v, shutting down", sig)
			g.shutdown()
			return nil
		case <-ctx.Done():
			g.shutdown()
			return ctx.Err()
		}
	}
}

func (g *Gateway) shutdown() {
	g.channels.StopAll()
	if g.cron != nil {
		g.cron.Stop()
	}
	if g.store != nil {
		_ = g.store.Close()
	}
}

func (g *Gateway) handleInbound(msg bus.InboundMessage) {
	reply := g.dispatch(msg)
	if reply == "" {
		return
	}
	g.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: reply,
	})
}

func (g *Gateway) dispatch(msg bus.InboundMessage) string {
	content := strings.TrimSpace(msg.Content)

	switch {
	case content == "/stats":
		return g.handleStats(msg)
	case content == "/reset":
		return g.handleReset(msg)
	case strings.HasPrefix(content, "/extract"):
		return g.handleExtract(msg, strings.TrimSpace(strings.TrimPrefix(content, "/extract")))
	default:
		return g.handleChat(msg, content)
	}
}

func (g *Gateway) sessionFor(msg bus.InboundMessage) *session.Session {
	key := msg.SessionKey()
	s, ok := g.sessions[key]
	if !ok {
		s = session.New(g.client, session.LimitsFromConfig(g.cfg.Session))
		g.sessions[key] = s
	}
	return s
}

func (g *Gateway) handleChat(msg bus.InboundMessage, text string) string {
	reply, err := g.sessionFor(msg).Chat(text)
	if err != nil {
		log.Printf("[gateway] chat error for %s: %v", msg.SessionKey(), err)
		return fmt.Sprintf("Error: %v", err)
	}
	return reply
}

func (g *Gateway) handleStats(msg bus.InboundMessage) string {
	stats := g.sessionFor(msg).Stats()
	return fmt.Sprintf("%d messages, %d characters, %d words, %d turns, %d summaries",
		stats.Messages, stats.Characters, stats.Words, stats.Turns, stats.Summaries)
}

func (g *Gateway) handleReset(msg bus.InboundMessage) string {
	s := g.sessionFor(msg)
	g.archiveSession(msg, s)
	s.Reset()
	return "Session reset."
}

func (g *Gateway) archiveSession(msg bus.InboundMessage, s *session.Session) {
	if g.store == nil {
		return
	}
	stats := s.Stats()
	if stats.Messages == 0 {
		return
	}
	err := g.store.SaveTranscript(archive.TranscriptRecord{
		Channel:    msg.Channel,
		ChatID:     msg.ChatID,
		Messages:   stats.Messages,
		Characters: stats.Characters,
		Words:      stats.Words,
		Turns:      stats.Turns,
		Transcript: s.Transcript(),
	})
	if err != nil {
		log.Printf("[gateway] archive transcript error: %v", err)
	}
}

func (g *Gateway) handleExtract(msg bus.InboundMessage, text string) string {
	if text == "" {
		return "Usage: /extract <text>"
	}

	fields, err := g.extractor.Extract(text)
	if err != nil {
		log.Printf("[gateway] extract error for %s: %v", msg.SessionKey(), err)
		return fmt.Sprintf("Error: %v", err)
	}
	report := extract.Validate(fields)
	g.archiveExtraction(text, fields, report)
	return extract.FormatResult(text, fields, report)
}

func (g *Gateway) archiveExtraction(source string, f extract.Fields, r extract.Report) {
	if g.store == nil {
		return
	}
	rec := archive.ExtractionRecord{
		Source:    source,
		Extracted: r.Extracted,
		Valid:     r.Valid,
	}
	if f.Name != nil {
		rec.Name = *f.Name
	}
	if f.Email != nil {
		rec.Email = *f.Email
	}
	if f.Phone != nil {
		rec.Phone = *f.Phone
	}
	if f.Location != nil {
		rec.Location = *f.Location
	}
	if f.Age != nil {
		rec.Age = f.Age.String()
	}
	if err := g.store.SaveExtraction(rec); err != nil {
		log.Printf("[gateway] archive extraction error: %v", err)
	}
}
