package bus

import (
	"log"
	"sync"
	"time"
)

type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}

// MessageBus routes inbound channel traffic to the gateway and outbound
// replies back to the channel that owns the chat.
type MessageBus struct {
	Inbound chan InboundMessage

	mu       sync.RWMutex
	outbound map[string]func(OutboundMessage)
}

func NewMessageBus(bufSize int) *MessageBus {
	if bufSize <= 0 {
		bufSize = 100
	}
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufSize),
		outbound: make(map[string]func(OutboundMessage)),
	}
}

func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outbound[channel] = fn
}

func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.mu.RLock()
	fn := b.outbound[msg.Channel]
	b.mu.RUnlock()
	if fn == nil {
		log.Printf("[bus] no outbound subscriber for channel %q", msg.Channel)
		return
	}
	fn(msg)
}
