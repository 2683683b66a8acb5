package bus

import "testing"

func TestSessionKey(t *testing.T) {
	msg := InboundMessage{Channel: "telegram", ChatID: "1001"}
	if got := msg.SessionKey(); got != "telegram:1001" {
		t.Errorf("SessionKey = %q, want telegram:1001", got)
	}
}

func TestPublishOutbound_Subscribed(t *testing.T) {
	b := NewMessageBus(10)

	var got OutboundMessage
	b.SubscribeOutbound("telegram", func(msg OutboundMessage) {
		got = msg
	})

	b.PublishOutbound(OutboundMessage{Channel: "telegram", ChatID: "1", Content: "hi"})

	if got.Content != "hi" || got.ChatID != "1" {
		t.Errorf("delivered = %+v", got)
	}
}

func TestPublishOutbound_NoSubscriber(t *testing.T) {
	b := NewMessageBus(10)
	// Logs and drops, must not panic.
	b.PublishOutbound(OutboundMessage{Channel: "nowhere", ChatID: "1", Content: "hi"})
}
