package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newClient(topics ...string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: uuid.New(),
		Topics: topics,
		Send:   make(chan []byte, 8),
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ConversationTopic(uuid.New())
	c := newClient(topic)

	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(topic) != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.TopicCount(topic))
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(topic) != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.TopicCount(topic))
	}
	if _, open := <-c.Send; open {
		t.Error("unregister must close the send channel")
	}

	// A second unregister is a no-op, not a double close.
	hub.Unregister(c)
}

func TestBroadcastReachesSubscribersOnly(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ConversationTopic(uuid.New())
	in := newClient(topic)
	out := newClient(ConversationTopic(uuid.New()))
	hub.Register(in)
	hub.Register(out)

	ev := Event{Type: "message.created", Topic: topic, Timestamp: time.Now()}
	hub.Broadcast(topic, ev)

	select {
	case data := <-in.Send:
		var got Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("payload must be the event: %v", err)
		}
		if got.Type != "message.created" || got.Topic != topic {
			t.Errorf("unexpected event: %+v", got)
		}
	default:
		t.Fatal("subscriber received nothing")
	}

	select {
	case <-out.Send:
		t.Error("other topics must not receive the event")
	default:
	}
}

func TestBroadcastSkipsFullBuffers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ConversationTopic(uuid.New())
	c := newClient(topic)
	c.Send = make(chan []byte, 1)
	hub.Register(c)

	// The second broadcast finds the buffer full and must not block.
	hub.Broadcast(topic, Event{Type: "a", Topic: topic})
	done := make(chan struct{})
	go func() {
		hub.Broadcast(topic, Event{Type: "b", Topic: topic})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}

func TestProcessMessageSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient()
	hub.Register(c)

	topicA := ConversationTopic(uuid.New())
	topicB := ConversationTopic(uuid.New())

	hub.ProcessMessage(c, ClientMessage{Action: "subscribe", Topics: []string{topicA, topicB}})
	if hub.TopicCount(topicA) != 1 || hub.TopicCount(topicB) != 1 {
		t.Error("subscribe must register both topics")
	}
	if len(c.Topics) != 2 {
		t.Errorf("client must track its topics, got %v", c.Topics)
	}

	hub.ProcessMessage(c, ClientMessage{Action: "unsubscribe", Topics: []string{topicA}})
	if hub.TopicCount(topicA) != 0 {
		t.Error("unsubscribe must drop the topic")
	}
	if hub.TopicCount(topicB) != 1 {
		t.Error("remaining subscriptions must survive")
	}
	if len(c.Topics) != 1 || c.Topics[0] != topicB {
		t.Errorf("client topic list out of sync: %v", c.Topics)
	}

	// Unknown actions are ignored.
	hub.ProcessMessage(c, ClientMessage{Action: "ping"})
}

func TestPublishUsesEventTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	topic := ConversationTopic(uuid.New())
	c := newClient(topic)
	hub.Register(c)

	if err := hub.Publish(context.Background(), Event{Type: "message.created", Topic: topic}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	select {
	case <-c.Send:
	default:
		t.Error("publish must broadcast to the event's topic")
	}
}
