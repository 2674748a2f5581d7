package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agrosight/agrosight/internal/domain"
)

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(16)
	defer b.Close()
	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	sub, err := b.Subscribe(ctx, domain.TopicRunCompleted, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, domain.TopicRunCompleted, []byte(`{"run_id":"r1"}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic != domain.TopicRunCompleted {
			t.Errorf("expected topic %s, got %s", domain.TopicRunCompleted, msg.Topic)
		}
		if string(msg.Payload) != `{"run_id":"r1"}` {
			t.Errorf("unexpected payload: %s", msg.Payload)
		}
		if msg.ID == "" {
			t.Error("expected message ID to be set")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestChannelBusTopicIsolation(t *testing.T) {
	b := NewChannelBus(16)
	defer b.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	_, err := b.Subscribe(ctx, domain.TopicAlertCreated, func(ctx context.Context, msg *domain.Message) error {
		mu.Lock()
		got = append(got, msg.Topic)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b.Publish(ctx, domain.TopicRecommendationCreated, []byte("rec"))
	b.Publish(ctx, domain.TopicAlertCreated, []byte("alert"))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != domain.TopicAlertCreated {
		t.Errorf("expected only alert topic delivery, got %v", got)
	}
}

func TestChannelBusUnsubscribe(t *testing.T) {
	b := NewChannelBus(16)
	defer b.Close()
	ctx := context.Background()

	count := 0
	var mu sync.Mutex
	sub, err := b.Subscribe(ctx, domain.TopicRunRequested, func(ctx context.Context, msg *domain.Message) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b.Publish(ctx, domain.TopicRunRequested, []byte("one"))
	time.Sleep(50 * time.Millisecond)

	sub.Unsubscribe()
	b.Publish(ctx, domain.TopicRunRequested, []byte("two"))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("expected 1 delivery before unsubscribe, got %d", count)
	}
}

func TestChannelBusClosed(t *testing.T) {
	b := NewChannelBus(16)
	ctx := context.Background()

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := b.Publish(ctx, domain.TopicRunRequested, []byte("x")); err == nil {
		t.Error("expected publish on closed bus to fail")
	}
	if _, err := b.Subscribe(ctx, domain.TopicRunRequested, nil); err == nil {
		t.Error("expected subscribe on closed bus to fail")
	}
	if err := b.Ping(ctx); err == nil {
		t.Error("expected ping on closed bus to fail")
	}

	// Double close is a no-op
	if err := b.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestNewFactory(t *testing.T) {
	b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 8})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer b.Close()

	if err := b.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if _, err := New(domain.EventBusConfig{Type: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unsupported bus type")
	}
}
