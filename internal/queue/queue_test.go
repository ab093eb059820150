package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	want := Message{Type: "signup", Body: []byte(`{"user_id":"u1"}`)}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-msgs:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	cancel()
	select {
	case _, open := <-msgs:
		if open {
			t.Fatal("channel delivered a message after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Publish(ctx, Message{Type: "signup"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Buffer is full and nobody consumes; a cancelled context must unblock.
	cancel()
	if err := q.Publish(ctx, Message{Type: "signup"}); err == nil {
		t.Fatal("want context error on full queue with cancelled context")
	}
}
