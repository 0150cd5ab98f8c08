package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/smartart/internal/domain/model"
)

func msg(id string) model.Message {
	return model.Message{ID: id, Topic: "smartart/sensor", Payload: []byte(`{"light": 1}`), ReceivedAt: time.Now()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, msg("m1")); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "m1" {
		t.Errorf("expected m1, got %v", got.ID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_FullFailsAfterTimeout(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithEnqueueTimeout(10*time.Millisecond))
	ctx := context.Background()

	for _, id := range []string{"m1", "m2"} {
		if err := q.Enqueue(ctx, msg(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	start := time.Now()
	err := q.Enqueue(ctx, msg("m3"))
	if !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if waited := time.Since(start); waited < 10*time.Millisecond {
		t.Errorf("expected enqueue to wait for room, waited %v", waited)
	}
}

func TestInMemoryQueue_FullFailsFastWithZeroTimeout(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1), WithEnqueueTimeout(0))
	ctx := context.Background()

	if err := q.Enqueue(ctx, msg("m1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, msg("m2")); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_WaitsForRoom(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1), WithEnqueueTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Enqueue(ctx, msg("m1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	out := q.Dequeue(ctx)
	go func() {
		time.Sleep(20 * time.Millisecond)
		<-out
	}()

	if err := q.Enqueue(ctx, msg("m2")); err != nil {
		t.Fatalf("expected enqueue to succeed once room frees up: %v", err)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1), WithEnqueueTimeout(time.Second))
	if err := q.Enqueue(context.Background(), msg("m1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, msg("m2")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := q.Enqueue(ctx, msg(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	i := 0
	for m := range q.Dequeue(ctx) {
		if want := fmt.Sprintf("m%d", i); m.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, m.ID)
		}
		i++
	}
	if i != 50 {
		t.Fatalf("expected to drain 50 messages after close, got %d", i)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if q.IsClosed() {
		t.Fatal("new queue reports closed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if !q.IsClosed() {
		t.Fatal("closed queue reports open")
	}
	if err := q.Enqueue(ctx, msg("late")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Fatal("expected closed dequeue channel")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue channel not closed")
	}
}
