package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	var calls []string
	d.Subscribe(EventUserCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.UserID)
		return boom
	})
	d.Subscribe(EventUserCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		t.Error("handler for another event type invoked")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserCreated, UserID: "u1"})
	if !errors.Is(err, boom) {
		t.Fatalf("Publish err = %v, want wrapped boom", err)
	}
	if len(calls) != 2 || calls[0] != "first:u1" || calls[1] != "second:u1" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	if err := NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventUserUpdated}); err != nil {
		t.Fatalf("Publish without subscribers: %v", err)
	}
}
