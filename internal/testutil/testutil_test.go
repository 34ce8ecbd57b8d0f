package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/events"
)

func TestMockSubscriber_Send(t *testing.T) {
	sub := NewMockSubscriber("test-1")

	if err := sub.Send(events.NewHeartbeatEvent(1, 0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if sub.EventCount() != 1 {
		t.Errorf("EventCount() = %d, want 1", sub.EventCount())
	}

	sub.SetSendError(errors.New("boom"))
	if err := sub.Send(events.NewHeartbeatEvent(2, 0)); err == nil {
		t.Error("Send() should return configured error")
	}
	if sub.EventCount() != 1 {
		t.Errorf("EventCount() = %d, want 1 after failed send", sub.EventCount())
	}
}

func TestMockSubscriber_WaitForEvents(t *testing.T) {
	sub := NewMockSubscriber("test-1")

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = sub.Send(events.NewHeartbeatEvent(1, 0))
	}()

	if !sub.WaitForEvents(1, time.Second) {
		t.Error("WaitForEvents() should see the event")
	}
	if sub.WaitForEvents(2, 20*time.Millisecond) {
		t.Error("WaitForEvents(2) should time out")
	}
}

func TestMockSubscriber_Close(t *testing.T) {
	sub := NewMockSubscriber("test-1")
	_ = sub.Close()
	_ = sub.Close()

	if !sub.IsClosed() {
		t.Error("IsClosed() should be true")
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Done() should be closed")
	}
}

func TestMockEventHub_DeliverAndPublish(t *testing.T) {
	h := NewMockEventHub()
	ctx := context.Background()

	file := events.FileEvent{RemoteDirectory: "/in/", RemoteFile: "a.txt"}
	if err := h.Deliver(ctx, events.NewFileDiscoveredEvent(file)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	h.Publish(events.NewCycleCompletedEvent(events.CyclePayload{Cycle: 1}))

	if len(h.DeliveredEvents()) != 1 {
		t.Errorf("DeliveredEvents() = %d, want 1", len(h.DeliveredEvents()))
	}
	if len(h.PublishedEvents()) != 1 {
		t.Errorf("PublishedEvents() = %d, want 1", len(h.PublishedEvents()))
	}
	AssertFiles(t, h.DeliveredFiles(), "a.txt")

	h.SetDeliverError(domain.ErrHubNotRunning)
	if err := h.Deliver(ctx, events.NewFileDiscoveredEvent(file)); !errors.Is(err, domain.ErrHubNotRunning) {
		t.Errorf("Deliver() error = %v, want ErrHubNotRunning", err)
	}
}

func TestMockEventHub_Subscribers(t *testing.T) {
	h := NewMockEventHub()
	h.Subscribe(NewMockSubscriber("a"))
	h.Subscribe(NewMockSubscriber("b"))
	h.Unsubscribe("a")

	if h.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", h.SubscriberCount())
	}

	_ = h.Start()
	if !h.IsRunning() {
		t.Error("IsRunning() should be true after Start")
	}
	_ = h.Stop()
	if h.IsRunning() {
		t.Error("IsRunning() should be false after Stop")
	}
}

func TestFakeLister(t *testing.T) {
	l := NewFakeLister(Entries("..", "a.txt"), Entries("..", "a.txt", "b.txt"))
	l.FailOn(1, errors.New("connection reset"))
	ctx := context.Background()

	first, err := l.List(ctx, "/in/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(first) != 2 || !first[0].IsParentMarker || first[1].IsParentMarker {
		t.Errorf("first listing = %+v", first)
	}

	_, err = l.List(ctx, "/in/")
	if !errors.Is(err, domain.ErrListFailure) {
		t.Errorf("second List() error = %v, want ErrListFailure", err)
	}

	// Script exhausted: the last listing repeats.
	for i := 0; i < 2; i++ {
		got, err := l.List(ctx, "/in/")
		if err != nil || len(got) != 3 {
			t.Errorf("List() = %d entries, %v; want 3, nil", len(got), err)
		}
	}

	if l.Calls() != 4 {
		t.Errorf("Calls() = %d, want 4", l.Calls())
	}
	if dirs := l.Dirs(); dirs[0] != "/in/" {
		t.Errorf("Dirs()[0] = %s, want /in/", dirs[0])
	}
}

func TestFakeLister_BlockHonoursContext(t *testing.T) {
	l := NewFakeLister(Entries("a"))
	l.BlockUntil(make(chan struct{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := l.List(ctx, "/in/"); !errors.Is(err, domain.ErrListFailure) {
		t.Errorf("List() error = %v, want ErrListFailure", err)
	}
}

func TestAssertHelpers(t *testing.T) {
	AssertEqual(t, 1, 1, "equal")
	AssertTrue(t, true, "true")
	AssertFalse(t, false, "false")
	AssertNoError(t, nil, "no error")
	AssertError(t, errors.New("x"), "error")
	AssertContains(t, "hello world", "world", "contains")
}
