package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/testutil"
)

func fileEvent(name string) events.Event {
	return events.NewFileDiscoveredEvent(events.FileEvent{RemoteDirectory: "/in/", RemoteFile: name})
}

func startedHub(t *testing.T, bufferSize int) *Hub {
	t.Helper()
	h := New(bufferSize)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })
	return h
}

func TestHub_New(t *testing.T) {
	h := New(0)

	if h == nil {
		t.Fatal("New() returned nil")
	}
	if cap(h.broadcast) != DefaultBufferSize {
		t.Errorf("broadcast buffer = %d, want %d", cap(h.broadcast), DefaultBufferSize)
	}
	if h.running {
		t.Error("hub should not be running initially")
	}

	if cap(New(8).broadcast) != 8 {
		t.Error("New(8) should use buffer size 8")
	}
}

func TestHub_StartStop(t *testing.T) {
	h := New(0)

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !h.IsRunning() {
		t.Error("hub should be running after Start()")
	}

	// Starting again should be a no-op
	if err := h.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.IsRunning() {
		t.Error("hub should not be running after Stop()")
	}

	// Stopping again should be a no-op
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	h := startedHub(t, 0)

	sub := testutil.NewMockSubscriber("test-1")
	h.Subscribe(sub)

	time.Sleep(10 * time.Millisecond)
	if h.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", h.SubscriberCount())
	}

	h.Unsubscribe("test-1")

	time.Sleep(10 * time.Millisecond)
	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() after unsubscribe = %d, want 0", h.SubscriberCount())
	}
	if !sub.IsClosed() {
		t.Error("subscriber should be closed after unsubscribe")
	}
}

func TestHub_PublishToMultipleSubscribers(t *testing.T) {
	h := startedHub(t, 0)

	subs := []*testutil.MockSubscriber{
		testutil.NewMockSubscriber("a"),
		testutil.NewMockSubscriber("b"),
		testutil.NewMockSubscriber("c"),
	}
	for _, s := range subs {
		h.Subscribe(s)
	}

	h.Publish(events.NewHeartbeatEvent(1, 0))

	for _, s := range subs {
		if !s.WaitForEvents(1, time.Second) {
			t.Errorf("subscriber %s got %d events, want 1", s.ID(), s.EventCount())
		}
	}
}

func TestHub_DeliverPreservesOrder(t *testing.T) {
	h := startedHub(t, 4)
	sub := testutil.NewMockSubscriber("sink")
	h.Subscribe(sub)

	names := []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt", "f.txt"}
	for _, n := range names {
		if err := h.Deliver(context.Background(), fileEvent(n)); err != nil {
			t.Fatalf("Deliver(%s) error = %v", n, err)
		}
	}

	if !sub.WaitForEvents(len(names), time.Second) {
		t.Fatalf("got %d events, want %d", sub.EventCount(), len(names))
	}
	for i, e := range sub.Events() {
		got := e.(*events.BaseEvent).Payload.(events.FileEvent).RemoteFile
		if got != names[i] {
			t.Errorf("event[%d] = %s, want %s", i, got, names[i])
		}
	}
}

func TestHub_DeliverNotRunning(t *testing.T) {
	h := New(1)

	err := h.Deliver(context.Background(), fileEvent("a.txt"))
	if !errors.Is(err, domain.ErrHubNotRunning) {
		t.Errorf("Deliver() before Start error = %v, want ErrHubNotRunning", err)
	}

	_ = h.Start()
	_ = h.Stop()

	err = h.Deliver(context.Background(), fileEvent("a.txt"))
	if !errors.Is(err, domain.ErrHubNotRunning) {
		t.Errorf("Deliver() after Stop error = %v, want ErrHubNotRunning", err)
	}
}

func TestHub_DeliverBlocksUntilContextEnds(t *testing.T) {
	h := startedHub(t, 1)

	// A subscriber that blocks keeps the hub loop busy so the buffer fills.
	release := make(chan struct{})
	sub := testutil.NewMockSubscriber("slow")
	sub.SetSendFunc(func(events.Event) error {
		<-release
		return nil
	})
	h.Subscribe(sub)
	defer close(release)

	ctx := context.Background()
	_ = h.Deliver(ctx, fileEvent("a.txt")) // taken by the loop, blocks in Send
	time.Sleep(10 * time.Millisecond)
	_ = h.Deliver(ctx, fileEvent("b.txt")) // fills the buffer

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := h.Deliver(timeout, fileEvent("c.txt"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Deliver() error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Error("Deliver() returned before the context ended")
	}
}

func TestHub_FailedSendRemovesSubscriber(t *testing.T) {
	h := startedHub(t, 0)

	bad := testutil.NewMockSubscriber("bad")
	bad.SetSendError(domain.ErrSubscriberClosed)
	good := testutil.NewMockSubscriber("good")
	h.Subscribe(bad)
	h.Subscribe(good)

	h.Publish(events.NewHeartbeatEvent(1, 0))

	if !good.WaitForEvents(1, time.Second) {
		t.Fatal("good subscriber should receive the event")
	}
	time.Sleep(10 * time.Millisecond)

	if h.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", h.SubscriberCount())
	}
	if !bad.IsClosed() {
		t.Error("failing subscriber should be closed")
	}
}

func TestHub_StopDrainsAndClosesSubscribers(t *testing.T) {
	h := New(16)
	_ = h.Start()

	sub := testutil.NewMockSubscriber("sink")
	h.Subscribe(sub)

	for _, n := range []string{"a", "b", "c"} {
		if err := h.Deliver(context.Background(), fileEvent(n)); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
	}
	_ = h.Stop()

	if sub.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3 after drain", sub.EventCount())
	}
	if !sub.IsClosed() {
		t.Error("subscriber should be closed after Stop")
	}
	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", h.SubscriberCount())
	}
}

func TestHub_ConcurrentOperations(t *testing.T) {
	h := startedHub(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := testutil.NewMockSubscriber(string(rune('a' + i)))
			h.Subscribe(sub)
			h.Publish(events.NewHeartbeatEvent(int64(i), 0))
			_ = h.Deliver(context.Background(), fileEvent("x"))
			_ = h.SubscriberCount()
		}(i)
	}
	wg.Wait()
}
