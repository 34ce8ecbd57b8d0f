// Package testutil provides shared test utilities and fakes for sftplister tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/domain/ports"
)

// MockSubscriber implements ports.Subscriber for testing.
type MockSubscriber struct {
	id       string
	events   []events.Event
	mu       sync.Mutex
	closed   bool
	sendErr  error
	sendFunc func(events.Event) error
	done     chan struct{}
}

// NewMockSubscriber creates a new mock subscriber.
func NewMockSubscriber(id string) *MockSubscriber {
	return &MockSubscriber{
		id:     id,
		events: make([]events.Event, 0),
		done:   make(chan struct{}),
	}
}

// ID returns the subscriber ID.
func (m *MockSubscriber) ID() string {
	return m.id
}

// Send records the event and returns any configured error.
func (m *MockSubscriber) Send(e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendFunc != nil {
		return m.sendFunc(e)
	}
	if m.sendErr != nil {
		return m.sendErr
	}

	m.events = append(m.events, e)
	return nil
}

// Close marks the subscriber as closed.
func (m *MockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (m *MockSubscriber) Done() <-chan struct{} {
	return m.done
}

// Events returns all received events.
func (m *MockSubscriber) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

// EventCount returns the number of received events.
func (m *MockSubscriber) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// WaitForEvents polls until at least n events arrived or timeout passes.
func (m *MockSubscriber) WaitForEvents(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.EventCount() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.EventCount() >= n
}

// IsClosed returns whether the subscriber was closed.
func (m *MockSubscriber) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetSendError configures an error to return on Send.
func (m *MockSubscriber) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetSendFunc sets a custom function for Send behavior.
func (m *MockSubscriber) SetSendFunc(fn func(events.Event) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFunc = fn
}

// Ensure MockSubscriber implements ports.Subscriber.
var _ ports.Subscriber = (*MockSubscriber)(nil)

// MockEventHub implements ports.EventHub for testing. Deliver and Publish
// are recorded separately so tests can tell sink traffic from status events.
type MockEventHub struct {
	published   []events.Event
	delivered   []events.Event
	subscribers []ports.Subscriber
	deliverErr  error
	mu          sync.Mutex
	started     bool
	stopped     bool
}

// NewMockEventHub creates a new mock event hub.
func NewMockEventHub() *MockEventHub {
	return &MockEventHub{}
}

// Start marks the hub as started.
func (m *MockEventHub) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

// Stop marks the hub as stopped.
func (m *MockEventHub) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// Publish records the event.
func (m *MockEventHub) Publish(e events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, e)
}

// Deliver records the event unless a delivery error is configured.
func (m *MockEventHub) Deliver(ctx context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliverErr != nil {
		return m.deliverErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.delivered = append(m.delivered, e)
	return nil
}

// SetDeliverError configures an error to return on Deliver.
func (m *MockEventHub) SetDeliverError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliverErr = err
}

// Subscribe records the subscriber.
func (m *MockEventHub) Subscribe(sub ports.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, sub)
}

// Unsubscribe removes a subscriber by ID.
func (m *MockEventHub) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub.ID() == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of subscribers.
func (m *MockEventHub) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// IsRunning returns true if the hub was started and not stopped.
func (m *MockEventHub) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.stopped
}

// PublishedEvents returns all events passed to Publish.
func (m *MockEventHub) PublishedEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.published))
	copy(result, m.published)
	return result
}

// DeliveredEvents returns all events accepted by Deliver.
func (m *MockEventHub) DeliveredEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.delivered))
	copy(result, m.delivered)
	return result
}

// DeliveredFiles returns the file payloads accepted by Deliver, in order.
func (m *MockEventHub) DeliveredFiles() []events.FileEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var files []events.FileEvent
	for _, e := range m.delivered {
		if be, ok := e.(*events.BaseEvent); ok {
			if f, ok := be.Payload.(events.FileEvent); ok {
				files = append(files, f)
			}
		}
	}
	return files
}

// Ensure MockEventHub implements ports.EventHub.
var _ ports.EventHub = (*MockEventHub)(nil)

// FakeLister implements ports.DirectoryLister with scripted results.
// Each List call consumes the next scripted listing; once the script is
// exhausted the last listing repeats.
type FakeLister struct {
	mu       sync.Mutex
	listings [][]ports.DirectoryEntry
	errs     []error
	calls    int
	dirs     []string
	block    chan struct{}
}

// NewFakeLister creates a lister that returns the given listings in turn.
func NewFakeLister(listings ...[]ports.DirectoryEntry) *FakeLister {
	return &FakeLister{listings: listings}
}

// Entries builds a listing from names; "." and ".." become parent markers.
func Entries(names ...string) []ports.DirectoryEntry {
	entries := make([]ports.DirectoryEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, ports.DirectoryEntry{
			Name:           n,
			IsParentMarker: n == "." || n == "..",
			IsDir:          n == "." || n == "..",
		})
	}
	return entries
}

// FailOn makes the call with the given zero-based index fail with err.
func (f *FakeLister) FailOn(call int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.errs) <= call {
		f.errs = append(f.errs, nil)
	}
	f.errs[call] = err
}

// BlockUntil makes every List call wait for ch to be closed (or ctx to end).
func (f *FakeLister) BlockUntil(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = ch
}

// List returns the next scripted listing.
func (f *FakeLister) List(ctx context.Context, remoteDir string) ([]ports.DirectoryEntry, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.dirs = append(f.dirs, remoteDir)
	block := f.block
	var err error
	if call < len(f.errs) {
		err = f.errs[call]
	}
	var listing []ports.DirectoryEntry
	if len(f.listings) > 0 {
		idx := call
		if idx >= len(f.listings) {
			idx = len(f.listings) - 1
		}
		listing = f.listings[idx]
	}
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, domain.NewListError(remoteDir, ctx.Err())
		}
	}

	if err != nil {
		return nil, domain.NewListError(remoteDir, err)
	}

	result := make([]ports.DirectoryEntry, len(listing))
	copy(result, listing)
	return result, nil
}

// Target returns a fixed description.
func (f *FakeLister) Target() string {
	return "fake@localhost:22"
}

// Calls returns the number of List calls.
func (f *FakeLister) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Dirs returns the directories passed to List.
func (f *FakeLister) Dirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.dirs))
	copy(result, f.dirs)
	return result
}

// Ensure FakeLister implements ports.DirectoryLister.
var _ ports.DirectoryLister = (*FakeLister)(nil)

// AssertEqual is a simple equality assertion helper.
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertTrue asserts that a condition is true.
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("%s: expected true, got false", msg)
	}
}

// AssertFalse asserts that a condition is false.
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Errorf("%s: expected false, got true", msg)
	}
}

// AssertNoError asserts that an error is nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError asserts that an error is not nil.
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

// AssertContains checks if a string contains a substring.
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: string %q does not contain %q", msg, s, substr)
	}
}

// AssertFiles checks that files has exactly the given base names, in order.
func AssertFiles(t *testing.T, files []events.FileEvent, names ...string) {
	t.Helper()
	if len(files) != len(names) {
		t.Errorf("got %d files %v, want %v", len(files), files, names)
		return
	}
	for i, f := range files {
		if f.RemoteFile != names[i] {
			t.Errorf("file[%d] = %q, want %q", i, f.RemoteFile, names[i])
		}
	}
}
