// Package spybus implements the process-wide, bounded FIFO ring of
// observable events that lets tests await state transitions in the engine
// (spec.md §4.6). The ring-buffer shape is adapted from the teacher's
// pkg/datastructures/queue/ring.Buffer, but producers never block on a
// full bus — the oldest event is evicted instead, per spec.
package spybus

import (
	"fmt"
	"sync"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/clock"
)

// Filter matches an Event. A nil Filter matches everything.
type Filter func(Event) bool

// ByMessageID returns a Filter that matches events carrying the given
// message id.
func ByMessageID(id string) Filter {
	return func(e Event) bool { return e.MessageID == id }
}

// MatchPartial builds a Filter performing a deep key-by-key comparison
// against the supplied partial object, per spec.md §4.6 ("a partial object
// that is deep-compared key-by-key against the event").
func MatchPartial(partial map[string]any) Filter {
	return func(e Event) bool { return matchFields(e, partial) }
}

const defaultCapacity = 100

// ErrTimeout is returned when a wait deadline elapses with no match.
type ErrTimeout struct {
	Collected, Expected int
}

func (e *ErrTimeout) Error() string {
	if e.Expected > 1 {
		return fmt.Sprintf("spybus: timed out waiting for messages (collected %d/%d)", e.Collected, e.Expected)
	}
	return "spybus: timed out waiting for message"
}

// ErrCleared is delivered to every pending waiter when Clear is called.
// expectNoMessage treats it as success; every other caller treats it as a
// failure.
var ErrCleared = fmt.Errorf("spybus: cleared")

type waiter struct {
	filter Filter
	status string
	need   int
	got    []Event
	result chan waiterResult
}

type waiterResult struct {
	events []Event
	err    error
}

// Bus is the process-wide spy event store.
type Bus struct {
	clock    clock.Clock
	capacity int

	mu      sync.Mutex
	events  []Event
	waiters []*waiter
}

// New creates a Bus with the given ring capacity. A capacity <= 0 uses the
// spec default of 100.
func New(clk clock.Clock, capacity int) *Bus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Bus{clock: clk, capacity: capacity}
}

// Add appends an event, evicting the oldest if the ring is full, then
// delivers it to every waiter whose matcher accepts it, in the order those
// waiters were registered (spec.md §4.6 and §5).
func (b *Bus) Add(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = b.clock.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, e)
	if len(b.events) > b.capacity {
		b.events = b.events[len(b.events)-b.capacity:]
	}

	remaining := b.waiters[:0]
	for _, w := range b.waiters {
		if !accepts(w.filter, w.status, e) {
			remaining = append(remaining, w)
			continue
		}
		w.got = append(w.got, e)
		if len(w.got) >= w.need {
			w.result <- waiterResult{events: w.got}
			continue
		}
		remaining = append(remaining, w)
	}
	b.waiters = remaining
}

// CheckForMessage scans the buffer oldest-to-newest and returns the first
// match, if any.
func (b *Bus) CheckForMessage(filter Filter, status string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if accepts(filter, status, e) {
			return e, true
		}
	}
	return Event{}, false
}

// WaitForMessage returns an existing match immediately, or blocks until one
// arrives, the timeout elapses, or Clear is called.
func (b *Bus) WaitForMessage(filter Filter, status string, timeout time.Duration) (Event, error) {
	events, err := b.waitForN(filter, status, 1, timeout)
	if err != nil {
		return Event{}, err
	}
	return events[0], nil
}

// WaitForMessages collects existing matches first; if fewer than count, it
// registers for the remainder, failing on timeout with a message noting
// collected/expected (spec.md §4.6).
func (b *Bus) WaitForMessages(filter Filter, count int, status string, timeout time.Duration) ([]Event, error) {
	return b.waitForN(filter, status, count, timeout)
}

// WaitForMessageWithID is shorthand for WaitForMessage with a message-id
// predicate.
func (b *Bus) WaitForMessageWithID(id string, status string, timeout time.Duration) (Event, error) {
	return b.WaitForMessage(ByMessageID(id), status, timeout)
}

// ExpectNoMessage fails immediately if a match is already buffered, and
// fails if one arrives within the window; it succeeds when the window
// elapses with nothing, or when Clear fires during the window.
func (b *Bus) ExpectNoMessage(filter Filter, status string, within time.Duration) error {
	if within <= 0 {
		within = 200 * time.Millisecond
	}
	if _, ok := b.CheckForMessage(filter, status); ok {
		return fmt.Errorf("spybus: expected no message but one was already present")
	}

	w := &waiter{filter: filter, status: status, need: 1, result: make(chan waiterResult, 1)}
	b.mu.Lock()
	b.waiters = append(b.waiters, w)
	b.mu.Unlock()

	select {
	case res := <-w.result:
		if res.err == ErrCleared {
			return nil
		}
		return fmt.Errorf("spybus: expected no message but one arrived")
	case <-b.clock.After(within):
		b.deregister(w)
		return nil
	}
}

// Clear empties the buffer and signals every pending waiter with
// ErrCleared.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	for _, w := range b.waiters {
		w.result <- waiterResult{err: ErrCleared}
	}
	b.waiters = nil
}

func (b *Bus) waitForN(filter Filter, status string, count int, timeout time.Duration) ([]Event, error) {
	if count <= 0 {
		count = 1
	}

	b.mu.Lock()
	var collected []Event
	for _, e := range b.events {
		if accepts(filter, status, e) {
			collected = append(collected, e)
			if len(collected) >= count {
				break
			}
		}
	}
	if len(collected) >= count {
		b.mu.Unlock()
		return collected[:count], nil
	}

	w := &waiter{filter: filter, status: status, need: count, got: collected, result: make(chan waiterResult, 1)}
	b.waiters = append(b.waiters, w)
	b.mu.Unlock()

	if timeout <= 0 {
		res := <-w.result
		return res.events, res.err
	}

	select {
	case res := <-w.result:
		if res.err != nil {
			return nil, res.err
		}
		return res.events, nil
	case <-b.clock.After(timeout):
		b.deregister(w)
		return nil, &ErrTimeout{Collected: len(w.got), Expected: count}
	}
}

func (b *Bus) deregister(target *waiter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.waiters[:0]
	for _, w := range b.waiters {
		if w != target {
			remaining = append(remaining, w)
		}
	}
	b.waiters = remaining
}

func accepts(filter Filter, status string, e Event) bool {
	if status != "" && e.Status != status {
		return false
	}
	if filter == nil {
		return true
	}
	return filter(e)
}
