// Package queue implements the core in-memory messaging engine: the
// per-queue state machine described in spec.md §4.1 — standard and FIFO
// pools, visibility timers, long-poll waiters, and FIFO deduplication.
//
// Timer handling is grounded on the teacher's
// pkg/datastructures/queue/delay.Queue (a heap-backed delay queue with a
// notify channel), adapted here into a pool-transition scan
// (processTimersLocked) driven both eagerly (every dequeue) and by a
// best-effort ~20ms ticker while at least one long-poll waiter is
// registered — matching spec.md §4.1/§9 rather than the teacher's
// single-item heap, since a Queue must move many delayed/inflight
// messages at once.
package queue

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
)

const tickInterval = 20 * time.Millisecond

// DLQLookup resolves a dead-letter target queue by ARN.
type DLQLookup func(arn string) (*Queue, bool)

// ReceivedMessage is what Dequeue hands back to a caller.
type ReceivedMessage struct {
	MessageID                       string
	ReceiptHandle                   string
	Body                             string
	BodyDigest                       string
	AttributesDigest                 string
	MessageAttributes                map[string]MessageAttributeValue
	ApproximateReceiveCount          int
	SentTimestamp                    int64
	ApproximateFirstReceiveTimestamp int64
	MessageGroupID                   string
	DeduplicationID                  string
	SequenceNumber                   string
}

type inflightEntry struct {
	msg            *Message
	deadlineMillis int64
	groupID        string // empty for standard queues
}

type waiter struct {
	ch chan struct{}
}

// Queue is one queue's full runtime state (spec.md §3).
type Queue struct {
	clk clock.Clock
	bus *spybus.Bus

	name string
	url  string
	arn  string

	mu               sync.Mutex
	attrs            Attributes
	tags             *OrderedTags
	createdAt        int64
	lastModifiedAt   int64

	// standard pools
	ready    []*Message
	delayed  []*Message
	inflight map[string]*inflightEntry

	// FIFO extras
	readyByGroup   map[string][]*Message
	delayedByGroup map[string][]*Message
	lockedGroups   map[string]int
	groupOrder     []string
	dedup          *dedupCache
	seq            uint64

	waiters    []*waiter
	tickerStop chan struct{}
	tickerOn   bool
	cancelled  bool
	cancelCh   chan struct{}
}

// New creates a Queue in the given registry's naming scheme.
func New(clk clock.Clock, bus *spybus.Bus, name, url, arn string, attrs Attributes) *Queue {
	now := clk.Now().Unix()
	q := &Queue{
		clk:            clk,
		bus:            bus,
		name:           name,
		url:            url,
		arn:            arn,
		attrs:          attrs,
		tags:           NewOrderedTags(),
		createdAt:      now,
		lastModifiedAt: now,
		inflight:       make(map[string]*inflightEntry),
		readyByGroup:   make(map[string][]*Message),
		delayedByGroup: make(map[string][]*Message),
		lockedGroups:   make(map[string]int),
		cancelCh:       make(chan struct{}),
	}
	q.dedup = newDedupCache(func() time.Time { return clk.Now() })
	return q
}

func (q *Queue) Name() string { return q.name }
func (q *Queue) URL() string  { return q.url }
func (q *Queue) ARN() string  { return q.arn }

// Attributes returns a copy of the current settable attributes.
func (q *Queue) Attributes() Attributes {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.attrs
}

// SetAttributes applies a batch of wire-form attribute updates.
func (q *Queue) SetAttributes(updates map[string]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	next := q.attrs
	for name, value := range updates {
		if err := next.ApplyString(name, value); err != nil {
			return err
		}
	}
	q.attrs = next
	q.lastModifiedAt = q.clk.Now().Unix()
	return nil
}

// SetTag sets one tag under the queue lock. The tag map is not exposed
// directly; it is read and changed only through SetTag/DeleteTag/ListTags.
func (q *Queue) SetTag(key, value string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tags.Set(key, value)
}

func (q *Queue) DeleteTag(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tags.Delete(key)
}

func (q *Queue) ListTags() map[string]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]string, q.tags.Len())
	q.tags.Each(func(k, v string) { out[k] = v })
	return out
}

// Timestamps returns created/last-modified unix seconds.
func (q *Queue) Timestamps() (created, modified int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.createdAt, q.lastModifiedAt
}

// ComputedAttributes returns the attributes whose value must reflect
// current state (spec.md §4.1).
func (q *Queue) ComputedAttributes() map[string]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ready := len(q.ready)
	for _, msgs := range q.readyByGroup {
		ready += len(msgs)
	}
	delayed := len(q.delayed)
	for _, msgs := range q.delayedByGroup {
		delayed += len(msgs)
	}
	return map[string]string{
		"ApproximateNumberOfMessages":           strconv.Itoa(ready),
		"ApproximateNumberOfMessagesNotVisible": strconv.Itoa(len(q.inflight)),
		"ApproximateNumberOfMessagesDelayed":    strconv.Itoa(delayed),
	}
}

// NewMessage builds a Message from caller-supplied fields, computing
// digests and validating body/size. It does not enqueue.
func (q *Queue) NewMessage(body string, attrs map[string]MessageAttributeValue, groupID, dedupID string, delaySeconds *int) (*Message, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}

	fifoAttrs := q.Attributes()
	maxSize := fifoAttrs.MaximumMessageSize
	if size := messageSize(body, attrs); size > maxSize {
		return nil, apperrors.InvalidParameterValue("message size exceeds MaximumMessageSize")
	}

	delay := fifoAttrs.DelaySeconds
	if delaySeconds != nil {
		delay = *delaySeconds
	}
	if delay < 0 || delay > 900 {
		return nil, apperrors.InvalidParameterValue("DelaySeconds must be between 0 and 900")
	}

	now := q.clk.Now()
	msg := &Message{
		MessageID:         uuid.New().String(),
		Body:              body,
		BodyDigest:        bodyDigest(body),
		MessageAttributes: attrs,
		AttributesDigest:  attributesDigest(attrs),
		SentTimestamp:     now.UnixMilli(),
		MessageGroupID:    groupID,
	}
	if delay > 0 {
		msg.DelayUntilMillis = now.Add(time.Duration(delay) * time.Second).UnixMilli()
	}

	if fifoAttrs.FifoQueue {
		effectiveDedup := dedupID
		if effectiveDedup == "" && fifoAttrs.ContentBasedDeduplication {
			effectiveDedup = contentBasedDedup(body)
		}
		msg.DeduplicationID = effectiveDedup
	}

	return msg, nil
}

// CheckDeduplication reports whether dedupId is already live in the cache
// (spec.md §4.1). It does not record anything, so callers that intend to
// enqueue on a miss must use EnqueueDeduplicated instead of pairing this
// with a separate Enqueue call — two concurrent callers could otherwise
// both observe a miss and both enqueue.
func (q *Queue) CheckDeduplication(dedupID string) (dedupRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dedup.checkDuplicate(dedupID)
}

// Enqueue inserts msg into delayed or ready (spec.md §4.1). Returns the
// sequence number assigned for FIFO queues. Callers with a deduplication ID
// to honor must use EnqueueDeduplicated instead, which performs the check
// and the insert under a single lock acquisition.
func (q *Queue) Enqueue(msg *Message) string {
	q.mu.Lock()
	seqNumber := q.enqueueLocked(msg)
	q.mu.Unlock()
	return seqNumber
}

// EnqueueDeduplicated checks msg's DeduplicationID against the dedup cache
// and enqueues msg only on a miss, both under one lock acquisition — closing
// the check-then-act race a separate CheckDeduplication/Enqueue pair leaves
// open between two concurrent sends sharing a dedupId (spec.md §8: "no new
// message is enqueued" for a live duplicate). If dedupID is already live,
// the existing record is returned and msg is not enqueued.
func (q *Queue) EnqueueDeduplicated(msg *Message) (rec dedupRecord, duplicate bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if msg.DeduplicationID != "" {
		if existing, dup := q.dedup.checkDuplicate(msg.DeduplicationID); dup {
			return existing, true
		}
	}

	seqNumber := q.enqueueLocked(msg)
	return dedupRecord{MessageID: msg.MessageID, SequenceNumber: seqNumber}, false
}

// enqueueLocked performs the actual insert; caller must hold q.mu.
func (q *Queue) enqueueLocked(msg *Message) string {
	var seqNumber string
	if q.attrs.FifoQueue {
		q.seq++
		seqNumber = formatSequenceNumber(q.seq)
		msg.SequenceNumber = seqNumber

		if msg.DeduplicationID != "" {
			q.dedup.record(msg.DeduplicationID, msg.MessageID, seqNumber)
		}

		q.ensureGroupOrder(msg.MessageGroupID)
		now := q.clk.Now().UnixMilli()
		if msg.isDelayed(now) {
			q.delayedByGroup[msg.MessageGroupID] = append(q.delayedByGroup[msg.MessageGroupID], msg)
		} else {
			q.readyByGroup[msg.MessageGroupID] = append(q.readyByGroup[msg.MessageGroupID], msg)
			q.emitPublished(msg)
			q.signal(1)
		}
	} else {
		now := q.clk.Now().UnixMilli()
		if msg.isDelayed(now) {
			q.delayed = append(q.delayed, msg)
		} else {
			q.ready = append(q.ready, msg)
			q.emitPublished(msg)
			q.signal(1)
		}
	}
	return seqNumber
}

func (q *Queue) ensureGroupOrder(group string) {
	for _, g := range q.groupOrder {
		if g == group {
			return
		}
	}
	q.groupOrder = append(q.groupOrder, group)
}

func (q *Queue) emitPublished(msg *Message) {
	if q.bus == nil {
		return
	}
	q.bus.Add(spybus.Event{
		Service:           spybus.ServiceSQS,
		Status:            spybus.StatusPublished,
		QueueName:         q.name,
		MessageID:         msg.MessageID,
		Body:              msg.Body,
		MessageAttributes: toSpyAttributes(msg.MessageAttributes),
	})
}

func toSpyAttributes(attrs map[string]MessageAttributeValue) map[string]spybus.MessageAttribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]spybus.MessageAttribute, len(attrs))
	for k, v := range attrs {
		out[k] = spybus.MessageAttribute{DataType: v.DataType, StringValue: v.StringValue, BinaryValue: v.BinaryValue}
	}
	return out
}
