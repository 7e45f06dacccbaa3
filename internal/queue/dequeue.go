package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
)

// Dequeue returns up to max messages, first running processTimersLocked
// (spec.md §4.1). max must be in 1..10 (spec.md §8); out-of-range values are
// rejected rather than clamped. Standard queues pop from the head of ready;
// FIFO queues take at most one message per unlocked group, in the insertion
// order of each group's first message.
func (q *Queue) Dequeue(max int, visibilityOverride *int, dlqLookup DLQLookup) ([]ReceivedMessage, error) {
	if max < 1 || max > 10 {
		return nil, apperrors.InvalidParameterValue("MaxNumberOfMessages must be between 1 and 10")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clk.Now().UnixMilli()
	q.processTimersLocked(now)

	visibility := q.attrs.VisibilityTimeout
	if visibilityOverride != nil {
		visibility = *visibilityOverride
	}
	deadline := now + int64(visibility)*1000

	if q.attrs.FifoQueue {
		return q.dequeueFIFOLocked(max, now, deadline, dlqLookup), nil
	}
	return q.dequeueStandardLocked(max, now, deadline, dlqLookup), nil
}

func (q *Queue) dequeueStandardLocked(max int, now, deadline int64, dlqLookup DLQLookup) []ReceivedMessage {
	var out []ReceivedMessage
	for len(out) < max && len(q.ready) > 0 {
		msg := q.ready[0]
		q.ready = q.ready[1:]

		if q.routeToDLQIfExceededLocked(msg, dlqLookup) {
			continue
		}

		out = append(out, q.admitInflightLocked(msg, now, deadline, ""))
	}
	return out
}

func (q *Queue) dequeueFIFOLocked(max int, now, deadline int64, dlqLookup DLQLookup) []ReceivedMessage {
	var out []ReceivedMessage
	for _, group := range q.groupOrder {
		if len(out) >= max {
			break
		}
		if q.lockedGroups[group] > 0 {
			continue
		}
		msgs := q.readyByGroup[group]
		if len(msgs) == 0 {
			continue
		}
		msg := msgs[0]
		q.readyByGroup[group] = msgs[1:]

		if q.routeToDLQIfExceededLocked(msg, dlqLookup) {
			continue
		}

		out = append(out, q.admitInflightLocked(msg, now, deadline, group))
		q.lockedGroups[group]++
	}
	return out
}

// routeToDLQIfExceededLocked increments the receive count and, if a
// RedrivePolicy is present and the new count exceeds maxReceiveCount,
// routes msg to the dead-letter queue and reports true so the caller skips
// it (spec.md §4.1).
func (q *Queue) routeToDLQIfExceededLocked(msg *Message, dlqLookup DLQLookup) bool {
	msg.ReceiveCount++
	if msg.FirstReceiveMillis == 0 {
		msg.FirstReceiveMillis = q.clk.Now().UnixMilli()
	}

	rp := q.attrs.RedrivePolicy
	if rp == nil || msg.ReceiveCount <= rp.MaxReceiveCount {
		return false
	}
	if dlqLookup == nil {
		return false
	}
	dlq, ok := dlqLookup(rp.DeadLetterTargetArn)
	if !ok {
		return false
	}

	if q.bus != nil {
		q.bus.Add(spybus.Event{
			Service:   spybus.ServiceSQS,
			Status:    spybus.StatusDLQ,
			QueueName: q.name,
			MessageID: msg.MessageID,
			Body:      msg.Body,
		})
	}

	dlqCopy := *msg
	dlqCopy.ReceiveCount = 0
	dlqCopy.FirstReceiveMillis = 0
	dlqCopy.DelayUntilMillis = 0
	dlq.Enqueue(&dlqCopy)
	return true
}

func (q *Queue) admitInflightLocked(msg *Message, now, deadline int64, groupID string) ReceivedMessage {
	handle := uuid.New().String()
	msg.ReceiptHandle = handle
	q.inflight[handle] = &inflightEntry{msg: msg, deadlineMillis: deadline, groupID: groupID}

	return ReceivedMessage{
		MessageID:                        msg.MessageID,
		ReceiptHandle:                     handle,
		Body:                              msg.Body,
		BodyDigest:                        msg.BodyDigest,
		AttributesDigest:                  msg.AttributesDigest,
		MessageAttributes:                 msg.MessageAttributes,
		ApproximateReceiveCount:           msg.ReceiveCount,
		SentTimestamp:                     msg.SentTimestamp,
		ApproximateFirstReceiveTimestamp:  msg.FirstReceiveMillis,
		MessageGroupID:                    msg.MessageGroupID,
		DeduplicationID:                   msg.DeduplicationID,
		SequenceNumber:                    msg.SequenceNumber,
	}
}

// DeleteMessage removes the inflight entry for receiptHandle and emits a
// consumed spy event. Unknown handles are a no-op success (spec.md §4.1).
func (q *Queue) DeleteMessage(receiptHandle string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.inflight[receiptHandle]
	if !ok {
		return false
	}
	delete(q.inflight, receiptHandle)

	if q.bus != nil {
		q.bus.Add(spybus.Event{
			Service:   spybus.ServiceSQS,
			Status:    spybus.StatusConsumed,
			QueueName: q.name,
			MessageID: entry.msg.MessageID,
			Body:      entry.msg.Body,
		})
	}

	if q.attrs.FifoQueue && entry.groupID != "" {
		q.lockedGroups[entry.groupID]--
		if q.lockedGroups[entry.groupID] <= 0 {
			delete(q.lockedGroups, entry.groupID)
			if len(q.readyByGroup[entry.groupID]) > 0 {
				q.signal(1)
			}
		}
	}
	return true
}

// ChangeVisibility updates or clears an inflight message's visibility
// deadline (spec.md §4.1).
func (q *Queue) ChangeVisibility(receiptHandle string, seconds int) error {
	if seconds < 0 || seconds > 43200 {
		return apperrors.InvalidParameterValue("visibility timeout out of range")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.inflight[receiptHandle]
	if !ok {
		return apperrors.MessageNotInflight()
	}

	if seconds == 0 {
		delete(q.inflight, receiptHandle)
		q.returnToFrontLocked(entry)
		return nil
	}

	entry.deadlineMillis = q.clk.Now().UnixMilli() + int64(seconds)*1000
	return nil
}

// returnToFrontLocked restores a message to the front of its pool,
// preserving FIFO group lock bookkeeping.
func (q *Queue) returnToFrontLocked(entry *inflightEntry) {
	if q.attrs.FifoQueue && entry.groupID != "" {
		group := entry.groupID
		q.readyByGroup[group] = append([]*Message{entry.msg}, q.readyByGroup[group]...)
		q.lockedGroups[group]--
		if q.lockedGroups[group] <= 0 {
			delete(q.lockedGroups, group)
		}
		q.signal(1)
		return
	}
	q.ready = append([]*Message{entry.msg}, q.ready...)
	q.signal(1)
}

// Purge clears ready, delayed, inflight, FIFO groups, and locks. The dedup
// cache and waiters are left untouched (spec.md §4.1).
func (q *Queue) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ready = nil
	q.delayed = nil
	q.inflight = make(map[string]*inflightEntry)
	q.readyByGroup = make(map[string][]*Message)
	q.delayedByGroup = make(map[string][]*Message)
	q.lockedGroups = make(map[string]int)
}

// processTimersLocked moves expired inflight entries back to the front of
// their pool and expired delayed entries to the tail of ready, signaling
// waiters if ready gained anything. Caller must hold q.mu.
func (q *Queue) processTimersLocked(now int64) {
	gained := false

	for handle, entry := range q.inflight {
		if entry.deadlineMillis > now {
			continue
		}
		delete(q.inflight, handle)
		if q.attrs.FifoQueue && entry.groupID != "" {
			group := entry.groupID
			q.readyByGroup[group] = append([]*Message{entry.msg}, q.readyByGroup[group]...)
			q.lockedGroups[group]--
			if q.lockedGroups[group] <= 0 {
				delete(q.lockedGroups, group)
			}
		} else {
			q.ready = append([]*Message{entry.msg}, q.ready...)
		}
		gained = true
	}

	if q.attrs.FifoQueue {
		for group, msgs := range q.delayedByGroup {
			var remaining []*Message
			for _, msg := range msgs {
				if msg.isDelayed(now) {
					remaining = append(remaining, msg)
					continue
				}
				q.readyByGroup[group] = append(q.readyByGroup[group], msg)
				q.emitPublished(msg)
				gained = true
			}
			q.delayedByGroup[group] = remaining
		}
	} else {
		var remaining []*Message
		for _, msg := range q.delayed {
			if msg.isDelayed(now) {
				remaining = append(remaining, msg)
				continue
			}
			q.ready = append(q.ready, msg)
			q.emitPublished(msg)
			gained = true
		}
		q.delayed = remaining
	}

	if gained {
		q.signal(0)
	}
}

// signal wakes up to n waiters (0 means all), FIFO by registration order.
// Caller must hold q.mu.
func (q *Queue) signal(n int) {
	if len(q.waiters) == 0 {
		return
	}
	if n <= 0 || n > len(q.waiters) {
		n = len(q.waiters)
	}
	for i := 0; i < n; i++ {
		close(q.waiters[i].ch)
	}
	q.waiters = q.waiters[n:]
}

// waitForSignal blocks until the ready pool may have gained a message, the
// timeout elapses, or the queue is cancelled (deleted, via Cancel).
func (q *Queue) waitForSignal(timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return
	}
	w := &waiter{ch: make(chan struct{})}
	q.waiters = append(q.waiters, w)
	q.ensureTickerLocked()
	q.mu.Unlock()

	select {
	case <-w.ch:
	case <-q.clk.After(timeout):
		q.deregisterWaiter(w)
	case <-q.cancelCh:
	}
}

// Receive is the long-polling entrypoint: it attempts Dequeue immediately,
// and if nothing is available and waitSeconds > 0, re-attempts until a
// message arrives, the wait elapses, or the queue is cancelled (spec.md
// §4.1 "waitForMessages", §5 "suspension points").
func (q *Queue) Receive(max int, visibilityOverride *int, waitSeconds int, dlqLookup DLQLookup) ([]ReceivedMessage, error) {
	out, err := q.Dequeue(max, visibilityOverride, dlqLookup)
	if err != nil || len(out) > 0 || waitSeconds <= 0 {
		return out, err
	}

	deadline := q.clk.Now().UnixMilli() + int64(waitSeconds)*1000
	for {
		remaining := deadline - q.clk.Now().UnixMilli()
		if remaining <= 0 {
			return nil, nil
		}
		q.waitForSignal(time.Duration(remaining) * time.Millisecond)

		out, err := q.Dequeue(max, visibilityOverride, dlqLookup)
		if err != nil || len(out) > 0 {
			return out, err
		}
		if q.isCancelled() {
			return nil, nil
		}
	}
}

func (q *Queue) isCancelled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancelled
}

func (q *Queue) deregisterWaiter(target *waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w == target {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			break
		}
	}
}

// ensureTickerLocked starts the ~20ms background scan while at least one
// waiter is registered (spec.md §9). Caller must hold q.mu.
func (q *Queue) ensureTickerLocked() {
	if q.tickerOn {
		return
	}
	q.tickerOn = true
	q.tickerStop = make(chan struct{})
	stop := q.tickerStop
	go q.tickerLoop(stop)
}

func (q *Queue) tickerLoop(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-q.clk.After(tickInterval):
		}

		q.mu.Lock()
		if len(q.waiters) == 0 {
			q.tickerOn = false
			q.mu.Unlock()
			return
		}
		q.processTimersLocked(q.clk.Now().UnixMilli())
		q.mu.Unlock()
	}
}

// Cancel stops all waiters with "no messages" semantics and halts the
// ticker. Called by the registry on queue deletion (spec.md §3 "Lifecycle").
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancelled {
		return
	}
	q.cancelled = true
	close(q.cancelCh)
	if q.tickerOn {
		close(q.tickerStop)
		q.tickerOn = false
	}
	q.waiters = nil
}
