package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/queue"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type QueueSuite struct {
	*test.Suite
	clk *clock.Manual
	bus *spybus.Bus
}

func TestQueueSuite(t *testing.T) {
	test.Run(t, &QueueSuite{Suite: test.NewSuite()})
}

func (s *QueueSuite) SetupTest() {
	s.Suite.SetupTest()
	s.clk = clock.NewManual(time.Unix(1700000000, 0))
	s.bus = spybus.New(s.clk, 100)
}

func (s *QueueSuite) newStandard() *queue.Queue {
	return queue.New(s.clk, s.bus, "q1", "http://local/000/q1", "arn:aws:sqs:us-east-1:000:q1", queue.DefaultAttributes(false))
}

func (s *QueueSuite) newFIFO() *queue.Queue {
	return queue.New(s.clk, s.bus, "q1.fifo", "http://local/000/q1.fifo", "arn:aws:sqs:us-east-1:000:q1.fifo", queue.DefaultAttributes(true))
}

func (s *QueueSuite) TestSendAndReceiveRoundTrip() {
	q := s.newStandard()
	msg, err := q.NewMessage("hello", nil, "", "", nil)
	s.Require().NoError(err)
	q.Enqueue(msg)

	out, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal("hello", out[0].Body)
	s.Equal(1, out[0].ApproximateReceiveCount)

	ok := q.DeleteMessage(out[0].ReceiptHandle)
	s.True(ok)

	empty, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *QueueSuite) TestVisibilityTimeoutRedelivery() {
	q := s.newStandard()
	msg, err := q.NewMessage("hello", nil, "", "", nil)
	s.Require().NoError(err)
	q.Enqueue(msg)

	visibility := 5
	out, err := q.Receive(10, &visibility, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	// before the timeout elapses, nothing else is available
	again, err := q.Receive(10, &visibility, 0, nil)
	s.Require().NoError(err)
	s.Empty(again)

	s.clk.Advance(6 * time.Second)
	redelivered, err := q.Receive(10, &visibility, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(redelivered, 1)
	s.Equal(2, redelivered[0].ApproximateReceiveCount)
}

func (s *QueueSuite) TestChangeVisibilityToZeroMakesImmediatelyVisible() {
	q := s.newStandard()
	msg, err := q.NewMessage("hello", nil, "", "", nil)
	s.Require().NoError(err)
	q.Enqueue(msg)

	out, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	s.Require().NoError(q.ChangeVisibility(out[0].ReceiptHandle, 0))

	again, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(again, 1)
}

func (s *QueueSuite) TestFIFOGroupLockPreventsSecondReceiveUntilDeleted() {
	q := s.newFIFO()
	m1, err := q.NewMessage("a", nil, "g1", "d1", nil)
	s.Require().NoError(err)
	q.Enqueue(m1)
	m2, err := q.NewMessage("b", nil, "g1", "d2", nil)
	s.Require().NoError(err)
	q.Enqueue(m2)

	out, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal("a", out[0].Body)

	// group g1 is locked: the second message must not be handed out yet
	again, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Empty(again)

	s.True(q.DeleteMessage(out[0].ReceiptHandle))

	next, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(next, 1)
	s.Equal("b", next[0].Body)
}

func (s *QueueSuite) TestFIFODeduplicationSuppressesDuplicateWithinWindow() {
	q := s.newFIFO()
	msg, err := q.NewMessage("a", nil, "g1", "dup-1", nil)
	s.Require().NoError(err)
	q.Enqueue(msg)

	rec, dup := q.CheckDeduplication("dup-1")
	s.True(dup)
	s.Equal(msg.MessageID, rec.MessageID)

	_, fresh := q.CheckDeduplication("never-seen")
	s.False(fresh)
}

func (s *QueueSuite) TestEnqueueDeduplicatedSuppressesDuplicateAndReturnsOriginalRecord() {
	q := s.newFIFO()
	first, err := q.NewMessage("a", nil, "g1", "dup-2", nil)
	s.Require().NoError(err)
	rec, dup := q.EnqueueDeduplicated(first)
	s.False(dup)
	s.Equal(first.MessageID, rec.MessageID)

	second, err := q.NewMessage("a", nil, "g1", "dup-2", nil)
	s.Require().NoError(err)
	rec, dup = q.EnqueueDeduplicated(second)
	s.True(dup)
	s.Equal(first.MessageID, rec.MessageID)

	out, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1, "the duplicate must not have been enqueued")
}

func (s *QueueSuite) TestEnqueueDeduplicatedIsRaceFreeUnderConcurrentSends() {
	q := s.newFIFO()
	const attempts = 50
	var wg sync.WaitGroup
	accepted := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		msg, err := q.NewMessage("a", nil, "g1", "race", nil)
		s.Require().NoError(err)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, dup := q.EnqueueDeduplicated(msg)
			accepted[i] = !dup
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range accepted {
		if ok {
			count++
		}
	}
	s.Equal(1, count, "exactly one concurrent sender should win the dedup race")
}

func (s *QueueSuite) TestDeadLetterRoutingAfterMaxReceiveCount() {
	q := s.newStandard()
	s.Require().NoError(q.SetAttributes(map[string]string{
		"RedrivePolicy": `{"deadLetterTargetArn":"arn:aws:sqs:us-east-1:000:dlq","maxReceiveCount":2}`,
	}))
	dlq := queue.New(s.clk, s.bus, "dlq", "http://local/000/dlq", "arn:aws:sqs:us-east-1:000:dlq", queue.DefaultAttributes(false))
	lookup := func(arn string) (*queue.Queue, bool) {
		if arn == "arn:aws:sqs:us-east-1:000:dlq" {
			return dlq, true
		}
		return nil, false
	}

	msg, err := q.NewMessage("poison", nil, "", "", nil)
	s.Require().NoError(err)
	q.Enqueue(msg)

	visibility := 0
	for i := 0; i < 2; i++ {
		out, err := q.Receive(10, &visibility, 0, lookup)
		s.Require().NoError(err)
		s.Require().Len(out, 1)
	}

	// third receive attempt should have routed the message to the DLQ instead
	out, err := q.Receive(10, &visibility, 0, lookup)
	s.Require().NoError(err)
	s.Empty(out)

	fromDLQ, err := dlq.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(fromDLQ, 1)
	s.Equal("poison", fromDLQ[0].Body)
}

func (s *QueueSuite) TestPurgeClearsReadyAndInflight() {
	q := s.newStandard()
	for i := 0; i < 3; i++ {
		msg, err := q.NewMessage("x", nil, "", "", nil)
		s.Require().NoError(err)
		q.Enqueue(msg)
	}
	_, err := q.Receive(1, nil, 0, nil)
	s.Require().NoError(err)

	q.Purge()

	computed := q.ComputedAttributes()
	s.Equal("0", computed["ApproximateNumberOfMessages"])
	s.Equal("0", computed["ApproximateNumberOfMessagesNotVisible"])
}

func (s *QueueSuite) TestDelaySecondsHoldsMessageBack() {
	q := s.newStandard()
	delay := 30
	msg, err := q.NewMessage("later", nil, "", "", &delay)
	s.Require().NoError(err)
	q.Enqueue(msg)

	out, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Empty(out)

	s.clk.Advance(31 * time.Second)
	out, err = q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
}
