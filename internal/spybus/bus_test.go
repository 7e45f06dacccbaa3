package spybus_test

import (
	"testing"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type BusSuite struct {
	*test.Suite
	clk *clock.Manual
}

func TestBusSuite(t *testing.T) {
	test.Run(t, &BusSuite{Suite: test.NewSuite()})
}

func (s *BusSuite) SetupTest() {
	s.Suite.SetupTest()
	s.clk = clock.NewManual(time.Unix(1700000000, 0))
}

func (s *BusSuite) TestWaitForMessageReturnsAlreadyBufferedEvent() {
	bus := spybus.New(s.clk, 10)
	bus.Add(spybus.Event{Status: spybus.StatusPublished, MessageID: "m1"})

	e, err := bus.WaitForMessage(spybus.ByMessageID("m1"), spybus.StatusPublished, time.Second)
	s.Require().NoError(err)
	s.Equal("m1", e.MessageID)
}

func (s *BusSuite) TestWaitForMessageBlocksUntilAdd() {
	bus := spybus.New(s.clk, 10)
	done := make(chan struct{})
	var gotErr error
	go func() {
		_, gotErr = bus.WaitForMessage(spybus.ByMessageID("m2"), spybus.StatusPublished, 5*time.Second)
		close(done)
	}()

	// give the waiter a moment to register before the event lands
	time.Sleep(20 * time.Millisecond)
	bus.Add(spybus.Event{Status: spybus.StatusPublished, MessageID: "m2"})

	<-done
	s.NoError(gotErr)
}

func (s *BusSuite) TestWaitForMessageTimesOut() {
	bus := spybus.New(s.clk, 10)
	done := make(chan error, 1)
	go func() {
		_, err := bus.WaitForMessage(spybus.ByMessageID("never"), spybus.StatusPublished, time.Second)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.clk.Advance(2 * time.Second)

	err := <-done
	s.Error(err)
	var timeoutErr *spybus.ErrTimeout
	s.ErrorAs(err, &timeoutErr)
}

func (s *BusSuite) TestRingEvictsOldestWhenFull() {
	bus := spybus.New(s.clk, 2)
	bus.Add(spybus.Event{Status: spybus.StatusPublished, MessageID: "m1"})
	bus.Add(spybus.Event{Status: spybus.StatusPublished, MessageID: "m2"})
	bus.Add(spybus.Event{Status: spybus.StatusPublished, MessageID: "m3"})

	_, found := bus.CheckForMessage(spybus.ByMessageID("m1"), spybus.StatusPublished)
	s.False(found)
	_, found = bus.CheckForMessage(spybus.ByMessageID("m3"), spybus.StatusPublished)
	s.True(found)
}

func (s *BusSuite) TestExpectNoMessageSucceedsWhenNothingArrives() {
	bus := spybus.New(s.clk, 10)
	done := make(chan error, 1)
	go func() {
		done <- bus.ExpectNoMessage(spybus.ByMessageID("ghost"), spybus.StatusPublished, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	s.clk.Advance(2 * time.Second)
	s.NoError(<-done)
}
