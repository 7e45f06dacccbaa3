package registry_test

import (
	"testing"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type QueueRegistrySuite struct {
	*test.Suite
	reg *registry.QueueRegistry
}

func TestQueueRegistrySuite(t *testing.T) {
	test.Run(t, &QueueRegistrySuite{Suite: test.NewSuite()})
}

func (s *QueueRegistrySuite) SetupTest() {
	s.Suite.SetupTest()
	clk := clock.NewManual(time.Unix(1700000000, 0))
	bus := spybus.New(clk, 10)
	s.reg = registry.NewQueueRegistry(clk, bus, awsproto.Endpoints{})
}

func (s *QueueRegistrySuite) TestCreateQueueIsIdempotentByName() {
	q1, err := s.reg.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)

	q2, err := s.reg.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)
	s.Same(q1, q2)
}

func (s *QueueRegistrySuite) TestCreateQueueWithMismatchedAttributesFails() {
	_, err := s.reg.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)

	_, err = s.reg.CreateQueue("localhost", "orders", map[string]string{"VisibilityTimeout": "60"}, nil)
	s.Require().Error(err)
}

func (s *QueueRegistrySuite) TestCreateFifoQueueRequiresFifoSuffix() {
	_, err := s.reg.CreateQueue("localhost", "orders", map[string]string{"FifoQueue": "true"}, nil)
	s.Require().Error(err)

	q, err := s.reg.CreateQueue("localhost", "orders.fifo", map[string]string{"FifoQueue": "true"}, nil)
	s.Require().NoError(err)
	s.True(q.Attributes().FifoQueue)
}

func (s *QueueRegistrySuite) TestLookupByURLNameAndARN() {
	q, err := s.reg.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)

	byURL, err := s.reg.Lookup(q.URL())
	s.Require().NoError(err)
	s.Same(q, byURL)

	byName, err := s.reg.LookupByName("orders")
	s.Require().NoError(err)
	s.Same(q, byName)

	byARN, ok := s.reg.LookupByARN(q.ARN())
	s.True(ok)
	s.Same(q, byARN)
}

func (s *QueueRegistrySuite) TestDeleteQueueRemovesAllIndexes() {
	q, err := s.reg.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)

	s.Require().NoError(s.reg.DeleteQueue(q.URL()))

	_, err = s.reg.Lookup(q.URL())
	s.Error(err)
	_, err = s.reg.LookupByName("orders")
	s.Error(err)
	_, ok := s.reg.LookupByARN(q.ARN())
	s.False(ok)
}

func (s *QueueRegistrySuite) TestListQueuesFiltersByPrefixAndSorts() {
	_, err := s.reg.CreateQueue("localhost", "orders-a", nil, nil)
	s.Require().NoError(err)
	_, err = s.reg.CreateQueue("localhost", "orders-b", nil, nil)
	s.Require().NoError(err)
	_, err = s.reg.CreateQueue("localhost", "other", nil, nil)
	s.Require().NoError(err)

	urls, _ := s.reg.ListQueues("orders-", "", 100)
	s.Require().Len(urls, 2)
}
