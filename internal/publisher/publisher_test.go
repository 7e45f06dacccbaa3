package publisher_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/publisher"
	"github.com/chris-alexander-pop/cloudstub/internal/queue"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type PublisherSuite struct {
	*test.Suite
	clk    *clock.Manual
	bus    *spybus.Bus
	topics *registry.TopicRegistry
	queues *registry.QueueRegistry
	pub    *publisher.Publisher
}

func TestPublisherSuite(t *testing.T) {
	test.Run(t, &PublisherSuite{Suite: test.NewSuite()})
}

func (s *PublisherSuite) SetupTest() {
	s.Suite.SetupTest()
	s.clk = clock.NewManual(time.Unix(1700000000, 0))
	s.bus = spybus.New(s.clk, 10)
	endpoints := awsproto.Endpoints{}
	s.topics = registry.NewTopicRegistry(endpoints)
	s.queues = registry.NewQueueRegistry(s.clk, s.bus, endpoints)
	s.pub = publisher.New(s.topics, s.queues, s.bus, s.clk, endpoints)
}

func (s *PublisherSuite) TestPublishDeliversToSubscribedQueueAsEnvelope() {
	topic, err := s.topics.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)
	q, err := s.queues.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)
	_, err = s.topics.Subscribe(topic.ARN, "sqs", q.ARN(), nil)
	s.Require().NoError(err)

	res, err := s.pub.Publish(topic.ARN, "hello world", nil, nil, "", "")
	s.Require().NoError(err)
	s.NotEmpty(res.MessageID)

	out, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	var envelope map[string]any
	s.Require().NoError(json.Unmarshal([]byte(out[0].Body), &envelope))
	s.Equal("Notification", envelope["Type"])
	s.Equal("hello world", envelope["Message"])
}

func (s *PublisherSuite) TestRawMessageDeliveryBypassesEnvelope() {
	topic, err := s.topics.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)
	q, err := s.queues.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)
	_, err = s.topics.Subscribe(topic.ARN, "sqs", q.ARN(), map[string]string{"RawMessageDelivery": "true"})
	s.Require().NoError(err)

	_, err = s.pub.Publish(topic.ARN, "raw body", nil, nil, "", "")
	s.Require().NoError(err)

	out, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal("raw body", out[0].Body)
}

func (s *PublisherSuite) TestFilterPolicyExcludesNonMatchingSubscription() {
	topic, err := s.topics.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)
	matching, err := s.queues.CreateQueue("localhost", "matching", nil, nil)
	s.Require().NoError(err)
	excluded, err := s.queues.CreateQueue("localhost", "excluded", nil, nil)
	s.Require().NoError(err)

	_, err = s.topics.Subscribe(topic.ARN, "sqs", matching.ARN(), map[string]string{
		"FilterPolicy": `{"store":["example_corp"]}`,
	})
	s.Require().NoError(err)
	_, err = s.topics.Subscribe(topic.ARN, "sqs", excluded.ARN(), map[string]string{
		"FilterPolicy": `{"store":["other"]}`,
	})
	s.Require().NoError(err)

	attrs := map[string]queue.MessageAttributeValue{
		"store": {DataType: "String", StringValue: "example_corp"},
	}
	_, err = s.pub.Publish(topic.ARN, "hi", attrs, nil, "", "")
	s.Require().NoError(err)

	matched, err := matching.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(matched, 1)

	notMatched, err := excluded.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Empty(notMatched)
}

func (s *PublisherSuite) TestFIFOTopicRequiresGroupIDAndDedup() {
	topic, err := s.topics.CreateTopic("alerts.fifo", nil, nil)
	s.Require().NoError(err)

	_, err = s.pub.Publish(topic.ARN, "hi", nil, nil, "", "")
	s.Error(err)

	_, err = s.pub.Publish(topic.ARN, "hi", nil, nil, "group1", "")
	s.Error(err)

	res, err := s.pub.Publish(topic.ARN, "hi", nil, nil, "group1", "dedup1")
	s.Require().NoError(err)
	s.NotEmpty(res.SequenceNumber)
}

func (s *PublisherSuite) TestPublishBatchProcessesEachEntryIndependently() {
	topic, err := s.topics.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)
	q, err := s.queues.CreateQueue("localhost", "orders", nil, nil)
	s.Require().NoError(err)
	_, err = s.topics.Subscribe(topic.ARN, "sqs", q.ARN(), map[string]string{"RawMessageDelivery": "true"})
	s.Require().NoError(err)

	entries := []publisher.BatchEntry{
		{ID: "1", Message: "a"},
		{ID: "2", Message: ""}, // empty body is invalid and should fail alone
		{ID: "3", Message: "c"},
	}
	results := s.pub.PublishBatch(topic.ARN, entries)
	s.Require().Len(results, 3)
	s.NoError(results[0].Err)
	s.Error(results[1].Err)
	s.NoError(results[2].Err)

	delivered, err := q.Receive(10, nil, 0, nil)
	s.Require().NoError(err)
	s.Len(delivered, 2)
}
