package initconfig_test

import (
	"testing"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/initconfig"
	"github.com/chris-alexander-pop/cloudstub/internal/objectstore"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type InitConfigSuite struct {
	*test.Suite
	applier *initconfig.Applier
}

func TestInitConfigSuite(t *testing.T) {
	test.Run(t, &InitConfigSuite{Suite: test.NewSuite()})
}

func (s *InitConfigSuite) SetupTest() {
	s.Suite.SetupTest()
	clk := clock.NewManual(time.Unix(1700000000, 0))
	bus := spybus.New(clk, 10)
	endpoints := awsproto.Endpoints{}
	s.applier = &initconfig.Applier{
		Queues:  registry.NewQueueRegistry(clk, bus, endpoints),
		Topics:  registry.NewTopicRegistry(endpoints),
		Objects: objectstore.New(clk, bus),
	}
}

func (s *InitConfigSuite) TestApplyCreatesQueuesTopicsSubscriptionsAndBuckets() {
	cfg := initconfig.Config{
		Queues:  []initconfig.QueueConfig{{Name: "orders"}},
		Topics:  []initconfig.TopicConfig{{Name: "alerts"}},
		Subscriptions: []initconfig.SubscriptionConfig{
			{TopicName: "alerts", QueueName: "orders"},
		},
		Buckets: []initconfig.BucketConfig{{Name: "photos"}},
	}

	s.Require().NoError(s.applier.Apply(cfg))

	q, err := s.applier.Queues.LookupByName("orders")
	s.Require().NoError(err)
	_, err = s.applier.Topics.GetTopic(awsproto.Endpoints{}.TopicARN("alerts"))
	s.Require().NoError(err)

	s.Require().NoError(s.applier.Objects.HeadBucket("photos"))
	subs := s.applier.Topics.Subscriptions(awsproto.Endpoints{}.TopicARN("alerts"))
	s.Require().Len(subs, 1)
	s.Equal(q.ARN(), subs[0].Endpoint)
}

func (s *InitConfigSuite) TestApplyIsIdempotentOnRepeatedCalls() {
	cfg := initconfig.Config{
		Queues:  []initconfig.QueueConfig{{Name: "orders"}},
		Buckets: []initconfig.BucketConfig{{Name: "photos"}},
	}
	s.Require().NoError(s.applier.Apply(cfg))
	s.Require().NoError(s.applier.Apply(cfg))

	s.Require().NoError(s.applier.Objects.HeadBucket("photos"))
}

func (s *InitConfigSuite) TestApplyFailsWhenSubscriptionReferencesUnknownQueue() {
	cfg := initconfig.Config{
		Topics: []initconfig.TopicConfig{{Name: "alerts"}},
		Subscriptions: []initconfig.SubscriptionConfig{
			{TopicName: "alerts", QueueName: "missing"},
		},
	}
	s.Error(s.applier.Apply(cfg))
}
