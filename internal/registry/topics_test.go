package registry_test

import (
	"testing"

	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type TopicRegistrySuite struct {
	*test.Suite
	reg *registry.TopicRegistry
}

func TestTopicRegistrySuite(t *testing.T) {
	test.Run(t, &TopicRegistrySuite{Suite: test.NewSuite()})
}

func (s *TopicRegistrySuite) SetupTest() {
	s.Suite.SetupTest()
	s.reg = registry.NewTopicRegistry(awsproto.Endpoints{})
}

func (s *TopicRegistrySuite) TestCreateTopicIdempotentOneDirectional() {
	t1, err := s.reg.CreateTopic("alerts", map[string]string{"DisplayName": "Alerts"}, nil)
	s.Require().NoError(err)

	// omitting an attribute the existing topic already has is fine
	// (one-directional: only mentioned keys are checked)
	t2, err := s.reg.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)
	s.Same(t1, t2)

	_, err = s.reg.CreateTopic("alerts", map[string]string{"DisplayName": "Other"}, nil)
	s.Error(err)
}

func (s *TopicRegistrySuite) TestSubscribeIsIdempotentByTopicProtocolEndpoint() {
	topic, err := s.reg.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)

	sub1, err := s.reg.Subscribe(topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000:q1", map[string]string{"RawMessageDelivery": "true"})
	s.Require().NoError(err)
	s.True(sub1.Confirmed)

	sub2, err := s.reg.Subscribe(topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000:q1", map[string]string{"RawMessageDelivery": "true"})
	s.Require().NoError(err)
	s.Same(sub1, sub2)
}

func (s *TopicRegistrySuite) TestSubscribeBidirectionalAttributeMismatchFails() {
	topic, err := s.reg.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)

	_, err = s.reg.Subscribe(topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000:q1", map[string]string{"RawMessageDelivery": "true"})
	s.Require().NoError(err)

	// unlike CreateTopic, any attribute difference here fails, even
	// extra keys the first subscribe call never mentioned
	_, err = s.reg.Subscribe(topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000:q1", map[string]string{"RawMessageDelivery": "false"})
	s.Error(err)
	_, err = s.reg.Subscribe(topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000:q1", map[string]string{"RawMessageDelivery": "true", "FilterPolicyScope": "MessageBody"})
	s.Error(err)
}

func (s *TopicRegistrySuite) TestUnsubscribeRemovesFromTopicOrder() {
	topic, err := s.reg.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)
	sub, err := s.reg.Subscribe(topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000:q1", nil)
	s.Require().NoError(err)

	s.Require().NoError(s.reg.Unsubscribe(sub.ARN))
	s.Empty(s.reg.Subscriptions(topic.ARN))

	_, err = s.reg.GetSubscription(sub.ARN)
	s.Error(err)
}

func (s *TopicRegistrySuite) TestDeleteTopicCascadesSubscriptions() {
	topic, err := s.reg.CreateTopic("alerts", nil, nil)
	s.Require().NoError(err)
	sub, err := s.reg.Subscribe(topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000:q1", nil)
	s.Require().NoError(err)

	s.Require().NoError(s.reg.DeleteTopic(topic.ARN))

	_, err = s.reg.GetSubscription(sub.ARN)
	s.Error(err)
	_, err = s.reg.GetTopic(topic.ARN)
	s.Error(err)
}

func (s *TopicRegistrySuite) TestNextSequenceIncrementsPerTopic() {
	topic, err := s.reg.CreateTopic("orders.fifo", nil, nil)
	s.Require().NoError(err)

	n1, err := s.reg.NextSequence(topic.ARN)
	s.Require().NoError(err)
	n2, err := s.reg.NextSequence(topic.ARN)
	s.Require().NoError(err)
	s.Equal(n1+1, n2)
}
