// Package publisher implements the topic fan-out pipeline (spec.md §4.4):
// Publish/PublishBatch resolve a topic's subscriptions, apply filter
// policy, serialize or pass through the message body, and hand it to
// each target queue.
package publisher

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/filter"
	"github.com/chris-alexander-pop/cloudstub/internal/queue"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
)

const maxMessageBytes = 262144 // 256 KiB, spec.md §4.4

// SigningCertURL is a fixed placeholder; this core never actually signs
// notifications (spec.md §4.4).
const signingCertURL = "https://sns.us-east-1.amazonaws.com/SimpleNotificationService-0000000000000000000000000.pem"

// Publisher fans a published message out to a topic's "sqs" subscriptions.
type Publisher struct {
	topics    *registry.TopicRegistry
	queues    *registry.QueueRegistry
	bus       *spybus.Bus
	clk       clock.Clock
	endpoints awsproto.Endpoints
}

func New(topics *registry.TopicRegistry, queues *registry.QueueRegistry, bus *spybus.Bus, clk clock.Clock, endpoints awsproto.Endpoints) *Publisher {
	return &Publisher{topics: topics, queues: queues, bus: bus, clk: clk, endpoints: endpoints}
}

// Result is what Publish hands back to the caller.
type Result struct {
	MessageID      string
	SequenceNumber string // only set for FIFO topics
}

// Publish implements spec.md §4.4 steps 1-5 for a single message.
func (p *Publisher) Publish(topicArn, message string, attrs map[string]queue.MessageAttributeValue, subject *string, groupID, dedupID string) (Result, error) {
	topic, err := p.topics.GetTopic(topicArn)
	if err != nil {
		return Result{}, err
	}
	if message == "" {
		return Result{}, apperrors.InvalidParameterValue("Message must not be empty")
	}
	if len([]byte(message)) > maxMessageBytes {
		return Result{}, apperrors.InvalidParameterValue("Message exceeds the 256 KiB limit")
	}

	isFifo := strings.HasSuffix(topic.Name, ".fifo") || topic.Attributes["FifoTopic"] == "true"
	effectiveDedup := dedupID
	var seqNumber string
	if isFifo {
		if groupID == "" {
			return Result{}, apperrors.InvalidParameterValue("MessageGroupId is required for FIFO topics")
		}
		if effectiveDedup == "" {
			if topic.Attributes["ContentBasedDeduplication"] == "true" {
				effectiveDedup = contentBasedDedup(message)
			} else {
				return Result{}, apperrors.InvalidParameterValue("MessageDeduplicationId is required when ContentBasedDeduplication is disabled")
			}
		}
		n, err := p.topics.NextSequence(topicArn)
		if err != nil {
			return Result{}, err
		}
		seqNumber = fmt.Sprintf("%020d", n)
	}

	messageID := uuid.New().String()
	now := p.clk.Now()
	p.emitPublished(topic, messageID, message)

	env := buildEnvelope(messageID, topicArn, subject, message, attrs, now)

	for _, sub := range p.topics.Subscriptions(topicArn) {
		p.deliver(sub, env, message, attrs, groupID, effectiveDedup)
	}

	return Result{MessageID: messageID, SequenceNumber: seqNumber}, nil
}

func (p *Publisher) deliver(sub *registry.Subscription, env envelope, message string, attrs map[string]queue.MessageAttributeValue, groupID, dedupID string) {
	if !sub.Confirmed || sub.Protocol != "sqs" {
		return
	}

	if !p.filterMatches(sub, message, attrs) {
		return
	}

	targetQueue, ok := p.queues.LookupByARN(sub.Endpoint)
	if !ok {
		return
	}

	var body string
	var deliverAttrs map[string]queue.MessageAttributeValue
	if sub.Attributes["RawMessageDelivery"] == "true" {
		body = message
		deliverAttrs = attrs
	} else {
		body = renderEnvelope(env, p.unsubscribeURL(sub.ARN))
	}

	msg, err := targetQueue.NewMessage(body, deliverAttrs, groupID, dedupID, nil)
	if err != nil {
		return
	}
	targetQueue.EnqueueDeduplicated(msg)
}

// filterMatches evaluates a subscription's filter policy against
// MessageAttributes or MessageBody per FilterPolicyScope. Malformed policy
// JSON fails open (spec.md §4.4).
func (p *Publisher) filterMatches(sub *registry.Subscription, message string, attrs map[string]queue.MessageAttributeValue) bool {
	policyJSON := sub.Attributes["FilterPolicy"]
	if strings.TrimSpace(policyJSON) == "" {
		return true
	}
	policy, err := filter.Parse(policyJSON)
	if err != nil {
		return true
	}

	scope := sub.Attributes["FilterPolicyScope"]
	if scope == "MessageBody" {
		doc, ok := filter.DocumentFromBody(message)
		if !ok {
			return len(policy) == 0
		}
		return filter.Match(policy, doc)
	}
	return filter.Match(policy, filter.DocumentFromAttributes(toFilterAttributes(attrs)))
}

func toFilterAttributes(attrs map[string]queue.MessageAttributeValue) map[string]filter.Attribute {
	out := make(map[string]filter.Attribute, len(attrs))
	for k, v := range attrs {
		out[k] = filter.Attribute{DataType: v.DataType, StringValue: v.StringValue}
	}
	return out
}

func (p *Publisher) emitPublished(topic *registry.Topic, messageID, message string) {
	if p.bus == nil {
		return
	}
	p.bus.Add(spybus.Event{
		Service:   spybus.ServiceSNS,
		Status:    spybus.StatusPublished,
		TopicArn:  topic.ARN,
		TopicName: topic.Name,
		MessageID: messageID,
		Body:      message,
	})
}

func (p *Publisher) unsubscribeURL(subscriptionArn string) string {
	region := p.endpoints.Region
	if region == "" {
		region = awsproto.DefaultRegion
	}
	return fmt.Sprintf("https://sns.%s.amazonaws.com/?Action=Unsubscribe&SubscriptionArn=%s", region, subscriptionArn)
}

// envelope mirrors the notification wrapper spec.md §4.4 describes. It is
// built once per Publish call and re-marshaled per subscription with
// UnsubscribeURL substituted.
type envelope struct {
	Type              string                       `json:"Type"`
	MessageID         string                       `json:"MessageId"`
	TopicArn          string                       `json:"TopicArn"`
	Subject           *string                      `json:"Subject,omitempty"`
	Message           string                       `json:"Message"`
	Timestamp         string                       `json:"Timestamp"`
	SignatureVersion  string                       `json:"SignatureVersion"`
	Signature         string                       `json:"Signature"`
	SigningCertURL    string                       `json:"SigningCertURL"`
	UnsubscribeURL    string                       `json:"UnsubscribeURL"`
	MessageAttributes map[string]envelopeAttribute `json:"MessageAttributes,omitempty"`
}

type envelopeAttribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

func buildEnvelope(messageID, topicArn string, subject *string, message string, attrs map[string]queue.MessageAttributeValue, now time.Time) envelope {
	var envAttrs map[string]envelopeAttribute
	if len(attrs) > 0 {
		envAttrs = make(map[string]envelopeAttribute, len(attrs))
		for name, v := range attrs {
			value := v.StringValue
			if strings.HasPrefix(v.DataType, "Binary") {
				value = base64.StdEncoding.EncodeToString(v.BinaryValue)
			}
			envAttrs[name] = envelopeAttribute{Type: v.DataType, Value: value}
		}
	}
	return envelope{
		Type:              "Notification",
		MessageID:         messageID,
		TopicArn:          topicArn,
		Subject:           subject,
		Message:           message,
		Timestamp:         now.UTC().Format(time.RFC3339Nano),
		SignatureVersion:  "1",
		Signature:         "EXAMPLE",
		SigningCertURL:    signingCertURL,
		UnsubscribeURL:    "",
		MessageAttributes: envAttrs,
	}
}

func renderEnvelope(env envelope, unsubscribeURL string) string {
	env.UnsubscribeURL = unsubscribeURL
	b, err := json.Marshal(env)
	if err != nil {
		return ""
	}
	return string(b)
}

// contentBasedDedup mirrors queue's body-hash derivation for FIFO topics
// lacking an explicit MessageDeduplicationId (spec.md §4.4), kept as its
// own copy since it is the only thing this package needs from queue's
// unexported digest helpers.
func contentBasedDedup(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// BatchEntry is one entry of a PublishBatch call.
type BatchEntry struct {
	ID         string
	Message    string
	Attributes map[string]queue.MessageAttributeValue
	Subject    *string
	GroupID    string
	DedupID    string
}

// BatchResult is one entry's outcome; Err is nil on success.
type BatchResult struct {
	ID             string
	MessageID      string
	SequenceNumber string
	Err            error
}

// PublishBatch processes each entry independently; one entry's failure
// never aborts the others (spec.md §4.4).
func (p *Publisher) PublishBatch(topicArn string, entries []BatchEntry) []BatchResult {
	results := make([]BatchResult, len(entries))

	var g errgroup.Group
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			res, err := p.Publish(topicArn, entry.Message, entry.Attributes, entry.Subject, entry.GroupID, entry.DedupID)
			if err != nil {
				results[i] = BatchResult{ID: entry.ID, Err: err}
				return nil
			}
			results[i] = BatchResult{ID: entry.ID, MessageID: res.MessageID, SequenceNumber: res.SequenceNumber}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
