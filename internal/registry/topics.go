package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/queue"
)

// Topic is an SNS-compatible topic (spec.md §3).
type Topic struct {
	ARN        string
	Name       string
	Attributes map[string]string
	Tags       *queue.OrderedTags
	// SubscriptionArns is the ordered list the publisher fans out over
	// (spec.md §5, "Publisher fan-out iterates subscriptions in the order
	// they were added to the topic").
	SubscriptionArns []string

	seq uint64 // FIFO topic publish sequence counter
}

// Subscription is an SNS-compatible subscription (spec.md §3). Only the
// "sqs" protocol is ever delivered to, matching spec.md §1's scope.
type Subscription struct {
	ARN        string
	TopicArn   string
	Protocol   string
	Endpoint   string
	Confirmed  bool
	Attributes map[string]string
}

// TopicRegistry maps topics and subscriptions by ARN (spec.md §4.3).
type TopicRegistry struct {
	endpoints awsproto.Endpoints

	mu      sync.RWMutex
	topics  map[string]*Topic
	subs    map[string]*Subscription
}

func NewTopicRegistry(endpoints awsproto.Endpoints) *TopicRegistry {
	return &TopicRegistry{
		endpoints: endpoints,
		topics:    make(map[string]*Topic),
		subs:      make(map[string]*Subscription),
	}
}

// CreateTopic is idempotent by ARN with one-directional attribute/tag
// compatibility: a provided attribute must match the existing topic's
// value on the same key; keys not mentioned are ignored. Tags, if
// provided, must match exactly including set size (spec.md §4.3).
func (r *TopicRegistry) CreateTopic(name string, attrUpdates map[string]string, tags map[string]string) (*Topic, error) {
	if name == "" {
		return nil, apperrors.MissingParameter("Name")
	}
	arn := r.endpoints.TopicARN(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.topics[arn]; ok {
		for k, v := range attrUpdates {
			if existing.Attributes[k] != v {
				return nil, apperrors.InvalidParameter("topic exists with different attributes")
			}
		}
		if tags != nil {
			if len(tags) != existing.Tags.Len() {
				return nil, apperrors.InvalidParameter("topic exists with different tags")
			}
			for k, v := range tags {
				ev, ok := existing.Tags.Get(k)
				if !ok || ev != v {
					return nil, apperrors.InvalidParameter("topic exists with different tags")
				}
			}
		}
		return existing, nil
	}

	attrs := make(map[string]string, len(attrUpdates)+1)
	for k, v := range attrUpdates {
		attrs[k] = v
	}
	if strings.HasSuffix(name, ".fifo") {
		attrs["FifoTopic"] = "true"
	}

	t := &Topic{ARN: arn, Name: name, Attributes: attrs, Tags: queue.NewOrderedTags()}
	for k, v := range tags {
		t.Tags.Set(k, v)
	}
	r.topics[arn] = t
	return t, nil
}

// NextSequence returns the next FIFO publish sequence number for a topic,
// used by the publisher when responding to Publish/PublishBatch on a FIFO
// topic.
func (r *TopicRegistry) NextSequence(arn string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[arn]
	if !ok {
		return 0, apperrors.NotFound("topic not found: " + arn)
	}
	t.seq++
	return t.seq, nil
}

func (r *TopicRegistry) GetTopic(arn string) (*Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topics[arn]
	if !ok {
		return nil, apperrors.NotFound("topic not found: " + arn)
	}
	return t, nil
}

func (r *TopicRegistry) SetTopicAttributes(arn, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[arn]
	if !ok {
		return apperrors.NotFound("topic not found: " + arn)
	}
	t.Attributes[name] = value
	return nil
}

func (r *TopicRegistry) DeleteTopic(arn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[arn]
	if !ok {
		return apperrors.NotFound("topic not found: " + arn)
	}
	for _, subArn := range t.SubscriptionArns {
		delete(r.subs, subArn)
	}
	delete(r.topics, arn)
	return nil
}

// ListTopics returns ARNs sorted, page size 100, spec.md §4.3.
func (r *TopicRegistry) ListTopics(nextToken string) (arns []string, next string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]string, 0, len(r.topics))
	for arn := range r.topics {
		all = append(all, arn)
	}
	return paginateARNs(all, nextToken, 100)
}

// Subscribe creates or returns an existing subscription keyed by
// (topic, protocol, endpoint). An existing match with identical attributes
// is returned; any difference fails — this path checks attributes
// bidirectionally (any difference fails), a deliberately different rule
// from CreateTopic's one-directional check (spec.md §9 open question).
func (r *TopicRegistry) Subscribe(topicArn, protocol, endpoint string, attrs map[string]string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[topicArn]
	if !ok {
		return nil, apperrors.NotFound("topic not found: " + topicArn)
	}

	for _, arn := range t.SubscriptionArns {
		s := r.subs[arn]
		if s.Protocol != protocol || s.Endpoint != endpoint {
			continue
		}
		if !attributesEqual(s.Attributes, attrs) {
			return nil, apperrors.InvalidParameter("subscription exists with different attributes")
		}
		return s, nil
	}

	s := &Subscription{
		ARN:        r.endpoints.SubscriptionARN(t.Name, uuid.New().String()),
		TopicArn:   topicArn,
		Protocol:   protocol,
		Endpoint:   endpoint,
		Confirmed:  protocol == "sqs",
		Attributes: cloneStringMap(attrs),
	}
	r.subs[s.ARN] = s
	t.SubscriptionArns = append(t.SubscriptionArns, s.ARN)
	return s, nil
}

func (r *TopicRegistry) Unsubscribe(arn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[arn]
	if !ok {
		return apperrors.NotFound("subscription not found: " + arn)
	}
	delete(r.subs, arn)
	if t, ok := r.topics[s.TopicArn]; ok {
		for i, a := range t.SubscriptionArns {
			if a == arn {
				t.SubscriptionArns = append(t.SubscriptionArns[:i], t.SubscriptionArns[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (r *TopicRegistry) GetSubscription(arn string) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[arn]
	if !ok {
		return nil, apperrors.NotFound("subscription not found: " + arn)
	}
	return s, nil
}

func (r *TopicRegistry) SetSubscriptionAttributes(arn, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[arn]
	if !ok {
		return apperrors.NotFound("subscription not found: " + arn)
	}
	s.Attributes[name] = value
	return nil
}

// ListSubscriptions returns subscription ARNs sorted, page size 100.
func (r *TopicRegistry) ListSubscriptions(nextToken string) (arns []string, next string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]string, 0, len(r.subs))
	for arn := range r.subs {
		all = append(all, arn)
	}
	return paginateARNs(all, nextToken, 100)
}

// ListSubscriptionsByTopic is the same pagination, scoped to one topic's
// subscription list.
func (r *TopicRegistry) ListSubscriptionsByTopic(topicArn, nextToken string) (arns []string, next string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topics[topicArn]
	if !ok {
		return nil, "", apperrors.NotFound("topic not found: " + topicArn)
	}
	all := append([]string(nil), t.SubscriptionArns...)
	sort.Strings(all)
	arns, next = paginateARNs(all, nextToken, 100)
	return arns, next, nil
}

// Subscriptions returns the live *Subscription values for a topic, in the
// order they were added (used by the publisher).
func (r *TopicRegistry) Subscriptions(topicArn string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topics[topicArn]
	if !ok {
		return nil
	}
	out := make([]*Subscription, 0, len(t.SubscriptionArns))
	for _, arn := range t.SubscriptionArns {
		if s, ok := r.subs[arn]; ok {
			out = append(out, s)
		}
	}
	return out
}

func paginateARNs(all []string, nextToken string, pageSize int) (page []string, next string) {
	sort.Strings(all)
	start := 0
	if nextToken != "" {
		for i, a := range all {
			if a > nextToken {
				start = i
				break
			}
			start = i + 1
		}
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	page = all[start:end]
	if end < len(all) {
		next = all[end-1]
	}
	return page, next
}

func attributesEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
