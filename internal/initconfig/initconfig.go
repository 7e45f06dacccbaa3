// Package initconfig applies a declarative startup configuration —
// queues, topics, subscriptions, buckets — through each resource's
// idempotent create path (spec.md §4.7), so re-applying the same config
// on a restart is a no-op by construction.
package initconfig

import (
	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/objectstore"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
)

// QueueConfig describes one queue to create.
type QueueConfig struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// TopicConfig describes one topic to create.
type TopicConfig struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// SubscriptionConfig describes one subscription to create. TopicName and
// QueueName are resolved to ARNs via the registries at apply time.
type SubscriptionConfig struct {
	TopicName  string            `json:"topicName"`
	QueueName  string            `json:"queueName"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// BucketConfig describes one bucket to create.
type BucketConfig struct {
	Name string `json:"name"`
}

// Config is the top-level declarative document (spec.md §4.7). Region is
// decoded but Apply does not read it: ARNs and URLs come from the
// registries' own awsproto.Endpoints, and resource entries have no
// per-entry region.
type Config struct {
	Region        string               `json:"region,omitempty"`
	Queues        []QueueConfig        `json:"queues,omitempty"`
	Topics        []TopicConfig        `json:"topics,omitempty"`
	Subscriptions []SubscriptionConfig `json:"subscriptions,omitempty"`
	Buckets       []BucketConfig       `json:"buckets,omitempty"`
}

// Applier wires the three registries Config applies against.
type Applier struct {
	Queues  *registry.QueueRegistry
	Topics  *registry.TopicRegistry
	Objects *objectstore.Store
}

// Apply runs Config's four resource lists in dependency order: queues,
// topics, subscriptions, buckets (spec.md §4.7).
func (a *Applier) Apply(cfg Config) error {
	for _, q := range cfg.Queues {
		if _, err := a.Queues.CreateQueue(awsproto.DefaultHost, q.Name, q.Attributes, q.Tags); err != nil {
			return err
		}
	}

	for _, t := range cfg.Topics {
		if _, err := a.Topics.CreateTopic(t.Name, t.Attributes, t.Tags); err != nil {
			return err
		}
	}

	for _, sub := range cfg.Subscriptions {
		topic, err := a.Topics.CreateTopic(sub.TopicName, nil, nil)
		if err != nil {
			return err
		}
		queue, err := a.Queues.LookupByName(sub.QueueName)
		if err != nil {
			return err
		}
		if _, err := a.Topics.Subscribe(topic.ARN, "sqs", queue.ARN(), sub.Attributes); err != nil {
			return err
		}
	}

	for _, b := range cfg.Buckets {
		if err := a.Objects.CreateBucket(b.Name); err != nil {
			return err
		}
	}

	return nil
}
