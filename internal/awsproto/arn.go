// Package awsproto holds the ARN/URL construction and wire-format helpers
// shared by the queue, topic, and object-store registries, so exact string
// shapes (spec.md §6, "Wire specifics the core must honor bit-exactly")
// live in one place instead of being duplicated per registry.
package awsproto

import "fmt"

const (
	DefaultAccount = "000000000000"
	DefaultRegion  = "us-east-1"
	DefaultHost    = "localhost:4566"
	Partition      = "aws"
)

// Endpoints carries the account/region/host triple every ARN and URL is
// built from.
type Endpoints struct {
	Account string
	Region  string
	// ExternalHost, if set, is used to build queue URLs
	// (http://sqs.<region>.<host>/<account>/<name>) instead of echoing the
	// request's Host header (spec.md §4.2).
	ExternalHost string
}

func (e Endpoints) account() string {
	if e.Account == "" {
		return DefaultAccount
	}
	return e.Account
}

func (e Endpoints) region() string {
	if e.Region == "" {
		return DefaultRegion
	}
	return e.Region
}

// QueueARN builds arn:aws:sqs:<region>:<account>:<name>.
func (e Endpoints) QueueARN(name string) string {
	return fmt.Sprintf("arn:%s:sqs:%s:%s:%s", Partition, e.region(), e.account(), name)
}

// TopicARN builds arn:aws:sns:<region>:<account>:<name>.
func (e Endpoints) TopicARN(name string) string {
	return fmt.Sprintf("arn:%s:sns:%s:%s:%s", Partition, e.region(), e.account(), name)
}

// SubscriptionARN builds arn:aws:sns:<region>:<account>:<topicName>:<uuid>.
func (e Endpoints) SubscriptionARN(topicName, id string) string {
	return fmt.Sprintf("arn:%s:sns:%s:%s:%s:%s", Partition, e.region(), e.account(), topicName, id)
}

// QueueURL builds the opaque client-facing queue URL, preferring the
// configured external host template over a reused request Host header
// (spec.md §4.2).
func (e Endpoints) QueueURL(requestHost, name string) string {
	host := e.ExternalHost
	if host == "" {
		host = requestHost
	}
	if host == "" {
		host = DefaultHost
	}
	if e.ExternalHost != "" {
		return fmt.Sprintf("http://sqs.%s.%s/%s/%s", e.region(), host, e.account(), name)
	}
	return fmt.Sprintf("http://%s/%s/%s", host, e.account(), name)
}
