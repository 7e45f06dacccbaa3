package queue

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
)

// RedrivePolicy is the parsed form of the RedrivePolicy attribute JSON
// (spec.md §3).
type RedrivePolicy struct {
	DeadLetterTargetArn string `json:"deadLetterTargetArn"`
	MaxReceiveCount     int    `json:"maxReceiveCount"`
}

// Attributes holds a Queue's settable and derived attributes (spec.md §3).
// Numeric fields are stored parsed; ApplyString/ToStringMap convert
// to/from the string form the wire protocol uses.
type Attributes struct {
	VisibilityTimeout             int
	DelaySeconds                  int
	MaximumMessageSize            int
	MessageRetentionPeriod        int
	ReceiveMessageWaitTimeSeconds int
	RedrivePolicy                 *RedrivePolicy
	FifoQueue                     bool
	ContentBasedDeduplication     bool
	DeduplicationScope            string
	FifoThroughputLimit           string
	Policy                        string
	KmsMasterKeyID                string
	KmsDataKeyReusePeriodSeconds  string
}

// DefaultAttributes returns the spec.md §3 defaults, applying FIFO
// defaults when fifo is true.
func DefaultAttributes(fifo bool) Attributes {
	a := Attributes{
		VisibilityTimeout:             30,
		DelaySeconds:                  0,
		MaximumMessageSize:            1048576,
		MessageRetentionPeriod:        345600, // 4 days
		ReceiveMessageWaitTimeSeconds: 0,
		FifoQueue:                     fifo,
	}
	if fifo {
		a.DeduplicationScope = "queue"
		a.FifoThroughputLimit = "perQueue"
	}
	return a
}

// settableAttributeNames are the keys ApplyString accepts; anything else
// is InvalidAttributeName.
var settableAttributeNames = map[string]bool{
	"VisibilityTimeout":             true,
	"DelaySeconds":                  true,
	"MaximumMessageSize":            true,
	"MessageRetentionPeriod":        true,
	"ReceiveMessageWaitTimeSeconds": true,
	"RedrivePolicy":                 true,
	"FifoQueue":                     true,
	"ContentBasedDeduplication":     true,
	"DeduplicationScope":            true,
	"FifoThroughputLimit":           true,
	"Policy":                        true,
	"KmsMasterKeyId":                true,
	"KmsDataKeyReusePeriodSeconds":  true,
}

// ApplyString sets a single attribute from its wire string form, validating
// the numeric ranges spec.md §3 names.
func (a *Attributes) ApplyString(name, value string) error {
	if !settableAttributeNames[name] {
		return apperrors.InvalidAttributeName(name)
	}
	switch name {
	case "VisibilityTimeout":
		n, err := parseRange(name, value, 0, 43200)
		if err != nil {
			return err
		}
		a.VisibilityTimeout = n
	case "DelaySeconds":
		n, err := parseRange(name, value, 0, 900)
		if err != nil {
			return err
		}
		a.DelaySeconds = n
	case "MaximumMessageSize":
		n, err := parseRange(name, value, 1024, 1048576)
		if err != nil {
			return err
		}
		a.MaximumMessageSize = n
	case "MessageRetentionPeriod":
		n, err := parseRange(name, value, 60, 1209600)
		if err != nil {
			return err
		}
		a.MessageRetentionPeriod = n
	case "ReceiveMessageWaitTimeSeconds":
		n, err := parseRange(name, value, 0, 20)
		if err != nil {
			return err
		}
		a.ReceiveMessageWaitTimeSeconds = n
	case "RedrivePolicy":
		if value == "" {
			a.RedrivePolicy = nil
			return nil
		}
		var rp RedrivePolicy
		if err := json.Unmarshal([]byte(value), &rp); err != nil {
			return apperrors.InvalidAttributeValue("RedrivePolicy is not valid JSON")
		}
		a.RedrivePolicy = &rp
	case "FifoQueue":
		a.FifoQueue = value == "true"
	case "ContentBasedDeduplication":
		a.ContentBasedDeduplication = value == "true"
	case "DeduplicationScope":
		a.DeduplicationScope = value
	case "FifoThroughputLimit":
		a.FifoThroughputLimit = value
	case "Policy":
		a.Policy = value
	case "KmsMasterKeyId":
		a.KmsMasterKeyID = value
	case "KmsDataKeyReusePeriodSeconds":
		a.KmsDataKeyReusePeriodSeconds = value
	}
	return nil
}

func parseRange(name, value string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, apperrors.InvalidAttributeValue(name + " must be an integer")
	}
	if n < min || n > max {
		return 0, apperrors.InvalidAttributeValue(name + " is out of range")
	}
	return n, nil
}

// ToStringMap renders every settable attribute as its wire string form.
func (a Attributes) ToStringMap() map[string]string {
	m := map[string]string{
		"VisibilityTimeout":             strconv.Itoa(a.VisibilityTimeout),
		"DelaySeconds":                  strconv.Itoa(a.DelaySeconds),
		"MaximumMessageSize":            strconv.Itoa(a.MaximumMessageSize),
		"MessageRetentionPeriod":        strconv.Itoa(a.MessageRetentionPeriod),
		"ReceiveMessageWaitTimeSeconds": strconv.Itoa(a.ReceiveMessageWaitTimeSeconds),
		"FifoQueue":                     strconv.FormatBool(a.FifoQueue),
		"ContentBasedDeduplication":     strconv.FormatBool(a.ContentBasedDeduplication),
	}
	if a.RedrivePolicy != nil {
		b, _ := json.Marshal(a.RedrivePolicy)
		m["RedrivePolicy"] = string(b)
	}
	if a.DeduplicationScope != "" {
		m["DeduplicationScope"] = a.DeduplicationScope
	}
	if a.FifoThroughputLimit != "" {
		m["FifoThroughputLimit"] = a.FifoThroughputLimit
	}
	if a.Policy != "" {
		m["Policy"] = a.Policy
	}
	if a.KmsMasterKeyID != "" {
		m["KmsMasterKeyId"] = a.KmsMasterKeyID
	}
	if a.KmsDataKeyReusePeriodSeconds != "" {
		m["KmsDataKeyReusePeriodSeconds"] = a.KmsDataKeyReusePeriodSeconds
	}
	return m
}

// Equal reports whether two attribute sets are identical on every settable
// field, used by the registry's idempotent-create comparison.
func (a Attributes) Equal(other Attributes) bool {
	if a.VisibilityTimeout != other.VisibilityTimeout ||
		a.DelaySeconds != other.DelaySeconds ||
		a.MaximumMessageSize != other.MaximumMessageSize ||
		a.MessageRetentionPeriod != other.MessageRetentionPeriod ||
		a.ReceiveMessageWaitTimeSeconds != other.ReceiveMessageWaitTimeSeconds ||
		a.FifoQueue != other.FifoQueue ||
		a.ContentBasedDeduplication != other.ContentBasedDeduplication ||
		a.DeduplicationScope != other.DeduplicationScope ||
		a.FifoThroughputLimit != other.FifoThroughputLimit ||
		a.Policy != other.Policy ||
		a.KmsMasterKeyID != other.KmsMasterKeyID ||
		a.KmsDataKeyReusePeriodSeconds != other.KmsDataKeyReusePeriodSeconds {
		return false
	}
	if (a.RedrivePolicy == nil) != (other.RedrivePolicy == nil) {
		return false
	}
	if a.RedrivePolicy != nil && *a.RedrivePolicy != *other.RedrivePolicy {
		return false
	}
	return true
}

// OrderedTags is an insertion-order-preserving string-to-string mapping
// (spec.md §3, "Tags: ordered mapping").
type OrderedTags struct {
	keys   []string
	values map[string]string
}

func NewOrderedTags() *OrderedTags {
	return &OrderedTags{values: make(map[string]string)}
}

func (t *OrderedTags) Set(key, value string) {
	if _, exists := t.values[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *OrderedTags) Delete(key string) {
	if _, exists := t.values[key]; !exists {
		return
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

func (t *OrderedTags) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Each iterates entries in insertion order.
func (t *OrderedTags) Each(fn func(key, value string)) {
	for _, k := range t.keys {
		fn(k, t.values[k])
	}
}

func (t *OrderedTags) Len() int { return len(t.keys) }

// Clone returns a deep copy.
func (t *OrderedTags) Clone() *OrderedTags {
	clone := NewOrderedTags()
	t.Each(func(k, v string) { clone.Set(k, v) })
	return clone
}

// Equal reports whether two tag sets have identical keys/values, ignoring
// order — used for the topic registry's exact-match tag comparison.
func (t *OrderedTags) Equal(other *OrderedTags) bool {
	if t.Len() != other.Len() {
		return false
	}
	equal := true
	t.Each(func(k, v string) {
		ov, ok := other.Get(k)
		if !ok || ov != v {
			equal = false
		}
	})
	return equal
}
