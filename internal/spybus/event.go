package spybus

import "time"

// Service names the AWS-compatible service that produced an Event, used as
// the discriminant of the spy event union (spec.md §3, "Spy event").
type Service string

const (
	ServiceSQS Service = "sqs"
	ServiceSNS Service = "sns"
	ServiceS3  Service = "s3"
)

// SQS status values.
const (
	StatusPublished = "published"
	StatusConsumed  = "consumed"
	StatusDLQ       = "dlq"
)

// S3 status values.
const (
	StatusUploaded   = "uploaded"
	StatusDownloaded = "downloaded"
	StatusDeleted    = "deleted"
	StatusCopied     = "copied"
)

// MessageAttribute mirrors the wire shape of an SQS/SNS message attribute,
// kept minimal since the spy bus only surfaces it for test inspection.
type MessageAttribute struct {
	DataType    string
	StringValue string
	BinaryValue []byte
}

// Event is a discriminated union on Service, following the teacher's
// events.Event shape (pkg/events/events.go) adapted so each service
// variant carries its own fields instead of a single generic Payload —
// spy consumers match on concrete fields, not a decoded interface{}.
type Event struct {
	Service   Service
	Status    string
	Timestamp time.Time

	// sqs
	QueueName         string
	MessageID         string
	Body              string
	MessageAttributes map[string]MessageAttribute

	// sns
	TopicArn  string
	TopicName string

	// s3
	Bucket string
	Key    string
}
