// Package apperrors provides the structured error type used throughout the
// emulator, rebuilding the teacher module's documented pkg/errors.AppError
// contract (code, human message, chained cause) for this module's own
// error taxonomy (spec.md §7): client-input, not-found, state, and conflict
// errors that the HTTP frontend maps to AWS-shaped error envelopes.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP frontend's status-code mapping and
// for the client-vs-server distinction spec.md §7 requires.
type Kind string

const (
	KindClientInput Kind = "client_input"
	KindNotFound    Kind = "not_found"
	KindState       Kind = "state"
	KindConflict    Kind = "conflict"
	KindInternal    Kind = "internal"
)

// Error codes, named after the spec.md §7 taxonomy rather than generic
// HTTP/AWS codes so callers can switch on them without string-matching
// wire-format names.
const (
	CodeMissingParameter           = "MissingParameter"
	CodeInvalidParameterValue      = "InvalidParameterValue"
	CodeInvalidAttributeName       = "InvalidAttributeName"
	CodeInvalidAttributeValue      = "InvalidAttributeValue"
	CodeInvalidMessageContents     = "InvalidMessageContents"
	CodeMessageTooLong             = "MessageTooLong"
	CodeInvalidBatchEntryID        = "InvalidBatchEntryId"
	CodeBatchEntryIDsNotDistinct   = "BatchEntryIdsNotDistinct"
	CodeEmptyBatchRequest          = "EmptyBatchRequest"
	CodeTooManyEntriesInBatch      = "TooManyEntriesInBatchRequest"
	CodeNonExistentQueue           = "NonExistentQueue"
	CodeNoSuchBucket               = "NoSuchBucket"
	CodeNoSuchKey                  = "NoSuchKey"
	CodeNoSuchUpload               = "NoSuchUpload"
	CodeNotFound                   = "NotFound"
	CodeMessageNotInflight         = "MessageNotInflight"
	CodeReceiptHandleIsInvalid     = "ReceiptHandleIsInvalid"
	CodeInvalidPart                = "InvalidPart"
	CodeInvalidPartOrder           = "InvalidPartOrder"
	CodeBucketNotEmpty             = "BucketNotEmpty"
	CodePreconditionFailed         = "PreconditionFailed"
	CodeInvalidRange               = "InvalidRange"
	CodeQueueNameExists            = "QueueNameExists"
	CodeInvalidParameter           = "InvalidParameter"
	CodeInternalError              = "InternalError"
)

// AppError is the emulator's structured error. It carries enough to render
// an AWS-shaped error envelope without the core knowing anything about
// wire formats.
type AppError struct {
	Code    string
	Message string
	Kind    Kind
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New builds an AppError of the given code/kind.
func New(code string, kind Kind, message string, cause error) *AppError {
	return &AppError{Code: code, Kind: kind, Message: message, Err: cause}
}

// Wrap attaches a message to an existing error under CodeInternalError and
// KindInternal, used for ambient (non-domain) failures such as config loading.
func Wrap(err error, message string) *AppError {
	return &AppError{Code: CodeInternalError, Kind: KindInternal, Message: message, Err: err}
}

func MissingParameter(name string) *AppError {
	return New(CodeMissingParameter, KindClientInput, "missing required parameter: "+name, nil)
}

func InvalidParameterValue(message string) *AppError {
	return New(CodeInvalidParameterValue, KindClientInput, message, nil)
}

func InvalidAttributeName(name string) *AppError {
	return New(CodeInvalidAttributeName, KindClientInput, "unknown attribute: "+name, nil)
}

func InvalidAttributeValue(message string) *AppError {
	return New(CodeInvalidAttributeValue, KindClientInput, message, nil)
}

func InvalidMessageContents(message string) *AppError {
	return New(CodeInvalidMessageContents, KindClientInput, message, nil)
}

func MessageTooLong(message string) *AppError {
	return New(CodeMessageTooLong, KindClientInput, message, nil)
}

func InvalidBatchEntryID(id string) *AppError {
	return New(CodeInvalidBatchEntryID, KindClientInput, "invalid batch entry id: "+id, nil)
}

func BatchEntryIDsNotDistinct() *AppError {
	return New(CodeBatchEntryIDsNotDistinct, KindClientInput, "batch entry ids must be distinct", nil)
}

func EmptyBatchRequest() *AppError {
	return New(CodeEmptyBatchRequest, KindClientInput, "batch request must contain at least one entry", nil)
}

func TooManyEntriesInBatch() *AppError {
	return New(CodeTooManyEntriesInBatch, KindClientInput, "batch request may contain at most 10 entries", nil)
}

func NonExistentQueue(identifier string) *AppError {
	return New(CodeNonExistentQueue, KindNotFound, "the specified queue does not exist: "+identifier, nil)
}

func NoSuchBucket(bucket string) *AppError {
	return New(CodeNoSuchBucket, KindNotFound, "the specified bucket does not exist: "+bucket, nil)
}

func NoSuchKey(key string) *AppError {
	return New(CodeNoSuchKey, KindNotFound, "the specified key does not exist: "+key, nil)
}

func NoSuchUpload(uploadID string) *AppError {
	return New(CodeNoSuchUpload, KindNotFound, "the specified multipart upload does not exist: "+uploadID, nil)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, KindNotFound, message, nil)
}

func MessageNotInflight() *AppError {
	return New(CodeMessageNotInflight, KindState, "message is not inflight", nil)
}

func ReceiptHandleIsInvalid(handle string) *AppError {
	return New(CodeReceiptHandleIsInvalid, KindState, "receipt handle is invalid: "+handle, nil)
}

func InvalidPart(message string) *AppError {
	return New(CodeInvalidPart, KindState, message, nil)
}

func InvalidPartOrder(message string) *AppError {
	return New(CodeInvalidPartOrder, KindState, message, nil)
}

func BucketNotEmpty(bucket string) *AppError {
	return New(CodeBucketNotEmpty, KindState, "bucket is not empty: "+bucket, nil)
}

func PreconditionFailed() *AppError {
	return New(CodePreconditionFailed, KindState, "precondition failed", nil)
}

func InvalidRange(message string) *AppError {
	return New(CodeInvalidRange, KindState, message, nil)
}

func QueueNameExists(name string) *AppError {
	return New(CodeQueueNameExists, KindConflict, "a queue with this name already exists with different attributes: "+name, nil)
}

func InvalidParameter(message string) *AppError {
	return New(CodeInvalidParameter, KindConflict, message, nil)
}

func Internal(message string, cause error) *AppError {
	return New(CodeInternalError, KindInternal, message, cause)
}

// Is reports whether err is an *AppError with the given code, unwrapping
// through any chain.
func Is(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// As unwraps err into an *AppError if possible.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
