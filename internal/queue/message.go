package queue

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
)

// MessageAttributeValue mirrors an SQS/SNS message attribute entry
// (spec.md §3).
type MessageAttributeValue struct {
	DataType    string
	StringValue string
	BinaryValue []byte
}

// Message is one item moving through a Queue's pools (spec.md §3).
type Message struct {
	MessageID          string
	Body                string
	BodyDigest          string
	MessageAttributes   map[string]MessageAttributeValue
	AttributesDigest    string
	SentTimestamp       int64 // unix millis
	ReceiveCount        int
	FirstReceiveMillis  int64 // 0 until first receive
	DelayUntilMillis    int64 // 0 if not delayed
	MessageGroupID      string
	DeduplicationID     string
	SequenceNumber      string
	ReceiptHandle       string // set while inflight; empty otherwise
}

// isDelayed reports whether the message should still be held back as of
// nowMillis.
func (m *Message) isDelayed(nowMillis int64) bool {
	return m.DelayUntilMillis > nowMillis
}

// validateBody checks the UTF-8 body against the restricted code-point set
// spec.md §3 names: #x9, #xA, #xD, #x20-#xD7FF, #xE000-#xFFFD.
func validateBody(body string) error {
	for _, r := range body {
		if isValidBodyRune(r) {
			continue
		}
		return apperrors.InvalidMessageContents(fmt.Sprintf("invalid character in message body: %U", r))
	}
	return nil
}

func isValidBodyRune(r rune) bool {
	switch {
	case r == 0x9, r == 0xA, r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	default:
		return false
	}
}

// bodyDigest computes the MD5 hex digest of the UTF-8 body.
func bodyDigest(body string) string {
	sum := md5.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// attributesDigest computes the MD5 of the canonical big-endian
// length-prefixed encoding described in spec.md §6: for each attribute
// name sorted ascending, {4-byte BE name length, name bytes, 4-byte BE
// DataType length, DataType bytes, 1 transport byte, 4-byte BE value
// length, value bytes}.
func attributesDigest(attrs map[string]MessageAttributeValue) string {
	if len(attrs) == 0 {
		return ""
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		attr := attrs[name]
		writeLenPrefixed(&buf, []byte(name))
		writeLenPrefixed(&buf, []byte(attr.DataType))

		var transport byte = 0x01
		var value []byte
		if isBinaryDataType(attr.DataType) {
			transport = 0x02
			value = attr.BinaryValue
		} else {
			value = []byte(attr.StringValue)
		}
		buf.WriteByte(transport)
		writeLenPrefixed(&buf, value)
	}

	sum := md5.Sum(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(data)))
	buf.Write(lenBytes[:])
	buf.Write(data)
}

func isBinaryDataType(dataType string) bool {
	return len(dataType) >= 6 && dataType[:6] == "Binary"
}

// contentBasedDedup is the SHA-256 hex of the body, used for FIFO
// deduplication when ContentBasedDeduplication is enabled. Deliberately
// distinct from bodyDigest's MD5 — see spec.md §9 open question.
func contentBasedDedup(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// formatSequenceNumber zero-pads a monotonic counter to the 20-digit width
// spec.md §3/§6 require.
func formatSequenceNumber(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

func messageSize(body string, attrs map[string]MessageAttributeValue) int {
	size := len([]byte(body))
	for name, attr := range attrs {
		size += len([]byte(name))
		size += len([]byte(attr.DataType))
		if isBinaryDataType(attr.DataType) {
			size += len(attr.BinaryValue)
		} else {
			size += len([]byte(attr.StringValue))
		}
	}
	return size
}
