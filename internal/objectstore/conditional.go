package objectstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
)

// ConditionalHeaders mirrors the four RFC 7232 precondition headers S3
// honors on GetObject/HeadObject (spec.md §6).
type ConditionalHeaders struct {
	IfMatch           []string
	IfNoneMatch       []string
	IfModifiedSince   *time.Time
	IfUnmodifiedSince *time.Time
}

// Outcome is the result of evaluating ConditionalHeaders against an
// object's current ETag/LastModified.
type Outcome int

const (
	OutcomeProceed Outcome = iota
	OutcomeNotModified
	OutcomePreconditionFailed
)

// Evaluate applies RFC 7232's precedence: If-Match, then
// If-Unmodified-Since, then If-None-Match, then If-Modified-Since.
func Evaluate(etag string, lastModified time.Time, cond ConditionalHeaders) Outcome {
	if len(cond.IfMatch) > 0 {
		if !etagMatchesAny(cond.IfMatch, etag) {
			return OutcomePreconditionFailed
		}
	} else if cond.IfUnmodifiedSince != nil {
		if lastModified.After(*cond.IfUnmodifiedSince) {
			return OutcomePreconditionFailed
		}
	}

	if len(cond.IfNoneMatch) > 0 {
		if etagMatchesAny(cond.IfNoneMatch, etag) {
			return OutcomeNotModified
		}
	} else if cond.IfModifiedSince != nil {
		if !lastModified.After(*cond.IfModifiedSince) {
			return OutcomeNotModified
		}
	}

	return OutcomeProceed
}

func etagMatchesAny(candidates []string, etag string) bool {
	want := stripQuotes(etag)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "*" {
			return true
		}
		if stripQuotes(c) == want {
			return true
		}
	}
	return false
}

// ByteRange is an inclusive [Start, End] slice of an object's bytes.
type ByteRange struct {
	Start int64
	End   int64
}

// ParseRange parses a single-range "bytes=start-end" Range header value
// against size, supporting the open-start ("bytes=-500", last N bytes)
// and open-end ("bytes=500-") forms. Multi-range requests are rejected as
// unsupported, returning InvalidRange the same as a malformed range
// (spec.md §6, "Range support -> 206/416").
func ParseRange(header string, size int64) (ByteRange, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return ByteRange{}, apperrors.InvalidRange("unsupported range unit")
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return ByteRange{}, apperrors.InvalidRange("multi-range requests are not supported")
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return ByteRange{}, apperrors.InvalidRange("malformed range")
	}

	if parts[0] == "" {
		// suffix range: last N bytes
		n, err := parseNonNegativeInt(parts[1])
		if err != nil || n == 0 {
			return ByteRange{}, apperrors.InvalidRange("malformed range")
		}
		if n > size {
			n = size
		}
		return ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := parseNonNegativeInt(parts[0])
	if err != nil {
		return ByteRange{}, apperrors.InvalidRange("malformed range")
	}
	end := size - 1
	if parts[1] != "" {
		end, err = parseNonNegativeInt(parts[1])
		if err != nil {
			return ByteRange{}, apperrors.InvalidRange("malformed range")
		}
	}
	if start > end || start >= size {
		return ByteRange{}, apperrors.InvalidRange("range not satisfiable")
	}
	if end >= size {
		end = size - 1
	}
	return ByteRange{Start: start, End: end}, nil
}

func parseNonNegativeInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, apperrors.InvalidRange("malformed range bound")
	}
	return n, nil
}

// Slice returns body[r.Start:r.End+1].
func (r ByteRange) Slice(body []byte) []byte {
	return body[r.Start : r.End+1]
}
