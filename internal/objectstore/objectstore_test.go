package objectstore_test

import (
	"testing"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/objectstore"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type ObjectStoreSuite struct {
	*test.Suite
	clk   *clock.Manual
	bus   *spybus.Bus
	store *objectstore.Store
}

func TestObjectStoreSuite(t *testing.T) {
	test.Run(t, &ObjectStoreSuite{Suite: test.NewSuite()})
}

func (s *ObjectStoreSuite) SetupTest() {
	s.Suite.SetupTest()
	s.clk = clock.NewManual(time.Unix(1700000000, 0))
	s.bus = spybus.New(s.clk, 10)
	s.store = objectstore.New(s.clk, s.bus)
	s.Require().NoError(s.store.CreateBucket("bucket"))
}

func (s *ObjectStoreSuite) TestCreateBucketIsIdempotent() {
	s.Require().NoError(s.store.CreateBucket("bucket"))
	buckets := s.store.ListBuckets()
	s.Len(buckets, 1)
}

func (s *ObjectStoreSuite) TestPutGetDeleteObjectRoundTrip() {
	obj, err := s.store.PutObject("bucket", "key1", []byte("hello"), "text/plain", nil)
	s.Require().NoError(err)
	s.NotEmpty(obj.ETag)

	got, err := s.store.GetObject("bucket", "key1")
	s.Require().NoError(err)
	s.Equal([]byte("hello"), got.Body)
	s.Equal(obj.ETag, got.ETag)

	s.Require().NoError(s.store.DeleteObject("bucket", "key1"))
	_, err = s.store.GetObject("bucket", "key1")
	s.Error(err)
}

func (s *ObjectStoreSuite) TestObjectMutationsEmitSpyEvents() {
	_, err := s.store.PutObject("bucket", "key1", []byte("hello"), "text/plain", nil)
	s.Require().NoError(err)
	_, ok := s.bus.CheckForMessage(spybus.MatchPartial(map[string]any{"Bucket": "bucket", "Key": "key1"}), spybus.StatusUploaded)
	s.True(ok)

	_, err = s.store.GetObject("bucket", "key1")
	s.Require().NoError(err)
	_, ok = s.bus.CheckForMessage(spybus.MatchPartial(map[string]any{"Bucket": "bucket", "Key": "key1"}), spybus.StatusDownloaded)
	s.True(ok)

	_, err = s.store.CopyObject("bucket", "key1", "bucket", "key2")
	s.Require().NoError(err)
	_, ok = s.bus.CheckForMessage(spybus.MatchPartial(map[string]any{"Bucket": "bucket", "Key": "key2"}), spybus.StatusCopied)
	s.True(ok)
	// copying reads the source via the non-emitting internal lookup, so it
	// must not itself raise a "downloaded" event for key2
	_, ok = s.bus.CheckForMessage(spybus.MatchPartial(map[string]any{"Bucket": "bucket", "Key": "key2"}), spybus.StatusDownloaded)
	s.False(ok)

	s.Require().NoError(s.store.DeleteObject("bucket", "key1"))
	_, ok = s.bus.CheckForMessage(spybus.MatchPartial(map[string]any{"Bucket": "bucket", "Key": "key1"}), spybus.StatusDeleted)
	s.True(ok)
}

func (s *ObjectStoreSuite) TestMultipartCompleteEmitsUploadedEvent() {
	uploadID, err := s.store.CreateMultipartUpload("bucket", "big", "application/octet-stream", nil)
	s.Require().NoError(err)
	etag, err := s.store.UploadPart("bucket", uploadID, 1, []byte("part"))
	s.Require().NoError(err)

	_, err = s.store.CompleteMultipartUpload("bucket", "big", uploadID, []objectstore.CompletedPart{{PartNumber: 1, ETag: etag}})
	s.Require().NoError(err)

	_, ok := s.bus.CheckForMessage(spybus.MatchPartial(map[string]any{"Bucket": "bucket", "Key": "big"}), spybus.StatusUploaded)
	s.True(ok)
}

func (s *ObjectStoreSuite) TestPutObjectETagIsPlainMD5() {
	obj1, err := s.store.PutObject("bucket", "a", []byte("same body"), "text/plain", nil)
	s.Require().NoError(err)
	obj2, err := s.store.PutObject("bucket", "b", []byte("same body"), "text/plain", nil)
	s.Require().NoError(err)
	s.Equal(obj1.ETag, obj2.ETag)
}

func (s *ObjectStoreSuite) TestDeleteBucketFailsWhenNotEmpty() {
	_, err := s.store.PutObject("bucket", "key1", []byte("hi"), "text/plain", nil)
	s.Require().NoError(err)

	err = s.store.DeleteBucket("bucket")
	s.Error(err)

	s.Require().NoError(s.store.DeleteObject("bucket", "key1"))
	s.Require().NoError(s.store.DeleteBucket("bucket"))
}

func (s *ObjectStoreSuite) TestCopyObjectPreservesETag() {
	src, err := s.store.PutObject("bucket", "src", []byte("payload"), "text/plain", nil)
	s.Require().NoError(err)

	dst, err := s.store.CopyObject("bucket", "src", "bucket", "dst")
	s.Require().NoError(err)
	s.Equal(src.ETag, dst.ETag)
	s.Equal(src.Body, dst.Body)
}

func (s *ObjectStoreSuite) TestDeleteObjectsIgnoresMissingKeys() {
	_, err := s.store.PutObject("bucket", "key1", []byte("hi"), "text/plain", nil)
	s.Require().NoError(err)

	deleted, errs, err := s.store.DeleteObjects("bucket", []string{"key1", "missing"})
	s.Require().NoError(err)
	s.Len(deleted, 2)
	s.Empty(errs)
}

func (s *ObjectStoreSuite) TestMultipartUploadCompletesWithCombinedETag() {
	uploadID, err := s.store.CreateMultipartUpload("bucket", "big", "application/octet-stream", nil)
	s.Require().NoError(err)

	etag1, err := s.store.UploadPart("bucket", uploadID, 1, []byte("part-one-"))
	s.Require().NoError(err)
	etag2, err := s.store.UploadPart("bucket", uploadID, 2, []byte("part-two"))
	s.Require().NoError(err)

	obj, err := s.store.CompleteMultipartUpload("bucket", "big", uploadID, []objectstore.CompletedPart{
		{PartNumber: 1, ETag: etag1},
		{PartNumber: 2, ETag: etag2},
	})
	s.Require().NoError(err)
	s.Equal([]byte("part-one-part-two"), obj.Body)
	s.Contains(obj.ETag, "-2")
}

func (s *ObjectStoreSuite) TestMultipartUploadRejectsOutOfOrderParts() {
	uploadID, err := s.store.CreateMultipartUpload("bucket", "big", "application/octet-stream", nil)
	s.Require().NoError(err)

	etag1, err := s.store.UploadPart("bucket", uploadID, 1, []byte("a"))
	s.Require().NoError(err)
	etag2, err := s.store.UploadPart("bucket", uploadID, 2, []byte("b"))
	s.Require().NoError(err)

	_, err = s.store.CompleteMultipartUpload("bucket", "big", uploadID, []objectstore.CompletedPart{
		{PartNumber: 2, ETag: etag2},
		{PartNumber: 1, ETag: etag1},
	})
	s.Error(err)
}

func (s *ObjectStoreSuite) TestMultipartUploadRejectsETagMismatch() {
	uploadID, err := s.store.CreateMultipartUpload("bucket", "big", "application/octet-stream", nil)
	s.Require().NoError(err)
	_, err = s.store.UploadPart("bucket", uploadID, 1, []byte("a"))
	s.Require().NoError(err)

	_, err = s.store.CompleteMultipartUpload("bucket", "big", uploadID, []objectstore.CompletedPart{
		{PartNumber: 1, ETag: `"wrong"`},
	})
	s.Error(err)
}

func (s *ObjectStoreSuite) TestAbortMultipartUploadDiscardsParts() {
	uploadID, err := s.store.CreateMultipartUpload("bucket", "big", "application/octet-stream", nil)
	s.Require().NoError(err)
	_, err = s.store.UploadPart("bucket", uploadID, 1, []byte("a"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.AbortMultipartUpload("bucket", uploadID))

	_, err = s.store.UploadPart("bucket", uploadID, 2, []byte("b"))
	s.Error(err)
}

func (s *ObjectStoreSuite) TestListPartsSortedByPartNumber() {
	uploadID, err := s.store.CreateMultipartUpload("bucket", "big", "application/octet-stream", nil)
	s.Require().NoError(err)
	_, err = s.store.UploadPart("bucket", uploadID, 2, []byte("bb"))
	s.Require().NoError(err)
	_, err = s.store.UploadPart("bucket", uploadID, 1, []byte("a"))
	s.Require().NoError(err)

	parts, err := s.store.ListParts("bucket", uploadID)
	s.Require().NoError(err)
	s.Require().Len(parts, 2)
	s.Equal(1, parts[0].PartNumber)
	s.Equal(2, parts[1].PartNumber)
}

func (s *ObjectStoreSuite) TestListObjectsV1PaginatesWithMarker() {
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.store.PutObject("bucket", k, []byte(k), "text/plain", nil)
		s.Require().NoError(err)
	}

	objects, nextMarker, truncated, err := s.store.ListObjectsV1("bucket", "", "", 2)
	s.Require().NoError(err)
	s.Len(objects, 2)
	s.True(truncated)
	s.Equal("b", nextMarker)

	rest, _, truncated2, err := s.store.ListObjectsV1("bucket", "", nextMarker, 2)
	s.Require().NoError(err)
	s.Len(rest, 1)
	s.False(truncated2)
}

func (s *ObjectStoreSuite) TestListObjectsV2PaginatesWithContinuationToken() {
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.store.PutObject("bucket", k, []byte(k), "text/plain", nil)
		s.Require().NoError(err)
	}

	objects, nextToken, truncated, err := s.store.ListObjectsV2("bucket", "", "", 2)
	s.Require().NoError(err)
	s.Len(objects, 2)
	s.True(truncated)
	s.NotEmpty(nextToken)

	rest, _, truncated2, err := s.store.ListObjectsV2("bucket", "", nextToken, 2)
	s.Require().NoError(err)
	s.Len(rest, 1)
	s.False(truncated2)
}

func (s *ObjectStoreSuite) TestListObjectsFiltersByPrefix() {
	for _, k := range []string{"logs/a", "logs/b", "other"} {
		_, err := s.store.PutObject("bucket", k, []byte(k), "text/plain", nil)
		s.Require().NoError(err)
	}

	objects, _, _, err := s.store.ListObjectsV1("bucket", "logs/", "", 100)
	s.Require().NoError(err)
	s.Len(objects, 2)
}

func (s *ObjectStoreSuite) TestEvaluateConditionalHeaders() {
	etag := `"abc123"`
	lastModified := time.Unix(1700000000, 0)

	s.Equal(objectstore.OutcomeProceed, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{}))

	s.Equal(objectstore.OutcomePreconditionFailed, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{
		IfMatch: []string{`"other"`},
	}))
	s.Equal(objectstore.OutcomeProceed, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{
		IfMatch: []string{`"abc123"`},
	}))
	s.Equal(objectstore.OutcomeProceed, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{
		IfMatch: []string{"*"},
	}))

	s.Equal(objectstore.OutcomeNotModified, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{
		IfNoneMatch: []string{`"abc123"`},
	}))

	before := lastModified.Add(-time.Hour)
	after := lastModified.Add(time.Hour)
	s.Equal(objectstore.OutcomeProceed, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{
		IfModifiedSince: &before,
	}))
	s.Equal(objectstore.OutcomeNotModified, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{
		IfModifiedSince: &after,
	}))
	s.Equal(objectstore.OutcomePreconditionFailed, objectstore.Evaluate(etag, lastModified, objectstore.ConditionalHeaders{
		IfUnmodifiedSince: &before,
	}))
}

func (s *ObjectStoreSuite) TestParseRangeFullAndOpenForms() {
	r, err := objectstore.ParseRange("bytes=0-9", 20)
	s.Require().NoError(err)
	s.Equal(int64(0), r.Start)
	s.Equal(int64(9), r.End)

	r, err = objectstore.ParseRange("bytes=-5", 20)
	s.Require().NoError(err)
	s.Equal(int64(15), r.Start)
	s.Equal(int64(19), r.End)

	r, err = objectstore.ParseRange("bytes=10-", 20)
	s.Require().NoError(err)
	s.Equal(int64(10), r.Start)
	s.Equal(int64(19), r.End)
}

func (s *ObjectStoreSuite) TestParseRangeRejectsMultiRange() {
	_, err := objectstore.ParseRange("bytes=0-1,2-3", 20)
	s.Error(err)
}

func (s *ObjectStoreSuite) TestByteRangeSliceReturnsInclusiveBytes() {
	r, err := objectstore.ParseRange("bytes=1-3", 10)
	s.Require().NoError(err)
	s.Equal([]byte("ell"), r.Slice([]byte("hello world")))
}
