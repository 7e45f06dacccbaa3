// Package objectstore implements the S3-compatible bucket/key/bytes store
// (spec.md §4, "Object store"): CreateBucket/PutObject/GetObject/listing
// and range reads, grounded on the teacher's in-memory blob store
// (pkg/blob/adapters/memory) but generalized from a flat key map into
// per-bucket maps with multipart assembly and conditional-read semantics.
package objectstore

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
)

// Object is one stored key's bytes and metadata.
type Object struct {
	Key          string
	Body         []byte
	ETag         string
	ContentType  string
	UserMetadata map[string]string
	LastModified time.Time
}

type bucket struct {
	name      string
	createdAt time.Time

	mu      sync.RWMutex
	objects map[string]*Object
	uploads map[string]*multipartUpload
}

// Store holds every bucket (spec.md §4, "Object store").
type Store struct {
	clk clock.Clock
	bus *spybus.Bus

	mu      sync.RWMutex
	buckets map[string]*bucket
}

// New creates a Store that reports every object mutation onto bus (spec.md
// §2/§3, spy ring "uploaded/downloaded/deleted/copied" events).
func New(clk clock.Clock, bus *spybus.Bus) *Store {
	return &Store{clk: clk, bus: bus, buckets: make(map[string]*bucket)}
}

func (s *Store) emit(status, bucket, key string) {
	if s.bus == nil {
		return
	}
	s.bus.Add(spybus.Event{Service: spybus.ServiceS3, Status: status, Bucket: bucket, Key: key})
}

// BucketInfo is a bucket's listing-facing shape.
type BucketInfo struct {
	Name      string
	CreatedAt time.Time
}

// CreateBucket is idempotent: creating the same name twice is a no-op
// (mirrors the queue/topic registries' idempotent-create convention).
func (s *Store) CreateBucket(name string) error {
	if name == "" {
		return apperrors.MissingParameter("Bucket")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; ok {
		return nil
	}
	s.buckets[name] = &bucket{
		name:      name,
		createdAt: s.clk.Now(),
		objects:   make(map[string]*Object),
		uploads:   make(map[string]*multipartUpload),
	}
	return nil
}

// DeleteBucket fails BucketNotEmpty unless the bucket has zero objects and
// no in-progress multipart uploads (spec.md §6/§7).
func (s *Store) DeleteBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		return apperrors.NoSuchBucket(name)
	}
	b.mu.RLock()
	empty := len(b.objects) == 0 && len(b.uploads) == 0
	b.mu.RUnlock()
	if !empty {
		return apperrors.BucketNotEmpty(name)
	}
	delete(s.buckets, name)
	return nil
}

func (s *Store) HeadBucket(name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.buckets[name]; !ok {
		return apperrors.NoSuchBucket(name)
	}
	return nil
}

// ListBuckets returns every bucket sorted by name.
func (s *Store) ListBuckets() []BucketInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BucketInfo, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, BucketInfo{Name: b.name, CreatedAt: b.createdAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) lookupBucket(name string) (*bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[name]
	if !ok {
		return nil, apperrors.NoSuchBucket(name)
	}
	return b, nil
}

// PutObject stores body under key, computing the plain MD5 ETag (spec.md
// §6).
func (s *Store) PutObject(bucketName, key string, body []byte, contentType string, metadata map[string]string) (*Object, error) {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return nil, err
	}
	obj := &Object{
		Key:          key,
		Body:         body,
		ETag:         etagFor(body),
		ContentType:  contentType,
		UserMetadata: metadata,
		LastModified: s.clk.Now(),
	}
	b.mu.Lock()
	b.objects[key] = obj
	b.mu.Unlock()
	s.emit(spybus.StatusUploaded, bucketName, key)
	return obj, nil
}

// getObject is the body-independent lookup shared by GetObject and
// internal callers (CopyObject) that must not themselves raise a
// "downloaded" event.
func (s *Store) getObject(bucketName, key string) (*Object, error) {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, apperrors.NoSuchKey(key)
	}
	return obj, nil
}

// GetObject returns the full object. Range slicing and conditional
// evaluation are applied by the caller via ParseRange/Evaluate in this
// package, since both need the object's metadata before deciding whether
// to include a body at all.
func (s *Store) GetObject(bucketName, key string) (*Object, error) {
	obj, err := s.getObject(bucketName, key)
	if err != nil {
		return nil, err
	}
	s.emit(spybus.StatusDownloaded, bucketName, key)
	return obj, nil
}

func (s *Store) DeleteObject(bucketName, key string) error {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()
	s.emit(spybus.StatusDeleted, bucketName, key)
	return nil
}

// DeletedKey is one successfully deleted key in a DeleteObjects call.
type DeletedKey struct{ Key string }

// DeleteError is one failed key in a DeleteObjects call.
type DeleteError struct {
	Key  string
	Code string
}

// DeleteObjects deletes every requested key; missing keys are not errors
// (S3 delete semantics). Quiet suppresses the deleted-key list in the
// response the caller builds; this function always returns the full
// result so the frontend decides what to render.
func (s *Store) DeleteObjects(bucketName string, keys []string) ([]DeletedKey, []DeleteError, error) {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return nil, nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	deleted := make([]DeletedKey, 0, len(keys))
	for _, k := range keys {
		delete(b.objects, k)
		deleted = append(deleted, DeletedKey{Key: k})
		s.emit(spybus.StatusDeleted, bucketName, k)
	}
	return deleted, nil, nil
}

// CopyObject copies src to dst, recomputing nothing (the ETag travels
// with the bytes, spec.md §6).
func (s *Store) CopyObject(srcBucket, srcKey, dstBucket, dstKey string) (*Object, error) {
	src, err := s.getObject(srcBucket, srcKey)
	if err != nil {
		return nil, err
	}
	dst, err := s.lookupBucket(dstBucket)
	if err != nil {
		return nil, err
	}
	body := append([]byte(nil), src.Body...)
	obj := &Object{
		Key:          dstKey,
		Body:         body,
		ETag:         src.ETag,
		ContentType:  src.ContentType,
		UserMetadata: cloneMeta(src.UserMetadata),
		LastModified: s.clk.Now(),
	}
	dst.mu.Lock()
	dst.objects[dstKey] = obj
	dst.mu.Unlock()
	s.emit(spybus.StatusCopied, dstBucket, dstKey)
	return obj, nil
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func etagFor(body []byte) string {
	sum := md5.Sum(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// stripQuotes normalizes an ETag value that may or may not carry the
// surrounding quotes AWS clients send in If-Match/If-None-Match headers.
func stripQuotes(etag string) string {
	return strings.Trim(etag, `"`)
}
