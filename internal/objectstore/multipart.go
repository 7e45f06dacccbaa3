package objectstore

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
)

type uploadedPart struct {
	partNumber int
	etag       string
	body       []byte
}

type multipartUpload struct {
	uploadID    string
	key         string
	contentType string
	metadata    map[string]string
	createdAt   time.Time

	mu    sync.Mutex
	parts map[int]uploadedPart
}

// CreateMultipartUpload starts a new upload and returns its ID (spec.md
// §6/§4).
func (s *Store) CreateMultipartUpload(bucketName, key, contentType string, metadata map[string]string) (string, error) {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return "", err
	}
	uploadID := uuid.New().String()
	b.mu.Lock()
	b.uploads[uploadID] = &multipartUpload{
		uploadID:    uploadID,
		key:         key,
		contentType: contentType,
		metadata:    metadata,
		createdAt:   s.clk.Now(),
		parts:       make(map[int]uploadedPart),
	}
	b.mu.Unlock()
	return uploadID, nil
}

func (s *Store) lookupUpload(bucketName, uploadID string) (*bucket, *multipartUpload, error) {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return nil, nil, err
	}
	b.mu.RLock()
	up, ok := b.uploads[uploadID]
	b.mu.RUnlock()
	if !ok {
		return nil, nil, apperrors.NoSuchUpload(uploadID)
	}
	return b, up, nil
}

// UploadPart stores one part's bytes and returns its ETag (plain MD5 of
// the part body, spec.md §6).
func (s *Store) UploadPart(bucketName, uploadID string, partNumber int, body []byte) (string, error) {
	_, up, err := s.lookupUpload(bucketName, uploadID)
	if err != nil {
		return "", err
	}
	etag := etagFor(body)
	up.mu.Lock()
	up.parts[partNumber] = uploadedPart{partNumber: partNumber, etag: etag, body: body}
	up.mu.Unlock()
	return etag, nil
}

// CompletedPart is one part a CompleteMultipartUpload caller asserts was
// uploaded, with the ETag they observed from UploadPart.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// CompleteMultipartUpload verifies parts are listed in strictly ascending
// part-number order, each ETag matches what was actually stored, then
// concatenates the bodies and computes the multipart ETag: MD5 of the
// concatenation of each part's binary MD5 digest, suffixed with "-<n>"
// (spec.md §6).
func (s *Store) CompleteMultipartUpload(bucketName, key, uploadID string, completed []CompletedPart) (*Object, error) {
	b, up, err := s.lookupUpload(bucketName, uploadID)
	if err != nil {
		return nil, err
	}

	up.mu.Lock()
	defer up.mu.Unlock()

	last := -1
	var body []byte
	var digestConcat []byte
	for _, cp := range completed {
		if cp.PartNumber <= last {
			return nil, apperrors.InvalidPartOrder(uploadID)
		}
		last = cp.PartNumber

		part, ok := up.parts[cp.PartNumber]
		if !ok || stripQuotes(part.etag) != stripQuotes(cp.ETag) {
			return nil, apperrors.InvalidPart(uploadID)
		}
		body = append(body, part.body...)
		sum := md5.Sum(part.body)
		digestConcat = append(digestConcat, sum[:]...)
	}

	finalSum := md5.Sum(digestConcat)
	etag := `"` + hex.EncodeToString(finalSum[:]) + "-" + strconv.Itoa(len(completed)) + `"`

	obj := &Object{
		Key:          key,
		Body:         body,
		ETag:         etag,
		ContentType:  up.contentType,
		UserMetadata: up.metadata,
		LastModified: s.clk.Now(),
	}

	b.mu.Lock()
	b.objects[key] = obj
	delete(b.uploads, uploadID)
	b.mu.Unlock()

	s.emit(spybus.StatusUploaded, bucketName, key)
	return obj, nil
}

// AbortMultipartUpload discards an in-progress upload and its parts.
func (s *Store) AbortMultipartUpload(bucketName, uploadID string) error {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.uploads[uploadID]; !ok {
		return apperrors.NoSuchUpload(uploadID)
	}
	delete(b.uploads, uploadID)
	return nil
}

// ListedPart is one uploaded part surfaced by a list-parts response.
type ListedPart struct {
	PartNumber int
	ETag       string
	Size       int
}

// ListParts returns uploaded parts sorted by part number.
func (s *Store) ListParts(bucketName, uploadID string) ([]ListedPart, error) {
	_, up, err := s.lookupUpload(bucketName, uploadID)
	if err != nil {
		return nil, err
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	out := make([]ListedPart, 0, len(up.parts))
	for _, p := range up.parts {
		out = append(out, ListedPart{PartNumber: p.partNumber, ETag: p.etag, Size: len(p.body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out, nil
}
