package objectstore

import (
	"encoding/base64"
	"sort"
	"strings"
)

// ListedObject is one entry in a list-objects response.
type ListedObject struct {
	Object
}

// ListObjectsV1 implements the marker/NextMarker pagination form (spec.md
// §6/§4).
func (s *Store) ListObjectsV1(bucketName, prefix, marker string, maxKeys int) (objects []ListedObject, nextMarker string, truncated bool, err error) {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return nil, "", false, err
	}
	keys := sortedMatchingKeys(b, prefix)

	start := 0
	if marker != "" {
		start = sort.SearchStrings(keys, marker)
		if start < len(keys) && keys[start] == marker {
			start++
		}
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	end := start + maxKeys
	if end >= len(keys) {
		end = len(keys)
	} else {
		truncated = true
	}
	for _, k := range keys[start:end] {
		objects = append(objects, ListedObject{Object: *b.objects[k]})
	}
	if truncated {
		nextMarker = keys[end-1]
	}
	return objects, nextMarker, truncated, nil
}

// ListObjectsV2 implements the base64 continuation-token form: the token
// is the last key returned (spec.md §6/§4).
func (s *Store) ListObjectsV2(bucketName, prefix, continuationToken string, maxKeys int) (objects []ListedObject, nextToken string, truncated bool, err error) {
	b, err := s.lookupBucket(bucketName)
	if err != nil {
		return nil, "", false, err
	}
	keys := sortedMatchingKeys(b, prefix)

	start := 0
	if continuationToken != "" {
		lastKey, decodeErr := decodeContinuationToken(continuationToken)
		if decodeErr == nil {
			start = sort.SearchStrings(keys, lastKey)
			if start < len(keys) && keys[start] == lastKey {
				start++
			}
		}
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	end := start + maxKeys
	if end >= len(keys) {
		end = len(keys)
	} else {
		truncated = true
	}
	for _, k := range keys[start:end] {
		objects = append(objects, ListedObject{Object: *b.objects[k]})
	}
	if truncated {
		nextToken = encodeContinuationToken(keys[end-1])
	}
	return objects, nextToken, truncated, nil
}

func sortedMatchingKeys(b *bucket, prefix string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func encodeContinuationToken(lastKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(lastKey))
}

func decodeContinuationToken(token string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
