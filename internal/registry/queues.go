// Package registry implements the queue and topic/subscription registries
// (spec.md §4.2, §4.3): the index structures that map names/URLs/ARNs to
// the Queue and Topic instances the rest of the engine operates on. The
// registries exclusively own their instances; nothing else constructs a
// queue.Queue directly.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/queue"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
)

// QueueRegistry maps queue URL, name, and ARN to a queue.Queue (spec.md
// §4.2).
type QueueRegistry struct {
	clk       clock.Clock
	bus       *spybus.Bus
	endpoints awsproto.Endpoints

	mu     sync.RWMutex
	byName map[string]*queue.Queue
	byURL  map[string]*queue.Queue
	byARN  map[string]*queue.Queue
}

func NewQueueRegistry(clk clock.Clock, bus *spybus.Bus, endpoints awsproto.Endpoints) *QueueRegistry {
	return &QueueRegistry{
		clk:       clk,
		bus:       bus,
		endpoints: endpoints,
		byName:    make(map[string]*queue.Queue),
		byURL:     make(map[string]*queue.Queue),
		byARN:     make(map[string]*queue.Queue),
	}
}

// CreateQueue is idempotent by name: an existing queue whose settable
// attributes all match the request is returned unchanged; any mismatch
// fails QueueNameExists (spec.md §4.2).
func (r *QueueRegistry) CreateQueue(requestHost, name string, attrUpdates map[string]string, tags map[string]string) (*queue.Queue, error) {
	if name == "" {
		return nil, apperrors.MissingParameter("QueueName")
	}

	isFifo := strings.HasSuffix(name, ".fifo")
	if v, ok := attrUpdates["FifoQueue"]; ok && v == "true" && !isFifo {
		return nil, apperrors.InvalidParameterValue("FifoQueue=true requires a name ending in .fifo")
	}

	attrs := queue.DefaultAttributes(isFifo)
	for k, v := range attrUpdates {
		if err := attrs.ApplyString(k, v); err != nil {
			return nil, err
		}
	}
	attrs.FifoQueue = isFifo

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		if !existing.Attributes().Equal(attrs) {
			return nil, apperrors.QueueNameExists(name)
		}
		return existing, nil
	}

	url := r.endpoints.QueueURL(requestHost, name)
	arn := r.endpoints.QueueARN(name)
	q := queue.New(r.clk, r.bus, name, url, arn, attrs)
	for k, v := range tags {
		q.SetTag(k, v)
	}

	r.byName[name] = q
	r.byURL[url] = q
	r.byARN[arn] = q
	return q, nil
}

// Lookup resolves a queue by its client-facing URL.
func (r *QueueRegistry) Lookup(url string) (*queue.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byURL[url]
	if !ok {
		return nil, apperrors.NonExistentQueue(url)
	}
	return q, nil
}

// LookupByName resolves a queue by its short name.
func (r *QueueRegistry) LookupByName(name string) (*queue.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byName[name]
	if !ok {
		return nil, apperrors.NonExistentQueue(name)
	}
	return q, nil
}

// LookupByARN resolves a queue by ARN; used as the DLQLookup the queue
// engine calls for dead-letter redrive.
func (r *QueueRegistry) LookupByARN(arn string) (*queue.Queue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byARN[arn]
	return q, ok
}

// DeleteQueue cancels the queue's waiters, then removes all three indexes
// (spec.md §4.2, §3 "Lifecycle").
func (r *QueueRegistry) DeleteQueue(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.byURL[url]
	if !ok {
		return apperrors.NonExistentQueue(url)
	}
	q.Cancel()
	delete(r.byURL, url)
	delete(r.byName, q.Name())
	delete(r.byARN, q.ARN())
	return nil
}

// ListQueues returns queue URLs sorted by name, filtered by prefix, paged
// at maxResults per call (1000 when unset or above 1000) with a next-token
// cursor equal to the last returned name
// (spec.md §4.2/§6).
func (r *QueueRegistry) ListQueues(prefix, nextToken string, maxResults int) (urls []string, next string) {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()

	sort.Strings(names)

	start := 0
	if nextToken != "" {
		for i, n := range names {
			if n > nextToken {
				start = i
				break
			}
			start = i + 1
		}
	}

	if maxResults <= 0 || maxResults > 1000 {
		maxResults = 1000
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	end := start + maxResults
	if end > len(names) {
		end = len(names)
	}
	for _, name := range names[start:end] {
		if q, ok := r.byName[name]; ok {
			urls = append(urls, q.URL())
		}
	}
	if end < len(names) {
		next = names[end-1]
	}
	return urls, next
}
