package mcp

import (
	"sync"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
)

// DefaultResourceCapacity is the default number of resources retained
// before the oldest is evicted (§3 Resource, §4.5).
const DefaultResourceCapacity = 30

// ResourceStore holds the in-memory resources a tool call has produced,
// keyed by URI in insertion order. Capacity is bounded; once full, the
// oldest resource (by insertion order, not last-read time) is evicted to
// make room for the new one.
type ResourceStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	byURI    map[string]Resource
	onChange func()
}

// NewResourceStore creates a resource store with the given capacity. A
// capacity <= 0 uses DefaultResourceCapacity. onChange, if non-nil, is
// invoked (outside the lock) whenever the resource list changes, so the
// caller can emit notifications/resources/list_changed; the store does
// not debounce these calls.
func NewResourceStore(capacity int, onChange func()) *ResourceStore {
	if capacity <= 0 {
		capacity = DefaultResourceCapacity
	}
	return &ResourceStore{
		capacity: capacity,
		byURI:    make(map[string]Resource),
		onChange: onChange,
	}
}

// Put inserts or replaces a resource. Sensitive fields in resource text
// generated from Salesforce API responses are expected to already be
// sanitized by the caller via serverstate.Sanitize before reaching here;
// Put stores res as given and does not sanitize its Text.
func (s *ResourceStore) Put(res Resource) {
	s.mu.Lock()
	_, existed := s.byURI[res.URI]
	if !existed {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.byURI, oldest)
		}
		s.order = append(s.order, res.URI)
	}
	s.byURI[res.URI] = res
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
}

// Get retrieves a resource by URI.
func (s *ResourceStore) Get(uri string) (Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.byURI[uri]
	return res, ok
}

// List returns all resources in insertion order.
func (s *ResourceStore) List() []Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Resource, 0, len(s.order))
	for _, uri := range s.order {
		out = append(out, s.byURI[uri])
	}
	return out
}

// Count returns the number of resources currently stored.
func (s *ResourceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear removes all resources, used when the active org changes (§4.6):
// resources scoped to the previous org are no longer valid.
func (s *ResourceStore) Clear() {
	s.mu.Lock()
	s.order = nil
	s.byURI = make(map[string]Resource)
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
}

// SanitizeText runs a JSON-shaped value through serverstate.Sanitize and
// renders it for use as a Resource's Text field. Tool handlers that build
// resources from raw API responses should route through this helper
// rather than embedding response bodies directly.
func SanitizeText(value any) any {
	return serverstate.Sanitize(value, nil)
}
