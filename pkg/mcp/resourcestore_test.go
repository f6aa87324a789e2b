package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceStorePutAndGet(t *testing.T) {
	s := NewResourceStore(0, nil)
	s.Put(Resource{URI: "sf://query/1", Name: "query-1", Text: "hello"})

	res, ok := s.Get("sf://query/1")
	assert.True(t, ok)
	assert.Equal(t, "hello", res.Text)
}

func TestResourceStoreEvictsOldestOnCapacity(t *testing.T) {
	s := NewResourceStore(2, nil)
	s.Put(Resource{URI: "a", Text: "1"})
	s.Put(Resource{URI: "b", Text: "2"})
	s.Put(Resource{URI: "c", Text: "3"})

	assert.Equal(t, 2, s.Count())
	_, ok := s.Get("a")
	assert.False(t, ok, "oldest resource should have been evicted")
	_, ok = s.Get("c")
	assert.True(t, ok)
}

func TestResourceStoreReplaceDoesNotEvict(t *testing.T) {
	s := NewResourceStore(2, nil)
	s.Put(Resource{URI: "a", Text: "1"})
	s.Put(Resource{URI: "b", Text: "2"})
	s.Put(Resource{URI: "a", Text: "updated"})

	assert.Equal(t, 2, s.Count())
	res, _ := s.Get("a")
	assert.Equal(t, "updated", res.Text)
}

func TestResourceStoreOnChangeCalledOnPutAndClear(t *testing.T) {
	calls := 0
	s := NewResourceStore(0, func() { calls++ })
	s.Put(Resource{URI: "a", Text: "1"})
	s.Clear()

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, s.Count())
}

func TestResourceStoreListPreservesOrder(t *testing.T) {
	s := NewResourceStore(0, nil)
	s.Put(Resource{URI: "a"})
	s.Put(Resource{URI: "b"})
	s.Put(Resource{URI: "c"})

	list := s.List()
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].URI, list[1].URI, list[2].URI})
}

func TestSanitizeTextRedactsAccessToken(t *testing.T) {
	out := SanitizeText(map[string]any{"accessToken": "00Dxx123456"})
	m, ok := out.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "[REDACTED length: 11]", m["accessToken"])
}
