package snapshot

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
)

// DefaultSeenSize bounds how many widget identities Seen remembers.
const DefaultSeenSize = 4096

// Seen remembers the snapshot in which each widget hash first appeared. The
// least recently observed hashes are evicted once the cache is full.
type Seen struct {
	cache *lru.Cache[int32, string]
}

// NewSeen creates a Seen holding at most size hashes.
func NewSeen(size int) (*Seen, error) {
	if size <= 0 {
		size = DefaultSeenSize
	}
	cache, err := lru.New[int32, string](size)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}
	return &Seen{cache: cache}, nil
}

// Observe records widgets under snapshot id and returns those whose hash was
// not already known.
func (s *Seen) Observe(id string, widgets []*hierarchy.Widget) []*hierarchy.Widget {
	var fresh []*hierarchy.Widget
	for _, w := range widgets {
		if _, ok := s.cache.Get(w.XpathHash); ok {
			continue
		}
		s.cache.Add(w.XpathHash, id)
		fresh = append(fresh, w)
	}
	return fresh
}

// FirstSeen returns the snapshot id that first recorded hash.
func (s *Seen) FirstSeen(hash int32) (string, bool) {
	return s.cache.Peek(hash)
}

// Len returns the number of remembered hashes.
func (s *Seen) Len() int {
	return s.cache.Len()
}
