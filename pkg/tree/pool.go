package tree

import (
	"sync"

	"github.com/devicelab-dev/droidscan/pkg/core"
)

// DefaultPoolSize is the handle budget used when none is configured.
const DefaultPoolSize = 512

// HandlePool bounds the number of child handles held at once.
type HandlePool struct {
	mu       sync.Mutex
	capacity int
	inUse    int
	peak     int
	acquired int
}

// NewHandlePool creates a pool. A capacity <= 0 means unbounded.
func NewHandlePool(capacity int) *HandlePool {
	return &HandlePool{capacity: capacity}
}

func (p *HandlePool) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capacity > 0 && p.inUse >= p.capacity {
		return core.ErrHandleExhausted.WithDetails(map[string]interface{}{
			"capacity": p.capacity,
		})
	}
	p.inUse++
	p.acquired++
	if p.inUse > p.peak {
		p.peak = p.inUse
	}
	return nil
}

func (p *HandlePool) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse > 0 {
		p.inUse--
	}
}

// Capacity returns the configured bound (0 when unbounded).
func (p *HandlePool) Capacity() int {
	return p.capacity
}

// InUse returns the number of handles not yet released.
func (p *HandlePool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Peak returns the largest number of handles held at once.
func (p *HandlePool) Peak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peak
}

// Acquired returns the total number of handles handed out.
func (p *HandlePool) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}
