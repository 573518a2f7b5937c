package node

import (
	"errors"
	"fmt"
)

// Word counts of the scratch records used by the breaking routines.
const (
	ActiveSize  = 3
	PassiveSize = 2
	DeltaSize   = 7
	PageInsSize = 4
)

// ErrOutOfMemory is returned when an arena has no room for a request.
var ErrOutOfMemory = errors.New("out of memory")

// Arena accounts for the scratch records that a breaking run allocates.
// Every Alloc must be matched by a Free before the run returns.
type Arena interface {
	Alloc(size int) error
	Free(size int)
}

// Pool is an Arena with an optional hard capacity.
type Pool struct {
	// Capacity bounds the words in use; zero means unbounded.
	Capacity int
	inUse    int
	peak     int
}

// NewPool returns a pool that holds at most capacity words.
func NewPool(capacity int) *Pool { return &Pool{Capacity: capacity} }

// Alloc reserves size words.
func (p *Pool) Alloc(size int) error {
	if p.Capacity > 0 && p.inUse+size > p.Capacity {
		return fmt.Errorf("node arena: %d words in use, %d requested, capacity %d: %w",
			p.inUse, size, p.Capacity, ErrOutOfMemory)
	}
	p.inUse += size
	if p.inUse > p.peak {
		p.peak = p.inUse
	}
	return nil
}

// Free returns size words.
func (p *Pool) Free(size int) {
	p.inUse -= size
	if p.inUse < 0 {
		p.inUse = 0
	}
}

// InUse returns the number of words currently allocated.
func (p *Pool) InUse() int { return p.inUse }

// Peak returns the high-water mark.
func (p *Pool) Peak() int { return p.peak }
