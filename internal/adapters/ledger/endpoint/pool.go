// Package endpoint holds the fixed ring of equivalent ledger authority
// endpoints and the rotation cursor used for failover.
package endpoint

import (
	"errors"
	"sync/atomic"
)

// Sentinel kinds for pool errors.
var (
	ErrEmptyPool = errors.New("endpoint pool must not be empty")
)

// Pool is a fixed ring of endpoint URLs. Rotation is advisory: concurrent
// rotations on overlapping failures may skip an endpoint, which
// self-corrects on the next pass. No endpoint is ever removed.
type Pool struct {
	endpoints []string
	cursor    atomic.Uint64
}

// New creates a pool over the ordered endpoint list.
func New(endpoints []string) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, ErrEmptyPool
	}
	eps := make([]string, len(endpoints))
	copy(eps, endpoints)
	return &Pool{endpoints: eps}, nil
}

// Current returns the endpoint selected by the cursor.
func (p *Pool) Current() string {
	return p.endpoints[p.cursor.Load()%uint64(len(p.endpoints))]
}

// Rotate advances the cursor and returns the newly selected endpoint.
func (p *Pool) Rotate() string {
	next := p.cursor.Add(1)
	return p.endpoints[next%uint64(len(p.endpoints))]
}

// Size returns the number of endpoints in the ring.
func (p *Pool) Size() int {
	return len(p.endpoints)
}
