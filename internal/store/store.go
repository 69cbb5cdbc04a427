// Package store holds the canonical in-memory state of every operational
// domain. Each store is the sole mutator of its domain: writers are
// serialized, readers load the current snapshot without locking, and every
// committed mutation is published to the registry outside the write lock.
package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/opsboard/internal/core"
)

// Clock returns the current time. Stores stamp snapshots with it.
type Clock func() time.Time

func orNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// cell keeps the current snapshot of one domain and commits replacements.
type cell[S core.Snapshot] struct {
	domain core.Domain
	now    Clock

	mu  sync.Mutex
	cur atomic.Pointer[S]
	out dispatcher
}

type buildFunc[S core.Snapshot] func(prev S, head core.Header) (next S, changed bool, err error)

func newCell[S core.Snapshot](domain core.Domain, initial S, pub core.Publisher, now Clock) *cell[S] {
	c := &cell[S]{
		domain: domain,
		now:    orNow(now),
		out:    dispatcher{domain: domain, pub: pub},
	}
	c.cur.Store(&initial)
	return c
}

func (c *cell[S]) load() S {
	return *c.cur.Load()
}

// commit builds the next snapshot from the current one under the write lock.
// A build returning an error or changed=false leaves the state untouched
// and the revision unchanged.
func (c *cell[S]) commit(build buildFunc[S]) (S, error) {
	c.mu.Lock()
	prev := *c.cur.Load()
	head := prev.Head()
	next, changed, err := build(prev, core.Header{
		Domain:      c.domain,
		Revision:    head.Revision + 1,
		LastUpdated: c.stamp(head.LastUpdated),
	})
	if err != nil || !changed {
		c.mu.Unlock()
		return prev, err
	}
	c.cur.Store(&next)
	c.out.push(next)
	c.mu.Unlock()

	c.out.drain()
	return next, nil
}

// stamp never lets lastUpdated move backwards.
func (c *cell[S]) stamp(prev time.Time) time.Time {
	t := c.now()
	if t.Before(prev) {
		return prev
	}
	return t
}

// dispatcher publishes committed snapshots in revision order. A commit made
// from inside a subscriber callback is queued and delivered by the drain
// loop already running further up the stack.
type dispatcher struct {
	domain core.Domain
	pub    core.Publisher

	mu       sync.Mutex
	queue    []core.Snapshot
	draining bool
}

func (d *dispatcher) push(s core.Snapshot) {
	if d.pub == nil {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, s)
	d.mu.Unlock()
}

func (d *dispatcher) drain() {
	if d.pub == nil {
		return
	}
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.pub.Publish(d.domain, next)

		d.mu.Lock()
	}
	d.draining = false
	d.mu.Unlock()
}

// replaceByID returns a copy of items with the element whose id matches
// modified by fn. ok is false when no element matches.
func replaceByID[T any](items []T, id string, idOf func(T) string, fn func(*T) error) (out []T, ok bool, err error) {
	for i := range items {
		if idOf(items[i]) != id {
			continue
		}
		out = append([]T(nil), items...)
		if err := fn(&out[i]); err != nil {
			return nil, true, err
		}
		return out, true, nil
	}
	return nil, false, nil
}
