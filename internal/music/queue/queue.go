// Package queue implements the per-guild pending-track queue and its shuffled view.
package queue

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/keshon/nyaplay/internal/music/track"
)

// ErrOutOfRange is returned for an index outside the queue.
var ErrOutOfRange = errors.New("index out of range")

// Queue is an ordered collection of entries, consumed from the front.
// It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	items   []track.Entry
	waiters []chan track.Entry
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// PushBack appends e. If a consumer is suspended in ConsumeFront, e goes
// straight to the oldest one instead.
func (q *Queue) PushBack(e track.Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handOff(e) {
		return
	}
	q.items = append(q.items, e)
}

// PushFront prepends e, with the same hand-off rule as PushBack.
func (q *Queue) PushFront(e track.Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handOff(e) {
		return
	}
	q.items = slices.Insert(q.items, 0, e)
}

// PushFrontAll prepends es keeping their relative order, so es[0] becomes
// the new front. A suspended consumer receives es[0].
func (q *Queue) PushFrontAll(es ...track.Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(es) == 0 {
		return
	}
	if q.handOff(es[0]) {
		es = es[1:]
	}
	q.items = slices.Insert(q.items, 0, es...)
}

// InsertAt inserts e before index i. i == Len() appends.
func (q *Queue) InsertAt(i int, e track.Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i < 0 || i > len(q.items) {
		return ErrOutOfRange
	}
	if i == 0 && q.handOff(e) {
		return nil
	}
	q.items = slices.Insert(q.items, i, e)
	return nil
}

// RemoveAt removes and returns the entry at index i.
func (q *Queue) RemoveAt(i int) (track.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i < 0 || i >= len(q.items) {
		return nil, ErrOutOfRange
	}
	e := q.items[i]
	q.items = slices.Delete(q.items, i, i+1)
	return e, nil
}

// Move relocates the entry at from so that it ends up at index to.
// Both indices are validated before anything changes.
func (q *Queue) Move(from, to int) (track.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, ErrOutOfRange
	}
	e := q.items[from]
	q.items = slices.Delete(q.items, from, from+1)
	q.items = slices.Insert(q.items, to, e)
	return e, nil
}

// Remove deletes the exact entry e (by identity) and reports whether it was present.
func (q *Queue) Remove(e track.Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(e)
	if i < 0 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

// IndexOf returns the index of the exact entry e, or -1.
func (q *Queue) IndexOf(e track.Entry) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexOf(e)
}

func (q *Queue) indexOf(e track.Entry) int {
	for i, it := range q.items {
		if it == e {
			return i
		}
	}
	return -1
}

// TryConsumeFront pops the front entry without waiting.
func (q *Queue) TryConsumeFront() (track.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popFront()
}

// ConsumeFront pops the front entry, suspending while the queue is empty
// until something is pushed or ctx is done. Suspended callers are served in
// arrival order. An entry handed over before ctx ends is still returned.
func (q *Queue) ConsumeFront(ctx context.Context) (track.Entry, error) {
	q.mu.Lock()
	if e, ok := q.popFront(); ok {
		q.mu.Unlock()
		return e, nil
	}
	ch := make(chan track.Entry, 1)
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case e := <-ch:
		return e, nil
	case <-ctx.Done():
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if i := slices.Index(q.waiters, ch); i >= 0 {
		q.waiters = slices.Delete(q.waiters, i, i+1)
		return nil, context.Cause(ctx)
	}
	// A push won the race with cancellation.
	return <-ch, nil
}

// Clear drops every entry and returns how many there were.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of stored entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// At returns the entry at index i.
func (q *Queue) At(i int) (track.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i < 0 || i >= len(q.items) {
		return nil, ErrOutOfRange
	}
	return q.items[i], nil
}

// Snapshot returns a copy of the entries in order.
func (q *Queue) Snapshot() []track.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Waiting returns the number of callers suspended in ConsumeFront.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

func (q *Queue) popFront() (track.Entry, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return e, true
}

// handOff gives e to the oldest waiter. Caller holds q.mu.
func (q *Queue) handOff(e track.Entry) bool {
	if len(q.waiters) == 0 {
		return false
	}
	ch := q.waiters[0]
	q.waiters = slices.Delete(q.waiters, 0, 1)
	ch <- e
	return true
}
