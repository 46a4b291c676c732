package queue

import (
	"math/rand/v2"
	"slices"

	"github.com/keshon/nyaplay/internal/music/track"
)

// ShuffleFunc permutes n elements through swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// ShuffleView is a permuted ordering over the same entries as a Queue.
// The Queue it was built from is never reordered by it; dropping the view
// restores the original order.
type ShuffleView struct {
	*Queue
}

// NewShuffleView builds a view from a snapshot of the queue, permuted by
// shuffle. A nil shuffle uses a uniform Fisher-Yates shuffle.
func NewShuffleView(snapshot []track.Entry, shuffle ShuffleFunc) *ShuffleView {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	items := slices.Clone(snapshot)
	shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	return &ShuffleView{Queue: &Queue{items: items}}
}

// MirrorInsert places e at pos, clamped to the view bounds.
func (v *ShuffleView) MirrorInsert(e track.Entry, pos int) {
	n := v.Len()
	if pos < 0 {
		pos = 0
	}
	if pos > n {
		pos = n
	}
	// pos is within bounds, InsertAt cannot fail here.
	_ = v.InsertAt(pos, e)
}

// MirrorRemove removes the exact entry e from the view.
func (v *ShuffleView) MirrorRemove(e track.Entry) bool {
	return v.Remove(e)
}

// SameEntries reports whether a and b hold exactly the same entry instances,
// ignoring order.
func SameEntries(a, b []track.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[track.Entry]int, len(a))
	for _, e := range a {
		seen[e]++
	}
	for _, e := range b {
		if seen[e] == 0 {
			return false
		}
		seen[e]--
	}
	return true
}
