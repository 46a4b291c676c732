package queue

import (
	"math/rand/v2"
	"testing"

	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func TestShuffleRoundTrip(t *testing.T) {
	q := New()
	es := entries("a", "b", "c", "d", "e")
	for _, e := range es {
		q.PushBack(e)
	}

	v := NewShuffleView(q.Snapshot(), reverse)
	assert.True(t, SameEntries(q.Snapshot(), v.Snapshot()))
	assert.NotEqual(t, titles(es), titles(v.Snapshot()))

	// the view never reorders the queue, so dropping it restores the order
	assert.Equal(t, es, q.Snapshot())
}

func TestShuffleViewUsesPermutation(t *testing.T) {
	es := entries("a", "b", "c")
	v := NewShuffleView(es, reverse)

	assert.Equal(t, []string{"c", "b", "a"}, titles(v.Snapshot()))
	assert.Equal(t, []string{"a", "b", "c"}, titles(es), "snapshot must not be permuted in place")
}

func TestShuffleIsUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	es := entries("a", "b", "c")
	counts := map[string]int{}
	const runs = 6000
	for i := 0; i < runs; i++ {
		v := NewShuffleView(es, rng.Shuffle)
		first, _ := v.At(0)
		counts[first.DisplayTitle()]++
	}
	for _, title := range []string{"a", "b", "c"} {
		assert.InDelta(t, runs/3, counts[title], runs*0.05, "first position bias for %s", title)
	}
}

// Mirrored mutations keep both sides holding the same instances.
func TestShuffleMirrorKeepsSetsEqual(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	q := New()
	for _, e := range entries("a", "a", "b", "c") {
		q.PushBack(e)
	}
	v := NewShuffleView(q.Snapshot(), rng.Shuffle)

	for step := 0; step < 300; step++ {
		switch rng.IntN(4) {
		case 0:
			e := &track.Track{Title: "a"}
			q.PushBack(e)
			v.MirrorInsert(e, v.Len())
		case 1:
			e := &track.Track{Title: "a"}
			q.PushFront(e)
			v.MirrorInsert(e, 0)
		case 2:
			if v.Len() == 0 {
				continue
			}
			e, err := v.RemoveAt(rng.IntN(v.Len()))
			require.NoError(t, err)
			require.True(t, q.Remove(e))
		case 3:
			e, ok := v.TryConsumeFront()
			if !ok {
				continue
			}
			require.True(t, q.Remove(e))
		}
		require.True(t, SameEntries(q.Snapshot(), v.Snapshot()), "step %d", step)
	}
}

func TestMirrorInsertClamps(t *testing.T) {
	v := NewShuffleView(entries("a"), nil)
	v.MirrorInsert(&track.Track{Title: "z"}, 99)
	v.MirrorInsert(&track.Track{Title: "y"}, -3)
	assert.Equal(t, []string{"y", "a", "z"}, titles(v.Snapshot()))

	e, _ := v.At(1)
	assert.True(t, v.MirrorRemove(e))
	assert.False(t, v.MirrorRemove(e))
}

func TestSameEntriesIdentity(t *testing.T) {
	a := &track.Track{Title: "x"}
	b := &track.Track{Title: "x"}
	assert.True(t, SameEntries([]track.Entry{a, b}, []track.Entry{b, a}))
	assert.False(t, SameEntries([]track.Entry{a, a}, []track.Entry{a, b}))
	assert.False(t, SameEntries([]track.Entry{a}, []track.Entry{a, b}))
}
