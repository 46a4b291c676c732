package track

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	queries []string
	result  *Result
	err     error
}

func (s *stubSearcher) Search(_ context.Context, identifier string) (*Result, error) {
	s.queries = append(s.queries, identifier)
	return s.result, s.err
}

func TestTrackResolveIsNoop(t *testing.T) {
	tr := &Track{Title: "a"}
	s := &stubSearcher{}

	got, err := tr.Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Same(t, tr, got)
	assert.Empty(t, s.queries)
}

func TestPartialResolve(t *testing.T) {
	req := Requester{UserID: "42", Username: "nya"}
	hit := &Track{Title: "Artist - Song", Encoded: "blob", Requester: Requester{UserID: "node"}}
	s := &stubSearcher{result: &Result{Kind: KindSearch, Tracks: []*Track{hit}}}
	p := &Partial{Query: "Artist - Song", Title: "Song", Artwork: "http://img", Requester: req}

	got, err := p.Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"ytsearch:Artist - Song"}, s.queries)
	assert.Equal(t, "blob", got.Encoded)
	assert.Equal(t, req, got.Requester)
	assert.Equal(t, "http://img", got.Artwork)
	assert.Equal(t, "node", hit.Requester.UserID, "search hit must not be mutated")
}

func TestPartialResolveMiss(t *testing.T) {
	p := &Partial{Query: "nothing", Title: "Nothing"}

	_, err := p.Resolve(context.Background(), &stubSearcher{result: &Result{Kind: KindEmpty}})
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Same(t, p, rerr.Entry)
	assert.ErrorIs(t, err, ErrNoMatches)
	assert.Contains(t, err.Error(), "Nothing")

	boom := errors.New("connection refused")
	_, err = p.Resolve(context.Background(), &stubSearcher{err: boom})
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, boom)
}

func TestTotalLength(t *testing.T) {
	a := &Track{Duration: time.Minute}
	b := &Track{Duration: 30 * time.Second}

	total, ok := TotalLength([]Entry{a, b})
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, total)

	_, ok = TotalLength([]Entry{a, &Track{IsStream: true}})
	assert.False(t, ok)

	_, ok = TotalLength([]Entry{a, &Partial{}})
	assert.False(t, ok)
}

func TestRequesterMention(t *testing.T) {
	assert.Equal(t, "<@1>", Requester{UserID: "1", Username: "x"}.Mention())
	assert.Equal(t, "x", Requester{Username: "x"}.Mention())
}
