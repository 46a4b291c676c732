package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/sources"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	results map[string]*track.Result
	err     error
	queries []string
}

func (n *fakeNode) Search(_ context.Context, identifier string) (*track.Result, error) {
	n.queries = append(n.queries, identifier)
	if n.err != nil {
		return nil, n.err
	}
	if res, ok := n.results[identifier]; ok {
		return res, nil
	}
	return &track.Result{Kind: track.KindEmpty}, nil
}

type fakeSource struct {
	col *sources.Collection
	err error
}

func (s *fakeSource) Match(input string) bool { return strings.HasPrefix(input, "cat:") }
func (s *fakeSource) SourceName() string { return "fake" }

func (s *fakeSource) Lookup(context.Context, string) (*sources.Collection, error) {
	return s.col, s.err
}

func song(title string) *track.Track {
	return &track.Track{Title: title, URI: "https://youtu.be/" + title, Encoded: "enc-" + title, Duration: time.Minute}
}

var alice = track.Requester{UserID: "1", Username: "alice", ChannelID: "text"}

func TestFreeTextTakesFirstHit(t *testing.T) {
	node := &fakeNode{results: map[string]*track.Result{
		"ytsearch:lofi beats": {Kind: track.KindSearch, Tracks: []*track.Track{song("a"), song("b")}},
	}}
	r := New(node)

	res, err := r.Resolve(context.Background(), "  lofi beats ", alice)
	require.NoError(t, err)
	assert.False(t, res.Multiple)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "a", res.Entries[0].DisplayTitle())
	assert.Equal(t, alice, res.Entries[0].RequestedBy())
	assert.Equal(t, "a", res.Name)
}

func TestURLPassesThrough(t *testing.T) {
	node := &fakeNode{results: map[string]*track.Result{
		"https://youtu.be/x": {Kind: track.KindTrack, Tracks: []*track.Track{song("x")}},
	}}
	r := New(node)

	_, err := r.Resolve(context.Background(), "<https://youtu.be/x>", alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/x"}, node.queries)
}

func TestPlaylistKeepsOrder(t *testing.T) {
	node := &fakeNode{results: map[string]*track.Result{
		"https://yt/list": {Kind: track.KindPlaylist, PlaylistName: "Mix", Tracks: []*track.Track{song("1"), song("2"), song("3")}},
	}}
	r := New(node)

	res, err := r.Resolve(context.Background(), "https://yt/list", alice)
	require.NoError(t, err)
	assert.True(t, res.Multiple)
	assert.Equal(t, "Mix", res.Name)
	var titles []string
	for _, e := range res.Entries {
		titles = append(titles, e.DisplayTitle())
	}
	assert.Equal(t, []string{"1", "2", "3"}, titles)
}

func TestSearchFailures(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name string
		node *fakeNode
		kind errs.Kind
		msg  string
	}{
		{name: "nothing found", node: &fakeNode{}, kind: errs.KindUser, msg: "Nothing found!"},
		{name: "load failed", node: &fakeNode{err: fmt.Errorf("%w: blocked", track.ErrLoadFailed)}, kind: errs.KindUser, msg: "Failed to load track."},
		{name: "node down", node: &fakeNode{err: down}, kind: errs.KindNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.node).Resolve(context.Background(), "anything", alice)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.Classify(err))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}
}

func TestCatalogueTrackResolvedEagerly(t *testing.T) {
	node := &fakeNode{results: map[string]*track.Result{
		"ytsearch:Artist - Song": {Kind: track.KindSearch, Tracks: []*track.Track{song("Song")}},
	}}
	src := &fakeSource{col: &sources.Collection{
		Kind: sources.KindTrack, Name: "Song", Artwork: "https://img",
		Items: []sources.Item{{Artist: "Artist", Name: "Song"}},
	}}
	r := New(node, src)

	res, err := r.Resolve(context.Background(), "cat:track", alice)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	got, ok := res.Entries[0].(*track.Track)
	require.True(t, ok)
	assert.Equal(t, "enc-Song", got.Encoded)
	assert.Equal(t, "https://img", got.Artwork)
}

func TestCatalogueCollectionBecomesPartials(t *testing.T) {
	node := &fakeNode{}
	src := &fakeSource{col: &sources.Collection{
		Kind: sources.KindAlbum, Name: "Album", Artwork: "https://cover",
		Items: []sources.Item{{Artist: "A", Name: "One"}, {Artist: "A", Name: "Two", Artwork: "https://own"}},
	}}
	r := New(node, src)

	res, err := r.Resolve(context.Background(), "cat:album", alice)
	require.NoError(t, err)
	assert.True(t, res.Multiple)
	assert.Empty(t, node.queries, "partials are searched at dequeue time")
	require.Len(t, res.Entries, 2)
	p, ok := res.Entries[0].(*track.Partial)
	require.True(t, ok)
	assert.Equal(t, "A - One", p.Query)
	assert.Equal(t, "https://cover", p.Artwork)
	assert.Equal(t, alice, p.Requester)
	assert.Equal(t, "https://own", res.Entries[1].(*track.Partial).Artwork)
}

func TestCatalogueFailureIsUserFacing(t *testing.T) {
	r := New(&fakeNode{}, &fakeSource{err: errors.New("401")})

	_, err := r.Resolve(context.Background(), "cat:playlist", alice)
	assert.Equal(t, errs.KindUser, errs.Classify(err))

	r = New(&fakeNode{}, &fakeSource{col: &sources.Collection{Kind: sources.KindPlaylist}})
	_, err = r.Resolve(context.Background(), "cat:playlist", alice)
	assert.Equal(t, "Nothing found!", err.Error())
}
