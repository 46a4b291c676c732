// Package track holds the playable items that move through a guild queue.
//
// An Entry is either a resolved *Track, playable immediately, or a *Partial
// whose node metadata is looked up only when it reaches the front of the queue.
package track

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Requester identifies who asked for an entry and where they asked.
type Requester struct {
	UserID    string
	Username  string
	ChannelID string
}

// Mention renders the requester as a Discord user mention.
func (r Requester) Mention() string {
	if r.UserID == "" {
		return r.Username
	}
	return "<@" + r.UserID + ">"
}

// Track is a fully resolved node track. Values are never mutated after
// construction; share them by pointer.
type Track struct {
	Identifier string
	URI        string
	Title      string
	Author     string
	Duration   time.Duration
	IsStream   bool
	Seekable   bool
	Artwork    string
	Source     string

	// Encoded is the opaque blob the node needs to play the track.
	Encoded string

	Requester Requester
}

// WithRequester returns a copy of t owned by r.
func (t *Track) WithRequester(r Requester) *Track {
	cp := *t
	cp.Requester = r
	return &cp
}

func (t *Track) DisplayTitle() string {
	return t.Title
}

func (t *Track) Link() string {
	return t.URI
}

func (t *Track) RequestedBy() Requester {
	return t.Requester
}

func (t *Track) Length() (time.Duration, bool) {
	if t.IsStream {
		return 0, false
	}
	return t.Duration, true
}

// Resolve is a no-op for a resolved track.
func (t *Track) Resolve(context.Context, Searcher) (*Track, error) {
	return t, nil
}

// Partial is a queue entry discovered through bulk catalogue expansion whose
// node track is searched for at dequeue time.
type Partial struct {
	Query     string
	Title     string
	URI       string
	Artwork   string
	Requester Requester
}

func (p *Partial) DisplayTitle() string {
	return p.Title
}

func (p *Partial) Link() string {
	return p.URI
}

func (p *Partial) RequestedBy() Requester {
	return p.Requester
}

func (p *Partial) Length() (time.Duration, bool) {
	return 0, false
}

// Resolve searches the node for the partial's query and returns the first hit
// owned by the partial's requester. A miss is reported as *ResolutionError.
func (p *Partial) Resolve(ctx context.Context, s Searcher) (*Track, error) {
	res, err := s.Search(ctx, SearchPrefix+p.Query)
	if err != nil {
		return nil, &ResolutionError{Entry: p, Err: err}
	}
	if res == nil || len(res.Tracks) == 0 {
		return nil, &ResolutionError{Entry: p, Err: ErrNoMatches}
	}
	t := res.Tracks[0].WithRequester(p.Requester)
	if t.Artwork == "" {
		t.Artwork = p.Artwork
	}
	return t, nil
}

// Entry is the sum of *Track and *Partial. Entries are compared by identity:
// two requests for the same song are distinct entries.
type Entry interface {
	DisplayTitle() string
	Link() string
	RequestedBy() Requester
	// Length reports the duration, or false when unknown or a stream.
	Length() (time.Duration, bool)
	Resolve(ctx context.Context, s Searcher) (*Track, error)
}

var (
	_ Entry = (*Track)(nil)
	_ Entry = (*Partial)(nil)
)

// SearchPrefix turns free text into a node search identifier.
const SearchPrefix = "ytsearch:"

var (
	ErrNoMatches  = errors.New("nothing found")
	ErrLoadFailed = errors.New("failed to load track")
)

// ResultKind mirrors the node's load types.
type ResultKind int

const (
	KindEmpty ResultKind = iota
	KindTrack
	KindPlaylist
	KindSearch
)

func (k ResultKind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindPlaylist:
		return "playlist"
	case KindSearch:
		return "search"
	default:
		return "empty"
	}
}

// Result is a node search response.
type Result struct {
	Kind          ResultKind
	PlaylistName  string
	SelectedTrack int
	Tracks        []*Track
}

// Searcher looks tracks up on the node. Failures to reach the node are
// returned as errors; "nothing found" is a Result with KindEmpty.
type Searcher interface {
	Search(ctx context.Context, identifier string) (*Result, error)
}

// ResolutionError is returned when a partial entry yields no playable match.
type ResolutionError struct {
	Entry Entry
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %q: %v", e.Entry.DisplayTitle(), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// TotalLength sums entry lengths. ok is false if any entry has no known length.
func TotalLength(entries []Entry) (total time.Duration, ok bool) {
	for _, e := range entries {
		d, known := e.Length()
		if !known {
			return 0, false
		}
		total += d
	}
	return total, true
}
