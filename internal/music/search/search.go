// Package search turns what a user typed after a play command into queue
// entries: catalogue links are expanded through a source, other URLs go to
// the node as-is and free text becomes a node search.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/sources"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	errNothingFound   = errs.User("Nothing found!")
	errLoadFailed     = errs.User("Failed to load track.")
	errCatalogueFetch = errs.User("An error has occurred during a catalogue request.")
)

// Result is a resolved query. Multiple is set for playlists and albums.
type Result struct {
	Name     string
	URL      string
	Artwork  string
	Multiple bool
	Entries  []track.Entry
}

type Resolver struct {
	node    track.Searcher
	sources []sources.Source
	log     zerolog.Logger
}

func New(node track.Searcher, srcs ...sources.Source) *Resolver {
	return &Resolver{
		node:    node,
		sources: srcs,
		log:     log.With().Str("component", "search").Logger(),
	}
}

// Resolve looks query up for req. Misses and node load failures come back
// as *errs.UserError; network trouble with the node as *errs.NodeError.
func (r *Resolver) Resolve(ctx context.Context, query string, req track.Requester) (*Result, error) {
	query = strings.TrimSpace(query)
	// Discord wraps links in <> to suppress embeds.
	query = strings.TrimSuffix(strings.TrimPrefix(query, "<"), ">")
	if query == "" {
		return nil, errNothingFound
	}

	for _, s := range r.sources {
		if s.Match(query) {
			return r.fromSource(ctx, s, query, req)
		}
	}

	identifier := query
	if !isURL(query) {
		identifier = track.SearchPrefix + query
	}
	res, err := r.search(ctx, identifier)
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case track.KindPlaylist:
		entries := make([]track.Entry, 0, len(res.Tracks))
		for _, t := range res.Tracks {
			entries = append(entries, t.WithRequester(req))
		}
		return &Result{Name: res.PlaylistName, Multiple: true, Entries: entries}, nil
	default:
		t := res.Tracks[0].WithRequester(req)
		return &Result{Name: t.Title, URL: t.URI, Artwork: t.Artwork, Entries: []track.Entry{t}}, nil
	}
}

// search runs a node search and maps empty results and load failures to
// user errors.
func (r *Resolver) search(ctx context.Context, identifier string) (*track.Result, error) {
	res, err := r.node.Search(ctx, identifier)
	if errors.Is(err, track.ErrLoadFailed) {
		r.log.Info().Err(err).Str("identifier", identifier).Msg("load failed")
		return nil, errLoadFailed
	}
	if err != nil {
		return nil, errs.Node("search", err)
	}
	if res.Kind == track.KindEmpty || len(res.Tracks) == 0 {
		return nil, errNothingFound
	}
	return res, nil
}

func (r *Resolver) fromSource(ctx context.Context, s sources.Source, query string, req track.Requester) (*Result, error) {
	col, err := s.Lookup(ctx, query)
	if err != nil {
		r.log.Warn().Err(err).Str("source", s.SourceName()).Str("query", query).Msg("catalogue lookup failed")
		return nil, errCatalogueFetch
	}
	if len(col.Items) == 0 {
		return nil, errNothingFound
	}

	res := &Result{Name: col.Name, URL: col.URL, Artwork: col.Artwork}

	// Single tracks are resolved now so the user hears about a miss at once.
	if col.Kind == sources.KindTrack {
		found, err := r.search(ctx, track.SearchPrefix+col.Items[0].Query())
		if err != nil {
			return nil, err
		}
		t := found.Tracks[0].WithRequester(req)
		if t.Artwork == "" {
			t.Artwork = col.Artwork
		}
		res.Entries = []track.Entry{t}
		return res, nil
	}

	res.Multiple = true
	res.Entries = make([]track.Entry, 0, len(col.Items))
	for _, item := range col.Items {
		artwork := item.Artwork
		if artwork == "" {
			artwork = col.Artwork
		}
		res.Entries = append(res.Entries, &track.Partial{
			Query:     item.Query(),
			Title:     item.Query(),
			URI:       item.URL,
			Artwork:   artwork,
			Requester: req,
		})
	}
	return res, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
