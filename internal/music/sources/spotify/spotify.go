// Package spotify resolves Spotify track, album and playlist links through
// the Web API using client credentials.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/keshon/nyaplay/internal/music/sources"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const SourceName = "spotify"

// linkPattern matches https://open.spotify.com/<type>/<id> and
// spotify:<type>:<id>, with any trailing query string.
var linkPattern = regexp.MustCompile(`^(?:(?:https?://)?open\.spotify\.com/(?:intl-[A-Za-z-]+/)?|spotify:)(track|album|playlist)[/:]([A-Za-z0-9]+)`)

var ErrNotSpotify = errors.New("not a spotify link")

const (
	albumPageSize    = 50
	playlistPageSize = 100
)

type Source struct {
	client *spotify.Client
	log    zerolog.Logger
}

// New authenticates with client credentials. Tokens are fetched lazily and
// refreshed by the oauth2 transport.
func New(ctx context.Context, clientID, clientSecret string) *Source {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return NewWithClient(spotify.New(cfg.Client(ctx)))
}

func NewWithClient(c *spotify.Client) *Source {
	return &Source{client: c, log: log.With().Str("component", "spotify").Logger()}
}

func (s *Source) SourceName() string {
	return SourceName
}

func (s *Source) Match(input string) bool {
	return linkPattern.MatchString(input)
}

// ParseLink splits a link into its object type and ID.
func ParseLink(input string) (kind, id string, err error) {
	m := linkPattern.FindStringSubmatch(input)
	if m == nil {
		return "", "", ErrNotSpotify
	}
	return m[1], m[2], nil
}

func (s *Source) Lookup(ctx context.Context, input string) (*sources.Collection, error) {
	kind, id, err := ParseLink(input)
	if err != nil {
		return nil, err
	}
	var col *sources.Collection
	switch kind {
	case sources.KindTrack:
		col, err = s.track(ctx, spotify.ID(id))
	case sources.KindAlbum:
		col, err = s.album(ctx, spotify.ID(id))
	case sources.KindPlaylist:
		col, err = s.playlist(ctx, spotify.ID(id))
	}
	if err != nil {
		return nil, fmt.Errorf("spotify %s %s: %w", kind, id, err)
	}
	s.log.Debug().Str("kind", kind).Str("id", id).Int("items", len(col.Items)).Msg("resolved link")
	return col, nil
}

func (s *Source) track(ctx context.Context, id spotify.ID) (*sources.Collection, error) {
	t, err := s.client.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	item := fullTrackItem(t)
	if art := firstImage(t.Album.Images); art != "" {
		item.Artwork = art
	}
	return &sources.Collection{
		Kind:    sources.KindTrack,
		Name:    t.Name,
		URL:     item.URL,
		Artwork: item.Artwork,
		Items:   []sources.Item{item},
	}, nil
}

func (s *Source) album(ctx context.Context, id spotify.ID) (*sources.Collection, error) {
	a, err := s.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	col := &sources.Collection{
		Kind:    sources.KindAlbum,
		Name:    a.Name,
		URL:     a.ExternalURLs["spotify"],
		Artwork: firstImage(a.Images),
	}
	albumArtist := firstArtist(a.Artists)

	for offset := 0; ; offset += albumPageSize {
		page, err := s.client.GetAlbumTracks(ctx, id, spotify.Limit(albumPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		for _, t := range page.Tracks {
			artist := firstArtist(t.Artists)
			if artist == "" {
				artist = albumArtist
			}
			col.Items = append(col.Items, sources.Item{
				Artist:  artist,
				Name:    t.Name,
				URL:     t.ExternalURLs["spotify"],
				Artwork: col.Artwork,
			})
		}
		if len(page.Tracks) < albumPageSize {
			break
		}
	}
	return col, nil
}

func (s *Source) playlist(ctx context.Context, id spotify.ID) (*sources.Collection, error) {
	p, err := s.client.GetPlaylist(ctx, id, spotify.Fields("name,external_urls,images"))
	if err != nil {
		return nil, err
	}
	col := &sources.Collection{
		Kind:    sources.KindPlaylist,
		Name:    p.Name,
		URL:     p.ExternalURLs["spotify"],
		Artwork: firstImage(p.Images),
	}

	for offset := 0; ; offset += playlistPageSize {
		page, err := s.client.GetPlaylistItems(ctx, id, spotify.Limit(playlistPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		for i := range page.Items {
			// Episodes and removed tracks come back without a track.
			t := page.Items[i].Track.Track
			if t == nil {
				continue
			}
			col.Items = append(col.Items, fullTrackItem(t))
		}
		if len(page.Items) < playlistPageSize {
			break
		}
	}
	return col, nil
}

func fullTrackItem(t *spotify.FullTrack) sources.Item {
	return sources.Item{
		Artist:  firstArtist(t.Artists),
		Name:    t.Name,
		URL:     t.ExternalURLs["spotify"],
		Artwork: firstImage(t.Album.Images),
	}
}

func firstArtist(as []spotify.SimpleArtist) string {
	if len(as) == 0 {
		return ""
	}
	return as[0].Name
}

// firstImage returns the widest image; the API lists them largest first.
func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
