// Package sources expands links to external music catalogues into the songs
// they name, so the node can search for each one.
package sources

import "context"

const (
	KindTrack    = "track"
	KindAlbum    = "album"
	KindPlaylist = "playlist"
)

// Item is one song found in a catalogue.
type Item struct {
	Artist  string
	Name    string
	URL     string
	Artwork string
}

// Query is the node search text for the item.
func (i Item) Query() string {
	if i.Artist == "" {
		return i.Name
	}
	return i.Artist + " - " + i.Name
}

// Collection is a catalogue object resolved to its songs. A track is a
// collection of one.
type Collection struct {
	Kind    string
	Name    string
	URL     string
	Artwork string
	Items   []Item
}

type Source interface {
	// Match checks if this source can handle the given input
	Match(input string) bool

	// Lookup fetches the catalogue object the input points at
	Lookup(ctx context.Context, input string) (*Collection, error)

	// SourceName returns the string identifier ("spotify", etc.)
	SourceName() string
}
