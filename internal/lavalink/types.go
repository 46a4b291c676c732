package lavalink

import (
	"encoding/json"
	"time"

	"github.com/keshon/nyaplay/internal/music/track"
)

// TrackInfo is the node's description of a track.
type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	SourceName string `json:"sourceName"`
}

// Track is an encoded track plus its info.
type Track struct {
	Encoded string    `json:"encoded"`
	Info    TrackInfo `json:"info"`
}

// ToTrack converts a node track into the queue's track type.
func (t *Track) ToTrack() *track.Track {
	return &track.Track{
		Identifier: t.Info.Identifier,
		URI:        t.Info.URI,
		Title:      t.Info.Title,
		Author:     t.Info.Author,
		Duration:   time.Duration(t.Info.Length) * time.Millisecond,
		IsStream:   t.Info.IsStream,
		Seekable:   t.Info.IsSeekable,
		Artwork:    t.Info.ArtworkURL,
		Source:     t.Info.SourceName,
		Encoded:    t.Encoded,
	}
}

type PlaylistInfo struct {
	Name          string `json:"name"`
	SelectedTrack int    `json:"selectedTrack"`
}

type Playlist struct {
	Info   PlaylistInfo `json:"info"`
	Tracks []*Track     `json:"tracks"`
}

// Exception is the node's error payload.
type Exception struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

const (
	LoadTrack    = "track"
	LoadPlaylist = "playlist"
	LoadSearch   = "search"
	LoadEmpty    = "empty"
	LoadError    = "error"
)

// LoadResult is the response of /v4/loadtracks. Data depends on LoadType.
type LoadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

// UpdateTrack selects the track to play. A nil Encoded stops playback.
type UpdateTrack struct {
	Encoded *string `json:"encoded"`
}

// VoiceState is the Discord voice session the node should connect with.
type VoiceState struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
	ChannelID string `json:"channelId,omitempty"`
}

// UpdatePlayer is the body of PATCH /v4/sessions/{sessionId}/players/{guildId}.
type UpdatePlayer struct {
	Track    *UpdateTrack `json:"track,omitempty"`
	Position *int64       `json:"position,omitempty"`
	Paused   *bool        `json:"paused,omitempty"`
	Voice    *VoiceState  `json:"voice,omitempty"`
}

type updateSession struct {
	Resuming bool `json:"resuming"`
	Timeout  int  `json:"timeout"`
}

type playerState struct {
	Time      int64 `json:"time"`
	Position  int64 `json:"position"`
	Connected bool  `json:"connected"`
	Ping      int   `json:"ping"`
}

// message is any websocket frame the node sends. Fields are filled per op.
type message struct {
	Op string `json:"op"`

	// ready
	Resumed   bool   `json:"resumed"`
	SessionID string `json:"sessionId"`

	// playerUpdate, event
	GuildID string       `json:"guildId"`
	State   *playerState `json:"state"`

	// event
	Type        string     `json:"type"`
	Track       *Track     `json:"track"`
	Reason      string     `json:"reason"`
	Exception   *Exception `json:"exception"`
	ThresholdMs int64      `json:"thresholdMs"`
	Code        int        `json:"code"`
	ByRemote    bool       `json:"byRemote"`

	// stats
	Players        int   `json:"players"`
	PlayingPlayers int   `json:"playingPlayers"`
	Uptime         int64 `json:"uptime"`
}
