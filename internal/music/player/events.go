package player

import "time"

// Event is something the audio node reports about one guild's player.
type Event interface {
	GuildID() string
}

// EndReason is why the node stopped a track.
type EndReason string

const (
	EndFinished   EndReason = "finished"
	EndLoadFailed EndReason = "loadFailed"
	EndStopped    EndReason = "stopped"
	EndReplaced   EndReason = "replaced"
	EndCleanup    EndReason = "cleanup"
)

// Advances reports whether the next queued track should start.
func (r EndReason) Advances() bool {
	switch r {
	case EndFinished, EndLoadFailed, EndStopped:
		return true
	}
	return false
}

type TrackStart struct {
	Guild   string
	Encoded string
}

type TrackEnd struct {
	Guild   string
	Encoded string
	Reason  EndReason
}

type TrackException struct {
	Guild    string
	Encoded  string
	Message  string
	Severity string
	Cause    string
}

type TrackStuck struct {
	Guild     string
	Encoded   string
	Threshold time.Duration
}

// PlayerUpdate is the node's periodic position report.
type PlayerUpdate struct {
	Guild     string
	Position  time.Duration
	Connected bool
}

// SocketClosed is sent when Discord closes the node's voice connection.
type SocketClosed struct {
	Guild    string
	Code     int
	Reason   string
	ByRemote bool
}

func (e TrackStart) GuildID() string { return e.Guild }
func (e TrackEnd) GuildID() string { return e.Guild }
func (e TrackException) GuildID() string { return e.Guild }
func (e TrackStuck) GuildID() string { return e.Guild }
func (e PlayerUpdate) GuildID() string { return e.Guild }
func (e SocketClosed) GuildID() string { return e.Guild }
