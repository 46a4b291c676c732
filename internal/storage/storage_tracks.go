package storage

import (
	"time"

	"github.com/keshon/nyaplay/internal/music/track"
)

type TrackHistoryRecord struct {
	Title     string    `json:"title"`
	URI       string    `json:"uri"`
	Author    string    `json:"author"`
	Source    string    `json:"source"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	PlayedAt  time.Time `json:"played_at"`
	LengthSec int64     `json:"length_sec,omitempty"`
}

// AppendTrackToHistory records a played track, keeping the most recent ones.
func (s *Storage) AppendTrackToHistory(guildID string, rec TrackHistoryRecord) error {
	return s.update(guildID, func(r *Record) {
		r.TrackHistory = trimTail(append(r.TrackHistory, rec), tracksHistoryLimit)
	})
}

// FetchTrackHistory returns recently played tracks, oldest first.
func (s *Storage) FetchTrackHistory(guildID string) ([]TrackHistoryRecord, error) {
	r, err := s.record(guildID)
	if err != nil {
		return nil, err
	}
	return r.TrackHistory, nil
}

// TrackPlayed is called by the player whenever a track starts.
func (s *Storage) TrackPlayed(guildID string, t *track.Track) {
	rec := TrackHistoryRecord{
		Title:    t.Title,
		URI:      t.URI,
		Author:   t.Author,
		Source:   t.Source,
		UserID:   t.Requester.UserID,
		Username: t.Requester.Username,
		PlayedAt: time.Now(),
	}
	if d, ok := t.Length(); ok {
		rec.LengthSec = int64(d / time.Second)
	}
	if err := s.AppendTrackToHistory(guildID, rec); err != nil {
		s.log.Warn().Err(err).Str("guild", guildID).Msg("record played track")
	}
}
