// Package storage keeps per-guild bot state in the datastore: command
// history, recently played tracks and voice settings.
package storage

import (
	"fmt"
	"sync"

	"github.com/keshon/nyaplay/datastore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	commandHistoryLimit int = 20
	tracksHistoryLimit  int = 12
)

// Record is everything stored for one guild.
type Record struct {
	CommandHistory []CommandHistoryRecord `json:"cmd_history"`
	TrackHistory   []TrackHistoryRecord   `json:"track_history"`
	MovePolicy     string                 `json:"move_policy,omitempty"`
}

type Storage struct {
	ds  *datastore.DataStore
	log zerolog.Logger

	// mu makes read-modify-write of a record atomic.
	mu sync.Mutex
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds, log: log.With().Str("component", "storage").Logger()}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func guildKey(guildID string) string {
	return "guild:" + guildID
}

// record returns a copy of the guild's record; a missing one is empty.
func (s *Storage) record(guildID string) (*Record, error) {
	var r Record
	if _, err := s.ds.Get(guildKey(guildID), &r); err != nil {
		return nil, fmt.Errorf("guild %s: %w", guildID, err)
	}
	return &r, nil
}

// update applies fn to the guild's record and stores the result.
func (s *Storage) update(guildID string, fn func(r *Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(guildID)
	if err != nil {
		return err
	}
	fn(r)
	return s.ds.Put(guildKey(guildID), r)
}

// trimTail keeps the last n elements.
func trimTail[T any](list []T, n int) []T {
	if len(list) <= n {
		return list
	}
	return list[len(list)-n:]
}
