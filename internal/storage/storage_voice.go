package storage

import "github.com/keshon/nyaplay/internal/music/player"

// MovePolicy returns the guild's voice-move policy, or fallback when unset.
func (s *Storage) MovePolicy(guildID string, fallback player.MovePolicy) player.MovePolicy {
	r, err := s.record(guildID)
	if err != nil {
		s.log.Warn().Err(err).Str("guild", guildID).Msg("read move policy")
		return fallback
	}
	p, err := player.ParseMovePolicy(r.MovePolicy)
	if err != nil {
		return fallback
	}
	return p
}

func (s *Storage) SetMovePolicy(guildID string, p player.MovePolicy) error {
	return s.update(guildID, func(r *Record) {
		r.MovePolicy = string(p)
	})
}
