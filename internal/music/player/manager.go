package player

import (
	"context"
	"sync"

	"github.com/keshon/nyaplay/pkg/guildlock"
	"github.com/keshon/nyaplay/pkg/util"
	"github.com/rs/zerolog/log"
)

// Manager owns one Player per voice-connected guild.
type Manager struct {
	cfg   Config
	deps  Deps
	locks *guildlock.Map

	mu      sync.Mutex
	players map[string]*Player
}

// NewManager returns a Manager whose players serialize on locks.
func NewManager(locks *guildlock.Map, cfg Config, deps Deps) *Manager {
	return &Manager{
		cfg:     cfg,
		deps:    deps,
		locks:   locks,
		players: make(map[string]*Player),
	}
}

// Get returns the guild's player, if it has one.
func (m *Manager) Get(guildID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

// Create returns the guild's player, starting a new one bound to the given
// channels if there is none.
func (m *Manager) Create(guildID, voiceChannel, boundChannel string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		return p
	}
	p := newPlayer(guildID, voiceChannel, boundChannel, m.locks.Get(guildID), m.cfg, m.deps, m.forget)
	m.players[guildID] = p
	log.Info().Str("guild", guildID).Str("voice", voiceChannel).Str("bound", boundChannel).Msg("player created")
	return p
}

// Remove disconnects and drops the guild's player. The caller holds the
// guild lock.
func (m *Manager) Remove(ctx context.Context, guildID string) error {
	p, ok := m.Get(guildID)
	if !ok {
		return nil
	}
	return p.Disconnect(ctx)
}

func (m *Manager) forget(p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.players[p.guildID] == p {
		delete(m.players, p.guildID)
	}
}

// Deliver routes a node event to its guild's player. Events for guilds
// without a player are dropped.
func (m *Manager) Deliver(ev Event) bool {
	p, ok := m.Get(ev.GuildID())
	if !ok {
		log.Debug().Str("guild", ev.GuildID()).Msgf("dropping %T for unknown guild", ev)
		return false
	}
	p.deliver(ev)
	return true
}

// Len returns the number of live players.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// Shutdown disconnects every player, a few at a time.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	return util.ForEach(ctx, players, 4, func(ctx context.Context, p *Player) error {
		return m.locks.Do(ctx, p.guildID, p.Disconnect)
	})
}
