// Package discord connects the music core to the Discord gateway: prefix
// commands in, voice updates to the node, replies out.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/commands"
	"github.com/keshon/nyaplay/internal/lavalink"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/pkg/cmd"
	"github.com/keshon/nyaplay/pkg/guildlock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	commandTimeout  = 2 * time.Minute
	voiceTimeout    = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

type Options struct {
	Prefix string
	// Presence is shown as the bot's "Playing" status.
	Presence          string
	DefaultMovePolicy player.MovePolicy
}

// MovePolicies reads the per-guild voice move policy.
type MovePolicies interface {
	MovePolicy(guildID string, fallback player.MovePolicy) player.MovePolicy
}

type Deps struct {
	Registry *cmd.Registry
	Players  *player.Manager
	Locks    *guildlock.Map
	Node     *lavalink.Node
	Lavalink *lavalink.Client
	Policies MovePolicies
}

// Bot is a Discord bot
type Bot struct {
	dg   *discordgo.Session
	opts Options
	deps Deps
	log  zerolog.Logger

	ctx       context.Context
	ready     chan struct{}
	readyOnce sync.Once
}

func New(dg *discordgo.Session, opts Options, deps Deps) *Bot {
	return &Bot{
		dg:    dg,
		opts:  opts,
		deps:  deps,
		log:   log.With().Str("component", "discord").Logger(),
		ready: make(chan struct{}),
	}
}

// Run opens the gateway session, starts the node connection once Discord
// reports ready, and blocks until ctx ends. Players are disconnected on the
// way out.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)
	b.dg.AddHandler(b.onVoiceServerUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	select {
	case <-b.ready:
	case <-ctx.Done():
		return nil
	}

	nodeDone := make(chan error, 1)
	go func() {
		nodeDone <- b.deps.Lavalink.Run(ctx, b.dg.State.User.ID, b.deliver)
	}()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, cleaning up")

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := b.deps.Players.Shutdown(sctx); err != nil {
		b.log.Warn().Err(err).Msg("players shutdown")
	}
	if err := <-nodeDone; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("lavalink: %w", err)
	}
	return nil
}

func (b *Bot) deliver(ev player.Event) {
	if !b.deps.Players.Deliver(ev) {
		b.log.Debug().Str("guild", ev.GuildID()).Type("event", ev).Msg("event for a guild without player")
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if b.opts.Presence != "" {
		err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Status: string(discordgo.StatusDoNotDisturb),
			Activities: []*discordgo.Activity{{
				Name: b.opts.Presence,
				Type: discordgo.ActivityTypeGame,
			}},
		})
		if err != nil {
			b.log.Warn().Err(err).Msg("failed to set presence")
		}
	}
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord bot is running")
	b.readyOnce.Do(func() { close(b.ready) })
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || s.State.User == nil {
		return
	}
	name, args, ok := parseCommand(m.Content, b.opts.Prefix, s.State.User.ID)
	if !ok {
		return
	}
	c := b.deps.Registry.Get(name)
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	inv := &cmd.Invocation{
		Invoked: name,
		Args:    args,
		Data: &commands.Message{
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			UserID:    m.Author.ID,
			Username:  m.Author.Username,
			Prefix:    b.opts.Prefix,
		},
	}
	if err := c.Run(ctx, inv); err != nil {
		b.log.Error().Err(err).Str("command", c.Name()).Str("guild", m.GuildID).Msg("error running command")
	}
}

// parseCommand splits a message that starts with prefix or a mention of the
// bot into a lowercased command name and its arguments.
func parseCommand(content, prefix, botID string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)
	var rest string
	switch {
	case prefix != "" && strings.HasPrefix(strings.ToLower(content), strings.ToLower(prefix)):
		rest = content[len(prefix):]
	case strings.HasPrefix(content, "<@"+botID+">"):
		rest = strings.TrimPrefix(content, "<@"+botID+">")
	case strings.HasPrefix(content, "<@!"+botID+">"):
		rest = strings.TrimPrefix(content, "<@!"+botID+">")
	default:
		return "", nil, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, voiceTimeout)
	defer cancel()

	if err := b.deps.Node.VoiceStateUpdate(ctx, v.GuildID, v.ChannelID, v.SessionID); err != nil {
		b.log.Warn().Err(err).Str("guild", v.GuildID).Msg("forward voice state")
	}

	p, ok := b.deps.Players.Get(v.GuildID)
	if !ok {
		return
	}

	switch {
	case v.ChannelID == "":
		// kicked or disconnected from outside
		err := b.deps.Locks.Do(ctx, v.GuildID, func(ctx context.Context) error {
			return b.deps.Players.Remove(ctx, v.GuildID)
		})
		if err != nil {
			b.log.Warn().Err(err).Str("guild", v.GuildID).Msg("remove player after voice leave")
		}
	case v.ChannelID != p.VoiceChannel():
		policy := b.opts.DefaultMovePolicy
		if b.deps.Policies != nil {
			policy = b.deps.Policies.MovePolicy(v.GuildID, policy)
		}
		b.log.Info().Str("guild", v.GuildID).Str("channel", v.ChannelID).Str("policy", string(policy)).Msg("moved to another voice channel")
		err := b.deps.Locks.Do(ctx, v.GuildID, func(ctx context.Context) error {
			return p.HandleVoiceMove(ctx, v.ChannelID, policy)
		})
		if err != nil {
			b.log.Warn().Err(err).Str("guild", v.GuildID).Msg("handle voice move")
		}
	}
}

func (b *Bot) onVoiceServerUpdate(_ *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	ctx, cancel := context.WithTimeout(b.ctx, voiceTimeout)
	defer cancel()

	if err := b.deps.Node.VoiceServerUpdate(ctx, v.GuildID, v.Token, v.Endpoint); err != nil {
		b.log.Warn().Err(err).Str("guild", v.GuildID).Msg("forward voice server")
	}
}
