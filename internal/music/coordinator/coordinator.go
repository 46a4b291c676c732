// Package coordinator serializes music commands per guild and checks the
// voice preconditions they share.
package coordinator

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/pkg/guildlock"
)

// Voice is what the coordinator needs to know about Discord voice state.
type Voice interface {
	// UserChannel returns the voice channel a member is in.
	UserChannel(guildID, userID string) (string, bool)
	// BotChannel returns the voice channel the bot is in.
	BotChannel(guildID string) (string, bool)
	// Permissions returns the bot's permission bits in a channel.
	Permissions(channelID string) (int64, error)
	Join(ctx context.Context, guildID, channelID string) error
}

// Request identifies who issued a command and from where.
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
	// Connect lets the command join the requester's channel when the bot is
	// not connected yet.
	Connect bool
}

type Coordinator struct {
	locks   *guildlock.Map
	players *player.Manager
	voice   Voice
}

func New(locks *guildlock.Map, players *player.Manager, voice Voice) *Coordinator {
	return &Coordinator{locks: locks, players: players, voice: voice}
}

// Do runs fn with the guild's lock held. Concurrent calls for one guild run
// one after another in arrival order.
func (c *Coordinator) Do(ctx context.Context, guildID string, fn func(ctx context.Context) error) error {
	return c.locks.Do(ctx, guildID, fn)
}

// Run checks voice preconditions under the guild lock and hands fn the
// guild's player.
func (c *Coordinator) Run(ctx context.Context, req Request, fn func(ctx context.Context, p *player.Player) error) error {
	return c.RunPrepared(ctx, req, nil, fn)
}

// RunPrepared is Run with a prepare step between the voice checks and
// joining the channel. When prepare fails the bot does not join.
func (c *Coordinator) RunPrepared(ctx context.Context, req Request, prepare func(ctx context.Context) error, fn func(ctx context.Context, p *player.Player) error) error {
	return c.Do(ctx, req.GuildID, func(ctx context.Context) error {
		p, join, err := c.checkVoice(req)
		if err != nil {
			return err
		}
		if prepare != nil {
			if err := prepare(ctx); err != nil {
				return err
			}
		}
		if p == nil {
			if p, err = c.connect(ctx, req, join); err != nil {
				return err
			}
		}
		return fn(ctx, p)
	})
}

// EnsureVoice returns the guild's player, joining the requester's channel
// first when allowed. The caller holds the guild lock.
func (c *Coordinator) EnsureVoice(ctx context.Context, req Request) (*player.Player, error) {
	p, join, err := c.checkVoice(req)
	if err != nil || p != nil {
		return p, err
	}
	return c.connect(ctx, req, join)
}

// checkVoice returns the guild's player, or the channel to join when there
// is none and req may connect.
func (c *Coordinator) checkVoice(req Request) (*player.Player, string, error) {
	userChan, ok := c.voice.UserChannel(req.GuildID, req.UserID)
	if !ok {
		return nil, "", errs.User("You're not connected to a voice channel!")
	}

	p, ok := c.players.Get(req.GuildID)
	if !ok {
		if !req.Connect {
			return nil, "", errs.User("I'm not connected to a voice channel!")
		}
		if err := c.canJoin(userChan); err != nil {
			return nil, "", err
		}
		return nil, userChan, nil
	}

	botChan, ok := c.voice.BotChannel(req.GuildID)
	if !ok {
		botChan = p.VoiceChannel()
	}
	if botChan != userChan {
		return nil, "", errs.User("You need to be in my voice channel to use this!")
	}
	if bound := p.BoundChannel(); bound != "" && bound != req.ChannelID {
		return nil, "", errs.Userf("I'm bound to <#%s>, use music commands there!", bound)
	}
	return p, "", nil
}

func (c *Coordinator) canJoin(channelID string) error {
	perms, err := c.voice.Permissions(channelID)
	if err != nil {
		return fmt.Errorf("voice permissions for %s: %w", channelID, err)
	}
	if perms&discordgo.PermissionVoiceConnect == 0 {
		return errs.User("I'm missing permissions to connect to your voice channel!")
	}
	if perms&discordgo.PermissionVoiceSpeak == 0 {
		return errs.User("I'm missing permissions to speak in your voice channel!")
	}
	return nil
}

func (c *Coordinator) connect(ctx context.Context, req Request, channelID string) (*player.Player, error) {
	if err := c.voice.Join(ctx, req.GuildID, channelID); err != nil {
		return nil, fmt.Errorf("join voice channel %s: %w", channelID, err)
	}
	return c.players.Create(req.GuildID, channelID, req.ChannelID), nil
}
