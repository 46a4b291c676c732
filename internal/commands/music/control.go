package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/commands"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/internal/music/timecode"
	"github.com/keshon/nyaplay/pkg/cmd"
)

type PauseCommand struct{ base }

func (c *PauseCommand) Name() string        { return "pause" }
func (c *PauseCommand) Description() string { return "Pauses the player." }

func (c *PauseCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		if err := p.Pause(ctx); err != nil {
			return playerError(err)
		}
		return c.reply(ctx, m, "Paused the player!", "")
	})
}

type ResumeCommand struct{ base }

func (c *ResumeCommand) Name() string        { return "resume" }
func (c *ResumeCommand) Description() string { return "Resumes the player." }
func (c *ResumeCommand) Aliases() []string   { return []string{"unpause"} }

func (c *ResumeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		if err := p.Resume(ctx); err != nil {
			return playerError(err)
		}
		return c.reply(ctx, m, "Resumed the player!", "")
	})
}

type DisconnectCommand struct{ base }

func (c *DisconnectCommand) Name() string        { return "disconnect" }
func (c *DisconnectCommand) Description() string { return "Disconnects the player from its voice channel." }
func (c *DisconnectCommand) Aliases() []string   { return []string{"dc", "stop", "leave"} }

func (c *DisconnectCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		channel := p.VoiceChannel()
		if err := p.Disconnect(ctx); err != nil {
			return err
		}
		return c.reply(ctx, m, fmt.Sprintf("Disconnected from <#%s>!", channel), "")
	})
}

type SkipCommand struct{ base }

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skips the currently playing track." }
func (c *SkipCommand) Aliases() []string   { return []string{"s"} }

func (c *SkipCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		skipped, err := p.Skip(ctx)
		if err != nil {
			return playerError(err)
		}
		e := player.Embed("Skipped "+skipped.Title, "")
		e.URL = skipped.URI
		return c.deps.Out.Notify(ctx, m.ChannelID, e)
	})
}

type SeekCommand struct{ base }

func (c *SeekCommand) Name() string        { return "seek" }
func (c *SeekCommand) Description() string { return "Seeks to a position in the current track." }
func (c *SeekCommand) Usage() string       { return "<time>" }

func (c *SeekCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	if len(inv.Args) != 1 {
		return errs.WithDetail("Where should I seek to?", seekHelp(m, inv.Invoked))
	}
	s, err := timecode.Parse(inv.Args[0])
	if errors.Is(err, timecode.ErrInvalid) {
		return errs.WithDetail("Invalid time format!", seekHelp(m, inv.Invoked))
	}
	if err != nil {
		return err
	}

	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		pos, err := p.Seek(ctx, s)
		if err != nil {
			return playerError(err)
		}
		e := player.Embed("Seeked to "+timecode.Format(pos), "")
		if cur := p.Current(); cur != nil {
			e.Fields = []*discordgo.MessageEmbedField{
				{Name: "Position", Value: player.PositionLabel(cur, pos), Inline: true},
			}
		}
		return c.deps.Out.Notify(ctx, m.ChannelID, e)
	})
}

func seekHelp(m *commands.Message, invoked string) string {
	return fmt.Sprintf("Try `%[1]s%[2]s 1:30`, `%[1]s%[2]s 2m5s` or `%[1]s%[2]s +10s`.", m.Prefix, invoked)
}
