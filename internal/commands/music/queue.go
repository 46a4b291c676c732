package music

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/commands"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/internal/music/timecode"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/keshon/nyaplay/pkg/cmd"
)

// Discord rejects longer embed descriptions.
const maxDescription = 4000

type QueueCommand struct{ base }

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Displays the player's queue." }
func (c *QueueCommand) Aliases() []string   { return []string{"q"} }

func (c *QueueCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		entries, next := p.Queue(), p.UpNext()
		if len(entries) == 0 && next == nil {
			return c.reply(ctx, m, "Queue is empty!", "")
		}
		title, body := formatQueue(p.Current(), p.Position(), next, entries, p.Shuffle())
		return c.reply(ctx, m, title, body)
	})
}

// formatQueue renders the current track, the entry about to start and the
// numbered upcoming entries.
func formatQueue(cur *track.Track, pos time.Duration, next track.Entry, entries []track.Entry, shuffled bool) (title, body string) {
	lines := make([]string, 0, len(entries)+2)
	if cur != nil {
		lines = append(lines, fmt.Sprintf("**▶ [%s](%s) **[%s] (%s)",
			cur.Title, cur.URI, player.PositionLabel(cur, pos), cur.Requester.Mention()))
	}
	if next != nil {
		lines = append(lines, fmt.Sprintf("**⏭ %s **(starting)", next.DisplayTitle()))
	}
	for i, e := range entries {
		if _, partial := e.(*track.Partial); partial {
			lines = append(lines, fmt.Sprintf("**%d: %s **(%s)", i+1, e.DisplayTitle(), e.RequestedBy().Mention()))
			continue
		}
		lines = append(lines, fmt.Sprintf("**%d: [%s](%s) **[%s] (%s)",
			i+1, e.DisplayTitle(), e.Link(), player.LengthLabel(e), e.RequestedBy().Mention()))
	}

	upcoming := entries
	if next != nil {
		upcoming = append([]track.Entry{next}, entries...)
	}
	title = "Queue - " + plural(len(upcoming), "track")
	if total, ok := track.TotalLength(upcoming); ok {
		if cur != nil && !cur.IsStream {
			total += max(cur.Duration-pos, 0)
		}
		title += fmt.Sprintf(" (%s)", timecode.Format(total))
	}
	if shuffled {
		title += " 🔀"
	}
	return title, truncate(strings.Join(lines, "\n"), maxDescription)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type NowPlayingCommand struct{ base }

func (c *NowPlayingCommand) Name() string        { return "nowplaying" }
func (c *NowPlayingCommand) Description() string { return "Shows info about the currently playing track." }
func (c *NowPlayingCommand) Aliases() []string   { return []string{"np", "current", "now", "song"} }

func (c *NowPlayingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		cur := p.Current()
		if cur == nil {
			return playerError(player.ErrNothingPlaying)
		}
		return c.deps.Out.Notify(ctx, m.ChannelID, player.TrackEmbed(cur, p.Position()))
	})
}

type ClearCommand struct{ base }

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Description() string { return "Clears the player's queue." }
func (c *ClearCommand) Aliases() []string   { return []string{"nuke"} }

func (c *ClearCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		n := p.Clear()
		if n == 0 {
			return errs.User("There's nothing to clear!")
		}
		return c.reply(ctx, m, fmt.Sprintf("Cleared %s!", plural(n, "song")), "")
	})
}

type RemoveCommand struct{ base }

func (c *RemoveCommand) Name() string        { return "remove" }
func (c *RemoveCommand) Description() string { return "Removes a song from the player's queue." }
func (c *RemoveCommand) Aliases() []string   { return []string{"r"} }
func (c *RemoveCommand) Usage() string       { return "<number>" }

func (c *RemoveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		n := p.QueueLen()
		if n == 0 {
			return errs.User("The queue is empty!")
		}
		i, err := trackNumber(m, inv.Invoked, firstArg(inv), n)
		if err != nil {
			return err
		}
		removed, err := p.Remove(i)
		if err != nil {
			return err
		}

		e := player.Embed("Removed "+removed.DisplayTitle(), "")
		e.URL = removed.Link()
		e.Fields = []*discordgo.MessageEmbedField{
			{Name: "Requested by", Value: removed.RequestedBy().Mention(), Inline: true},
		}
		return c.deps.Out.Notify(ctx, m.ChannelID, e)
	})
}

type MoveCommand struct{ base }

func (c *MoveCommand) Name() string        { return "move" }
func (c *MoveCommand) Description() string { return "Moves a song to another position in the queue." }
func (c *MoveCommand) Aliases() []string   { return []string{"m"} }
func (c *MoveCommand) Usage() string       { return "<from> <to>" }

func (c *MoveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	if len(inv.Args) != 2 {
		return errs.WithDetail("Which song should I move where?", fmt.Sprintf("Usage: `%s%s %s`", m.Prefix, inv.Invoked, c.Usage()))
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		n := p.QueueLen()
		if n == 0 {
			return errs.User("The queue is empty!")
		}
		from, err := trackNumber(m, inv.Invoked, inv.Args[0], n)
		if err != nil {
			return err
		}
		to, err := trackNumber(m, inv.Invoked, inv.Args[1], n)
		if err != nil {
			return err
		}
		moved, err := p.Move(from, to)
		if err != nil {
			return err
		}

		e := player.Embed(fmt.Sprintf("Moved %s to position %d", moved.DisplayTitle(), to+1), "")
		e.URL = moved.Link()
		return c.deps.Out.Notify(ctx, m.ChannelID, e)
	})
}

type ShuffleCommand struct{ base }

func (c *ShuffleCommand) Name() string        { return "shuffle" }
func (c *ShuffleCommand) Description() string { return "Toggles shuffled playback of the queue." }
func (c *ShuffleCommand) Aliases() []string   { return []string{"sh"} }
func (c *ShuffleCommand) Usage() string       { return "[on|off]" }

func (c *ShuffleCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	return c.inPlayer(ctx, m, false, func(ctx context.Context, p *player.Player) error {
		on := !p.Shuffle()
		switch strings.ToLower(firstArg(inv)) {
		case "":
		case "on":
			on = true
		case "off":
			on = false
		default:
			return errs.WithDetail("Invalid shuffle mode!", "Use `on` or `off`, or nothing to toggle.")
		}

		changed := p.SetShuffle(on)
		switch {
		case on && changed:
			return c.reply(ctx, m, "Shuffle enabled!", "")
		case on:
			return errs.User("Shuffle is already enabled!")
		case changed:
			return c.reply(ctx, m, "Shuffle disabled!", "")
		default:
			return errs.User("Shuffle is already disabled!")
		}
	})
}

func firstArg(inv *cmd.Invocation) string {
	if len(inv.Args) == 0 {
		return ""
	}
	return inv.Args[0]
}
