package music

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/commands"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/internal/music/search"
	"github.com/keshon/nyaplay/internal/music/timecode"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/keshon/nyaplay/pkg/cmd"
)

// PlayCommand implements play and its variants. They differ in where the
// entries go and what happens around the enqueue.
type PlayCommand struct {
	base
	name        string
	aliases     []string
	description string
	placement   player.Placement
	skip        bool
	shuffle     bool
}

func newPlay(deps Deps, name string, aliases []string, description string, at player.Placement, skip, shuffle bool) *PlayCommand {
	return &PlayCommand{
		base:        base{deps: deps},
		name:        name,
		aliases:     aliases,
		description: description,
		placement:   at,
		skip:        skip,
		shuffle:     shuffle,
	}
}

func (c *PlayCommand) Name() string        { return c.name }
func (c *PlayCommand) Description() string { return c.description }
func (c *PlayCommand) Aliases() []string   { return c.aliases }
func (c *PlayCommand) Usage() string       { return "<query>" }

func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	query := strings.Join(inv.Args, " ")
	if strings.TrimSpace(query) == "" {
		return errs.WithDetail("What should I play?", fmt.Sprintf("Usage: `%s%s %s`", m.Prefix, inv.Invoked, c.Usage()))
	}

	var found *search.Result
	resolve := func(ctx context.Context) error {
		var err error
		found, err = c.deps.Search.Resolve(ctx, query, m.Requester())
		return err
	}
	return c.deps.Players.RunPrepared(ctx, m.Request(true), resolve, func(ctx context.Context, p *player.Player) error {
		entries := found.Entries
		if c.shuffle {
			entries = shuffled(entries, c.deps.Shuffle)
		}

		wasPlaying := p.Current() != nil
		res, err := p.Enqueue(ctx, entries, c.placement)
		if err != nil {
			return playerError(err)
		}

		if c.skip && wasPlaying {
			if _, err := p.Skip(ctx); err != nil {
				return playerError(err)
			}
		}

		var embed *discordgo.MessageEmbed
		switch {
		case found.Multiple:
			embed = queuedMany(found, entries, res)
		case wasPlaying && !c.skip:
			embed = queuedOne(found, entries[0], res)
		default:
			// the now-playing notice covers it
			return nil
		}
		return c.deps.Out.Notify(ctx, m.ChannelID, embed)
	})
}

func shuffled(entries []track.Entry, shuffle func(n int, swap func(i, j int))) []track.Entry {
	out := make([]track.Entry, len(entries))
	copy(out, entries)
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func queuedMany(found *search.Result, entries []track.Entry, res player.EnqueueResult) *discordgo.MessageEmbed {
	e := player.Embed(fmt.Sprintf("Queued %s - %d tracks", found.Name, len(entries)), "")
	e.URL = found.URL
	if found.Artwork != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: found.Artwork}
	}

	if total, ok := track.TotalLength(entries); ok {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Duration", Value: timecode.Format(total), Inline: true})
	} else {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "# of tracks", Value: fmt.Sprint(len(entries)), Inline: true})
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
		Name:   "Position in queue",
		Value:  fmt.Sprintf("%d-%d", res.First, res.Last),
		Inline: true,
	})
	return e
}

func queuedOne(found *search.Result, entry track.Entry, res player.EnqueueResult) *discordgo.MessageEmbed {
	e := player.Embed("Queued "+found.Name, "")
	e.URL = found.URL
	if e.URL == "" {
		e.URL = entry.Link()
	}
	if found.Artwork != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: found.Artwork}
	}
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Duration", Value: player.LengthLabel(entry), Inline: true},
		{Name: "Position in queue", Value: fmt.Sprint(res.First), Inline: true},
	}
	return e
}
