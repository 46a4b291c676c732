// Package music holds the prefix commands that drive a guild's player.
package music

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/keshon/nyaplay/internal/commands"
	"github.com/keshon/nyaplay/internal/config"
	"github.com/keshon/nyaplay/internal/music/coordinator"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/internal/music/queue"
	"github.com/keshon/nyaplay/internal/music/search"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/keshon/nyaplay/internal/storage"
	"github.com/keshon/nyaplay/pkg/cmd"
)

// Runner executes fn against the guild's player once voice checks pass.
// RunPrepared runs prepare before the bot joins voice.
type Runner interface {
	Run(ctx context.Context, req coordinator.Request, fn func(ctx context.Context, p *player.Player) error) error
	RunPrepared(ctx context.Context, req coordinator.Request, prepare func(ctx context.Context) error, fn func(ctx context.Context, p *player.Player) error) error
}

// Resolver turns a play query into queue entries.
type Resolver interface {
	Resolve(ctx context.Context, query string, req track.Requester) (*search.Result, error)
}

// Store is the per-guild persistence the commands read and write.
type Store interface {
	FetchTrackHistory(guildID string) ([]storage.TrackHistoryRecord, error)
	MovePolicy(guildID string, fallback player.MovePolicy) player.MovePolicy
	SetMovePolicy(guildID string, p player.MovePolicy) error
}

type Deps struct {
	Players Runner
	Search  Resolver
	Store   Store
	Out     player.Notifier
	// DefaultMovePolicy applies to guilds that never chose one.
	DefaultMovePolicy player.MovePolicy
	// Shuffle permutes playshuffle results. Nil means math/rand/v2.
	Shuffle queue.ShuffleFunc
}

// Register adds every music command to r, each wrapped in mws.
func Register(r *cmd.Registry, deps Deps, mws ...cmd.Middleware) error {
	all := []cmd.Command{
		newPlay(deps, "play", []string{"p"}, "Queues one or multiple tracks.", player.Back, false, false),
		newPlay(deps, "playnext", []string{"pn"}, "Queues tracks at the front of the queue.", player.Front, false, false),
		newPlay(deps, "playskip", []string{"ps"}, "Queues tracks at the front of the queue and skips the current one.", player.Front, true, false),
		newPlay(deps, "playshuffle", []string{"psh"}, "Shuffles the tracks found and queues them.", player.Back, false, true),
		&PauseCommand{base{deps: deps}},
		&ResumeCommand{base{deps: deps}},
		&DisconnectCommand{base{deps: deps}},
		&SkipCommand{base{deps: deps}},
		&QueueCommand{base{deps: deps}},
		&NowPlayingCommand{base{deps: deps}},
		&ClearCommand{base{deps: deps}},
		&RemoveCommand{base{deps: deps}},
		&MoveCommand{base{deps: deps}},
		&ShuffleCommand{base{deps: deps}},
		&SeekCommand{base{deps: deps}},
		&HistoryCommand{base{deps: deps}},
		&MovePolicyCommand{base{deps: deps}},
	}
	for _, c := range all {
		if err := r.Register(cmd.Apply(c, mws...)); err != nil {
			return err
		}
	}
	return nil
}

// base carries what every music command shares.
type base struct {
	deps Deps
}

func (base) Category() string { return config.CategoryMusic }

// inPlayer runs fn under the guild lock with voice checks.
func (b base) inPlayer(ctx context.Context, m *commands.Message, connect bool, fn func(ctx context.Context, p *player.Player) error) error {
	return b.deps.Players.Run(ctx, m.Request(connect), fn)
}

func (b base) reply(ctx context.Context, m *commands.Message, title, description string) error {
	return b.deps.Out.Notify(ctx, m.ChannelID, player.Embed(title, description))
}

// playerError maps player sentinels to what users are told.
func playerError(err error) error {
	switch {
	case errors.Is(err, player.ErrNothingPlaying):
		return errs.User("Nothing is playing!")
	case errors.Is(err, player.ErrAlreadyPaused):
		return errs.User("The player is already paused!")
	case errors.Is(err, player.ErrNotPaused):
		return errs.User("The player is not paused!")
	case errors.Is(err, player.ErrStreamNotSeekable):
		return errs.User("You can't seek in a live stream!")
	case errors.Is(err, player.ErrDisconnected):
		return errs.User("I'm not connected to a voice channel!")
	}
	return err
}

// trackNumber parses a 1-based queue position and returns the 0-based index.
func trackNumber(m *commands.Message, invoked, arg string, queueLen int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err == nil && n >= 1 && n <= queueLen {
		return n - 1, nil
	}
	if queueLen == 1 {
		return 0, errs.WithDetail("Invalid track number!", fmt.Sprintf("Did you mean `%s%s 1`?", m.Prefix, invoked))
	}
	return 0, errs.WithDetail("Invalid track number!", fmt.Sprintf("Valid track numbers are `1-%d`.", queueLen))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
