package commands

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/keshon/nyaplay/internal/storage"
	"github.com/keshon/nyaplay/pkg/cmd"
	"github.com/rs/zerolog/log"
)

// WithGuildOnly drops invocations that did not come from a guild channel.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			m, ok := MessageFrom(inv)
			if !ok || m.GuildID == "" {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}

// PanicError is a recovered command panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// WithRecovery turns a panic inside the command into a *PanicError.
func WithRecovery() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return c.Run(ctx, inv)
		})
	}
}

// CommandLog stores executed commands.
type CommandLog interface {
	AppendCommandToHistory(guildID string, rec storage.CommandHistoryRecord) error
}

// Directory resolves display names for the history record. Either may return
// "" when unknown.
type Directory interface {
	ChannelName(channelID string) string
	GuildName(guildID string) string
}

// WithCommandLogger records every invocation after it ran.
func WithCommandLogger(history CommandLog, dir Directory) cmd.Middleware {
	logger := log.With().Str("component", "commands").Logger()
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			started := time.Now()
			err := c.Run(ctx, inv)

			m, ok := MessageFrom(inv)
			if !ok {
				return err
			}
			logger.Debug().
				Str("guild", m.GuildID).
				Str("user", m.Username).
				Str("command", c.Name()).
				Dur("took", time.Since(started)).
				Err(err).
				Msg("command executed")

			rec := storage.CommandHistoryRecord{
				ChannelID: m.ChannelID,
				UserID:    m.UserID,
				Username:  m.Username,
				Command:   c.Name(),
				Param:     strings.Join(inv.Args, " "),
				Datetime:  started,
			}
			if dir != nil {
				rec.ChannelName = dir.ChannelName(m.ChannelID)
				rec.GuildName = dir.GuildName(m.GuildID)
			}
			if e := history.AppendCommandToHistory(m.GuildID, rec); e != nil {
				logger.Warn().Err(e).Str("command", c.Name()).Msg("failed to log command")
			}
			return err
		})
	}
}
