package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/pkg/cmd"
	"github.com/rs/zerolog/log"
)

// Longer reports go to the log channel as a file.
const maxReportLen = 4000

const (
	nodeTrouble     = "I couldn't reach the audio server, please try again in a moment."
	unexpectedError = "Something went wrong while running this command."
)

// WithErrorReporter delivers command errors. User errors are answered in the
// invoking channel. Everything else gets a generic reply, and unexpected
// errors are also reported with full detail to logChannel when it is set.
func WithErrorReporter(out Sender, logChannel string) cmd.Middleware {
	logger := log.With().Str("component", "commands").Logger()
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)
			if err == nil {
				return nil
			}
			m, ok := MessageFrom(inv)
			if !ok {
				return err
			}
			// replies must go out even when the command ran out of time
			rctx := context.WithoutCancel(ctx)

			kind := errs.Classify(err)
			var reply *discordgo.MessageEmbed
			switch kind {
			case errs.KindUser:
				var ue *errs.UserError
				errors.As(err, &ue)
				reply = player.ErrorEmbed(ue.Message, ue.Detail)
			case errs.KindResolution:
				reply = player.ErrorEmbed(err.Error(), "")
			case errs.KindNode:
				logger.Warn().Err(err).Str("guild", m.GuildID).Str("command", c.Name()).Msg("node error")
				reply = player.ErrorEmbed(nodeTrouble, "")
			default:
				logger.Error().Err(err).Str("guild", m.GuildID).Str("command", c.Name()).Msg("command failed")
				reply = player.ErrorEmbed(unexpectedError, "")
				if logChannel != "" {
					if e := reportUnexpected(rctx, out, logChannel, c.Name(), m, err); e != nil {
						logger.Warn().Err(e).Msg("failed to report error to log channel")
					}
				}
			}

			if e := out.Notify(rctx, m.ChannelID, reply); e != nil {
				logger.Warn().Err(e).Str("channel", m.ChannelID).Msg("failed to send error reply")
			}
			return nil
		})
	}
}

func reportUnexpected(ctx context.Context, out Sender, channelID, command string, m *Message, err error) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", err)
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&sb, "  caused by: %s\n", e)
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		sb.WriteString("\n")
		sb.Write(pe.Stack)
	}
	detail := sb.String()

	embed := player.ErrorEmbed("Command exception caught!", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Command", Value: fmt.Sprintf("`%s%s`", m.Prefix, command), Inline: true},
		{Name: "Guild", Value: m.GuildID, Inline: true},
		{Name: "User", Value: fmt.Sprintf("%s (%s)", m.Username, m.UserID), Inline: true},
	}

	if len(detail) > maxReportLen {
		return out.NotifyWithFile(ctx, channelID, embed, "traceback.txt", strings.NewReader(detail))
	}
	embed.Description = "```\n" + detail + "```"
	return out.Notify(ctx, channelID, embed)
}
