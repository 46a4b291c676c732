package commands

import (
	"context"
	"io"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/music/coordinator"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/keshon/nyaplay/pkg/cmd"
)

// Message is the Invocation payload for a prefix command.
type Message struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Username  string
	// Prefix is what the command was typed after, e.g. "a!".
	Prefix string
}

// MessageFrom extracts the Message carried by inv.
func MessageFrom(inv *cmd.Invocation) (*Message, bool) {
	if inv == nil {
		return nil, false
	}
	m, ok := inv.Data.(*Message)
	return m, ok && m != nil
}

// Request describes the message author for voice checks.
func (m *Message) Request(connect bool) coordinator.Request {
	return coordinator.Request{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.UserID,
		Connect:   connect,
	}
}

// Requester tags queued entries with the message author.
func (m *Message) Requester() track.Requester {
	return track.Requester{
		UserID:    m.UserID,
		Username:  m.Username,
		ChannelID: m.ChannelID,
	}
}

// Sender posts replies. NotifyWithFile attaches a text file for content too
// long for an embed.
type Sender interface {
	player.Notifier
	NotifyWithFile(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, name string, r io.Reader) error
}
