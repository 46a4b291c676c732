package discord

import (
	"context"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
)

// NewSession creates a bot session with the intents the music commands need.
// It is not opened yet.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent
	return dg, nil
}

// Sender posts embeds through the session.
type Sender struct {
	s *discordgo.Session
}

func NewSender(s *discordgo.Session) *Sender {
	return &Sender{s: s}
}

// Notify sends embed to channelID.
func (o *Sender) Notify(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := o.s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}

// NotifyWithFile sends embed with r attached as a text file.
func (o *Sender) NotifyWithFile(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, name string, r io.Reader) error {
	_, err := o.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: "text/plain",
			Reader:      r,
		}},
	}, discordgo.WithContext(ctx))
	return err
}

// ChannelName looks the channel up in state, then over REST. It returns ""
// when both fail.
func (o *Sender) ChannelName(channelID string) string {
	channel, err := o.s.State.Channel(channelID)
	if err != nil {
		channel, err = o.s.Channel(channelID)
		if err != nil {
			return ""
		}
	}
	return channel.Name
}

// GuildName looks the guild up in state, then over REST.
func (o *Sender) GuildName(guildID string) string {
	guild, err := o.s.State.Guild(guildID)
	if err != nil {
		guild, err = o.s.Guild(guildID)
		if err != nil {
			return ""
		}
	}
	return guild.Name
}
