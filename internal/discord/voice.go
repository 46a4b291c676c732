package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Voice answers voice-state questions from the session state and joins or
// leaves channels over the gateway. Audio itself is sent by the node.
type Voice struct {
	s *discordgo.Session
}

func NewVoice(s *discordgo.Session) *Voice {
	return &Voice{s: s}
}

// UserChannel returns the voice channel a member is in.
func (v *Voice) UserChannel(guildID, userID string) (string, bool) {
	vs, err := v.s.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// BotChannel returns the voice channel the bot is in.
func (v *Voice) BotChannel(guildID string) (string, bool) {
	if v.s.State.User == nil {
		return "", false
	}
	return v.UserChannel(guildID, v.s.State.User.ID)
}

// Permissions returns the bot's permissions in channelID.
func (v *Voice) Permissions(channelID string) (int64, error) {
	if v.s.State.User == nil {
		return 0, fmt.Errorf("session is not ready")
	}
	return v.s.State.UserChannelPermissions(v.s.State.User.ID, channelID)
}

// Join asks the gateway to move the bot into channelID. The voice state and
// server updates that follow are forwarded to the node.
func (v *Voice) Join(_ context.Context, guildID, channelID string) error {
	return v.s.ChannelVoiceJoinManual(guildID, channelID, false, true)
}

// Leave disconnects the bot from voice in guildID.
func (v *Voice) Leave(guildID string) error {
	return v.s.ChannelVoiceJoinManual(guildID, "", false, true)
}
