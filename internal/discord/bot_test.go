package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args []string
		ok   bool
	}{
		{in: "a!play never gonna", name: "play", args: []string{"never", "gonna"}, ok: true},
		{in: "A!Q", name: "q", args: []string{}, ok: true},
		{in: "  a!skip  ", name: "skip", args: []string{}, ok: true},
		{in: "<@123> np", name: "np", args: []string{}, ok: true},
		{in: "<@!123>   seek +10s", name: "seek", args: []string{"+10s"}, ok: true},
		{in: "a!", ok: false},
		{in: "<@999> play x", ok: false},
		{in: "hello a!play", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, args, ok := parseCommand(tt.in, "a!", "123")
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

func newStateSession(t *testing.T) *discordgo.Session {
	t.Helper()
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: "bot"}
	require.NoError(t, s.State.GuildAdd(&discordgo.Guild{
		ID: "g1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g1", UserID: "u1", ChannelID: "vc1"},
			{GuildID: "g1", UserID: "bot", ChannelID: "vc2"},
		},
	}))
	return s
}

func TestVoiceChannelsFromState(t *testing.T) {
	v := NewVoice(newStateSession(t))

	ch, ok := v.UserChannel("g1", "u1")
	assert.True(t, ok)
	assert.Equal(t, "vc1", ch)

	ch, ok = v.BotChannel("g1")
	assert.True(t, ok)
	assert.Equal(t, "vc2", ch)

	_, ok = v.UserChannel("g1", "nobody")
	assert.False(t, ok)
	_, ok = v.UserChannel("other", "u1")
	assert.False(t, ok)
}

func TestSenderNamesFromState(t *testing.T) {
	s := newStateSession(t)
	require.NoError(t, s.State.ChannelAdd(&discordgo.Channel{ID: "c1", GuildID: "g1", Name: "music"}))
	g, err := s.State.Guild("g1")
	require.NoError(t, err)
	g.Name = "Nya"

	out := NewSender(s)
	assert.Equal(t, "music", out.ChannelName("c1"))
	assert.Equal(t, "Nya", out.GuildName("g1"))
}
