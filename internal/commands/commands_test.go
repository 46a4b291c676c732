package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/config"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/storage"
	"github.com/keshon/nyaplay/pkg/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	channel string
	embed   *discordgo.MessageEmbed
	file    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
}

func (s *fakeSender) Notify(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{channel: channelID, embed: embed})
	return nil
}

func (s *fakeSender) NotifyWithFile(_ context.Context, channelID string, embed *discordgo.MessageEmbed, _ string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{channel: channelID, embed: embed, file: string(data)})
	return nil
}

type fakeHistory struct {
	records []storage.CommandHistoryRecord
}

func (h *fakeHistory) AppendCommandToHistory(_ string, rec storage.CommandHistoryRecord) error {
	h.records = append(h.records, rec)
	return nil
}

type fn struct {
	name string
	cat  string
	run  func() error
}

func (f *fn) Name() string        { return f.name }
func (f *fn) Description() string { return "does " + f.name }
func (f *fn) Category() string    { return f.cat }

func (f *fn) Run(context.Context, *cmd.Invocation) error {
	return f.run()
}

func invocation(guild string) *cmd.Invocation {
	return &cmd.Invocation{
		Invoked: "x",
		Args:    []string{"some", "args"},
		Data: &Message{
			GuildID:   guild,
			ChannelID: "text",
			UserID:    "42",
			Username:  "alice",
			Prefix:    "a!",
		},
	}
}

func TestGuildOnlySkipsDirectMessages(t *testing.T) {
	ran := 0
	c := cmd.Apply(&fn{name: "x", run: func() error { ran++; return nil }}, WithGuildOnly())

	require.NoError(t, c.Run(context.Background(), invocation("")))
	require.NoError(t, c.Run(context.Background(), &cmd.Invocation{}))
	assert.Equal(t, 0, ran)

	require.NoError(t, c.Run(context.Background(), invocation("g1")))
	assert.Equal(t, 1, ran)
}

func TestRecoveryCapturesPanics(t *testing.T) {
	c := cmd.Apply(&fn{name: "x", run: func() error { panic("boom") }}, WithRecovery())

	err := c.Run(context.Background(), invocation("g1"))
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestCommandLoggerRecordsEveryRun(t *testing.T) {
	history := &fakeHistory{}
	failing := errors.New("nope")
	c := cmd.Apply(&fn{name: "x", run: func() error { return failing }}, WithCommandLogger(history, nil))

	assert.ErrorIs(t, c.Run(context.Background(), invocation("g1")), failing)
	require.Len(t, history.records, 1)
	rec := history.records[0]
	assert.Equal(t, "x", rec.Command)
	assert.Equal(t, "some args", rec.Param)
	assert.Equal(t, "alice", rec.Username)
	assert.False(t, rec.Datetime.IsZero())
}

func TestErrorReporter(t *testing.T) {
	long := strings.Repeat("x", maxReportLen+1)
	tests := []struct {
		name     string
		err      error
		reply    string
		logged   bool
		withFile bool
	}{
		{name: "user error", err: errs.WithDetail("Invalid track number!", "Valid track numbers are `1-3`."), reply: "Invalid track number!"},
		{name: "node error", err: errs.Node("pause", errors.New("dial tcp: refused")), reply: nodeTrouble},
		{name: "unexpected", err: fmt.Errorf("wrapped: %w", errors.New("root cause")), reply: unexpectedError, logged: true},
		{name: "long unexpected", err: errors.New(long), reply: unexpectedError, logged: true, withFile: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &fakeSender{}
			c := cmd.Apply(&fn{name: "x", run: func() error { return tt.err }}, WithErrorReporter(out, "ops"))

			require.NoError(t, c.Run(context.Background(), invocation("g1")))

			var reply *sent
			var report *sent
			for i := range out.sent {
				switch out.sent[i].channel {
				case "text":
					reply = &out.sent[i]
				case "ops":
					report = &out.sent[i]
				}
			}
			require.NotNil(t, reply)
			assert.Equal(t, tt.reply, reply.embed.Title)
			if !tt.logged {
				assert.Nil(t, report)
				return
			}
			require.NotNil(t, report)
			assert.Equal(t, "Command exception caught!", report.embed.Title)
			if tt.withFile {
				assert.Contains(t, report.file, long)
				assert.Empty(t, report.embed.Description)
			} else {
				assert.Contains(t, report.embed.Description, "caused by: root cause")
			}
		})
	}
}

func TestErrorReporterWithoutLogChannel(t *testing.T) {
	out := &fakeSender{}
	c := cmd.Apply(&fn{name: "x", run: func() error { return errors.New("bad") }}, WithErrorReporter(out, ""))

	require.NoError(t, c.Run(context.Background(), invocation("g1")))
	require.Len(t, out.sent, 1)
	assert.Equal(t, "text", out.sent[0].channel)
}

func TestBuildHelpGroupsByCategory(t *testing.T) {
	r := cmd.NewRegistry()
	require.NoError(t, r.Register(&fn{name: "play", cat: config.CategoryMusic}))
	require.NoError(t, r.Register(&fn{name: "movepolicy", cat: config.CategorySettings}))
	require.NoError(t, r.Register(NewHelpCommand(r, &fakeSender{})))

	help := BuildHelp(r, "a!")
	music := strings.Index(help, config.CategoryMusic)
	settings := strings.Index(help, config.CategorySettings)
	info := strings.Index(help, config.CategoryInfo)
	require.True(t, music >= 0 && settings >= 0 && info >= 0, help)
	assert.Less(t, music, settings)
	assert.Less(t, settings, info)
	assert.Contains(t, help, "`a!help` - Show a list of available commands. (h)")
	assert.Contains(t, help, "`a!play` - does play")
}
