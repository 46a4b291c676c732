package music

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/keshon/nyaplay/internal/commands"
	"github.com/keshon/nyaplay/internal/config"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/pkg/cmd"
	"github.com/keshon/nyaplay/pkg/util"
)

type HistoryCommand struct{ base }

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Description() string { return "Lists the tracks played here recently." }
func (c *HistoryCommand) Aliases() []string   { return []string{"hist"} }

func (c *HistoryCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	records, err := c.deps.Store.FetchTrackHistory(m.GuildID)
	if err != nil {
		return fmt.Errorf("fetch track history: %w", err)
	}
	if len(records) == 0 {
		return errs.User("Nothing has been played here yet!")
	}

	lines := make([]string, 0, len(records))
	for _, r := range slices.Backward(records) {
		who := r.Username
		if r.UserID != "" {
			who = "<@" + r.UserID + ">"
		}
		lines = append(lines, fmt.Sprintf("`%s` [%s](%s) (%s)",
			util.FormatDate(r.PlayedAt, "DD.MM hh:mm"), r.Title, r.URI, who))
	}
	return c.reply(ctx, m, "Recently played", truncate(strings.Join(lines, "\n"), maxDescription))
}

type MovePolicyCommand struct{ base }

func (c *MovePolicyCommand) Name() string { return "movepolicy" }
func (c *MovePolicyCommand) Description() string {
	return "Shows or sets what happens to playback when I'm moved to another voice channel."
}
func (c *MovePolicyCommand) Usage() string    { return "[pause|ignore]" }
func (c *MovePolicyCommand) Category() string { return config.CategorySettings }

func (c *MovePolicyCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := commands.MessageFrom(inv)
	if !ok {
		return nil
	}
	if len(inv.Args) == 0 {
		current := c.deps.Store.MovePolicy(m.GuildID, c.deps.DefaultMovePolicy)
		return c.reply(ctx, m, fmt.Sprintf("Voice move policy: %s", current), policyHelp(current))
	}

	policy, err := player.ParseMovePolicy(strings.ToLower(inv.Args[0]))
	if err != nil {
		return errs.WithDetail("Unknown move policy!", "Use `pause` or `ignore`.")
	}
	if err := c.deps.Store.SetMovePolicy(m.GuildID, policy); err != nil {
		return fmt.Errorf("set move policy: %w", err)
	}
	return c.reply(ctx, m, fmt.Sprintf("Voice move policy set to %s!", policy), policyHelp(policy))
}

func policyHelp(p player.MovePolicy) string {
	if p == player.MoveIgnore {
		return "Playback continues untouched when I'm moved."
	}
	return "Playback pauses for a moment when I'm moved, then resumes."
}
