package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/keshon/nyaplay/internal/config"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/pkg/cmd"
)

// Categorized commands are grouped in help.
type Categorized interface {
	Category() string
}

// Usage is implemented by commands taking arguments.
type Usage interface {
	Usage() string
}

type HelpCommand struct {
	registry *cmd.Registry
	out      Sender
}

func NewHelpCommand(registry *cmd.Registry, out Sender) *HelpCommand {
	return &HelpCommand{registry: registry, out: out}
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Show a list of available commands." }
func (c *HelpCommand) Aliases() []string   { return []string{"h"} }
func (c *HelpCommand) Category() string    { return config.CategoryInfo }

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, ok := MessageFrom(inv)
	if !ok {
		return nil
	}
	embed := player.Embed("📖 Available Commands", BuildHelp(c.registry, m.Prefix))
	return c.out.Notify(ctx, m.ChannelID, embed)
}

// BuildHelp lists the registry's commands grouped by category.
func BuildHelp(registry *cmd.Registry, prefix string) string {
	byCategory := make(map[string][]cmd.Command)
	for _, c := range registry.GetAll() {
		cat := ""
		if cc, ok := cmd.Root(c).(Categorized); ok {
			cat = cc.Category()
		}
		byCategory[cat] = append(byCategory[cat], c)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, oki := config.CategoryWeights[cats[i]]
		wj, okj := config.CategoryWeights[cats[j]]
		if oki != okj {
			return oki
		}
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	var sb strings.Builder
	for _, cat := range cats {
		label := cat
		if label == "" {
			label = "Other"
		}
		fmt.Fprintf(&sb, "**%s**\n", label)
		for _, c := range byCategory[cat] {
			fmt.Fprintf(&sb, "`%s%s", prefix, c.Name())
			if u, ok := cmd.Root(c).(Usage); ok && u.Usage() != "" {
				fmt.Fprintf(&sb, " %s", u.Usage())
			}
			fmt.Fprintf(&sb, "` - %s", c.Description())
			if a, ok := cmd.Root(c).(cmd.Aliased); ok && len(a.Aliases()) > 0 {
				fmt.Fprintf(&sb, " (%s)", strings.Join(a.Aliases(), ", "))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
