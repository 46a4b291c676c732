// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keshon/nyaplay/internal/commands"
	"github.com/keshon/nyaplay/internal/commands/music"
	"github.com/keshon/nyaplay/internal/config"
	"github.com/keshon/nyaplay/internal/discord"
	"github.com/keshon/nyaplay/internal/lavalink"
	"github.com/keshon/nyaplay/internal/logging"
	"github.com/keshon/nyaplay/internal/music/coordinator"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/internal/music/search"
	"github.com/keshon/nyaplay/internal/music/sources"
	"github.com/keshon/nyaplay/internal/music/sources/spotify"
	"github.com/keshon/nyaplay/internal/storage"
	"github.com/keshon/nyaplay/pkg/cmd"
	"github.com/keshon/nyaplay/pkg/guildlock"
	"github.com/rs/zerolog/log"
)

const appName = "nyaplay"

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("bot exited with error")
		os.Exit(1)
	}
	log.Info().Msg("discord bot exited cleanly")
}

func run() error {
	logging.Default()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logFile, err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}, os.Stderr)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log.Info().Str("app", appName).Msg("starting bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}
	out := discord.NewSender(session)
	voice := discord.NewVoice(session)

	client := lavalink.NewClient(lavalink.Config{
		Host:          cfg.LavalinkHost,
		Port:          cfg.LavalinkPort,
		Password:      cfg.LavalinkPassword,
		Secure:        cfg.LavalinkSecure,
		ClientName:    appName,
		ResumeTimeout: cfg.LavalinkResume,
	}, &http.Client{Timeout: 15 * time.Second})
	node := lavalink.NewNode(client, voice.Leave)

	var srcs []sources.Source
	if cfg.SpotifyEnabled() {
		srcs = append(srcs, spotify.New(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret))
	} else {
		log.Info().Msg("spotify credentials not set, spotify links are disabled")
	}
	resolver := search.New(node, srcs...)

	defaultPolicy, err := player.ParseMovePolicy(cfg.DefaultMovePolicy)
	if err != nil {
		return err
	}

	locks := guildlock.NewMap()
	players := player.NewManager(locks, player.Config{
		IdleTimeout: cfg.IdleTimeout,
		MoveSettle:  cfg.MoveSettle,
	}, player.Deps{
		Node:     node,
		Searcher: node,
		Notifier: out,
		Recorder: store,
	})
	coord := coordinator.New(locks, players, voice)

	registry := cmd.NewRegistry()
	mws := []cmd.Middleware{
		commands.WithRecovery(),
		commands.WithCommandLogger(store, out),
		commands.WithErrorReporter(out, cfg.LogChannelID),
		commands.WithGuildOnly(),
	}
	err = music.Register(registry, music.Deps{
		Players:           coord,
		Search:            resolver,
		Store:             store,
		Out:               out,
		DefaultMovePolicy: defaultPolicy,
	}, mws...)
	if err != nil {
		return fmt.Errorf("register music commands: %w", err)
	}
	if err := registry.Register(cmd.Apply(commands.NewHelpCommand(registry, out), mws...)); err != nil {
		return fmt.Errorf("register help: %w", err)
	}

	bot := discord.New(session, discord.Options{
		Prefix:            cfg.CommandPrefix,
		Presence:          fmt.Sprintf("nya | %shelp", cfg.CommandPrefix),
		DefaultMovePolicy: defaultPolicy,
	}, discord.Deps{
		Registry: registry,
		Players:  players,
		Locks:    locks,
		Node:     node,
		Lavalink: client,
		Policies: store,
	})
	return bot.Run(ctx)
}
