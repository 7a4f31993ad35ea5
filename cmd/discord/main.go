package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/keshon/modtune/internal/command/core"

	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/discord"
	"github.com/keshon/modtune/internal/logging"
	"github.com/keshon/modtune/internal/music/sources"
	"github.com/keshon/modtune/internal/music/stream"
	"github.com/keshon/modtune/internal/storage"
	v "github.com/keshon/modtune/internal/version"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bot exited with error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	logger.Info("starting", "app", v.AppName)

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer store.Close()

	resolver, err := sources.NewResolver(cfg.YoutubeProxy)
	if err != nil {
		return err
	}

	bot, err := discord.NewBot(cfg, store, discord.Options{
		Resolver: resolver,
		Streamer: stream.New(resolver),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("received signal, shutting down", "signal", s.String())
		cancel()
		if err := <-errCh; err != nil {
			logger.Warn("close session", "err", err)
		}
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("bot exited cleanly")
	return nil
}
