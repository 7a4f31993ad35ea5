// Package logging wires log/slog for the bot: a coloured console handler
// plus a JSON handler writing to a rotated log file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

var discordgoLevels = map[int]slog.Level{
	discordgo.LogDebug:         slog.LevelDebug,
	discordgo.LogInformational: slog.LevelInfo,
	discordgo.LogWarning:       slog.LevelWarn,
	discordgo.LogError:         slog.LevelError,
}

type Options struct {
	Level   string
	File    string
	Console io.Writer
}

// Setup builds the logger, installs it as the slog and log defaults and
// routes discordgo's package logger through it. The returned closer flushes
// the log file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		}),
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		closer = file
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	slog.SetDefault(logger)
	log.SetFlags(0)
	discordgo.Logger = discordgoLogger(context.Background(), logger.Handler())

	return logger, closer, nil
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func discordgoLogger(ctx context.Context, handler slog.Handler) func(msgL, caller int, format string, a ...any) {
	logger := slog.New(handler).With("component", "discordgo")
	return func(msgL, _ int, format string, a ...any) {
		level, ok := discordgoLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		logger.LogAttrs(ctx, level, strings.ReplaceAll(fmt.Sprintf(format, a...), "\n", ""))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
