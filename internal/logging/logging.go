// Package logging wires up zerolog the way the engine's embedder needs
// it: the core protocol engine never reaches for a global logger, it
// accepts one via functional option, logs at debug/trace for packet
// drops and state transitions, and never above warn (spec.md §5 — this
// engine has no business causing log noise on a shared link).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type config struct {
	output    io.Writer
	level     zerolog.Level
	component string
}

// Option configures a Logger built by New.
type Option func(*config)

// WithLevel sets the minimum level that reaches the writer.
func WithLevel(level zerolog.Level) Option {
	return func(c *config) { c.level = level }
}

// WithOutput redirects output away from the default console writer, for
// embedders that want JSON in production.
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.output = w }
}

// WithComponent tags every event from this logger with a "component"
// field, so a daemon running several Responders can tell them apart in
// aggregated logs.
func WithComponent(name string) Option {
	return func(c *config) { c.component = name }
}

// New builds a zerolog.Logger with a human-readable console writer by
// default (suitable for a foreground daemon run) and a timestamp on
// every event. Pass WithOutput(os.Stdout or a file) to switch to plain
// JSON for production.
func New(opts ...Option) zerolog.Logger {
	cfg := config{
		output: zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
		level:  zerolog.InfoLevel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := zerolog.New(cfg.output).Level(cfg.level).With().Timestamp()
	if cfg.component != "" {
		ctx = ctx.Str("component", cfg.component)
	}
	return ctx.Logger()
}
