package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// Log output formats accepted by New.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatZerolog = "zerolog"
)

// New builds the root logger for a process.
//
// Input: level name (debug, info, warn, error), format (text, json, zerolog), destination
// Output: *slog.Logger or an error for an unknown level/format
// Behavior: the zerolog format routes slog records through a zerolog.Logger so
// deployments that already ship zerolog output keep a single log shape.
//
// Example:
//
//	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case FormatZerolog:
		zl := zerolog.New(w).With().Timestamp().Logger().Level(zerologLevel(lvl))
		return slog.New(NewZerologHandler(zl)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ZerologHandler is a slog.Handler that writes records with a zerolog.Logger.
type ZerologHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

// NewZerologHandler creates a slog.Handler backed by logger.
func NewZerologHandler(logger zerolog.Logger) *ZerologHandler {
	return &ZerologHandler{logger: logger}
}

// Enabled reports whether zerolog would emit the level.
func (h *ZerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.GetLevel() <= zerologLevel(level)
}

// Handle writes one record.
func (h *ZerologHandler) Handle(_ context.Context, r slog.Record) error {
	evt := h.logger.WithLevel(zerologLevel(r.Level))
	if evt == nil {
		return nil
	}
	for _, a := range h.attrs {
		evt = addAttr(evt, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		evt = addAttr(evt, h.prefix, a)
		return true
	})
	evt.Msg(r.Message)
	return nil
}

// WithAttrs returns a handler that always writes attrs.
func (h *ZerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &next
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *ZerologHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func addAttr(evt *zerolog.Event, prefix string, a slog.Attr) *zerolog.Event {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return evt
	}
	key := prefix + a.Key

	switch v.Kind() {
	case slog.KindString:
		return evt.Str(key, v.String())
	case slog.KindInt64:
		return evt.Int64(key, v.Int64())
	case slog.KindUint64:
		return evt.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return evt.Float64(key, v.Float64())
	case slog.KindBool:
		return evt.Bool(key, v.Bool())
	case slog.KindDuration:
		return evt.Dur(key, v.Duration())
	case slog.KindTime:
		return evt.Time(key, v.Time())
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range v.Group() {
			evt = addAttr(evt, groupPrefix, ga)
		}
		return evt
	default:
		if err, ok := v.Any().(error); ok {
			return evt.AnErr(key, err)
		}
		return evt.Interface(key, v.Any())
	}
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
