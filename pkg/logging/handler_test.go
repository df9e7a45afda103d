package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.DebugLevel)
	logger := slog.New(NewZerologHandler(zl)).
		With("component", "mmr").
		WithGroup("pool")

	logger.Warn("selected",
		"size", 12,
		"lambda", 0.5,
		"short", false,
		"took", 3*time.Millisecond,
		"err", errors.New("none"),
		slog.Group("bounds", "gte", int64(1), "lte", int64(2)),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"level":           "warn",
		"message":         "selected",
		"component":       "mmr",
		"pool.size":       float64(12),
		"pool.lambda":     0.5,
		"pool.short":      false,
		"pool.err":        "none",
		"pool.bounds.gte": float64(1),
		"pool.bounds.lte": float64(2),
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("record[%q] = %v, want %v", k, rec[k], v)
		}
	}
	if _, ok := rec["pool.took"]; !ok {
		t.Error("duration attribute missing")
	}
}

func TestZerologHandlerEnabled(t *testing.T) {
	t.Parallel()

	h := NewZerologHandler(zerolog.New(nil).Level(zerolog.WarnLevel))
	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, tt := range tests {
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
