package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PhilHem/timeremaining/backend/models"

	"gorm.io/gorm"
)

// Attribute keys promoted to LogEntry columns.
const (
	KeySource    = "source"
	KeyEmail     = "email"
	KeyRequestID = "request_id"
)

// DBHandler writes every record as JSON to out and, when db is set, persists it as a LogEntry.
type DBHandler struct {
	db          *gorm.DB
	level       slog.Leveler
	jsonHandler slog.Handler
	attrs       []slog.Attr
}

func NewDBHandler(out io.Writer, db *gorm.DB, level slog.Leveler) *DBHandler {
	return &DBHandler{
		db:          db,
		level:       level,
		jsonHandler: slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}),
		attrs:       []slog.Attr{},
	}
}

// New returns a JSON logger on stdout at level that also persists records to db when
// persist is set.
func New(level string, db *gorm.DB, persist bool) *slog.Logger {
	if !persist {
		db = nil
	}
	return slog.New(NewDBHandler(os.Stdout, db, ParseLevel(level)))
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (h *DBHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *DBHandler) Handle(ctx context.Context, r slog.Record) error {
	// Write to stdout
	_ = h.jsonHandler.Handle(ctx, r)

	if h.db == nil {
		return nil
	}

	entry := models.LogEntry{
		CreatedAt: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	attrs := make(map[string]any)
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case KeySource:
			entry.Source = a.Value.String()
		case KeyEmail:
			entry.Email = a.Value.String()
		case KeyRequestID:
			entry.RequestID = a.Value.String()
		default:
			attrs[a.Key] = a.Value.Any()
		}
		return true
	}

	// Handler-level attrs first so record attrs win.
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if len(attrs) > 0 {
		b, _ := json.Marshal(attrs)
		entry.Data = string(b)
	}

	return h.db.WithContext(context.WithoutCancel(ctx)).Create(&entry).Error
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &DBHandler{
		db:          h.db,
		level:       h.level,
		jsonHandler: h.jsonHandler.WithAttrs(attrs),
		attrs:       newAttrs,
	}
}

func (h *DBHandler) WithGroup(name string) slog.Handler {
	return h
}

// CleanupOldLogs removes persisted logs older than maxAge every interval until ctx is done.
func CleanupOldLogs(ctx context.Context, db *gorm.DB, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := PurgeBefore(ctx, db, time.Now().Add(-maxAge)); err != nil {
				slog.Warn("log cleanup failed", KeySource, "logger", "error", err.Error())
			}
		}
	}
}

// PurgeBefore deletes persisted logs created before cutoff.
func PurgeBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.LogEntry{})
	return res.RowsAffected, res.Error
}
