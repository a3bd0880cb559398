// Package recorder appends timestamped game metadata records to daily log files.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/envtest/internal/clock"
	"github.com/starford/envtest/internal/models"
	"github.com/starford/envtest/internal/storage"
)

// LogFileName returns the daily log file name for t in local time.
func LogFileName(t time.Time) string {
	return "log-" + t.Format("20060102") + ".log"
}

// Result is the outcome of one Record call. Log is always populated, even when
// the append failed; Persisted tells the two cases apart.
type Result struct {
	Log        string
	File       string
	Persisted  bool
	WriteError string
}

// Recorder builds debug records and appends them to the log directory.
type Recorder struct {
	store  storage.Provider
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new Recorder.
func New(store storage.Provider, clk clock.Clock, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, clock: clk, logger: logger}
}

// Build wraps payload in a DebugRecord stamped with now. An empty or null
// payload becomes the NoGameInfo sentinel.
func Build(now time.Time, appid int64, payload json.RawMessage) models.DebugRecord {
	info := payload
	if len(bytes.TrimSpace(info)) == 0 || bytes.Equal(bytes.TrimSpace(info), []byte("null")) {
		info, _ = json.Marshal(models.NoGameInfo)
	}
	return models.DebugRecord{
		Timestamp: models.Timestamp(now),
		AppID:     appid,
		GameInfo:  info,
	}
}

// Encode serializes rec as two-space indented JSON without HTML escaping.
// The returned text has no trailing newline.
func Encode(rec models.DebugRecord) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("recorder: encode record: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Record builds, serializes and appends a record for appid. It only returns an
// error when the record cannot be serialized; append failures are logged and
// reported through Result.
func (r *Recorder) Record(ctx context.Context, appid int64, payload json.RawMessage) (*Result, error) {
	now := r.clock.Now()
	text, err := Encode(Build(now, appid, payload))
	if err != nil {
		return nil, err
	}

	name := LogFileName(now)
	res := &Result{Log: text, File: name}

	if err := r.store.Append(name, []byte(text+"\n")); err != nil {
		r.logger.ErrorContext(ctx, "error writing debug record",
			slog.String("file", name),
			slog.Int64("appid", appid),
			slog.String("error", err.Error()))
		res.WriteError = err.Error()
		return res, nil
	}

	r.logger.InfoContext(ctx, "logged game data",
		slog.String("file", name),
		slog.Int64("appid", appid))
	res.Persisted = true
	return res, nil
}
