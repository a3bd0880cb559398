// Package models defines the domain types for envtest.
package models

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the local-time ISO-8601 layout used in records and results.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Sentinel strings written into results in place of missing data.
const (
	NotFound   = "Not found"
	NoGameInfo = "No game info provided"
)

// Timestamp formats t with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// DebugRecord is one entry appended to a daily log file.
type DebugRecord struct {
	Timestamp string          `json:"timestamp"`
	AppID     int64           `json:"appid"`
	GameInfo  json.RawMessage `json:"game_info"`
}

// HeroicQueryResult is the outcome of resolving Heroic data for one game.
// HeroicConfig and HeroicLibrary stay empty (and are omitted) when an error
// aborted processing before they were populated.
type HeroicQueryResult struct {
	Timestamp     string          `json:"timestamp"`
	AppName       string          `json:"appname"`
	HeroicConfig  json.RawMessage `json:"heroic_config,omitempty"`
	HeroicLibrary json.RawMessage `json:"heroic_library,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// LogFileMeta describes one daily log file on disk.
type LogFileMeta struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotFoundJSON returns the NotFound sentinel encoded as a JSON string.
func NotFoundJSON() json.RawMessage {
	return json.RawMessage(`"` + NotFound + `"`)
}
