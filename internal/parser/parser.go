// Package parser splits daily log files into the records they contain.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/starford/envtest/internal/models"
)

// ErrMalformedTail is returned alongside the records parsed before a
// document that could not be read. It usually means a write is in progress.
var ErrMalformedTail = errors.New("parser: malformed tail")

// Result holds the output of parsing one log file.
type Result struct {
	Records []models.DebugRecord
	// Skipped counts well-formed documents that are not records
	// (wrong field types, not an object).
	Skipped int
}

// Parse reads the concatenated, indented JSON documents of a log file.
// On a syntax error it stops and returns the records read so far together
// with an error wrapping ErrMalformedTail.
func Parse(data []byte) (*Result, error) {
	res := &Result{}
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("%w after %d records at offset %d: %v",
				ErrMalformedTail, len(res.Records), dec.InputOffset(), err)
		}

		rec, ok := decodeRecord(raw)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
}

func decodeRecord(raw json.RawMessage) (models.DebugRecord, bool) {
	var rec models.DebugRecord
	if bytes.TrimSpace(raw)[0] != '{' {
		return rec, false
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, false
	}
	if rec.Timestamp == "" {
		return rec, false
	}
	if len(rec.GameInfo) == 0 {
		rec.GameInfo = json.RawMessage("null")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, rec.GameInfo); err == nil {
		rec.GameInfo = buf.Bytes()
	}
	return rec, true
}
