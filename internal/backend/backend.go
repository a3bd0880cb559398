// Package backend is the invocation boundary shared by the HTTP API, the MCP
// server and the one-shot CLI. Every call returns a status envelope; faults
// inside the core operations never escape it.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/envtest/internal/apperr"
	"github.com/starford/envtest/internal/heroic"
	"github.com/starford/envtest/internal/models"
	"github.com/starford/envtest/internal/recorder"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation names as seen by callers.
const (
	OpDebugLog       = "debug_log"
	OpPullHeroicData = "pull_heroic_data"
)

// DebugLogResponse is the envelope returned by debug_log. On success Log holds
// the serialized record even if it could not be persisted; Persisted and
// Warning report the write outcome.
type DebugLogResponse struct {
	Status    string `json:"status"`
	Log       string `json:"log,omitempty"`
	LogFile   string `json:"log_file,omitempty"`
	Persisted *bool  `json:"persisted,omitempty"`
	Warning   string `json:"warning,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HeroicResponse is the envelope returned by pull_heroic_data. Problems met
// while resolving data live in Data.Error with Status still "success".
type HeroicResponse struct {
	Status  string                    `json:"status"`
	Data    *models.HeroicQueryResult `json:"data,omitempty"`
	Message string                    `json:"message,omitempty"`
}

// ErrorResponse is the envelope for calls that never reached an operation.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Envelope is implemented by every response type.
type Envelope interface {
	Failed() bool
	ErrorMessage() string
}

func (r DebugLogResponse) Failed() bool         { return r.Status != StatusSuccess }
func (r DebugLogResponse) ErrorMessage() string { return r.Message }
func (r HeroicResponse) Failed() bool           { return r.Status != StatusSuccess }
func (r HeroicResponse) ErrorMessage() string   { return r.Message }
func (r ErrorResponse) Failed() bool            { return true }
func (r ErrorResponse) ErrorMessage() string    { return r.Message }

// Backend dispatches the two operations.
type Backend struct {
	recorder *recorder.Recorder
	resolver *heroic.Resolver
	logger   *slog.Logger
}

// New creates a new Backend.
func New(rec *recorder.Recorder, res *heroic.Resolver, logger *slog.Logger) *Backend {
	return &Backend{recorder: rec, resolver: res, logger: logger}
}

// recovered converts a panic value into an error.
func recovered(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("internal error: %w", err)
	}
	return fmt.Errorf("internal error: %v", v)
}

// DebugLog records game info for an app.
func (b *Backend) DebugLog(ctx context.Context, req DebugLogRequest) (resp DebugLogResponse) {
	defer func() {
		if v := recover(); v != nil {
			err := recovered(v)
			b.logger.ErrorContext(ctx, "error in debug_log", slog.String("error", err.Error()))
			resp = DebugLogResponse{Status: StatusError, Message: err.Error()}
		}
	}()

	res, err := b.recorder.Record(ctx, req.AppID, req.Additional)
	if err != nil {
		b.logger.ErrorContext(ctx, "error in debug_log", slog.String("error", err.Error()))
		return DebugLogResponse{Status: StatusError, Message: err.Error()}
	}

	persisted := res.Persisted
	return DebugLogResponse{
		Status:    StatusSuccess,
		Log:       res.Log,
		LogFile:   res.File,
		Persisted: &persisted,
		Warning:   res.WriteError,
	}
}

// PullHeroicData resolves Heroic config and library data for a game.
func (b *Backend) PullHeroicData(ctx context.Context, req HeroicRequest) (resp HeroicResponse) {
	defer func() {
		if v := recover(); v != nil {
			err := recovered(v)
			b.logger.ErrorContext(ctx, "error in pull_heroic_data", slog.String("error", err.Error()))
			resp = HeroicResponse{Status: StatusError, Message: err.Error()}
		}
	}()

	return HeroicResponse{Status: StatusSuccess, Data: b.resolver.Resolve(ctx, req.AppName)}
}

// Call decodes raw as the request for op and runs it. Decoding failures are
// returned as error envelopes together with an error wrapping
// apperr.ErrInvalidInput so transports can pick a status code.
func (b *Backend) Call(ctx context.Context, op string, raw []byte) (Envelope, error) {
	switch op {
	case OpDebugLog:
		req, err := DecodeDebugLogRequest(raw)
		if err != nil {
			return DebugLogResponse{Status: StatusError, Message: err.Error()}, err
		}
		return b.DebugLog(ctx, req), nil
	case OpPullHeroicData:
		req, err := DecodeHeroicRequest(raw)
		if err != nil {
			return HeroicResponse{Status: StatusError, Message: err.Error()}, err
		}
		return b.PullHeroicData(ctx, req), nil
	default:
		err := fmt.Errorf("%w: unknown operation %q", apperr.ErrInvalidInput, op)
		return ErrorResponse{Status: StatusError, Message: err.Error()}, err
	}
}

// IsInvalidInput reports whether err came from request decoding.
func IsInvalidInput(err error) bool {
	return errors.Is(err, apperr.ErrInvalidInput)
}

// Marshal renders an envelope as indented JSON.
func Marshal(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}
