package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/envtest/internal/apperr"
)

const (
	// maxAppNameBytes bounds appname in bytes. Names too long for a config
	// file still match library titles.
	maxAppNameBytes = 4 << 10
	// maxPayloadBytes bounds the game info a single record may carry.
	maxPayloadBytes = 8 << 20

	// MaxRequestBytes bounds a whole encoded request.
	MaxRequestBytes = maxPayloadBytes + 64<<10
)

// DebugLogRequest is the input of the debug_log operation.
type DebugLogRequest struct {
	AppID      int64           `json:"appid"`
	Additional json.RawMessage `json:"additional,omitempty"`
}

// Validate validates the request.
func (r DebugLogRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Additional, validation.Length(0, maxPayloadBytes)),
	)
}

// HeroicRequest is the input of the pull_heroic_data operation.
type HeroicRequest struct {
	AppName string `json:"appname"`
}

// Validate validates the request.
func (r HeroicRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AppName, validation.By(maxBytes(maxAppNameBytes))),
	)
}

// maxBytes limits the encoded length of a string; validation.Length counts runes.
func maxBytes(n int) validation.RuleFunc {
	return func(value any) error {
		if s, _ := value.(string); len(s) > n {
			return fmt.Errorf("must be at most %d bytes", n)
		}
		return nil
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// decodeObject decodes raw into its top-level fields. Empty input is an empty object.
func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, invalid("request must be a JSON object: %v", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// DecodeDebugLogRequest parses {"appid": int, "additional"?: any}. A missing
// appid is 0; a missing or null additional means no game info.
func DecodeDebugLogRequest(raw []byte) (DebugLogRequest, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return DebugLogRequest{}, err
	}

	var req DebugLogRequest
	if v, ok := fields["appid"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &req.AppID); err != nil {
			return DebugLogRequest{}, invalid("appid must be an integer, got %s", v)
		}
	}
	if v, ok := fields["additional"]; ok && !isNull(v) {
		req.Additional = v
	}
	if err := req.Validate(); err != nil {
		return DebugLogRequest{}, invalid("%v", err)
	}
	return req, nil
}

// DecodeHeroicRequest parses {"appname": string}. A missing appname is "".
func DecodeHeroicRequest(raw []byte) (HeroicRequest, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return HeroicRequest{}, err
	}

	var req HeroicRequest
	if v, ok := fields["appname"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &req.AppName); err != nil {
			return HeroicRequest{}, invalid("appname must be a string, got %s", v)
		}
	}
	if err := req.Validate(); err != nil {
		return HeroicRequest{}, invalid("%v", err)
	}
	return req, nil
}
