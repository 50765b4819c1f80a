package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/goscope/internal/variant"
)

// marshalPayload converts a frame payload to canonical JSON TEXT.
func marshalPayload(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "null", nil
	}
	v, err := variant.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	data, err := variant.Canonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// marshalScopes stores the scope id list as a JSON array.
func marshalScopes(scopes []string) (string, error) {
	if scopes == nil {
		scopes = []string{}
	}
	data, err := json.Marshal(scopes)
	if err != nil {
		return "", fmt.Errorf("marshal scopes: %w", err)
	}
	return string(data), nil
}

func unmarshalScopes(data string) ([]string, error) {
	scopes := []string{}
	if data == "" {
		return scopes, nil
	}
	if err := json.Unmarshal([]byte(data), &scopes); err != nil {
		return nil, fmt.Errorf("unmarshal scopes: %w", err)
	}
	return scopes, nil
}
