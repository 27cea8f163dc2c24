package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeList reconciles the response envelopes the API has shipped over time
// into one shape: a bare JSON array, a {"success": bool, "data": [...]}
// wrapper, or a paginated {"data": [...], "total": n} wrapper all decode to
// the same slice. The result is never nil.
func DecodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return []T{}, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	var envelope struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return []T{}, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Success != nil && !*envelope.Success {
		return []T{}, fmt.Errorf("server reported failure")
	}
	if envelope.Data == nil {
		return []T{}, fmt.Errorf("response has no data field")
	}

	var items []T
	if err := json.Unmarshal(envelope.Data, &items); err != nil {
		return []T{}, fmt.Errorf("decode data: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// fetchList GETs a path and normalizes the response. Failures other than 401
// are logged and swallowed: the caller always gets a usable slice so list
// rendering never branches on error state. 401 propagates as
// ErrNotAuthenticated.
func fetchList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			return []T{}, err
		}
		c.logger.Warn().Err(err).Str("path", path).Msg("list fetch failed, returning empty")
		return []T{}, nil
	}

	items, err := DecodeList[T](body)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("list decode failed, returning empty")
		return []T{}, nil
	}
	return items, nil
}

// decodeOne unmarshals a single-object response, unwrapping a {"data": {...}}
// envelope when present.
func decodeOne[T any](body []byte) (*T, error) {
	trimmed := bytes.TrimSpace(body)
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Data != nil &&
		bytes.TrimSpace(envelope.Data)[0] == '{' {
		trimmed = envelope.Data
	}
	var item T
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &item, nil
}
