package obp

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// UnwrapList normalizes the three list payload shapes the upstream is known
// to produce into a bare JSON array:
//
//  1. a bare list: [...]
//  2. a property named after the resource: {"banks": [...]}
//  3. a generic success/data envelope wrapping either of the above:
//     {"success": true, "data": [...]} or {"success": true, "data": {"banks": [...]}}
//
// An unrecognized shape degrades to an empty list with a logged warning so
// one malformed response cannot abort a sync.
func UnwrapList(payload []byte, key string, logger *slog.Logger) []byte {
	if logger == nil {
		logger = slog.Default()
	}

	if arr, ok := asArray(payload); ok {
		return arr
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		logger.Warn("unrecognized list payload shape, treating as empty",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)

		return []byte("[]")
	}

	if arr, ok := asArray(obj[key]); ok {
		return arr
	}

	// Generic envelope: unwrap "data" one level and try both shapes again.
	if data, ok := obj["data"]; ok {
		if arr, arrOK := asArray(data); arrOK {
			return arr
		}

		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err == nil {
			if arr, arrOK := asArray(inner[key]); arrOK {
				return arr
			}
		}
	}

	logger.Warn("unrecognized list payload shape, treating as empty",
		slog.String("key", key),
	)

	return []byte("[]")
}

// DecodeList unwraps a list payload and decodes its elements. A malformed
// element is kept as the zero value of T (the transformation layer downgrades
// it to a safe default) rather than aborting the batch.
func DecodeList[T any](payload []byte, key string, logger *slog.Logger) []T {
	if logger == nil {
		logger = slog.Default()
	}

	arr := UnwrapList(payload, key, logger)

	var elems []json.RawMessage
	if err := json.Unmarshal(arr, &elems); err != nil {
		logger.Warn("list payload is not a valid JSON array, treating as empty",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)

		return nil
	}

	out := make([]T, 0, len(elems))

	for i, raw := range elems {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warn("malformed list element, keeping zero value",
				slog.String("key", key),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
		}

		out = append(out, v)
	}

	return out
}

// asArray reports whether raw is a JSON array, returning it unchanged if so.
func asArray(raw json.RawMessage) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	if !json.Valid(trimmed) {
		return nil, false
	}

	return trimmed, true
}
