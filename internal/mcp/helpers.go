package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Tool arguments arrive as loosely typed JSON. Structured arguments
// (filters, mappings, schemas) may come either as a raw object or as
// a JSON string, because some MCP clients serialize nested values.
// These helpers normalize both shapes.

// getMap reads an argument as a map, accepting a raw object or a
// JSON-encoded string.
func getMap(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("%s: malformed JSON object: %w", key, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected a JSON object, got %T", key, v)
	}
}

// getList reads an argument as a list, accepting a raw array or a
// JSON-encoded string.
func getList(args map[string]any, key string) ([]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out []any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("%s: malformed JSON array: %w", key, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected a JSON array, got %T", key, v)
	}
}

// getStringMap is getMap narrowed to string values.
func getStringMap(args map[string]any, key string) (map[string]string, error) {
	raw, err := getMap(args, key)
	if err != nil || raw == nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	if err := mapstructure.Decode(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: expected string values: %w", key, err)
	}
	return out, nil
}

// getStringSlice reads a list argument as strings.
func getStringSlice(args map[string]any, key string) ([]string, error) {
	raw, err := getList(args, key)
	if err != nil || raw == nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string items, got %T", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// getInt reads a numeric argument that JSON decoded as float64.
func getInt(args map[string]any, key string, fallback int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return fallback
}

// getBool reads a boolean argument.
func getBool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}
