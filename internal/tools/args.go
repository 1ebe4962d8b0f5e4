package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/objcache-mcp/internal/cache"
	"github.com/leonardcser/objcache-mcp/internal/value"
)

// WithKey declares a required record id parameter that accepts both strings
// and integers, matching what keyArg reads.
func WithKey(name, description string) mcp.ToolOption {
	return func(t *mcp.Tool) {
		if t.InputSchema.Properties == nil {
			t.InputSchema.Properties = map[string]any{}
		}
		t.InputSchema.Properties[name] = map[string]any{
			"type":        []string{"string", "integer"},
			"description": description,
		}
		t.InputSchema.Required = append(t.InputSchema.Required, name)
	}
}

// keyArg reads "id" as an integer key when the caller sent a number and as a
// string key otherwise.
func keyArg(req mcp.CallToolRequest) (cache.Key, error) {
	switch id := req.GetArguments()["id"].(type) {
	case string:
		return cache.StringKey(id), nil
	case float64:
		if id != math.Trunc(id) {
			return cache.Key{}, fmt.Errorf("id must be an integer or a string, got %v", id)
		}
		return cache.IntKey(int64(id)), nil
	case nil:
		return cache.Key{}, errors.New(`required argument "id" not found`)
	default:
		return cache.Key{}, fmt.Errorf("id must be an integer or a string, got %T", id)
	}
}

// dataArg decodes the JSON document in "data". Binary leaves are written as
// {"$binary": "<base64>"}; a map whose only key is "$binary" or "$map" is
// wrapped as {"$map": {...}}.
func dataArg(req mcp.CallToolRequest) (value.Value, error) {
	raw, err := req.RequireString("data")
	if err != nil {
		return value.Value{}, err
	}
	var v value.Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return value.Value{}, fmt.Errorf("data is not valid JSON: %w", err)
	}
	return v, nil
}

func putOptionsArg(req mcp.CallToolRequest, defaultTTL time.Duration) (cache.PutOptions, error) {
	opts := cache.PutOptions{ExpiresIn: defaultTTL}
	if secs := req.GetFloat("ttl_seconds", 0); secs > 0 {
		opts.ExpiresIn = time.Duration(secs * float64(time.Second))
	}
	if raw := req.GetString("metadata", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Metadata); err != nil {
			return cache.PutOptions{}, fmt.Errorf("metadata must be a JSON object of strings: %w", err)
		}
	}
	return opts, nil
}
