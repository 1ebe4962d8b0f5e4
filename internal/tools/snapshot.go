package tools

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/objcache-mcp/internal/cache"
	"github.com/leonardcser/objcache-mcp/internal/value"
)

// Snapshotter builds a record payload from a URL.
type Snapshotter interface {
	Snapshot(ctx context.Context, rawURL string) (value.Value, error)
}

// SnapshotHandler returns the handler for "cache-snapshot". The record id
// defaults to the URL; an existing live snapshot is refreshed in place.
func SnapshotHandler(c cache.Cache, snap Snapshotter, ttl time.Duration) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id := cache.StringKey(url)
		if _, ok := req.GetArguments()["id"]; ok {
			if id, err = keyArg(req); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		opts, err := putOptionsArg(req, ttl)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := snap.Snapshot(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec, err := c.Add(ctx, id, data, opts)
		if errors.Is(err, cache.ErrDuplicateID) {
			rec, err = c.Update(ctx, id, data, opts)
		}
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(formatRecord(rec)), nil
	}
}
