package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/objcache-mcp/internal/cache"
)

// Handler is the signature mcp-go expects for tool handlers.
type Handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// errorResult turns a cache error into an actionable tool message.
func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, cache.ErrDuplicateID):
		return mcp.NewToolResultError(err.Error() + " (use cache-update to change it, or pick another id)")
	case errors.Is(err, cache.ErrNotFound):
		return mcp.NewToolResultError(err.Error() + " (it may have expired)")
	case errors.Is(err, cache.ErrQuotaExceeded):
		return mcp.NewToolResultError(err.Error() + " (shrink the payload)")
	case errors.Is(err, cache.ErrCompression):
		return mcp.NewToolResultError(err.Error() + " (only images can be compressed; shrink the binary first)")
	case errors.Is(err, cache.ErrConnection):
		return mcp.NewToolResultError("cache unavailable: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

// AddHandler returns the handler for "cache-add".
func AddHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := keyArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := dataArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts, err := putOptionsArg(req, 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec, err := c.Add(ctx, id, data, opts)
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(formatRecord(rec)), nil
	}
}

// GetHandler returns the handler for "cache-get".
func GetHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := keyArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec, ok, err := c.Get(ctx, id)
		if err != nil {
			return errorResult(err), nil
		}
		if !ok {
			return mcp.NewToolResultText(fmt.Sprintf("No record %s.", id)), nil
		}
		return mcp.NewToolResultText(formatRecord(rec)), nil
	}
}

// ListHandler returns the handler for "cache-list".
func ListHandler(c cache.Cache) Handler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		recs, err := c.GetAll(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(formatRecords(recs)), nil
	}
}

// UpdateHandler returns the handler for "cache-update".
func UpdateHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := keyArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := dataArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts, err := putOptionsArg(req, 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec, err := c.Update(ctx, id, data, opts)
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(formatRecord(rec)), nil
	}
}

// DeleteHandler returns the handler for "cache-delete".
func DeleteHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := keyArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := c.Delete(ctx, id); err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s.", id)), nil
	}
}

// ClearHandler returns the handler for "cache-clear".
func ClearHandler(c cache.Cache) Handler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := c.Clear(ctx); err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText("Cache cleared."), nil
	}
}

// CleanupHandler returns the handler for "cache-cleanup".
func CleanupHandler(c cache.Cache) Handler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := c.CleanupExpired(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Removed %d expired records.", n)), nil
	}
}

// StatsHandler returns the handler for "cache-stats".
func StatsHandler(c cache.Cache) Handler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := c.Stats(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(formatStats(st)), nil
	}
}
