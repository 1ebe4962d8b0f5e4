package cache

import (
	"context"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

// Cache is the record store contract shared by the embedded Store and the
// socket Client. Implementations must be safe for concurrent use by multiple
// goroutines.
type Cache interface {
	// Add inserts a new record. It never overwrites a live record.
	Add(ctx context.Context, id Key, data value.Value, opts PutOptions) (Record, error)
	// Get returns the record and true, or false when it is absent or expired.
	// An expired record found by Get is deleted before Get returns.
	Get(ctx context.Context, id Key) (Record, bool, error)
	// GetAll returns every live record and deletes the expired ones it meets.
	GetAll(ctx context.Context) ([]Record, error)
	// Update shallow-merges data into a live record.
	Update(ctx context.Context, id Key, data value.Value, opts PutOptions) (Record, error)
	Delete(ctx context.Context, id Key) error
	Clear(ctx context.Context) error
	// CleanupExpired deletes all expired records and returns how many.
	CleanupExpired(ctx context.Context) (int, error)
	// Stats never deletes anything.
	Stats(ctx context.Context) (Stats, error)
}
