package cache

import (
	"maps"
	"time"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

// Record is one persisted entry.
type Record struct {
	ID        Key               `json:"id"`
	Data      value.Value       `json:"data"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt,omitzero"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Expired reports whether r is logically gone at now. Records without an
// expiry never expire.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// PutOptions tunes Add and Update.
type PutOptions struct {
	// ExpiresIn sets the TTL relative to the write. Zero means not supplied:
	// Add stores a record that never expires, Update keeps the current expiry.
	// A negative value writes a record that is already expired.
	ExpiresIn time.Duration
	// Metadata is stored as-is by Add and shallow-merged by Update.
	Metadata map[string]string
}

// Stats is a read-only view of the store.
type Stats struct {
	TotalItems          int   `json:"totalItems"`
	TotalSizeBytes      int64 `json:"totalSizeBytes"`
	ExpiredItemsPending int   `json:"expiredItemsPending"`
}

func mergeMetadata(base, patch map[string]string) map[string]string {
	if patch == nil {
		return base
	}
	out := make(map[string]string, len(base)+len(patch))
	maps.Copy(out, base)
	maps.Copy(out, patch)
	return out
}
