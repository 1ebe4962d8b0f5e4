package cache

import (
	"errors"
	"fmt"

	"github.com/leonardcser/objcache-mcp/internal/compress"
)

var (
	ErrNotFound      = errors.New("cache: not found")
	ErrDuplicateID   = errors.New("cache: duplicate id")
	ErrQuotaExceeded = errors.New("cache: quota exceeded")
	ErrConnection    = errors.New("cache: connection failed")

	// ErrCompression matches payloads that were over quota and could not be
	// compressed.
	ErrCompression = compress.ErrCompression
)

// ConnectionError is returned when the backing store cannot be opened or is
// no longer usable. It is never retried by the store.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cache: %s: connection failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// QuotaExceededError is returned when a payload is still larger than the
// quota after compression.
type QuotaExceededError struct {
	Size  int64
	Quota int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("cache: quota exceeded: payload is %d bytes, limit %d", e.Size, e.Quota)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }
