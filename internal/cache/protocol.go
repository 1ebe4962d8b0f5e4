package cache

import (
	"errors"
	"time"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

// JSON line protocol between the cache daemon and its clients over a Unix
// domain socket. Each request gets exactly one response.

const (
	OpAdd            = "add"
	OpGet            = "get"
	OpGetAll         = "getAll"
	OpUpdate         = "update"
	OpDelete         = "delete"
	OpClear          = "clear"
	OpCleanupExpired = "cleanupExpired"
	OpStats          = "stats"
)

type Request struct {
	Op        string            `json:"op"`
	ID        Key               `json:"id"`
	Data      *value.Value      `json:"data,omitempty"`
	ExpiresIn time.Duration     `json:"expires_in_ns,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Response struct {
	OK      bool     `json:"ok"`
	Code    string   `json:"code,omitempty"`
	Error   string   `json:"error,omitempty"`
	Found   bool     `json:"found,omitempty"`
	Record  *Record  `json:"record,omitempty"`
	Records []Record `json:"records,omitempty"`
	Count   int      `json:"count,omitempty"`
	Stats   *Stats   `json:"stats,omitempty"`
}

// Error codes carried in Response.Code.
const (
	codeNotFound    = "not_found"
	codeDuplicateID = "duplicate_id"
	codeQuota       = "quota_exceeded"
	codeCompression = "compression"
	codeConnection  = "connection"
)

var codes = []struct {
	code string
	err  error
}{
	{codeNotFound, ErrNotFound},
	{codeDuplicateID, ErrDuplicateID},
	{codeQuota, ErrQuotaExceeded},
	{codeCompression, ErrCompression},
	{codeConnection, ErrConnection},
}

func errorResponse(err error) Response {
	resp := Response{OK: false, Error: err.Error()}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			resp.Code = c.code
			break
		}
	}
	return resp
}

// remoteError carries a daemon-side message while still matching the
// sentinel for its code.
type remoteError struct {
	msg  string
	kind error
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.kind }

func responseError(resp Response) error {
	for _, c := range codes {
		if c.code == resp.Code {
			return &remoteError{msg: resp.Error, kind: c.err}
		}
	}
	return &remoteError{msg: resp.Error}
}
