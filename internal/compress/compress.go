// Package compress shrinks oversized image payloads so they fit a size quota.
package compress

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxSizeBytes = 3 << 20
	DefaultMaxDimension = 1920
	DefaultQuality      = 0.8

	// retryFactor scales the quality of the second and last encode attempt.
	retryFactor = 0.7
)

// ErrCompression matches every *Error.
var ErrCompression = errors.New("compress: compression failed")

// Error reports why a payload could not be compressed.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compress: %s: %v", e.Reason, e.Err)
	}
	return "compress: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrCompression }

type Options struct {
	// MaxSizeBytes is the size a payload must fit. Defaults to DefaultMaxSizeBytes.
	MaxSizeBytes int64
	// MaxDimension bounds the longer image side. Defaults to DefaultMaxDimension.
	MaxDimension int
	// Quality is the first encode quality in (0, 1]. Defaults to DefaultQuality.
	Quality float64
}

func (o Options) withDefaults() Options {
	if o.MaxSizeBytes <= 0 {
		o.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = DefaultQuality
	}
	return o
}

// Compressor re-encodes image payloads that exceed a size limit.
// It is safe for concurrent use if its Codec is.
type Compressor struct {
	codec Codec
	opts  Options
}

// New returns a Compressor. A nil codec selects ImageCodec.
func New(codec Codec, opts Options) *Compressor {
	if codec == nil {
		codec = ImageCodec{}
	}
	return &Compressor{codec: codec, opts: opts.withDefaults()}
}

// Options returns the effective options.
func (c *Compressor) Options() Options { return c.opts }

// Compress returns p unchanged when it already fits MaxSizeBytes. Otherwise p
// must decode as an image: it is scaled down to MaxDimension, encoded at
// Quality and, if still too large, encoded once more at Quality*0.7. The
// second result is returned even when it still exceeds the limit.
func (c *Compressor) Compress(p []byte) ([]byte, error) {
	if int64(len(p)) <= c.opts.MaxSizeBytes {
		return p, nil
	}

	img, err := c.codec.Decode(p)
	if err != nil {
		return nil, &Error{Reason: "non-image payload exceeds quota and cannot be compressed", Err: err}
	}

	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), c.opts.MaxDimension)
	if w != b.Dx() || h != b.Dy() {
		img = c.codec.Resize(img, w, h)
	}

	out, err := c.codec.Encode(img, c.opts.Quality)
	if err != nil {
		return nil, &Error{Reason: "encode image", Err: err}
	}
	if int64(len(out)) <= c.opts.MaxSizeBytes {
		log.Debug().Int("from", len(p)).Int("to", len(out)).Int("width", w).Int("height", h).Msg("compressed image")
		return out, nil
	}

	retry := c.opts.Quality * retryFactor
	out, err = c.codec.Encode(img, retry)
	if err != nil {
		return nil, &Error{Reason: "encode image", Err: err}
	}
	log.Debug().Int("from", len(p)).Int("to", len(out)).Float64("quality", retry).Msg("compressed image on retry")
	return out, nil
}
