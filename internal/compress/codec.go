package compress

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Codec decodes, rescales and re-encodes raster images.
type Codec interface {
	// Decode parses p as an image. It fails for anything that is not a
	// supported raster format.
	Decode(p []byte) (image.Image, error)
	// Resize scales img to exactly w x h.
	Resize(img image.Image, w, h int) image.Image
	// Encode writes img at quality in (0, 1].
	Encode(img image.Image, quality float64) ([]byte, error)
}

// DefaultMaxPixels bounds the declared size of an image ImageCodec will
// decode, 8192x8192.
const DefaultMaxPixels = 1 << 26

// ImageCodec is the default Codec. It reads PNG, JPEG, GIF, BMP, TIFF and
// WebP and always writes JPEG.
type ImageCodec struct {
	// MaxPixels caps width*height read from the image header before any
	// pixel data is allocated. Zero means DefaultMaxPixels.
	MaxPixels int
}

func (c ImageCodec) Decode(p []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	limit := c.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > limit/cfg.Height {
		return nil, fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, limit)
	}
	img, _, err := image.Decode(bytes.NewReader(p))
	return img, err
}

func (ImageCodec) Resize(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func (ImageCodec) Encode(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jpegQuality(q float64) int {
	n := int(math.Round(q * 100))
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}

// fitWithin scales w x h so the longer side equals maxDim, keeping the aspect
// ratio. Sizes already within maxDim are returned unchanged.
func fitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := int(math.Round(float64(h) * float64(maxDim) / float64(w)))
		return maxDim, max(nh, 1)
	}
	nw := int(math.Round(float64(w) * float64(maxDim) / float64(h)))
	return max(nw, 1), maxDim
}
