package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradientPNG renders an uncompressed PNG so its size is predictable:
// roughly w*h*4 bytes.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

type fakeCodec struct {
	sizes     []int
	qualities []float64
	resized   [2]int
}

func (f *fakeCodec) Decode(p []byte) (image.Image, error) {
	if !bytes.HasPrefix(p, []byte("IMG")) {
		return nil, errors.New("unknown format")
	}
	return image.NewGray(image.Rect(0, 0, 4000, 1000)), nil
}

func (f *fakeCodec) Resize(img image.Image, w, h int) image.Image {
	f.resized = [2]int{w, h}
	return image.NewGray(image.Rect(0, 0, w, h))
}

func (f *fakeCodec) Encode(img image.Image, quality float64) ([]byte, error) {
	n := f.sizes[len(f.qualities)]
	f.qualities = append(f.qualities, quality)
	return make([]byte, n), nil
}

func imgPayload(n int) []byte {
	p := make([]byte, n)
	copy(p, "IMG")
	return p
}

func TestCompress_FastPath(t *testing.T) {
	codec := &fakeCodec{}
	c := New(codec, Options{MaxSizeBytes: 100})

	in := []byte("small, not even an image")
	out, err := c.Compress(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, codec.qualities)
}

func TestCompress_SingleAttempt(t *testing.T) {
	codec := &fakeCodec{sizes: []int{80}}
	c := New(codec, Options{MaxSizeBytes: 100, MaxDimension: 1000, Quality: 0.8})

	out, err := c.Compress(imgPayload(500))
	require.NoError(t, err)
	assert.Len(t, out, 80)
	assert.Equal(t, []float64{0.8}, codec.qualities)
	assert.Equal(t, [2]int{1000, 250}, codec.resized)
}

func TestCompress_RetriesExactlyOnce(t *testing.T) {
	codec := &fakeCodec{sizes: []int{150, 120}}
	c := New(codec, Options{MaxSizeBytes: 100, Quality: 0.8})

	out, err := c.Compress(imgPayload(500))
	require.NoError(t, err)
	// still over the limit; the caller decides
	assert.Len(t, out, 120)
	require.Len(t, codec.qualities, 2)
	assert.InDelta(t, 0.56, codec.qualities[1], 1e-9)
}

func TestCompress_NonImage(t *testing.T) {
	c := New(&fakeCodec{}, Options{MaxSizeBytes: 100})

	_, err := c.Compress(make([]byte, 500))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompression)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "non-image")
}

func TestCompress_RealImage(t *testing.T) {
	src := gradientPNG(t, 2400, 600)
	require.Greater(t, len(src), 4<<20)

	c := New(nil, Options{MaxSizeBytes: 3 << 20, MaxDimension: 1024})
	out, err := c.Compress(src)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 3<<20)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 256, cfg.Height)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 1920, 100, 50},
		{3840, 2160, 1920, 1920, 1080},
		{1000, 4000, 1920, 480, 1920},
		{1920, 1920, 1920, 1920, 1920},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 80, jpegQuality(0.8))
	assert.Equal(t, 56, jpegQuality(0.56))
	assert.Equal(t, 1, jpegQuality(0))
	assert.Equal(t, 100, jpegQuality(1.5))
}

// hugePNG is a valid 1x1 PNG whose header claims w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	p := gradientPNG(t, 1, 1)
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc after 13 data bytes
	binary.BigEndian.PutUint32(p[16:20], w)
	binary.BigEndian.PutUint32(p[20:24], h)
	binary.BigEndian.PutUint32(p[29:33], crc32.ChecksumIEEE(p[12:29]))
	return p
}

func TestImageCodec_RejectsOversizedHeader(t *testing.T) {
	p := hugePNG(t, 60000, 60000)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(p))
	require.NoError(t, err)
	require.Equal(t, 60000, cfg.Width)

	_, err = ImageCodec{}.Decode(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pixel limit")

	c := New(nil, Options{MaxSizeBytes: 16})
	_, err = c.Compress(p)
	require.ErrorIs(t, err, ErrCompression)
}

func TestImageCodec_MaxPixels(t *testing.T) {
	p := gradientPNG(t, 40, 30)

	_, err := ImageCodec{MaxPixels: 1000}.Decode(p)
	require.Error(t, err)

	img, err := ImageCodec{MaxPixels: 1200}.Decode(p)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}
