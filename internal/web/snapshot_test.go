package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

const testPage = `<!doctype html>
<html>
<head>
  <title> Cats of the World </title>
  <meta name="description" content="All about cats">
  <meta property="og:image" content="/cover.png">
</head>
<body>
  <header>site nav</header>
  <h1>Cats</h1>
  <p>Cats are <b>great</b>.</p>
  <a href="/breeds#top">Breeds</a>
  <a href="https://example.org/about">About</a>
  <a href="mailto:cat@example.org">Mail</a>
  <a href="javascript:void(0)">Nothing</a>
  <script>alert(1)</script>
  <footer>copyright</footer>
</body>
</html>`

func TestParsePage(t *testing.T) {
	page, err := ParsePage("https://cats.test/index.html", []byte(testPage))
	require.NoError(t, err)

	assert.Equal(t, "Cats of the World", page.Title)
	assert.Equal(t, "All about cats", page.Description)
	assert.Equal(t, "https://cats.test/cover.png", page.ImageURL)
	assert.Equal(t, []string{"https://cats.test/breeds", "https://example.org/about"}, page.Links)
	assert.Contains(t, page.Text, "# Cats")
	assert.Contains(t, page.Text, "**great**")
	assert.NotContains(t, page.Text, "alert")
	assert.NotContains(t, page.Text, "copyright")
}

func TestPageValue(t *testing.T) {
	p := Page{URL: "u", Title: "t", Links: []string{"a"}, ImageURL: "i"}

	v := p.Value(nil)
	_, hasImage := v.Field("image")
	assert.False(t, hasImage)
	assert.False(t, value.HasBinary(v))

	v = p.Value([]byte{1})
	img, ok := v.Field("image")
	require.True(t, ok)
	assert.Equal(t, []byte{1}, img.Bytes())
}

func TestSnapshot(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nnot really")
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, testPage)
	})
	mux.HandleFunc("/cover.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	v, err := NewSnapshotter().Snapshot(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	title, _ := v.Field("title")
	assert.Equal(t, "Cats of the World", title.Str())
	img, ok := v.Field("image")
	require.True(t, ok)
	assert.Equal(t, png, img.Bytes())
	imgURL, _ := v.Field("imageUrl")
	assert.Equal(t, srv.URL+"/cover.png", imgURL.Str())
}

func TestSnapshot_MissingImageIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, testPage)
	}))
	t.Cleanup(srv.Close)

	v, err := NewSnapshotter().Snapshot(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	_, ok := v.Field("image")
	assert.False(t, ok)
}

func TestSnapshot_RejectsBadInput(t *testing.T) {
	_, err := NewSnapshotter().Snapshot(context.Background(), "ftp://example.org")
	require.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	t.Cleanup(srv.Close)

	_, err = NewSnapshotter().Snapshot(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}
