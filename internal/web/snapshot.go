// Package web turns web pages into cache record payloads.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

const (
	RequestTimeout  = 20 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
	MaxImageSize    = 32 * 1024 * 1024
	maxLinks        = 50
)

// Page is the parsed form of an HTML document.
type Page struct {
	URL         string
	Title       string
	Description string
	Text        string
	Links       []string
	ImageURL    string
}

// Value renders the page as a record payload. image is embedded as a binary
// leaf when non-nil.
func (p Page) Value(image []byte) value.Value {
	links := make([]value.Value, len(p.Links))
	for i, l := range p.Links {
		links[i] = value.String(l)
	}
	fields := map[string]value.Value{
		"url":         value.String(p.URL),
		"title":       value.String(p.Title),
		"description": value.String(p.Description),
		"text":        value.String(p.Text),
		"links":       value.Array(links...),
	}
	if image != nil {
		fields["image"] = value.Binary(image)
		fields["imageUrl"] = value.String(p.ImageURL)
	}
	return value.Map(fields)
}

// Snapshotter fetches pages and their preview images.
type Snapshotter struct {
	c      *colly.Collector
	client *http.Client
}

func NewSnapshotter() *Snapshotter {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       1 * time.Second,
	})
	c.SetRequestTimeout(RequestTimeout)
	return &Snapshotter{
		c:      c,
		client: &http.Client{Timeout: RequestTimeout},
	}
}

// Snapshot fetches rawURL and returns it as a record payload. The page's
// og:image, when present and reachable, is embedded as binary data; failing
// to fetch it is logged and otherwise ignored.
func (s *Snapshotter) Snapshot(ctx context.Context, rawURL string) (value.Value, error) {
	if ctx.Err() != nil {
		return value.Value{}, ctx.Err()
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return value.Value{}, errors.New("url must start with http:// or https://")
	}

	var (
		body        []byte
		finalURL    string
		contentType string
	)
	c := s.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", nextUserAgent())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		finalURL = r.Request.URL.String()
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})
	if err := c.Visit(rawURL); err != nil {
		return value.Value{}, err
	}
	if ctx.Err() != nil {
		return value.Value{}, ctx.Err()
	}
	if len(body) == 0 {
		return value.Value{}, errors.New("empty response body")
	}

	lowerCT := strings.ToLower(contentType)
	if !strings.HasPrefix(lowerCT, "text/") {
		return value.Value{}, fmt.Errorf("unsupported content type %q", contentType)
	}
	if len(body) > MaxResponseSize {
		body = append(body[:MaxResponseSize], []byte("... [response trimmed due to size]")...)
	}

	var page Page
	if strings.Contains(lowerCT, "text/html") {
		p, err := ParsePage(finalURL, body)
		if err != nil {
			return value.Value{}, err
		}
		page = p
	} else {
		page = Page{URL: finalURL, Text: string(body)}
	}

	var image []byte
	if page.ImageURL != "" {
		img, err := s.fetchImage(ctx, page.ImageURL)
		if err != nil {
			log.Warn().Err(err).Str("url", page.ImageURL).Msg("skipping preview image")
		} else {
			image = img
		}
	}
	return page.Value(image), nil
}

func (s *Snapshotter) fetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", nextUserAgent())
	req.Header.Set("Accept", "image/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return nil, fmt.Errorf("not an image: %q", ct)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxImageSize {
		return nil, fmt.Errorf("image larger than %d bytes", MaxImageSize)
	}
	return b, nil
}

// ParsePage extracts title, description, preview image, links and a Markdown
// rendering of the body from an HTML document served at pageURL.
func ParsePage(pageURL string, html []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Page{}, err
	}
	base, _ := url.Parse(pageURL)

	page := Page{
		URL:         pageURL,
		Title:       strings.TrimSpace(doc.Find("head > title").First().Text()),
		Description: strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", "")),
	}
	if img := strings.TrimSpace(doc.Find(`meta[property="og:image"]`).AttrOr("content", "")); img != "" {
		page.ImageURL = resolve(base, img)
	}

	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress, ins, applet").Remove()
	plainText := strings.Join(strings.Fields(doc.Find("body").Text()), " ")

	linkSet := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := url.Parse(resolve(base, href))
		if err != nil {
			return
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		u.Fragment = ""
		linkSet[u.String()] = struct{}{}
	})
	for l := range linkSet {
		page.Links = append(page.Links, l)
	}
	sort.Strings(page.Links)
	if len(page.Links) > maxLinks {
		page.Links = page.Links[:maxLinks]
	}

	doc.Find("a").Remove()
	doc.Find("header, footer, aside").Remove()
	htmlStr, err := doc.Html()
	if err != nil {
		return Page{}, err
	}
	if md, err := htmltomarkdown.ConvertString(htmlStr); err == nil {
		page.Text = md
	} else {
		page.Text = plainText
	}
	return page, nil
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if !u.IsAbs() && base != nil {
		u = base.ResolveReference(u)
	}
	return u.String()
}
