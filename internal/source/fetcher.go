// Package source supplies the raw bytes of a feed from a local file or a
// URL, hiding retries and link discovery from the pipeline.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"belfiore/internal/config"
)

const (
	KindFile = "file"
	KindURL  = "url"
)

var (
	ErrNotFound    = errors.New("source not found")
	ErrUnavailable = errors.New("source unavailable")
)

// Request names one source of feed bytes. A non-empty selector on a url
// request marks the location as an HTML index page; the fetcher follows the
// first link matching the CSS selector instead of reading the page itself.
type Request struct {
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Selector string `json:"selector,omitempty"`
}

type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(cfg config.Config) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	switch req.Kind {
	case KindFile, "":
		return f.fetchFile(req.Location)
	case KindURL:
		location := req.Location
		if req.Selector != "" {
			target, err := f.discoverLink(ctx, location, req.Selector)
			if err != nil {
				return nil, err
			}
			location = target
		}
		return f.fetchURL(ctx, location)
	default:
		return nil, fmt.Errorf("unsupported source kind: %q", req.Kind)
	}
}

func (f *Fetcher) fetchFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, location string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("%w: status %d from %s", ErrUnavailable, resp.StatusCode, location)
		}
		return body, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// discoverLink resolves the href of the first node matching the selector
// against the page URL. The ministry publishes the archives behind a
// download page whose file names change with every update, so profiles may
// point at the stable page plus a selector instead of a moving target.
func (f *Fetcher) discoverLink(ctx context.Context, pageURL, selector string) (string, error) {
	page, err := f.fetchURL(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: parse page %s: %v", ErrUnavailable, pageURL, err)
	}
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("%w: no link matches %q on %s", ErrNotFound, selector, pageURL)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: bad href %q: %v", ErrUnavailable, href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
