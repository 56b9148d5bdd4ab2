// Package download fetches the per-row upload images and stores them as
// JPEG files named by row index.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"formfill/internal/logging"

	"github.com/disintegration/imaging"
)

// maxImageBytes caps how much of a response body is decoded.
const maxImageBytes = 32 << 20

// Options configures a Downloader.
type Options struct {
	Dir       string
	Timeout   time.Duration
	UserAgent string
}

// Downloader fetches images over HTTP.
type Downloader struct {
	opts   Options
	client *http.Client

	mu   sync.Mutex
	done map[int]result
}

type result struct {
	url  string
	path string
	err  error
}

// New creates a Downloader.
func New(opts Options) *Downloader {
	if opts.Dir == "" {
		opts.Dir = "downloads"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Downloader{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		done: make(map[int]result),
	}
}

// Unwrap resolves redirect-style image links. When raw carries an iurl
// parameter in its fragment, the decoded target is returned; otherwise raw
// is returned unchanged.
func Unwrap(raw string) string {
	if !strings.Contains(raw, "iurl=") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q, err := url.ParseQuery(u.EscapedFragment())
	if err != nil {
		return raw
	}
	if direct := q["iurl"]; len(direct) > 0 && direct[0] != "" {
		return direct[0]
	}
	return raw
}

// PathFor returns where the image for row idx is stored.
func (d *Downloader) PathFor(idx int) string {
	return filepath.Join(d.opts.Dir, fmt.Sprintf("image_%d.jpg", idx))
}

// Fetch downloads raw for row idx and returns the saved JPEG path. Results
// of an earlier Prefetch for the same row and URL are reused.
func (d *Downloader) Fetch(ctx context.Context, raw string, idx int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoURL
	}

	d.mu.Lock()
	r, ok := d.done[idx]
	d.mu.Unlock()
	if ok && r.url == raw {
		logging.DownloadDebug("Row %d: reusing prefetched image", idx+1)
		return r.path, r.err
	}

	path, err := d.fetch(ctx, raw, idx)
	d.remember(idx, raw, path, err)
	return path, err
}

func (d *Downloader) remember(idx int, raw, path string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	d.mu.Lock()
	d.done[idx] = result{url: raw, path: path, err: err}
	d.mu.Unlock()
}

func (d *Downloader) fetch(ctx context.Context, raw string, idx int) (string, error) {
	target := Unwrap(raw)
	if target != raw {
		logging.DownloadDebug("Row %d: unwrapped redirect link to %s", idx+1, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		logging.DownloadWarn("Row %d: invalid image URL %q: %v", idx+1, target, err)
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	timer := logging.StartTimer(logging.CategoryDownload, fmt.Sprintf("fetch row %d", idx+1))
	resp, err := d.client.Do(req)
	if err != nil {
		logging.DownloadWarn("Row %d: image download failed: %v", idx+1, err)
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.DownloadWarn("Row %d: HTTP status %d for %s", idx+1, resp.StatusCode, target)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	img, err := imaging.Decode(io.LimitReader(resp.Body, maxImageBytes), imaging.AutoOrientation(true))
	if err != nil {
		logging.DownloadWarn("Row %d: response is not a decodable image: %v", idx+1, err)
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if err := os.MkdirAll(d.opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	path := d.PathFor(idx)
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		logging.DownloadWarn("Row %d: failed to save image: %v", idx+1, err)
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	timer.Stop()

	b := img.Bounds()
	logging.Download("Row %d: saved %dx%d image to %s", idx+1, b.Dx(), b.Dy(), path)
	return path, nil
}

// Close releases idle HTTP connections.
func (d *Downloader) Close() {
	d.client.CloseIdleConnections()
}
