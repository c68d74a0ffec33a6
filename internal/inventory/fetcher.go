package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single download when no timeout is configured.
	DefaultFetchTimeout = 30 * time.Second

	// MaxPayloadBytes bounds a downloaded or uploaded inventory.
	MaxPayloadBytes = 20 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

var (
	// ErrMissingLocator is returned when no URL was supplied to fetch from.
	ErrMissingLocator = errors.New("source URL is required")

	driveFileID = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)
)

// ResolveLocator rewrites Google Drive "file/d/{id}/view" share links into their
// direct-download form. Any other URL is returned unchanged.
func ResolveLocator(locator string) string {
	if !strings.Contains(locator, "/file/d/") || !strings.Contains(locator, "/view") {
		return locator
	}
	match := driveFileID.FindStringSubmatch(locator)
	if match == nil {
		return locator
	}
	return fmt.Sprintf("https://drive.google.com/uc?id=%s&export=download", match[1])
}

// Fetcher downloads candidate inventories from remote locators.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose requests time out after the given duration.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// NewFetcherWithClient creates a Fetcher that uses the provided HTTP client.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads the content behind locator and returns it untouched.
// It never parses the body; an HTML body is reported as ErrNotPubliclyAccessible.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, ErrMissingLocator
	}

	downloadURL := ResolveLocator(locator)
	if downloadURL != locator {
		slog.Info("Resolved Drive share link", slog.String("url", downloadURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, &FetchError{URL: downloadURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: downloadURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("Source responded with error status",
			slog.String("url", downloadURL),
			slog.Int("status", resp.StatusCode))
		return nil, &FetchError{URL: downloadURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := ReadLimited(resp.Body, MaxPayloadBytes)
	if errors.Is(err, ErrPayloadTooLarge) {
		slog.Error("Source payload too large", slog.String("url", downloadURL), slog.Int64("limit", MaxPayloadBytes))
		return nil, err
	}
	if err != nil {
		return nil, &FetchError{URL: downloadURL, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	body = trimBOM(body)

	if looksLikeHTML(body) {
		slog.Error("Source returned an HTML page", slog.String("url", downloadURL))
		return nil, ErrNotPubliclyAccessible
	}

	slog.Info("Downloaded inventory", slog.String("url", downloadURL), slog.Int("bytes", len(body)))
	return body, nil
}

// FromUpload accepts the raw bytes of an uploaded JSON file.
func FromUpload(filename string, data []byte) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".json") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	return data, nil
}

// ReadLimited reads all of r, failing with ErrPayloadTooLarge instead of
// truncating when r holds more than limit bytes.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)
	}
	return data, nil
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimLeft(trimBOM(body), " \t\r\n")
	if len(trimmed) > 16 {
		trimmed = trimmed[:16]
	}
	trimmed = bytes.ToLower(trimmed)
	return bytes.HasPrefix(trimmed, []byte("<!doctype")) || bytes.HasPrefix(trimmed, []byte("<html"))
}
