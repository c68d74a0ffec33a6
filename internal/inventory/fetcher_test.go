package inventory_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocator(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		want    string
	}{
		{
			name:    "drive share link",
			locator: "https://drive.google.com/file/d/1gdCOFgGFyBDKAycLBpCla3fislRLIFpR/view?usp=sharing",
			want:    "https://drive.google.com/uc?id=1gdCOFgGFyBDKAycLBpCla3fislRLIFpR&export=download",
		},
		{
			name:    "drive id with dash and underscore",
			locator: "https://drive.google.com/file/d/abc-DEF_123/view",
			want:    "https://drive.google.com/uc?id=abc-DEF_123&export=download",
		},
		{
			name:    "drive direct link unchanged",
			locator: "https://drive.google.com/uc?id=abc&export=download",
			want:    "https://drive.google.com/uc?id=abc&export=download",
		},
		{
			name:    "drive link without view unchanged",
			locator: "https://drive.google.com/file/d/abc/edit",
			want:    "https://drive.google.com/file/d/abc/edit",
		},
		{
			name:    "plain url unchanged",
			locator: "https://example.com/inventory.json",
			want:    "https://example.com/inventory.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inventory.ResolveLocator(tt.locator))
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	t.Run("returns body and sends no-cache headers", func(t *testing.T) {
		// given
		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			_, _ = w.Write([]byte(`[{"id":"A"}]`))
		}))
		defer server.Close()

		fetcher := inventory.NewFetcher(time.Second)

		// when
		body, err := fetcher.Fetch(context.Background(), server.URL)

		// then
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"A"}]`, string(body))
		assert.Equal(t, "no-cache", got.Get("Cache-Control"))
		assert.Equal(t, "no-cache", got.Get("Pragma"))
		assert.Equal(t, "application/json, text/plain, */*", got.Get("Accept"))
		assert.Contains(t, got.Get("User-Agent"), "Mozilla/5.0")
	})

	t.Run("non 2xx status is a fetch error", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		fetcher := inventory.NewFetcher(time.Second)

		// when
		_, err := fetcher.Fetch(context.Background(), server.URL)

		// then
		var fetchErr *inventory.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
		assert.Contains(t, err.Error(), "403 Forbidden")
	})

	t.Run("network failure is a fetch error", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		fetcher := inventory.NewFetcher(time.Second)

		// when
		_, err := fetcher.Fetch(context.Background(), url)

		// then
		var fetchErr *inventory.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Zero(t, fetchErr.StatusCode)
	})

	t.Run("html interstitial is not publicly accessible", func(t *testing.T) {
		bodies := []string{
			"<!DOCTYPE html><html><body>Request access</body></html>",
			"  \n<html><head></head></html>",
			"<!doctype html>",
		}
		for _, body := range bodies {
			// given
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))

			// when
			_, err := inventory.NewFetcher(time.Second).Fetch(context.Background(), server.URL)
			server.Close()

			// then
			assert.ErrorIs(t, err, inventory.ErrNotPubliclyAccessible)
			var malformed *inventory.MalformedJSONError
			assert.False(t, errors.As(err, &malformed))
		}
	})

	t.Run("byte order mark is stripped", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("\xEF\xBB\xBF" + `[{"id":"A"}]`))
		}))
		defer server.Close()

		// when
		body, err := inventory.NewFetcher(time.Second).Fetch(context.Background(), server.URL)

		// then
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"A"}]`, string(body))
	})

	t.Run("html behind a byte order mark is not publicly accessible", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("\xEF\xBB\xBF<!DOCTYPE html><html></html>"))
		}))
		defer server.Close()

		// when
		_, err := inventory.NewFetcher(time.Second).Fetch(context.Background(), server.URL)

		// then
		assert.ErrorIs(t, err, inventory.ErrNotPubliclyAccessible)
	})

	t.Run("oversized body is rejected instead of truncated", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(bytes.Repeat([]byte(" "), inventory.MaxPayloadBytes+1))
		}))
		defer server.Close()

		// when
		_, err := inventory.NewFetcher(5*time.Second).Fetch(context.Background(), server.URL)

		// then
		assert.ErrorIs(t, err, inventory.ErrPayloadTooLarge)
		var malformed *inventory.MalformedJSONError
		assert.False(t, errors.As(err, &malformed))
	})

	t.Run("cancelled context aborts the request", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		_, err := inventory.NewFetcher(5*time.Second).Fetch(ctx, server.URL)

		// then
		var fetchErr *inventory.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty locator", func(t *testing.T) {
		_, err := inventory.NewFetcher(0).Fetch(context.Background(), "  ")
		assert.ErrorIs(t, err, inventory.ErrMissingLocator)
	})
}

func TestReadLimited(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "below limit", input: "abc"},
		{name: "exactly at limit", input: "abcd"},
		{name: "over limit", input: "abcde", wantErr: inventory.ErrPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := inventory.ReadLimited(strings.NewReader(tt.input), 4)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, string(data))
		})
	}
}

func TestFromUpload(t *testing.T) {
	t.Run("accepts json files", func(t *testing.T) {
		data, err := inventory.FromUpload("inventory.JSON", []byte("[]"))
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("rejects other extensions", func(t *testing.T) {
		for _, name := range []string{"inventory.xlsx", "inventory.txt", "inventory"} {
			_, err := inventory.FromUpload(name, []byte("[]"))
			assert.ErrorIs(t, err, inventory.ErrUnsupportedFormat, name)
		}
	})
}
