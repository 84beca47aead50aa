package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "github.com/James-C137/tempo-scheduler/internal/log"
)

// Source represents a single ICS subscription used as a snapshot input.
type Source struct {
	// ID is an internal identifier (e.g., config ICS ID).
	ID string
	// URL is the ICS endpoint.
	URL string
}

// cacheMeta holds HTTP cache metadata for a single ICS URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Reader fetches ICS feeds and turns them into ExistingEvent tuples for
// the snapshot window. HTTP caching (ETag / Last-Modified) is backed by
// a disk cache so transient network failures can fall back to the last
// known body. A source that fails with no cached body fails the whole
// read: the pipeline treats a partial snapshot as no snapshot.
type Reader struct {
	client   *http.Client
	cacheDir string
	sources  []Source
}

// NewReader creates a Reader over the given ICS sources.
//
// cacheDir is the base directory for per-URL cache subdirectories.
// Example: "~/.cache/tempo/ics".
func NewReader(cacheDir string, sources []Source) *Reader {
	if cacheDir == "" {
		// Caller should set this explicitly; fall back to a relative dir
		// so development runs work without extra setup.
		cacheDir = "./var/ics-cache"
	}
	return &Reader{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
		sources:  sources,
	}
}

// ListEvents fetches every source and returns all events intersecting
// [t0, t1). Any source that cannot produce a body (neither network nor
// cache) aborts the read.
func (r *Reader) ListEvents(ctx context.Context, t0, t1 time.Time) ([]ExistingEvent, error) {
	all := make([]ExistingEvent, 0)

	for _, src := range r.sources {
		body, err := r.fetchOne(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("calendar read %q: %w", src.ID, err)
		}
		events, err := parseICS(src, body, t0, t1)
		if err != nil {
			return nil, fmt.Errorf("calendar parse %q: %w", src.ID, err)
		}
		all = append(all, events...)
	}

	return all, nil
}

// fetchOne fetches a single ICS source, honoring ETag and Last-Modified.
// It uses a disk cache under r.cacheDir keyed by a hash of the URL.
func (r *Reader) fetchOne(ctx context.Context, src Source) ([]byte, error) {
	if src.URL == "" {
		return nil, errors.New("source URL is empty")
	}

	cachePath := r.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}

	// Conditional headers from cache metadata.
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := r.client.Do(req)
	if err != nil {
		// Network error; if we have a cached body, fall back to it.
		if len(cachedBody) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "id", src.ID)
			return cachedBody, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}

		newMeta := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("ics cache save failed", err, "id", src.ID)
		}

		appLog.Info("ics fetch success", "id", src.ID, "bytes", len(body), "from_cache", false)
		return body, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID)
		return cachedBody, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "id", src.ID, "status", resp.StatusCode)
			return cachedBody, nil
		}
		return nil, errors.New(resp.Status)
	}
}

func (r *Reader) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	// First 16 hex chars as directory name.
	return filepath.Join(r.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheMeta, body []byte) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL hides sensitive parts of an ICS URL for logging purposes.
// Private ICS URLs routinely carry access tokens in path or query.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}

	return u[:j] + redactedSuffix
}
