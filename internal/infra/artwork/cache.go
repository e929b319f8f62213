// Package artwork provides a local cache of album artwork.
package artwork

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
)

const ext = ".jpg"

// Config holds cache configuration.
type Config struct {
	Dir             string
	Size            int           // Bounding box of cached images in pixels
	DownloadTimeout time.Duration // Per download
	HTTPClient      *http.Client  // nil: http.DefaultClient
}

// Cache resolves artwork keys to local JPEG files, downloading missing ones
// in the background. It never blocks its callers on I/O.
type Cache struct {
	config Config
	client *http.Client

	mu       sync.Mutex
	known    map[string]struct{} // Keys with a file in Dir
	inflight map[string]struct{}

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates the cache directory if needed, indexes it and starts watching it.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		return nil, errors.New("artwork directory is required")
	}
	if config.Size <= 0 {
		config.Size = 350
	}
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = 10 * time.Second
	}
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create artwork directory")
	}

	entries, err := os.ReadDir(config.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read artwork directory")
	}
	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if key, ok := keyOf(e.Name()); ok && !e.IsDir() {
			known[key] = struct{}{}
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := watcher.Add(config.Dir); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "failed to watch artwork directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		config:   config,
		client:   client,
		known:    known,
		inflight: make(map[string]struct{}),
		watcher:  watcher,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.watch()

	zlog.Debug().Msgf("artwork: cache ready: dir=%s size=%d entries=%d", config.Dir, config.Size, len(known))
	return c, nil
}

// ResolveOrFetch returns the local path for key if it is cached. Otherwise it
// returns remoteURL and starts downloading it, at most once per key at a time.
func (c *Cache) ResolveOrFetch(key, remoteURL string) string {
	key = sanitize(key)
	if key == "" {
		return remoteURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.known[key]; ok {
		return c.Path(key)
	}
	if remoteURL == "" || c.ctx.Err() != nil {
		return remoteURL
	}
	if _, ok := c.inflight[key]; ok {
		return remoteURL
	}

	c.inflight[key] = struct{}{}
	c.wg.Add(1)
	go c.download(key, remoteURL)
	return remoteURL
}

// Path returns the file path for key, whether or not it exists.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.config.Dir, sanitize(key)+ext)
}

// Has reports whether key is cached.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.known[sanitize(key)]
	return ok
}

// Wait blocks until all in-flight downloads are done.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight downloads and stops watching the directory.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
	err := c.watcher.Close()
	<-c.done
	return err
}

func (c *Cache) download(key, remoteURL string) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(c.ctx, c.config.DownloadTimeout)
	defer cancel()

	if err := c.fetch(ctx, key, remoteURL); err != nil {
		zlog.Warn().Msgf("artwork: download failed: key=%s url=%s error=%v", key, remoteURL, err)
		return
	}

	c.mu.Lock()
	c.known[key] = struct{}{}
	c.mu.Unlock()
	zlog.Debug().Msgf("artwork: cached: key=%s", key)
}

// fetch downloads remoteURL, fits it into the configured size and writes it atomically.
func (c *Cache) fetch(ctx context.Context, key, remoteURL string) error {
	body, err := c.open(ctx, remoteURL)
	if err != nil {
		return err
	}
	defer body.Close()

	img, err := imaging.Decode(body, imaging.AutoOrientation(true))
	if err != nil {
		return errors.Wrap(err, "failed to decode image")
	}
	img = imaging.Fit(img, c.config.Size, c.config.Size, imaging.Lanczos)

	tmp, err := os.CreateTemp(c.config.Dir, "."+key+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to encode image")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write image")
	}
	if err := os.Rename(tmp.Name(), c.Path(key)); err != nil {
		return errors.Wrap(err, "failed to move image into place")
	}
	return nil
}

// open returns the image body for an http(s) or file URL.
func (c *Cache) open(ctx context.Context, remoteURL string) (io.ReadCloser, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid artwork URL")
	}

	switch u.Scheme {
	case "file":
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open artwork file")
		}
		return f, nil
	case "http", "https":
	default:
		return nil, errors.Newf("unsupported artwork URL scheme: %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf("unexpected status: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// watch keeps the known set in step with files removed or added behind our back.
func (c *Cache) watch() {
	defer close(c.done)
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			key, ok := keyOf(filepath.Base(event.Name))
			if !ok {
				continue
			}
			c.mu.Lock()
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(c.known, key)
				zlog.Debug().Msgf("artwork: entry removed: key=%s", key)
			case event.Op&fsnotify.Create == fsnotify.Create:
				c.known[key] = struct{}{}
			}
			c.mu.Unlock()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn().Msgf("artwork: watcher error: %v", err)
		}
	}
}

// keyOf returns the cache key of a file name, ignoring temp files.
func keyOf(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	return strings.TrimSuffix(name, ext), true
}

// sanitize makes key safe to use as a file name.
func sanitize(key string) string {
	key = strings.TrimSpace(key)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimLeft(key, "."))
}
