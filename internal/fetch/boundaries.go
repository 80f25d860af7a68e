// Package fetch downloads boundary data from remote services with retry
// and rate limiting.
package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBoundaryURL is the SpatialHub WFS endpoint for Scottish local
// authority boundaries, requested in EPSG:4326 to match the storage CRS.
const DefaultBoundaryURL = "https://geo.spatialhub.scot/geoserver/sh_las/wfs" +
	"?service=WFS" +
	"&authkey=003654b7-944f-4a02-8f8a-0091da77ebe0" +
	"&request=GetFeature" +
	"&typeName=sh_las:pub_las" +
	"&srsName=EPSG:4326" +
	"&format_options=filename:Local_Authority_Boundaries_-_Scotland" +
	"&outputFormat=application/json"

// retryDelay is a var so tests can shorten the backoff.
var retryDelay = 5 * time.Second

// Client downloads boundary files.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	retries int
}

// New creates a Client. A nil httpClient falls back to
// http.DefaultClient; retries below 1 is treated as 1.
func New(httpClient *http.Client, retries int, perSec float64) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if retries < 1 {
		retries = 1
	}
	if perSec <= 0 {
		perSec = 1
	}
	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		retries: retries,
	}
}

// EnsureLA returns the path to a local copy of the LA boundaries,
// downloading into dataDir only when no cached file exists.
func (c *Client) EnsureLA(ctx context.Context, dataDir, url string) (string, error) {
	if url == "" {
		url = DefaultBoundaryURL
	}
	dest := filepath.Join(dataDir, "la_boundaries.geojson")
	if _, err := os.Stat(dest); err == nil {
		zap.L().Info("using cached LA boundaries", zap.String("path", dest))
		return dest, nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetch: create data dir")
	}
	if err := c.Download(ctx, url, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Download fetches a URL to dest, retrying transient failures with a
// fixed delay. The file is written via a temp path so a failed attempt
// never leaves a truncated destination behind.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	log := zap.L().With(zap.String("component", "fetch"))

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "fetch: rate limit wait")
		}

		log.Info("downloading boundaries",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("retries", c.retries),
		)
		if err := c.download(ctx, url, dest); err != nil {
			lastErr = err
			log.Warn("download failed", zap.Int("attempt", attempt), zap.Error(err))
			if attempt < c.retries {
				select {
				case <-ctx.Done():
					return eris.Wrap(ctx.Err(), "fetch: canceled")
				case <-time.After(retryDelay):
				}
			}
			continue
		}

		info, err := os.Stat(dest)
		if err == nil {
			log.Info("download complete",
				zap.String("path", dest),
				zap.Int64("bytes", info.Size()),
			)
		}
		return nil
	}

	return eris.Wrapf(lastErr, "fetch: download failed after %d attempts", c.retries)
}

func (c *Client) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("download returned status %d", resp.StatusCode)
	}

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "create file")
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return eris.Wrap(err, "write file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "close file")
	}

	if err := os.Rename(tmp, dest); err != nil {
		return eris.Wrap(err, "move file into place")
	}
	return nil
}
