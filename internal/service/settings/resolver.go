package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/wovenchat/widget/internal/model/site"
)

// Resolver fetches per-site display configuration once per page load.
type Resolver struct {
	origin string
	http   *http.Client
}

// NewResolver builds a resolver against the backend base URL.
func NewResolver(origin string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		origin: origin,
		http:   &http.Client{Timeout: timeout},
	}
}

// Resolve returns the site configuration, falling back to client
// defaults for absent fields. It never fails: on any error the
// all-defaults configuration is returned so widget construction is
// never blocked on the settings endpoint.
func (r *Resolver) Resolve(ctx context.Context, siteID int) site.Config {
	partial, err := r.fetch(ctx, siteID)
	if err != nil {
		log.Printf("[settings] falling back to defaults for site %d: %v", siteID, err)
		return site.Defaults(siteID)
	}
	return site.Merge(siteID, partial)
}

func (r *Resolver) fetch(ctx context.Context, siteID int) (site.Config, error) {
	url := fmt.Sprintf("%s/api/widget-settings?site_id=%d", r.origin, siteID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return site.Config{}, fmt.Errorf("build settings request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return site.Config{}, fmt.Errorf("settings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return site.Config{}, fmt.Errorf("settings request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return site.Config{}, fmt.Errorf("read settings response: %w", err)
	}

	var partial site.Config
	if err := json.Unmarshal(body, &partial); err != nil {
		return site.Config{}, fmt.Errorf("decode settings response: %w", err)
	}
	return partial, nil
}
