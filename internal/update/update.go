// Package update checks GitHub releases for a newer qsync and caches the
// answer for a day.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	semver "github.com/blang/semver/v4"
)

const (
	// Repository is the GitHub slug releases are published under.
	Repository = "qsync/qsync"

	repoLatestURL = "https://api.github.com/repos/" + Repository + "/releases/latest"
	cacheFileName = "update.json"
	cacheTTL      = 24 * time.Hour
)

type cache struct {
	LastChecked time.Time `json:"last_checked"`
	Latest      string    `json:"latest"`
}

// Checker looks up the latest release. The zero value checks GitHub and
// caches under $XDG_CACHE_HOME/qsync.
type Checker struct {
	URL        string
	CachePath  string
	HTTPClient *http.Client
	// Offline skips the network and only consults the cache.
	Offline bool
}

func (c *Checker) cachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	return filepath.Join(xdg.CacheHome, "qsync", cacheFileName)
}

func (c *Checker) loadCache() (cache, error) {
	var v cache
	b, err := os.ReadFile(c.cachePath())
	if err != nil {
		return v, err
	}
	_ = json.Unmarshal(b, &v)
	return v, nil
}

func (c *Checker) saveCache(v cache) {
	path := c.cachePath()
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	b, _ := json.MarshalIndent(v, "", "  ")
	_ = os.WriteFile(path, b, 0644)
}

func (c *Checker) latestOnline(ctx context.Context) (string, error) {
	url := c.URL
	if url == "" {
		url = repoLatestURL
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "qsync-updater")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("release lookup failed: " + resp.Status)
	}
	var obj struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return "", err
	}
	v := obj.TagName
	if v == "" {
		v = obj.Name
	}
	return v, nil
}

// Check returns the latest version and whether it is newer than current.
// It is a no-op in CI.
func (c *Checker) Check(ctx context.Context, current string) (string, bool, error) {
	if os.Getenv("CI") != "" {
		return "", false, nil
	}
	cached, _ := c.loadCache()
	latest := normalize(cached.Latest)
	if !c.Offline && (time.Since(cached.LastChecked) > cacheTTL || latest == "") {
		if v, err := c.latestOnline(ctx); err == nil {
			latest = normalize(v)
			c.saveCache(cache{LastChecked: time.Now(), Latest: latest})
		}
	}
	if latest == "" {
		return "", false, nil
	}
	lv, err := semver.ParseTolerant(latest)
	if err != nil {
		return latest, false, nil
	}
	cv, err := semver.ParseTolerant(current)
	if err != nil {
		return latest, false, nil
	}
	return latest, lv.GT(cv), nil
}

func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}
