package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cartelera-cli/model"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	appName         = "cartelera-cli"
	moviesCacheTTL  = 30 * time.Minute
	maxRecentSource = 8
)

// fs is swapped for an in-memory filesystem in tests.
var fs afero.Fs = afero.NewOsFs()

type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source,omitempty"`
	Data      T         `json:"data"`
}

type RecentSource struct {
	Source string    `json:"source"`
	UsedAt time.Time `json:"used_at"`
}

type sourceHistory struct {
	Sources []RecentSource `json:"sources"`
}

// LoadMoviesCache returns the cached movie list of source and whether it is
// still fresh. A missing cache is not an error.
func LoadMoviesCache(source string) ([]model.Movie, bool, error) {
	path, err := cachePath(moviesCacheName(source))
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Movie](path)
	if err != nil {
		return nil, false, err
	}
	if cache.UpdatedAt.IsZero() {
		return nil, false, nil
	}
	return cache.Data, time.Since(cache.UpdatedAt) <= moviesCacheTTL, nil
}

func SaveMoviesCache(source string, movies []model.Movie) error {
	path, err := cachePath(moviesCacheName(source))
	if err != nil {
		return err
	}
	return saveCache(path, source, movies)
}

// ClearMoviesCache removes the cached list of source.
func ClearMoviesCache(source string) error {
	path, err := cachePath(moviesCacheName(source))
	if err != nil {
		return err
	}
	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func moviesCacheName(source string) string {
	key := uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(source)))
	return "movies_" + key.String() + ".json"
}

// MoviesCache exposes the on-disk movie cache to the data loader.
type MoviesCache struct{}

func (MoviesCache) Load(source string) ([]model.Movie, bool, error) {
	return LoadMoviesCache(source)
}

func (MoviesCache) Save(source string, movies []model.Movie) error {
	return SaveMoviesCache(source, movies)
}

func LoadRecentSources() ([]RecentSource, error) {
	path, err := configPath("sources.json")
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var history sourceHistory
	if err := json.Unmarshal(data, &history); err == nil {
		return history.Sources, nil
	}

	var legacy []string
	if err := json.Unmarshal(data, &legacy); err == nil {
		var sources []RecentSource
		for _, source := range legacy {
			if source != "" {
				sources = append(sources, RecentSource{Source: source})
			}
		}
		return sources, nil
	}

	return nil, errors.New("invalid source history format")
}

// RememberSource moves source to the front of the recent list.
func RememberSource(source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return errors.New("source is required")
	}
	history, _ := LoadRecentSources()
	next := []RecentSource{{Source: source, UsedAt: time.Now()}}

	for _, existing := range history {
		if existing.Source == "" || existing.Source == source {
			continue
		}
		next = append(next, existing)
		if len(next) >= maxRecentSource {
			break
		}
	}

	path, err := configPath("sources.json")
	if err != nil {
		return err
	}
	return writeJSON(path, sourceHistory{Sources: next})
}

// LastSource is the most recently used data source, or "".
func LastSource() string {
	sources, err := LoadRecentSources()
	if err != nil || len(sources) == 0 {
		return ""
	}
	return sources[0].Source
}

func loadCache[T any](path string) (cacheEnvelope[T], error) {
	var cache cacheEnvelope[T]
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cache, nil
		}
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, err
	}
	return cache, nil
}

func saveCache[T any](path string, source string, data T) error {
	return writeJSON(path, cacheEnvelope[T]{
		UpdatedAt: time.Now(),
		Source:    source,
		Data:      data,
	})
}

func writeJSON(path string, value any) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, payload, 0o644)
}

func configPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, name), nil
}

// LogPath is where the rotating log file lives.
func LogPath() (string, error) {
	return cachePath(appName + ".log")
}

func cachePath(name string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, name), nil
}
