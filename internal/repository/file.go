package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/varoOP/watchlistdb/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileRepository implements domain.WatchlistRepository using file storage.
// Files ending in .yaml or .yml are YAML, everything else is JSON.
type FileRepository struct {
	log zerolog.Logger
}

func NewFileRepository(log zerolog.Logger) *FileRepository {
	return &FileRepository{
		log: log.With().Str("module", "repository").Logger(),
	}
}

var _ domain.WatchlistRepository = (*FileRepository)(nil)

// Get reads a watchlist snapshot from a file
func (r *FileRepository) Get(ctx context.Context, path string) (*domain.Watchlist, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	w := &domain.Watchlist{}
	if isYAML(path) {
		err = yaml.Unmarshal(body, w)
	} else {
		err = json.Unmarshal(body, w)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return w, nil
}

// Store writes a watchlist snapshot to a file, creating parent directories
func (r *FileRepository) Store(ctx context.Context, path string, watchlist *domain.Watchlist) error {
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(watchlist)
	} else {
		b, err = json.MarshalIndent(watchlist, "", "   ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	r.log.Debug().Str("path", path).Int("count", len(watchlist.Movies)).Msg("stored watchlist snapshot")
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
