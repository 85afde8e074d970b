package opensubtitles

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dualsubs/internal/fileutil"
)

// CacheEntry captures metadata about a cached download.
type CacheEntry struct {
	FileID      int64     `json:"file_id"`
	Language    string    `json:"language"`
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	Fingerprint string    `json:"fingerprint"`
	StoredAt    time.Time `json:"stored_at"`
}

// Cache persists downloaded payloads keyed by file id. Downloads count
// against the account quota, so repeat fetches are served from disk.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// NewCache initialises a cache rooted at dir.
func NewCache(dir string, logger *slog.Logger) (*Cache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Dir exposes the backing directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Load returns the cached payload for fileID when present. A payload whose
// metadata is missing or whose fingerprint no longer matches counts as a miss.
func (c *Cache) Load(fileID int64) (DownloadResult, bool, error) {
	if c == nil {
		return DownloadResult{}, false, errors.New("cache unavailable")
	}
	if fileID <= 0 {
		return DownloadResult{}, false, errors.New("invalid file id")
	}
	dataPath := c.dataPath(fileID)
	data, err := os.ReadFile(dataPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DownloadResult{}, false, nil
		}
		return DownloadResult{}, false, fmt.Errorf("read cache data: %w", err)
	}
	metaBytes, err := os.ReadFile(c.metaPath(fileID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(dataPath)
			return DownloadResult{}, false, nil
		}
		return DownloadResult{}, false, fmt.Errorf("read cache metadata: %w", err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(metaBytes, &entry); err != nil {
		return DownloadResult{}, false, fmt.Errorf("decode cache metadata: %w", err)
	}
	if entry.Fingerprint != "" && entry.Fingerprint != fileutil.Fingerprint(data) {
		if c.logger != nil {
			c.logger.Debug("opensubtitles cache entry corrupt; refetching",
				slog.Int64("file_id", fileID),
				slog.String("path", dataPath),
			)
		}
		return DownloadResult{}, false, nil
	}
	return DownloadResult{
		Data:        data,
		FileName:    entry.FileName,
		Language:    entry.Language,
		DownloadURL: entry.DownloadURL,
		Cached:      true,
	}, true, nil
}

// Store writes the payload and its metadata, returning the data path.
func (c *Cache) Store(fileID int64, result DownloadResult) (string, error) {
	if c == nil {
		return "", errors.New("cache unavailable")
	}
	if fileID <= 0 {
		return "", errors.New("invalid file id")
	}
	entry := CacheEntry{
		FileID:      fileID,
		Language:    strings.TrimSpace(result.Language),
		FileName:    strings.TrimSpace(result.FileName),
		DownloadURL: strings.TrimSpace(result.DownloadURL),
		Fingerprint: fileutil.Fingerprint(result.Data),
		StoredAt:    time.Now().UTC(),
	}
	dataPath := c.dataPath(fileID)
	if err := fileutil.WriteFileAtomic(dataPath, result.Data, 0o644); err != nil {
		return "", err
	}
	metaBytes, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(c.metaPath(fileID), metaBytes, 0o644); err != nil {
		return "", err
	}
	if c.logger != nil {
		c.logger.Debug("opensubtitles cache stored",
			slog.Int64("file_id", fileID),
			slog.String("path", dataPath),
			slog.String("language", entry.Language),
		)
	}
	return dataPath, nil
}

func (c *Cache) dataPath(fileID int64) string {
	return filepath.Join(c.dir, fmt.Sprintf("%d.srt", fileID))
}

func (c *Cache) metaPath(fileID int64) string {
	return filepath.Join(c.dir, fmt.Sprintf("%d.json", fileID))
}
