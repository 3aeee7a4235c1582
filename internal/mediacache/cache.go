package mediacache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// Category groups all records of the photo-repair conversation.
const Category = "barbara"

// Cache is a read-through analysis cache: a lookup miss downloads the media,
// writes the raw bytes to the media directory, runs the AI description and
// stores the result. Entries expire after the configured TTL, checked lazily
// on every read; evicting an entry also removes its on-disk copy. Concurrent
// misses for the same file are collapsed into a single download-and-analyze
// flight.
type Cache struct {
	store   schemas.AnalysisStore
	fetcher schemas.MediaFetcher
	ai      schemas.AIService
	ttl     time.Duration
	dir     string
	group   singleflight.Group
	now     func() time.Time
	log     *zap.Logger
}

// New builds a read-through cache over the given store. Downloaded media is
// kept under dir; an empty dir disables the on-disk copies.
func New(store schemas.AnalysisStore, fetcher schemas.MediaFetcher, ai schemas.AIService, ttl time.Duration, dir string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:   store,
		fetcher: fetcher,
		ai:      ai,
		ttl:     ttl,
		dir:     dir,
		now:     time.Now,
		log:     logger.Named("mediacache"),
	}
}

// Get returns the fresh cached analysis for the file, or nil when absent or
// expired. Expired entries are deleted on the way out.
func (c *Cache) Get(ctx context.Context, fileName string) (*schemas.MediaAnalysis, error) {
	entry, err := c.store.Get(ctx, fileName)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	if c.expired(*entry) {
		c.log.Debug("Evicting expired analysis", zap.String("filename", fileName))
		if err := c.store.Delete(ctx, fileName); err != nil {
			c.log.Warn("Failed to evict expired analysis", zap.String("filename", fileName), zap.Error(err))
		}
		c.removeMedia(fileName)
		return nil, nil
	}
	entry.Cached = true
	return entry, nil
}

// Analyze returns the analysis for the file, producing and caching it when no
// fresh entry exists. The returned record's Cached flag tells the caller
// whether the description came from the store or from a fresh AI call.
func (c *Cache) Analyze(ctx context.Context, fileName string) (*schemas.MediaAnalysis, error) {
	if cached, err := c.Get(ctx, fileName); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	result, err, _ := c.group.Do(fileName, func() (any, error) {
		// Another flight may have filled the cache while this one queued.
		if cached, err := c.Get(ctx, fileName); err != nil {
			return nil, err
		} else if cached != nil {
			return cached, nil
		}
		return c.analyze(ctx, fileName)
	})
	if err != nil {
		return nil, err
	}
	return result.(*schemas.MediaAnalysis), nil
}

func (c *Cache) analyze(ctx context.Context, fileName string) (*schemas.MediaAnalysis, error) {
	url := c.fetcher.MediaURL(fileName)
	data, err := c.fetcher.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", fileName, err)
	}
	if err := c.writeMedia(fileName, data); err != nil {
		c.log.Warn("Failed to write media file", zap.String("filename", fileName), zap.Error(err))
	}

	dataURI := "data:" + mimeForFile(fileName) + ";base64," + base64.StdEncoding.EncodeToString(data)
	description, err := c.ai.AnalyzeImage(ctx, dataURI)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", fileName, err)
	}

	now := c.now().UTC()
	analysis := schemas.MediaAnalysis{
		FileName:    fileName,
		FileType:    strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), "."),
		Description: description,
		RawBytes:    data,
		Category:    Category,
		URL:         url,
		Cached:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.Save(ctx, analysis); err != nil {
		return nil, err
	}

	c.log.Info("Analyzed and cached media",
		zap.String("filename", fileName),
		zap.Int("bytes", len(data)))
	return &analysis, nil
}

// Save writes the analysis through to the store.
func (c *Cache) Save(ctx context.Context, analysis schemas.MediaAnalysis) error {
	if analysis.UpdatedAt.IsZero() {
		analysis.UpdatedAt = c.now().UTC()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = analysis.UpdatedAt
	}
	if analysis.Category == "" {
		analysis.Category = Category
	}
	return c.store.Put(ctx, analysis)
}

// All returns every fresh cached analysis, newest first. Expired entries are
// skipped and deleted along the way.
func (c *Cache) All(ctx context.Context) ([]schemas.MediaAnalysis, error) {
	entries, err := c.store.List(ctx, Category)
	if err != nil {
		return nil, err
	}
	fresh := make([]schemas.MediaAnalysis, 0, len(entries))
	for _, entry := range entries {
		if c.expired(entry) {
			if err := c.store.Delete(ctx, entry.FileName); err != nil {
				c.log.Warn("Failed to evict expired analysis", zap.String("filename", entry.FileName), zap.Error(err))
			}
			c.removeMedia(entry.FileName)
			continue
		}
		entry.Cached = true
		fresh = append(fresh, entry)
	}
	return fresh, nil
}

// Cleanup sweeps all expired entries out of the store and reports how many
// were removed.
func (c *Cache) Cleanup(ctx context.Context) (int, error) {
	entries, err := c.store.List(ctx, Category)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if !c.expired(entry) {
			continue
		}
		if err := c.store.Delete(ctx, entry.FileName); err != nil {
			return removed, fmt.Errorf("evicting %s: %w", entry.FileName, err)
		}
		c.removeMedia(entry.FileName)
		removed++
	}
	if removed > 0 {
		c.log.Info("Cache cleanup complete", zap.Int("removed", removed))
	}
	return removed, nil
}

// Clear drops every cached analysis of the category along with its media
// file.
func (c *Cache) Clear(ctx context.Context) error {
	entries, err := c.store.List(ctx, Category)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		c.removeMedia(entry.FileName)
	}
	return c.store.Clear(ctx, Category)
}

// MediaPath returns the on-disk location of a downloaded file, or "" when no
// media directory is configured.
func (c *Cache) MediaPath(fileName string) string {
	if c.dir == "" {
		return ""
	}
	return filepath.Join(c.dir, filepath.Base(fileName))
}

func (c *Cache) writeMedia(fileName string, data []byte) error {
	target := c.MediaPath(fileName)
	if target == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

func (c *Cache) removeMedia(fileName string) {
	target := c.MediaPath(fileName)
	if target == "" {
		return
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.log.Warn("Failed to remove media file", zap.String("filename", fileName), zap.Error(err))
	}
}

func (c *Cache) expired(entry schemas.MediaAnalysis) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.UpdatedAt) > c.ttl
}

// mimeForFile maps the recognized image extensions to their MIME types. The
// extractor only admits these extensions, so the fallback rarely fires.
func mimeForFile(fileName string) string {
	switch strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".") {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
