package search

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

const (
	indexDirName    = "posts.bleve"
	versionFileName = "posts.version"

	// mappingVersion changes whenever buildIndexMapping does. An index
	// written under another version is dropped and rebuilt on open.
	mappingVersion = "1"

	batchSize = 500
)

// SearchIndex wraps a Bleve index of posts. It is safe for concurrent use;
// Rebuild takes the write lock, every other call the read lock.
type SearchIndex struct {
	index       bleve.Index
	path        string
	versionPath string
	logger      *slog.Logger
	mu          sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory holding the index
	Logger   *slog.Logger // Discards when nil
}

// NewSearchIndex opens the index under opts.DataPath, creating it when
// missing. An unreadable index or one with a stale mapping version is
// recreated empty; callers repopulate it with Reindex.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &SearchIndex{
		path:        filepath.Join(opts.DataPath, indexDirName),
		versionPath: filepath.Join(opts.DataPath, versionFileName),
		logger:      logger,
	}

	index, err := s.open()
	if err != nil {
		return nil, err
	}
	s.index = index
	return s, nil
}

// open returns the existing index when it is usable, or a fresh one.
func (s *SearchIndex) open() (bleve.Index, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return s.create()
	}

	if v := s.storedVersion(); v != mappingVersion {
		s.logger.Info("search index mapping changed, recreating",
			"stored_version", v,
			"mapping_version", mappingVersion,
		)
		return s.recreate()
	}

	index, err := bleve.Open(s.path)
	if err != nil {
		s.logger.Warn("search index unreadable, recreating", "path", s.path, "error", err)
		return s.recreate()
	}
	s.logger.Info("opened search index", "path", s.path)
	return index, nil
}

// storedVersion is the mapping version the index on disk was built with,
// or "" when unknown.
func (s *SearchIndex) storedVersion() string {
	raw, err := os.ReadFile(s.versionPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (s *SearchIndex) recreate() (bleve.Index, error) {
	if err := os.RemoveAll(s.path); err != nil {
		return nil, fmt.Errorf("remove index: %w", err)
	}
	return s.create()
}

func (s *SearchIndex) create() (bleve.Index, error) {
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(s.versionPath, []byte(mappingVersion), 0o644); err != nil {
		s.logger.Warn("failed to write search index version", "error", err)
	}
	s.logger.Info("created search index", "path", s.path, "mapping_version", mappingVersion)
	return index, nil
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexPost adds or replaces a post.
func (s *SearchIndex) IndexPost(p *domain.Post) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(p.ID, PostToDocument(p).ToMap())
}

// IndexPosts adds or replaces posts in batches.
func (s *SearchIndex) IndexPosts(posts []*domain.Post) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(posts); start += batchSize {
		batch := s.index.NewBatch()
		for _, p := range posts[start:min(start+batchSize, len(posts))] {
			if err := batch.Index(p.ID, PostToDocument(p).ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", p.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch at %d: %w", start, err)
		}
	}
	return nil
}

// DeletePost removes a post. Unknown ids are ignored.
func (s *SearchIndex) DeletePost(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the number of indexed posts.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the index with an empty one. Searches block until it
// returns.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	index, err := s.recreate()
	if err != nil {
		return err
	}
	s.index = index
	return nil
}

// Reindex rebuilds the index from posts.
func (s *SearchIndex) Reindex(posts []*domain.Post) error {
	if err := s.Rebuild(); err != nil {
		return err
	}
	if err := s.IndexPosts(posts); err != nil {
		return fmt.Errorf("index posts: %w", err)
	}
	s.logger.Info("reindexed posts", "count", len(posts))
	return nil
}
