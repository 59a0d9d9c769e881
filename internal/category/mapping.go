// Package category derives post categories from tags through a
// YAML mapping that can be replaced while the server runs.
package category

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/normalize"
)

//go:embed default.yaml
var defaultMapping []byte

// Group is one category and the tag names that select it.
type Group struct {
	Slug  string   `koanf:"slug"`
	Title string   `koanf:"title"`
	Tags  []string `koanf:"tags"`
}

// Entry is a resolved category.
type Entry struct {
	Slug  string
	Title string
}

// table maps a lowercased tag name or slug to its category.
type table struct {
	source  string
	entries map[string]Entry
	groups  int
}

// Mapper resolves tags to categories. Reload swaps the table atomically,
// so concurrent Resolve calls see either the old or the new mapping.
type Mapper struct {
	current atomic.Pointer[table]
	logger  *slog.Logger
}

// NewMapper loads the mapping from path, or the built-in mapping when
// path is empty.
func NewMapper(path string, logger *slog.Logger) (*Mapper, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Mapper{logger: logger}
	if err := m.Reload(path); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads the mapping. On error the previous mapping stays active.
func (m *Mapper) Reload(path string) error {
	t, err := load(path, m.logger)
	if err != nil {
		return err
	}
	m.current.Store(t)
	m.logger.Info("category mapping loaded", "source", t.source, "categories", t.groups, "tags", len(t.entries))
	return nil
}

// Resolve returns the distinct categories selected by tags, in the order
// their first tag appears.
func (m *Mapper) Resolve(tags []domain.Tag) []Entry {
	t := m.current.Load()
	seen := make(map[string]struct{})
	out := []Entry{}
	for _, tag := range tags {
		e, ok := t.entries[normalize.Lower(strings.TrimSpace(tag.Name))]
		if !ok {
			e, ok = t.entries[tag.Slug]
		}
		if !ok {
			continue
		}
		if _, dup := seen[e.Slug]; dup {
			continue
		}
		seen[e.Slug] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Len reports how many tag names are mapped.
func (m *Mapper) Len() int {
	return len(m.current.Load().entries)
}

// embedded serves the built-in mapping to koanf.
type embedded []byte

func (e embedded) ReadBytes() ([]byte, error) { return e, nil }

func (e embedded) Read() (map[string]any, error) {
	return nil, errors.New("embedded provider does not support this method")
}

func load(path string, logger *slog.Logger) (*table, error) {
	k := koanf.New(".")

	var provider koanf.Provider = embedded(defaultMapping)
	source := "builtin"
	if path != "" {
		provider = file.Provider(path)
		source = path
	}
	if err := k.Load(provider, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load category mapping %s: %w", source, err)
	}

	var groups []Group
	if err := k.Unmarshal("categories", &groups); err != nil {
		return nil, fmt.Errorf("decode category mapping %s: %w", source, err)
	}

	t := &table{source: source, entries: make(map[string]Entry), groups: len(groups)}
	for i, g := range groups {
		slug := strings.TrimSpace(g.Slug)
		title := strings.TrimSpace(g.Title)
		if slug == "" || title == "" {
			return nil, fmt.Errorf("category mapping %s: entry %d needs slug and title", source, i)
		}
		entry := Entry{Slug: slug, Title: title}
		for _, name := range g.Tags {
			key := normalize.Lower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			if prev, ok := t.entries[key]; ok && prev.Slug != slug {
				logger.Warn("tag mapped twice, keeping first", "tag", key, "kept", prev.Slug, "ignored", slug)
				continue
			}
			t.entries[key] = entry
		}
	}
	return t, nil
}
