package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

func tags(names ...string) []domain.Tag {
	out := make([]domain.Tag, len(names))
	for i, n := range names {
		out[i] = domain.Tag{Name: n, Slug: n}
	}
	return out
}

func writeMapping(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuiltinMapping(t *testing.T) {
	m, err := NewMapper("", nil)
	require.NoError(t, err)

	got := m.Resolve(tags("Кино", "мем", "дизайн"))
	assert.Equal(t, []Entry{
		{Slug: "movies", Title: "Кино"},
		{Slug: "memes", Title: "Мемы"},
		{Slug: "tech", Title: "Техно‑фан"},
	}, got)
}

func TestResolve_DedupesCategories(t *testing.T) {
	m, err := NewMapper("", nil)
	require.NoError(t, err)

	got := m.Resolve(tags("фильм", "сериал", "кино"))
	require.Len(t, got, 1)
	assert.Equal(t, "movies", got[0].Slug)
}

func TestResolve_UnknownAndEmpty(t *testing.T) {
	m, err := NewMapper("", nil)
	require.NoError(t, err)

	assert.Empty(t, m.Resolve(nil))
	assert.Empty(t, m.Resolve(tags("котики")))
}

func TestResolve_FallsBackToSlug(t *testing.T) {
	m, err := NewMapper("", nil)
	require.NoError(t, err)

	got := m.Resolve([]domain.Tag{{Name: "CS 2", Slug: "cs2"}})
	require.Len(t, got, 1)
	assert.Equal(t, "games", got[0].Slug)
}

func TestFileMapping(t *testing.T) {
	path := writeMapping(t, `
categories:
  - slug: pets
    title: Питомцы
    tags: [Котики, собаки]
`)
	m, err := NewMapper(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []Entry{{Slug: "pets", Title: "Питомцы"}}, m.Resolve(tags("котики")))
	assert.Empty(t, m.Resolve(tags("кино")), "file mapping replaces the builtin one")
}

func TestFileMapping_FirstMappingWins(t *testing.T) {
	path := writeMapping(t, `
categories:
  - slug: a
    title: A
    tags: [shared]
  - slug: b
    title: B
    tags: [shared, only-b]
`)
	m, err := NewMapper(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "a", m.Resolve(tags("shared"))[0].Slug)
	assert.Equal(t, "b", m.Resolve(tags("only-b"))[0].Slug)
}

func TestFileMapping_Invalid(t *testing.T) {
	_, err := NewMapper(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	path := writeMapping(t, `
categories:
  - slug: ""
    title: Nothing
`)
	_, err = NewMapper(path, nil)
	assert.Error(t, err)
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	path := writeMapping(t, `
categories:
  - slug: pets
    title: Питомцы
    tags: [котики]
`)
	m, err := NewMapper(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("categories: [ {"), 0o644))
	assert.Error(t, m.Reload(path))
	assert.Len(t, m.Resolve(tags("котики")), 1)

	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - slug: dogs
    title: Собаки
    tags: [собаки]
`), 0o644))
	require.NoError(t, m.Reload(path))
	assert.Empty(t, m.Resolve(tags("котики")))
	assert.Len(t, m.Resolve(tags("собаки")), 1)
}
