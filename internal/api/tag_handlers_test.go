package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtheticGlitch/Enterra/internal/service"
)

func TestListTags(t *testing.T) {
	ts := setupTestServer(t)

	empty := decodeData[TagCloudResponse](t, ts.api.Get("/api/v1/tags"))
	assert.NotNil(t, empty.Tags)
	assert.Empty(t, empty.Tags)

	ts.createPost(t, author, "First", "alpha", "beta")
	ts.createPost(t, author, "Second", "beta")

	cloud := decodeData[TagCloudResponse](t, ts.api.Get("/api/v1/tags"))
	require.Len(t, cloud.Tags, 2)
	assert.Equal(t, "beta", cloud.Tags[0].Slug)
	assert.Equal(t, 2, cloud.Tags[0].PostCount)
	assert.Equal(t, "alpha", cloud.Tags[1].Slug)
}

func TestCheckTag(t *testing.T) {
	ts := setupTestServer(t)
	ts.createPost(t, author, "Tagged", "Научная Фантастика")

	got := decodeData[service.TagCheck](t, ts.api.Get("/api/v1/tags/check?name=%20%D0%BD%D0%B0%D1%83%D1%87%D0%BD%D0%B0%D1%8F%20%D1%84%D0%B0%D0%BD%D1%82%D0%B0%D1%81%D1%82%D0%B8%D0%BA%D0%B0"))
	require.True(t, got.Exists)
	assert.Equal(t, "научная-фантастика", got.Tag.Slug)

	got = decodeData[service.TagCheck](t, ts.api.Get("/api/v1/tags/check?name=westerns"))
	assert.False(t, got.Exists)
	assert.Nil(t, got.Tag)

	resp := ts.api.Get("/api/v1/tags/check")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestSuggestTags(t *testing.T) {
	ts := setupTestServer(t)
	ts.createPost(t, author, "Tagged", "jazz", "jazzfunk", "rock")

	got := decodeData[TagListResponse](t, ts.api.Get("/api/v1/tags/suggestions?q=JAZ"))
	var slugs []string
	for _, tag := range got.Tags {
		slugs = append(slugs, tag.Slug)
	}
	assert.ElementsMatch(t, []string{"jazz", "jazzfunk"}, slugs)

	short := decodeData[TagListResponse](t, ts.api.Get("/api/v1/tags/suggestions?q=j"))
	assert.NotNil(t, short.Tags)
	assert.Empty(t, short.Tags)
}

func TestRecommendTags(t *testing.T) {
	ts := setupTestServer(t)

	liked := ts.createPost(t, author, "Liked", "jazz")
	ts.createPost(t, author, "Popular one", "rock", "pop")
	ts.createPost(t, author, "Popular two", "rock")

	resp := ts.api.Post("/api/v1/posts/"+liked.ID+"/reactions/like", ts.bearer(t, reader))
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeData[TagScoresResponse](t, ts.api.Get("/api/v1/tags/recommendations", ts.bearer(t, reader)))
	require.Len(t, got.Tags, 3)
	assert.Equal(t, "jazz", got.Tags[0].Slug)
	assert.InDelta(t, 1.0, got.Tags[0].Score, 1e-9)
	assert.Equal(t, "rock", got.Tags[1].Slug)
}

func TestListCategories(t *testing.T) {
	ts := setupTestServer(t)
	ts.createPost(t, author, "Movie and music", "кино", "музыка")
	ts.createPost(t, author, "Just chatting", "random")

	got := decodeData[CategoryListResponse](t, ts.api.Get("/api/v1/categories"))
	var slugs []string
	for _, c := range got.Categories {
		slugs = append(slugs, c.Slug)
	}
	assert.ElementsMatch(t, []string{"movies", "music"}, slugs)

	filtered := decodeData[PostListResponse](t, ts.api.Get("/api/v1/posts?category=music"))
	require.Len(t, filtered.Posts, 1)
	assert.Equal(t, "Movie and music", filtered.Posts[0].Title)
}
