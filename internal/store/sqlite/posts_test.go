package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

var testEpoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// makeTestPost creates a post whose tags are found or created by slug.
// Posts created later in a test get later timestamps through offset.
func makeTestPost(t *testing.T, s *Store, id string, offset int, published bool, tagSlugs ...string) *domain.Post {
	t.Helper()
	ctx := context.Background()

	created := testEpoch.Add(time.Duration(offset) * time.Minute)
	p := &domain.Post{
		ID:          id,
		AuthorID:    "author-1",
		Title:       "Title " + id,
		Body:        "Body of " + id,
		IsPublished: published,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, slug := range tagSlugs {
		tag, _, err := s.FindOrCreateTagBySlug(ctx, slug, slug)
		if err != nil {
			t.Fatalf("FindOrCreateTagBySlug(%q): %v", slug, err)
		}
		p.Tags = append(p.Tags, *tag)
	}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("CreatePost(%q): %v", id, err)
	}
	return p
}

func postIDs(posts []*domain.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func assertIDs(t *testing.T, got []*domain.Post, want ...string) {
	t.Helper()
	ids := postIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("got ids %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got ids %v, want %v", ids, want)
		}
	}
}

func TestCreateAndGetPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cat, err := s.FindOrCreateCategory(ctx, "movies", "Кино")
	if err != nil {
		t.Fatalf("FindOrCreateCategory: %v", err)
	}
	tag, _, err := s.FindOrCreateTagBySlug(ctx, "кино", "Кино")
	if err != nil {
		t.Fatalf("FindOrCreateTagBySlug: %v", err)
	}

	p := &domain.Post{
		ID:          "post-1",
		AuthorID:    "u1",
		Title:       "Top 7 movies",
		Summary:     "A list",
		Body:        "long text A",
		CoverEmoji:  "🎬",
		MediaPath:   "uploads/u1_abc.png",
		MediaType:   domain.MediaTypeImage,
		IsPublished: true,
		CreatedAt:   testEpoch,
		UpdatedAt:   testEpoch,
		Tags:        []domain.Tag{*tag},
		Categories:  []domain.Category{*cat},
		Tracks: []domain.Track{
			{Title: "Song B", Artist: "Band", Position: 1},
			{Title: "Song A", Artist: "Band", URL: "https://example.com/a", Position: 0},
		},
	}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	got, err := s.GetPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}

	if got.Title != p.Title {
		t.Errorf("Title: got %q, want %q", got.Title, p.Title)
	}
	if got.Summary != p.Summary {
		t.Errorf("Summary: got %q, want %q", got.Summary, p.Summary)
	}
	if got.MediaType != domain.MediaTypeImage {
		t.Errorf("MediaType: got %q, want %q", got.MediaType, domain.MediaTypeImage)
	}
	if !got.IsPublished {
		t.Error("expected published")
	}
	if !got.CreatedAt.Equal(testEpoch) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, testEpoch)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "Кино" {
		t.Errorf("Tags: got %+v", got.Tags)
	}
	if len(got.Categories) != 1 || got.Categories[0].Slug != "movies" {
		t.Errorf("Categories: got %+v", got.Categories)
	}
	if len(got.Tracks) != 2 || got.Tracks[0].Title != "Song A" || got.Tracks[0].URL == "" {
		t.Errorf("Tracks: got %+v", got.Tracks)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPost(context.Background(), "post-missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePost_ReplacesRelations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := makeTestPost(t, s, "post-1", 0, true, "old-tag")
	p.Tracks = []domain.Track{{Title: "One", Artist: "A", Position: 0}}
	p.UpdatedAt = testEpoch.Add(time.Hour)
	if err := s.UpdatePost(ctx, p); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}

	newTag, _, _ := s.FindOrCreateTagBySlug(ctx, "new-tag", "new-tag")
	p.Tags = []domain.Tag{*newTag}
	p.Tracks = []domain.Track{{Title: "Two", Artist: "B", Position: 0}}
	p.Title = "Edited"
	p.IsPublished = false
	if err := s.UpdatePost(ctx, p, &domain.ModerationLog{
		Kind: domain.LogPostAutoHide, Reason: domain.ReasonModeratedTagsEdit, PostID: p.ID,
	}); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}

	got, err := s.GetPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Edited" || got.IsPublished {
		t.Errorf("columns not updated: %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0].Slug != "new-tag" {
		t.Errorf("Tags: got %+v", got.Tags)
	}
	if len(got.Tracks) != 1 || got.Tracks[0].Title != "Two" {
		t.Errorf("Tracks: got %+v", got.Tracks)
	}

	logs, _ := s.ListModerationLogs(ctx, 10)
	if len(logs) != 1 || logs[0].Reason != domain.ReasonModeratedTagsEdit {
		t.Errorf("logs: got %+v", logs)
	}
}

func TestUpdatePost_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdatePost(context.Background(), &domain.Post{ID: "post-missing", UpdatedAt: testEpoch})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePost_CascadesAndLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestPost(t, s, "post-1", 0, true, "drama")
	if err := s.CreateComment(ctx, &domain.Comment{ID: "cmt-1", PostID: "post-1", AuthorID: "u2", Body: "hi", CreatedAt: testEpoch}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := s.ToggleReaction(ctx, "u2", "post-1", domain.ReactionLike, nil); err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if _, err := s.RecordView(ctx, "u2", "post-1", 0.5, false, 10, testEpoch); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	err := s.DeletePost(ctx, "post-1", &domain.ModerationLog{
		Kind: domain.LogPostDeleted, Reason: domain.ReasonBadWordsEdit, PostID: "post-1", Snippet: "x",
	})
	if err != nil {
		t.Fatalf("DeletePost: %v", err)
	}

	for _, table := range []string{"post_tags", "comments", "reactions", "post_views", "tracks"} {
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE post_id = 'post-1'`).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s: got %d rows, want 0", table, n)
		}
	}

	logs, _ := s.ListModerationLogs(ctx, 10)
	if len(logs) != 1 || logs[0].PostID != "post-1" || logs[0].Kind != domain.LogPostDeleted {
		t.Errorf("logs: got %+v", logs)
	}

	// The tag itself is never deleted with its posts.
	if _, err := s.GetTagBySlug(ctx, "drama"); err != nil {
		t.Errorf("tag should survive: %v", err)
	}
}

func TestDeletePost_NotFoundWritesNoLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.DeletePost(ctx, "post-missing", &domain.ModerationLog{Kind: domain.LogPostDeleted})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	logs, _ := s.ListModerationLogs(ctx, 10)
	if len(logs) != 0 {
		t.Errorf("expected no logs after rollback, got %d", len(logs))
	}
}

func TestListPublishedPosts_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestPost(t, s, "post-1", 0, true, "music")
	makeTestPost(t, s, "post-2", 1, true, "games")
	makeTestPost(t, s, "post-3", 2, false, "music")
	p4 := makeTestPost(t, s, "post-4", 3, true)
	p4.Body = "Привет, МИР"
	if err := s.UpdatePost(ctx, p4); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}

	all, err := s.ListPublishedPosts(ctx, domain.PostFilter{})
	if err != nil {
		t.Fatalf("ListPublishedPosts: %v", err)
	}
	assertIDs(t, all, "post-4", "post-2", "post-1")

	byTag, _ := s.ListPublishedPosts(ctx, domain.PostFilter{TagSlug: "music"})
	assertIDs(t, byTag, "post-1")

	byQuery, _ := s.ListPublishedPosts(ctx, domain.PostFilter{Query: "мир"})
	assertIDs(t, byQuery, "post-4")

	limited, _ := s.ListPublishedPosts(ctx, domain.PostFilter{Limit: 2})
	assertIDs(t, limited, "post-4", "post-2")
}

func TestListPublishedCorpus_OrderAndExclusion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestPost(t, s, "post-b", 0, true)
	makeTestPost(t, s, "post-a", 0, true) // Same timestamp, inserted later
	makeTestPost(t, s, "post-c", 1, true)
	makeTestPost(t, s, "post-d", 2, false)

	got, err := s.ListPublishedCorpus(ctx, "post-c")
	if err != nil {
		t.Fatalf("ListPublishedCorpus: %v", err)
	}
	assertIDs(t, got, "post-b", "post-a")
}

func TestListPublishedByTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := makeTestPost(t, s, "post-1", 0, true, "rock", "jazz")
	makeTestPost(t, s, "post-2", 1, true, "rock")
	makeTestPost(t, s, "post-3", 2, true, "games")
	makeTestPost(t, s, "post-4", 3, false, "rock")
	makeTestPost(t, s, "post-5", 4, true, "jazz")

	got, err := s.ListPublishedByTags(ctx, p1.TagIDs(), []string{"post-5"}, 10)
	if err != nil {
		t.Fatalf("ListPublishedByTags: %v", err)
	}
	// post-1 carries both tags but appears once.
	assertIDs(t, got, "post-2", "post-1")
	if len(got[1].Tags) != 2 {
		t.Errorf("expected tags loaded, got %+v", got[1].Tags)
	}

	capped, _ := s.ListPublishedByTags(ctx, p1.TagIDs(), nil, 1)
	assertIDs(t, capped, "post-5")
}

func TestListPopularPosts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestPost(t, s, "post-1", 0, true)
	makeTestPost(t, s, "post-2", 1, true)
	makeTestPost(t, s, "post-3", 2, true)
	makeTestPost(t, s, "post-4", 3, false)

	like := func(user, post string) {
		if _, err := s.ToggleReaction(ctx, user, post, domain.ReactionLike, nil); err != nil {
			t.Fatalf("like: %v", err)
		}
	}
	like("u1", "post-1")
	like("u2", "post-1")
	like("u1", "post-2")
	like("u1", "post-4")
	if _, err := s.ToggleReaction(ctx, "u1", "post-3", domain.ReactionDislike, nil); err != nil {
		t.Fatalf("dislike: %v", err)
	}

	got, err := s.ListPopularPosts(ctx, 10)
	if err != nil {
		t.Fatalf("ListPopularPosts: %v", err)
	}
	assertIDs(t, got, "post-1", "post-2")
}

func TestListFreshPosts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestPost(t, s, "post-1", 0, true)
	makeTestPost(t, s, "post-2", 1, true)
	makeTestPost(t, s, "post-3", 2, true)

	got, err := s.ListFreshPosts(ctx, []string{"post-3"}, 10)
	if err != nil {
		t.Fatalf("ListFreshPosts: %v", err)
	}
	assertIDs(t, got, "post-2", "post-1")
}

func TestSearchAllPosts_IncludesHidden(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := makeTestPost(t, s, "post-1", 0, false)
	p.Summary = "secret summary"
	if err := s.UpdatePost(ctx, p); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	makeTestPost(t, s, "post-2", 1, true)

	got, err := s.SearchAllPosts(ctx, "SECRET", 100)
	if err != nil {
		t.Fatalf("SearchAllPosts: %v", err)
	}
	assertIDs(t, got, "post-1")
}

func TestGetPostsByIDs_PreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestPost(t, s, "post-1", 0, true)
	makeTestPost(t, s, "post-2", 1, true)

	got, err := s.GetPostsByIDs(ctx, []string{"post-2", "post-missing", "post-1"})
	if err != nil {
		t.Fatalf("GetPostsByIDs: %v", err)
	}
	assertIDs(t, got, "post-2", "post-1")
}

func TestRandomPublishedPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RandomPublishedPost(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	makeTestPost(t, s, "post-1", 0, false)
	makeTestPost(t, s, "post-2", 1, true)

	got, err := s.RandomPublishedPost(ctx)
	if err != nil {
		t.Fatalf("RandomPublishedPost: %v", err)
	}
	if got.ID != "post-2" {
		t.Errorf("got %q, want post-2", got.ID)
	}
}
