package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/search"
)

func slugsOf(tags []domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Slug
	}
	return out
}

func TestParseTags(t *testing.T) {
	tags := ParseTags([]string{"Кино", " мем, КИНО ", "", "!!!", "Sci Fi"})
	assert.Equal(t, []string{"кино", "мем", "sci-fi"}, slugsOf(tags))
	assert.Equal(t, "Кино", tags[0].Name, "first spelling wins")
	assert.Empty(t, ParseTags(nil))
}

func TestPostCreate_Published(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.posts.Create(ctx, author, PostInput{
		Title:   "Weekend movie night",
		Summary: "  what we watched  ",
		Body:    testBody,
		Tags:    []string{"Кино", "мем, кино"},
		Tracks: []TrackInput{
			{Title: "Theme", Artist: "Orchestra"},
			{Title: "Credits", Artist: "Band", URL: "https://example.com/credits"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePublished, res.Outcome)
	assert.Nil(t, res.Duplicate)
	assert.False(t, res.FileRejected)

	stored, err := env.store.GetPost(ctx, res.Post.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPublished)
	assert.Equal(t, "what we watched", stored.Summary)
	assert.ElementsMatch(t, []string{"кино", "мем"}, slugsOf(stored.Tags))

	var cats []string
	for _, c := range stored.Categories {
		cats = append(cats, c.Slug)
	}
	assert.ElementsMatch(t, []string{"movies", "memes"}, cats)

	require.Len(t, stored.Tracks, 2)
	assert.Equal(t, 0, stored.Tracks[0].Position)
	assert.Equal(t, "Credits", stored.Tracks[1].Title)

	assert.Empty(t, env.logsOf(t, domain.LogPostAutoHide))
}

func TestPostCreate_Draft(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.posts.Create(context.Background(), author, PostInput{
		Title:   "Not ready yet",
		Body:    testBody,
		Publish: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDraft, res.Outcome)
	assert.False(t, res.Post.IsPublished)
}

func TestPostCreate_RequiresUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.posts.Create(context.Background(), anon, PostInput{Title: "Hello", Body: testBody})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestPostCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   PostInput
	}{
		{"short title", PostInput{Title: "Hi", Body: testBody}},
		{"blank body", PostInput{Title: "Hello there", Body: "   "}},
		{"short body", PostInput{Title: "Hello there", Body: "too short"}},
		{"long tag", PostInput{Title: "Hello there", Body: testBody, Tags: []string{strings.Repeat("x", 51)}}},
		{"track without artist", PostInput{Title: "Hello there", Body: testBody, Tracks: []TrackInput{{Title: "Song"}}}},
		{"bad track url", PostInput{Title: "Hello there", Body: testBody, Tracks: []TrackInput{{Title: "Song", Artist: "A", URL: "not a url"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.Create(ctx, author, tt.in)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}

	posts, err := env.posts.List(ctx, domain.PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostCreate_BannedWordsRemoved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.posts.Create(ctx, author, PostInput{
		Title: "Totally legit offer",
		Body:  "This is not a SCAM, trust me, it is great.",
	})
	require.ErrorIs(t, err, domainerrors.ErrPolicyRejected)

	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, map[string]any{"outcome": domain.OutcomeRemoved}, de.Details)

	posts, err := env.posts.List(ctx, domain.PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)

	logs := env.logsOf(t, domain.LogPostDeleted)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ReasonBadWords, logs[0].Reason)
	assert.Equal(t, author.UserID, logs[0].UserID)
	assert.Empty(t, logs[0].PostID)
	assert.Contains(t, logs[0].Snippet, "Totally legit offer")
}

func TestPostCreate_AutoModerationOffAllowsWords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.moderation.SetAutoModeration(ctx, admin, false)
	require.NoError(t, err)

	res, err := env.posts.Create(ctx, author, PostInput{Title: "Spam recipes", Body: testBody})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePublished, res.Outcome)
}

func TestPostCreate_ModeratedTagPendingReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createPost(t, reader, "Older drama post", "drama")
	res, err := env.moderation.ToggleTagModeration(ctx, admin, first.Tags[0].ID)
	require.NoError(t, err)
	require.True(t, res.Moderated)
	assert.Equal(t, 1, res.Hidden)

	out, err := env.posts.Create(ctx, author, PostInput{
		Title: "New drama post",
		Body:  testBody,
		Tags:  []string{"Drama"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePendingReview, out.Outcome)
	assert.False(t, out.Post.IsPublished)

	logs := env.logsOf(t, domain.LogPostAutoHide)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ReasonModeratedTags, logs[0].Reason)
	assert.Equal(t, out.Post.ID, logs[0].PostID)

	// The author still sees it; others do not.
	_, err = env.posts.Get(ctx, author, out.Post.ID)
	require.NoError(t, err)
	_, err = env.posts.Get(ctx, reader, out.Post.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = env.posts.Get(ctx, admin, out.Post.ID)
	assert.NoError(t, err)
}

func TestPostCreate_MediaSaved(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.posts.Create(context.Background(), author, PostInput{
		Title: "Look at this cat",
		Body:  testBody,
		Media: upload("Cat.PNG", "not really a png"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Post.MediaPath, "uploads/u-author_"), res.Post.MediaPath)
	assert.Equal(t, domain.MediaTypeImage, res.Post.MediaType)
	assert.True(t, env.uploads.Exists(res.Post.MediaPath))
}

func TestPostCreate_FileBlocked(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.posts.Create(context.Background(), author, PostInput{
		Title: "Free download inside",
		Body:  testBody,
		Media: upload("setup.exe", "MZ"),
	})
	require.NoError(t, err)

	assert.True(t, res.FileRejected)
	assert.Equal(t, domain.OutcomePublished, res.Outcome)
	assert.Empty(t, res.Post.MediaPath)

	logs := env.logsOf(t, domain.LogFileBlocked)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ReasonBadFile, logs[0].Reason)
	assert.Equal(t, "setup.exe", logs[0].Snippet)
	assert.Empty(t, logs[0].PostID)
}

func TestPostCreate_FileInvalidWithoutAutoModeration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.moderation.SetAutoModeration(ctx, admin, false)
	require.NoError(t, err)

	_, err = env.posts.Create(ctx, author, PostInput{
		Title: "Free download inside",
		Body:  testBody,
		Media: upload("setup.exe", "MZ"),
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Empty(t, env.logsOf(t, domain.LogFileBlocked))
}

func TestPostCreate_DuplicateWarning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original := env.createPost(t, reader, "The best pizza in town")

	res, err := env.posts.Create(ctx, author, PostInput{
		Title: original.Title,
		Body:  original.Body,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Duplicate)
	assert.Equal(t, original.ID, res.Duplicate.PostID)
	assert.Equal(t, "danger", res.Duplicate.Severity)
	assert.InDelta(t, 1.0, res.Duplicate.Score, 1e-9)

	// A duplicate is a warning, not a refusal.
	assert.Equal(t, domain.OutcomePublished, res.Outcome)
}

func TestPostCreate_RateLimited(t *testing.T) {
	env := newTestEnv(t, withLimiter(1, 1))
	ctx := context.Background()

	_, err := env.posts.Create(ctx, author, PostInput{Title: "First post", Body: testBody})
	require.NoError(t, err)

	_, err = env.posts.Create(ctx, author, PostInput{Title: "Second post", Body: testBody})
	assert.ErrorIs(t, err, domainerrors.ErrRateLimited)

	// Other users have their own budget.
	_, err = env.posts.Create(ctx, reader, PostInput{Title: "Reader post", Body: testBody})
	assert.NoError(t, err)
}

func TestPostUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.createPost(t, author, "Original title", "кино")

	res, err := env.posts.Update(ctx, author, post.ID, PostInput{
		Title: "Edited title",
		Body:  testBody,
		Tags:  []string{"игры"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePublished, res.Outcome)

	stored, err := env.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited title", stored.Title)
	assert.Equal(t, []string{"игры"}, slugsOf(stored.Tags))
	require.Len(t, stored.Categories, 1)
	assert.Equal(t, "games", stored.Categories[0].Slug)
	assert.False(t, stored.UpdatedAt.Before(post.UpdatedAt))
}

func TestPostUpdate_Permissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.createPost(t, author, "Mine to edit")
	in := PostInput{Title: "Hijacked", Body: testBody}

	_, err := env.posts.Update(ctx, reader, post.ID, in)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = env.posts.Update(ctx, anon, post.ID, in)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	_, err = env.posts.Update(ctx, admin, post.ID, PostInput{Title: "Fixed by admin", Body: testBody})
	assert.NoError(t, err)

	_, err = env.posts.Update(ctx, author, "p_missing", in)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPostUpdate_HiddenPostIsNotFoundForOthers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.createPost(t, author, "Soon to be hidden")
	_, err := env.moderation.TogglePost(ctx, admin, post.ID)
	require.NoError(t, err)

	_, err = env.posts.Update(ctx, reader, post.ID, PostInput{Title: "Hijacked", Body: testBody})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPostUpdate_BannedWordsDeletePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.posts.Create(ctx, author, PostInput{
		Title: "Innocent start",
		Body:  testBody,
		Media: upload("photo.jpg", "jpeg bytes"),
	})
	require.NoError(t, err)
	post := res.Post
	_, err = env.interactions.AddComment(ctx, reader, post.ID, CommentInput{Body: "Nice one"})
	require.NoError(t, err)

	_, err = env.posts.Update(ctx, author, post.ID, PostInput{
		Title: "Innocent start",
		Body:  "Now with extra spam in the body text.",
	})
	require.ErrorIs(t, err, domainerrors.ErrPolicyRejected)

	_, err = env.store.GetPost(ctx, post.ID)
	assert.Error(t, err)
	assert.False(t, env.uploads.Exists(post.MediaPath))

	comments, err := env.store.ListAllComments(ctx)
	require.NoError(t, err)
	assert.Empty(t, comments)

	logs := env.logsOf(t, domain.LogPostDeleted)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ReasonBadWordsEdit, logs[0].Reason)
	assert.Equal(t, post.ID, logs[0].PostID)
}

func TestPostUpdate_ModeratedTagHides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tagged := env.createPost(t, reader, "Politics today", "politics")
	_, err := env.moderation.ToggleTagModeration(ctx, admin, tagged.Tags[0].ID)
	require.NoError(t, err)

	post := env.createPost(t, author, "Harmless post")
	res, err := env.posts.Update(ctx, author, post.ID, PostInput{
		Title: "Harmless post",
		Body:  testBody,
		Tags:  []string{"Politics"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePendingReview, res.Outcome)

	logs := env.logsOf(t, domain.LogPostAutoHide)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ReasonModeratedTagsEdit, logs[0].Reason)
	assert.Equal(t, post.ID, logs[0].PostID)
}

func TestPostUpdate_ReplacesMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.posts.Create(ctx, author, PostInput{
		Title: "Clip of the day",
		Body:  testBody,
		Media: upload("clip.mp4", "video"),
	})
	require.NoError(t, err)
	oldPath := res.Post.MediaPath
	assert.Equal(t, domain.MediaTypeVideo, res.Post.MediaType)

	// An edit without a file keeps the current one.
	_, err = env.posts.Update(ctx, author, res.Post.ID, PostInput{Title: "Clip of the day", Body: testBody})
	require.NoError(t, err)
	assert.True(t, env.uploads.Exists(oldPath))

	up, err := env.posts.Update(ctx, author, res.Post.ID, PostInput{
		Title: "Clip of the day",
		Body:  testBody,
		Media: upload("still.webp", "image"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldPath, up.Post.MediaPath)
	assert.False(t, env.uploads.Exists(oldPath))
	assert.True(t, env.uploads.Exists(up.Post.MediaPath))
	assert.Equal(t, domain.MediaTypeImage, up.Post.MediaType)
}

func TestPostDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.createPost(t, author, "Short lived")

	assert.ErrorIs(t, env.posts.Delete(ctx, reader, post.ID), domainerrors.ErrForbidden)
	require.NoError(t, env.posts.Delete(ctx, author, post.ID))
	assert.ErrorIs(t, env.posts.Delete(ctx, author, post.ID), domainerrors.ErrNotFound)
}

func TestPostGet_ViewerState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createPost(t, author, "Rockets and space", "space", "science")
	second := env.createPost(t, author, "Telescopes tonight", "space", "astronomy")

	_, err := env.interactions.React(ctx, reader, first.ID, "like")
	require.NoError(t, err)
	_, err = env.interactions.React(ctx, reader, second.ID, "like")
	require.NoError(t, err)
	_, err = env.interactions.RecordView(ctx, reader, second.ID, ViewInput{Progress: 0.5})
	require.NoError(t, err)
	_, err = env.interactions.AddComment(ctx, reader, second.ID, CommentInput{Body: "Clear skies!"})
	require.NoError(t, err)

	detail, err := env.posts.Get(ctx, reader, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionLike, detail.ViewerReaction)
	require.NotNil(t, detail.ViewerView)
	assert.InDelta(t, 0.5, detail.ViewerView.Progress, 1e-9)
	assert.Equal(t, 1, detail.Reactions[domain.ReactionLike])
	require.Len(t, detail.Comments, 1)
	assert.ElementsMatch(t, []string{"science", "space"}, slugsOf(detail.SimilarTags))

	// Anonymous viewers get counts but no personal state.
	anonDetail, err := env.posts.Get(ctx, anon, second.ID)
	require.NoError(t, err)
	assert.Empty(t, anonDetail.ViewerReaction)
	assert.Nil(t, anonDetail.ViewerView)
	assert.Empty(t, anonDetail.SimilarTags)
}

func TestPostList_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createPost(t, author, "Movie review", "кино")
	env.createPost(t, author, "Game review", "игры")
	_, err := env.posts.Create(ctx, author, PostInput{Title: "Draft review", Body: testBody, Publish: boolPtr(false)})
	require.NoError(t, err)

	all, err := env.posts.List(ctx, domain.PostFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Game review", all[0].Title, "newest first")

	movies, err := env.posts.List(ctx, domain.PostFilter{CategorySlug: "movies"})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Movie review", movies[0].Title)

	byQuery, err := env.posts.List(ctx, domain.PostFilter{Query: "  GAME "})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
}

func TestPostRandom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.posts.Random(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	post := env.createPost(t, author, "Only one here")
	got, err := env.posts.Random(ctx)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
}

func TestPostSimilar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createPost(t, author, "Homemade sourdough bread guide")
	b := env.createPost(t, reader, "Homemade sourdough bread guide")
	env.createPost(t, reader, "Completely unrelated rocket launch")

	matches, err := env.posts.Similar(ctx, anon, a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, b.ID, matches[0].Post.ID)
	for _, m := range matches {
		assert.NotEqual(t, a.ID, m.Post.ID)
	}
}

func TestPostSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.createPost(t, author, "Graphene batteries explained", "science")
	env.createPost(t, author, "Knitting for beginners")

	hits, err := env.posts.Search(ctx, search.SearchParams{Query: "graphene"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, post.ID, hits[0].ID)

	// Tag moderation hides in bulk without touching the index; the hit
	// must still be filtered out.
	_, err = env.moderation.ToggleTagModeration(ctx, admin, post.Tags[0].ID)
	require.NoError(t, err)

	hits, err = env.posts.Search(ctx, search.SearchParams{Query: "graphene"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPostSearch_WithoutIndex(t *testing.T) {
	env := newTestEnv(t, withoutIndex())
	ctx := context.Background()

	env.createPost(t, author, "Graphene batteries explained")

	hits, err := env.posts.Search(ctx, search.SearchParams{Query: "Graphene"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
