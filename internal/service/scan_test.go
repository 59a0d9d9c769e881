package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
)

func commentIDs(comments []*domain.Comment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.ID
	}
	return out
}

// seedScanFixture stores content that only becomes offending once
// "giveaway" is banned.
func seedScanFixture(t *testing.T, env *testEnv) (bad, clean *domain.Post, onBad, onClean *domain.Comment) {
	t.Helper()
	ctx := context.Background()

	bad = env.createPost(t, author, "Crypto giveaway inside")
	clean = env.createPost(t, author, "Gardening tips")
	hidden := env.createPost(t, author, "Hidden giveaway")
	_, err := env.moderation.TogglePost(ctx, admin, hidden.ID)
	require.NoError(t, err)

	onBad, err = env.interactions.AddComment(ctx, reader, bad.ID, CommentInput{Body: "another giveaway here"})
	require.NoError(t, err)
	onClean, err = env.interactions.AddComment(ctx, reader, clean.ID, CommentInput{Body: "Giveaway? where"})
	require.NoError(t, err)
	_, err = env.interactions.AddComment(ctx, reader, clean.ID, CommentInput{Body: "lovely roses"})
	require.NoError(t, err)

	_, err = env.moderation.ReplaceBannedWords(ctx, admin, "giveaway")
	require.NoError(t, err)
	return bad, clean, onBad, onClean
}

func TestScan_ReportOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bad, _, onBad, onClean := seedScanFixture(t, env)

	report, err := env.scan.Scan(ctx, false)
	require.NoError(t, err)

	assert.False(t, report.Deleted)
	assert.Equal(t, 1, report.Words)
	assert.Equal(t, 2, report.PostsChecked, "hidden posts are not scanned")
	assert.Equal(t, 3, report.CommentsChecked)
	assert.Equal(t, []string{bad.ID}, idsOf(report.Posts))
	assert.ElementsMatch(t, []string{onBad.ID, onClean.ID}, commentIDs(report.Comments))

	_, err = env.store.GetPost(ctx, bad.ID)
	assert.NoError(t, err, "report mode deletes nothing")
	assert.Empty(t, env.logsOf(t, domain.LogPostDeleted))
}

func TestScan_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bad, clean, _, onClean := seedScanFixture(t, env)

	report, err := env.scan.Scan(ctx, true)
	require.NoError(t, err)

	assert.True(t, report.Deleted)
	assert.Equal(t, []string{bad.ID}, idsOf(report.Posts))
	// The comment on the removed post went with it.
	assert.Equal(t, []string{onClean.ID}, commentIDs(report.Comments))

	_, err = env.store.GetPost(ctx, bad.ID)
	assert.Error(t, err)
	_, err = env.store.GetPost(ctx, clean.ID)
	assert.NoError(t, err)

	remaining, err := env.store.ListComments(ctx, clean.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "lovely roses", remaining[0].Body)

	postLogs := env.logsOf(t, domain.LogPostDeleted)
	require.Len(t, postLogs, 1)
	assert.Equal(t, domain.ReasonBadWordsScan, postLogs[0].Reason)
	assert.Equal(t, author.UserID, postLogs[0].UserID)
	assert.Equal(t, bad.ID, postLogs[0].PostID)

	commentLogs := env.logsOf(t, domain.LogCommentBlocked)
	require.Len(t, commentLogs, 1)
	assert.Equal(t, domain.ReasonBadWordsScan, commentLogs[0].Reason)
	assert.Equal(t, onClean.ID, commentLogs[0].CommentID)

	again, err := env.scan.Scan(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, again.Posts)
	assert.Empty(t, again.Comments)
}

func TestScan_EmptyWordList(t *testing.T) {
	env := newTestEnv(t)
	env.gate.Words().Replace(&domain.BannedWordList{})

	report, err := env.scan.Scan(context.Background(), true)
	require.NoError(t, err)
	assert.Zero(t, report.Words)
	assert.Zero(t, report.PostsChecked)
}

func TestScanAs_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.scan.ScanAs(ctx, reader, true)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	_, err = env.scan.ScanAs(ctx, anon, false)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	report, err := env.scan.ScanAs(ctx, admin, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Words)
}
