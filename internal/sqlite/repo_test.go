package sqlite

import (
	"context"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"contenthub/internal/hub"
	"contenthub/internal/migrations"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()

	dbx, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A second connection would see its own empty in-memory database.
	dbx.SetMaxOpenConns(1)
	t.Cleanup(func() { dbx.Close() })

	require.NoError(t, migrations.Run(dbx))

	return New(dbx)
}

func TestReplaceArticles(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	first := []hub.Article{
		{Link: "https://x/a", Title: "A", Source: "x", Categories: []string{"go", "infra"}, CachedAt: 100},
		{Link: "https://x/b", Title: "B", Source: "y", CachedAt: 100},
	}
	require.NoError(t, repo.ReplaceArticles(ctx, first, 100))

	got, err := repo.Articles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	ts, err := repo.Meta(ctx, hub.MetaLastFeedUpdate)
	require.NoError(t, err)
	assert.Equal(t, "100", ts)

	a, err := repo.Article(ctx, "https://x/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "infra"}, a.Categories)
	assert.Equal(t, int64(100), a.CachedAt)

	// A replace is a full swap, never a merge.
	second := []hub.Article{
		{Link: "https://x/c", Title: "C", Source: "x", CachedAt: 200},
	}
	require.NoError(t, repo.ReplaceArticles(ctx, second, 200))

	got, err = repo.Articles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://x/c", got[0].Link)

	ts, err = repo.Meta(ctx, hub.MetaLastFeedUpdate)
	require.NoError(t, err)
	assert.Equal(t, "200", ts)
}

func TestReplaceArticles_Empty(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	require.NoError(t, repo.ReplaceArticles(ctx, []hub.Article{{Link: "https://x/a", CachedAt: 1}}, 1))
	require.NoError(t, repo.ReplaceArticles(ctx, nil, 2))

	count, err := repo.CountArticles(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	ts, err := repo.Meta(ctx, hub.MetaLastFeedUpdate)
	require.NoError(t, err)
	assert.Equal(t, "2", ts)
}

func TestArticlesBySource(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	require.NoError(t, repo.ReplaceArticles(ctx, []hub.Article{
		{Link: "https://x/a", Source: "x", CachedAt: 1},
		{Link: "https://x/b", Source: "y", CachedAt: 1},
		{Link: "https://x/c", Source: "x", CachedAt: 1},
	}, 1))

	got, err := repo.ArticlesBySource(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestBookmarkLifecycle(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.Bookmark(ctx, "https://x/a")
	assert.ErrorIs(t, err, hub.ErrNotFound)

	b := hub.Bookmark{
		ArticleURL: "https://x/a",
		Title:      "A",
		Source:     "x",
		SavedAt:    "2026-01-02T15:04:05Z",
	}
	require.NoError(t, repo.UpsertBookmark(ctx, b))

	got, err := repo.Bookmark(ctx, "https://x/a")
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.False(t, got.Synced)

	// Upserting the same natural key overwrites rather than duplicates.
	b.Title = "A revised"
	require.NoError(t, repo.UpsertBookmark(ctx, b))

	count, err := repo.CountBookmarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err = repo.Bookmark(ctx, "https://x/a")
	require.NoError(t, err)
	assert.Equal(t, "A revised", got.Title)

	require.NoError(t, repo.DeleteBookmark(ctx, "https://x/a"))
	_, err = repo.Bookmark(ctx, "https://x/a")
	assert.ErrorIs(t, err, hub.ErrNotFound)
}

func TestReadEntryLifecycle(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	e := hub.ReadEntry{
		ArticleURL: "https://x/a",
		Title:      "A",
		Source:     "x",
		Category:   "go",
		ReadAt:     "2026-01-02T15:04:05Z",
	}
	require.NoError(t, repo.UpsertReadEntry(ctx, e))

	got, err := repo.ReadEntry(ctx, "https://x/a")
	require.NoError(t, err)
	assert.Equal(t, e, got)

	entries, err := repo.ReadEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, repo.DeleteReadEntry(ctx, "https://x/a"))
	count, err := repo.CountReadEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestActionQueue(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	id1, err := repo.EnqueueAction(ctx, hub.PendingAction{
		Payload:    hub.BookmarkPayload{ArticleURL: "https://x/a", Title: "A", Source: "x"},
		EnqueuedAt: 100,
	})
	require.NoError(t, err)
	id2, err := repo.EnqueueAction(ctx, hub.PendingAction{
		Payload:    hub.UnbookmarkPayload{BookmarkID: 42},
		EnqueuedAt: 200,
	})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	// FIFO: oldest first, payloads come back typed.
	actions, err := repo.PendingActions(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, hub.ActionBookmark, actions[0].Kind())
	assert.Equal(t, hub.BookmarkPayload{ArticleURL: "https://x/a", Title: "A", Source: "x"}, actions[0].Payload)
	assert.Equal(t, hub.ActionUnbookmark, actions[1].Kind())
	assert.Equal(t, hub.UnbookmarkPayload{BookmarkID: 42}, actions[1].Payload)

	require.NoError(t, repo.SetActionRetries(ctx, id1, 2))
	actions, err = repo.PendingActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, actions[0].Retries)

	require.NoError(t, repo.DeleteAction(ctx, id1))
	count, err := repo.CountActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMeta(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.Meta(ctx, "missing")
	assert.ErrorIs(t, err, hub.ErrNotFound)

	require.NoError(t, repo.SetMeta(ctx, "k", strconv.Itoa(1)))
	require.NoError(t, repo.SetMeta(ctx, "k", strconv.Itoa(2)))

	got, err := repo.Meta(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}
