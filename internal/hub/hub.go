// Package hub holds the domain model for the offline cache and sync core:
// the cached collections, the pending action queue, and the repository
// surface the durable store implements.
package hub

import (
	"context"
	"errors"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")

	// ErrConnectivityRequired is returned when an operation needs the
	// network but the session has no offline fallback to offer.
	ErrConnectivityRequired = errors.New("please connect to the internet")

	// ErrOffline is returned by the manual sync trigger when the gate
	// reports no connectivity, so callers can tell "nothing to sync"
	// apart from "can't sync right now".
	ErrOffline = errors.New("cannot sync while offline")
)

type (
	// Article is a locally cached mirror of a remote feed item. The
	// canonical article URL is the primary key.
	Article struct {
		Link        string   `db:"link" json:"link"`
		Title       string   `db:"title" json:"title"`
		Summary     string   `db:"summary" json:"summary"`
		Source      string   `db:"source" json:"source"`
		Published   string   `db:"published" json:"published"`
		ContentType string   `db:"content_type" json:"type"`
		Categories  []string `db:"-" json:"categories,omitempty"`

		// RawCategories is the comma-joined form persisted to the store.
		RawCategories string `db:"categories" json:"-"`

		// CachedAt is stamped (epoch millis) when the article is written
		// to the cache.
		CachedAt int64 `db:"cached_at" json:"cachedAt"`
	}

	// Bookmark is a locally cached bookmark, created the instant the user
	// saves an article. Synced starts false and is never flipped locally:
	// the entry is removed outright once the remote write is confirmed
	// through an explicit unbookmark, not mutated in place.
	Bookmark struct {
		ArticleURL string `db:"article_url" json:"article_url"`
		Title      string `db:"title" json:"title"`
		Source     string `db:"source" json:"source"`
		SavedAt    string `db:"saved_at" json:"saved_at"`
		Synced     bool   `db:"synced" json:"synced"`
	}

	// ReadEntry is a locally cached read-history record. Same lifecycle
	// as Bookmark.
	ReadEntry struct {
		ArticleURL string `db:"article_url" json:"article_url"`
		Title      string `db:"title" json:"article_title"`
		Source     string `db:"source" json:"article_source"`
		Category   string `db:"category" json:"article_category,omitempty"`
		ReadAt     string `db:"read_at" json:"read_at"`
		Synced     bool   `db:"synced" json:"synced"`
	}

	// CacheStats aggregates counts across every collection for display
	// and diagnostics. It feeds no sync decision.
	CacheStats struct {
		Articles       int   `json:"feeds_count"`
		Bookmarks      int   `json:"bookmarks_count"`
		ReadEntries    int   `json:"history_count"`
		PendingActions int   `json:"pending_actions_count"`
		LastFeedUpdate int64 `json:"last_update,omitempty"`

		// CacheAge is now minus LastFeedUpdate in millis; nil when the
		// articles cache has never been populated.
		CacheAge *int64 `json:"cache_age,omitempty"`
	}

	// SyncResult summarizes one replay pass over the pending queue.
	SyncResult struct {
		Synced int `json:"synced"`
		Failed int `json:"failed"`
		Total  int `json:"total"`
	}

	// ArticleRepo is the durable store surface for the articles cache.
	ArticleRepo interface {
		Article(ctx context.Context, link string) (Article, error)
		Articles(ctx context.Context) ([]Article, error)
		ArticlesBySource(ctx context.Context, source string) ([]Article, error)
		// ReplaceArticles clears the collection and bulk-inserts items in
		// a single transaction, stamping the lastFeedUpdate metadata entry
		// with ts so the cache and its freshness marker cannot drift.
		ReplaceArticles(ctx context.Context, items []Article, ts int64) error
		CountArticles(ctx context.Context) (int, error)
	}

	// BookmarkRepo is the durable store surface for cached bookmarks.
	BookmarkRepo interface {
		Bookmark(ctx context.Context, articleURL string) (Bookmark, error)
		Bookmarks(ctx context.Context) ([]Bookmark, error)
		UpsertBookmark(ctx context.Context, b Bookmark) error
		DeleteBookmark(ctx context.Context, articleURL string) error
		CountBookmarks(ctx context.Context) (int, error)
	}

	// ReadHistoryRepo is the durable store surface for cached read history.
	ReadHistoryRepo interface {
		ReadEntry(ctx context.Context, articleURL string) (ReadEntry, error)
		ReadEntries(ctx context.Context) ([]ReadEntry, error)
		UpsertReadEntry(ctx context.Context, e ReadEntry) error
		DeleteReadEntry(ctx context.Context, articleURL string) error
		CountReadEntries(ctx context.Context) (int, error)
	}

	// ActionRepo is the durable store surface for the pending action queue.
	ActionRepo interface {
		// EnqueueAction appends the action and returns its assigned id.
		EnqueueAction(ctx context.Context, a PendingAction) (int64, error)
		// PendingActions returns the queue in enqueue (FIFO) order.
		PendingActions(ctx context.Context) ([]PendingAction, error)
		DeleteAction(ctx context.Context, id int64) error
		SetActionRetries(ctx context.Context, id int64, retries int) error
		CountActions(ctx context.Context) (int, error)
	}

	// MetaRepo is the durable store surface for the metadata collection.
	MetaRepo interface {
		Meta(ctx context.Context, key string) (string, error)
		SetMeta(ctx context.Context, key, value string) error
	}

	// Repository is everything the durable store provides. All five
	// collections are exclusively owned by it; nothing else persists state.
	Repository interface {
		ArticleRepo
		BookmarkRepo
		ReadHistoryRepo
		ActionRepo
		MetaRepo
	}
)

// MetaLastFeedUpdate is the metadata key stamped on every full refresh of
// the articles cache (epoch millis).
const MetaLastFeedUpdate = "lastFeedUpdate"
