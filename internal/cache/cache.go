// Package cache layers the typed accessors over the durable store: it owns
// the defaults (unsynced writes, cachedAt stamping), the sanitization of
// remote HTML, and the indicator lookups the UI renders from.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"

	"contenthub/internal/hub"
)

const indicatorCacheSize = 1024

type Cache struct {
	repo hub.Repository
	now  func() time.Time

	// indicators memoizes the hot bookmarked/read existence checks so
	// list rendering doesn't hammer the store. Writes and deletes evict.
	indicators *lru.Cache[string, bool]
}

func New(repo hub.Repository) *Cache {
	indicators, _ := lru.New[string, bool](indicatorCacheSize)

	return &Cache{
		repo:       repo,
		now:        time.Now,
		indicators: indicators,
	}
}

// CacheFeeds full-replaces the articles collection with the given items,
// stamping each with the same cachedAt and updating the lastFeedUpdate
// marker in the same transaction. This is the only path that populates the
// articles cache.
func (c *Cache) CacheFeeds(ctx context.Context, articles []hub.Article) error {
	ts := c.now().UnixMilli()
	stamped := make([]hub.Article, len(articles))
	for i, a := range articles {
		a.Title = sanitize(a.Title)
		a.Summary = sanitize(a.Summary)
		a.CachedAt = ts
		stamped[i] = a
	}

	if err := c.repo.ReplaceArticles(ctx, stamped, ts); err != nil {
		return fmt.Errorf("error caching feeds: %w", err)
	}

	return nil
}

// CachedFeeds returns every cached article.
func (c *Cache) CachedFeeds(ctx context.Context) ([]hub.Article, error) {
	return c.repo.Articles(ctx)
}

// LastFeedUpdate returns the epoch millis of the last full refresh, or nil
// if the articles cache has never been populated.
func (c *Cache) LastFeedUpdate(ctx context.Context) (*int64, error) {
	raw, err := c.repo.Meta(ctx, hub.MetaLastFeedUpdate)
	if errors.Is(err, hub.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading last feed update: %w", err)
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing last feed update %q: %s", raw, err)
	}

	return &ts, nil
}

// CacheBookmark upserts the bookmark with synced forced to false. The entry
// stays unsynced until an explicit unbookmark removes it; confirmation of
// the remote write never flips it in place.
func (c *Cache) CacheBookmark(ctx context.Context, b hub.Bookmark) error {
	b.Synced = false
	if b.SavedAt == "" {
		b.SavedAt = c.now().UTC().Format(time.RFC3339)
	}

	if err := c.repo.UpsertBookmark(ctx, b); err != nil {
		return fmt.Errorf("error caching bookmark: %w", err)
	}
	c.indicators.Remove(bookmarkKey(b.ArticleURL))

	return nil
}

// CachedBookmarks returns every cached bookmark.
func (c *Cache) CachedBookmarks(ctx context.Context) ([]hub.Bookmark, error) {
	return c.repo.Bookmarks(ctx)
}

// RemoveCachedBookmark hard-deletes the bookmark by article URL.
func (c *Cache) RemoveCachedBookmark(ctx context.Context, articleURL string) error {
	if err := c.repo.DeleteBookmark(ctx, articleURL); err != nil {
		return fmt.Errorf("error removing cached bookmark: %w", err)
	}
	c.indicators.Remove(bookmarkKey(articleURL))

	return nil
}

// CacheReadEntry upserts the read-history entry with synced forced false.
func (c *Cache) CacheReadEntry(ctx context.Context, e hub.ReadEntry) error {
	e.Synced = false
	if e.ReadAt == "" {
		e.ReadAt = c.now().UTC().Format(time.RFC3339)
	}

	if err := c.repo.UpsertReadEntry(ctx, e); err != nil {
		return fmt.Errorf("error caching read entry: %w", err)
	}
	c.indicators.Remove(readKey(e.ArticleURL))

	return nil
}

// CachedReadHistory returns every cached read-history entry.
func (c *Cache) CachedReadHistory(ctx context.Context) ([]hub.ReadEntry, error) {
	return c.repo.ReadEntries(ctx)
}

// RemoveCachedReadEntry hard-deletes the read entry by article URL.
func (c *Cache) RemoveCachedReadEntry(ctx context.Context, articleURL string) error {
	if err := c.repo.DeleteReadEntry(ctx, articleURL); err != nil {
		return fmt.Errorf("error removing cached read entry: %w", err)
	}
	c.indicators.Remove(readKey(articleURL))

	return nil
}

// IsArticleBookmarked reports whether the article has a cached bookmark,
// without a network round trip.
func (c *Cache) IsArticleBookmarked(ctx context.Context, articleURL string) (bool, error) {
	return c.exists(ctx, bookmarkKey(articleURL), func() error {
		_, err := c.repo.Bookmark(ctx, articleURL)
		return err
	})
}

// IsArticleRead reports whether the article has a cached read entry.
func (c *Cache) IsArticleRead(ctx context.Context, articleURL string) (bool, error) {
	return c.exists(ctx, readKey(articleURL), func() error {
		_, err := c.repo.ReadEntry(ctx, articleURL)
		return err
	})
}

func (c *Cache) exists(ctx context.Context, key string, get func() error) (bool, error) {
	if hit, ok := c.indicators.Get(key); ok {
		return hit, nil
	}

	err := get()
	if errors.Is(err, hub.ErrNotFound) {
		c.indicators.Add(key, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c.indicators.Add(key, true)
	return true, nil
}

// Stats aggregates counts across all collections plus the cache age. It is
// the only cross-collection read and exists for display, not for sync
// decisions.
func (c *Cache) Stats(ctx context.Context) (hub.CacheStats, error) {
	var (
		stats hub.CacheStats
		err   error
	)
	if stats.Articles, err = c.repo.CountArticles(ctx); err != nil {
		return hub.CacheStats{}, err
	}
	if stats.Bookmarks, err = c.repo.CountBookmarks(ctx); err != nil {
		return hub.CacheStats{}, err
	}
	if stats.ReadEntries, err = c.repo.CountReadEntries(ctx); err != nil {
		return hub.CacheStats{}, err
	}
	if stats.PendingActions, err = c.repo.CountActions(ctx); err != nil {
		return hub.CacheStats{}, err
	}

	last, err := c.LastFeedUpdate(ctx)
	if err != nil {
		return hub.CacheStats{}, err
	}
	if last != nil {
		stats.LastFeedUpdate = *last
		age := c.now().UnixMilli() - *last
		stats.CacheAge = &age
	}

	return stats, nil
}

// PendingCount returns the queue depth for indicator display.
func (c *Cache) PendingCount(ctx context.Context) (int, error) {
	return c.repo.CountActions(ctx)
}

func bookmarkKey(url string) string { return "b:" + url }
func readKey(url string) string     { return "r:" + url }

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags from the string, usually a summary.
//
// Also limits the length of the string so there's not a massive chunk of text being cached.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = stripPolicy.Sanitize(s)
	if len(s) > 2048 {
		s = s[:2048]
	}

	return s
}
