package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"contenthub/internal/hub"
)

// FeedsResult is what the offline-first feed read hands back to the UI.
type FeedsResult struct {
	Articles   []hub.Article
	FromCache  bool
	LastUpdate *int64
}

// FetchFeeds is the offline-first read path for the articles list: fresh
// from the network whenever possible, from the cache only when this session
// is allowed offline affordances, an error otherwise.
func (s *Syncer) FetchFeeds(ctx context.Context) (FeedsResult, error) {
	if s.gate.Online() {
		articles, err := s.fetchFresh(ctx)
		if err == nil {
			// Only an installed session caches: a transient tab has no
			// business filling a store it can never drain.
			if s.offlineCapable() {
				if err := s.cache.CacheFeeds(ctx, articles); err != nil {
					return FeedsResult{}, err
				}
			}

			return FeedsResult{Articles: articles}, nil
		}

		slog.WarnContext(ctx, "feed fetch failed, trying cache", "error", err)
		return s.cachedFallback(ctx, err)
	}

	return s.cachedFallback(ctx, hub.ErrConnectivityRequired)
}

// fetchFresh pulls the article set with a short fibonacci backoff. Only
// transient failures are retried; a permanent rejection comes back on the
// first attempt.
func (s *Syncer) fetchFresh(ctx context.Context) ([]hub.Article, error) {
	var articles []hub.Article
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		a, err := s.gw.Feeds(ctx)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		articles = a

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching feeds: %w", err)
	}

	return articles, nil
}

// cachedFallback serves the cached article set when the session qualifies
// for it; otherwise the original failure stands.
func (s *Syncer) cachedFallback(ctx context.Context, cause error) (FeedsResult, error) {
	if !s.offlineCapable() {
		return FeedsResult{}, cause
	}

	articles, err := s.cache.CachedFeeds(ctx)
	if err != nil {
		return FeedsResult{}, err
	}
	if len(articles) == 0 {
		return FeedsResult{}, fmt.Errorf("no cached data available: %w", hub.ErrConnectivityRequired)
	}

	lastUpdate, err := s.cache.LastFeedUpdate(ctx)
	if err != nil {
		return FeedsResult{}, err
	}

	return FeedsResult{
		Articles:   articles,
		FromCache:  true,
		LastUpdate: lastUpdate,
	}, nil
}
