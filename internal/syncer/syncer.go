// Package syncer decides, per user action, whether to go straight to the
// network or to queue, and drains the pending queue once connectivity
// returns. It keeps no state of its own: the queue lives in the durable
// store and every replay pass rescans it from scratch.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"contenthub/internal/cache"
	"contenthub/internal/gate"
	"contenthub/internal/hub"
)

// maxRetries bounds the queue: an action that keeps failing retryably is
// dropped once its retry count has already reached this ceiling.
const maxRetries = 3

// DefaultInterval is how often the engine replays the queue while online.
const DefaultInterval = 5 * time.Minute

// Gateway is the remote surface the engine replays against.
type Gateway interface {
	CreateBookmark(ctx context.Context, p hub.BookmarkPayload) error
	DeleteBookmark(ctx context.Context, id int64) error
	CreateReadEntry(ctx context.Context, p hub.ReadPayload) error
	DeleteReadEntry(ctx context.Context, p hub.UnreadPayload) error
	Feeds(ctx context.Context) ([]hub.Article, error)
}

type (
	Syncer struct {
		cache   *cache.Cache
		actions hub.ActionRepo
		gw      Gateway
		gate    gate.Gate

		// durable is false when the store failed its startup write probe;
		// the engine then degrades to network-only behavior instead of
		// failing deep inside a user action.
		durable bool

		interval time.Duration
		now      func() time.Time

		mu   sync.Mutex
		subs []func(hub.SyncResult)
	}

	Config struct {
		Cache   *cache.Cache
		Actions hub.ActionRepo
		Gateway Gateway
		Gate    gate.Gate
		Durable bool

		// Interval between periodic replay passes; DefaultInterval when zero.
		Interval time.Duration
	}
)

func New(cfg Config) *Syncer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Syncer{
		cache:    cfg.Cache,
		actions:  cfg.Actions,
		gw:       cfg.Gateway,
		gate:     cfg.Gate,
		durable:  cfg.Durable,
		interval: interval,
		now:      time.Now,
	}
}

// Durable reports whether the store passed its startup probe.
func (s *Syncer) Durable() bool {
	return s.durable
}

// offlineCapable reports whether this session may promise "will sync
// later": it needs a persistent context and a working durable store.
func (s *Syncer) offlineCapable() bool {
	return s.durable && s.gate.Installed()
}

// AddBookmark applies a bookmark action. Installed sessions get the
// optimistic write and, on network failure, a queued retry; transient
// sessions go straight to the network and surface whatever comes back.
func (s *Syncer) AddBookmark(ctx context.Context, b hub.Bookmark) error {
	payload := hub.BookmarkPayload{
		ArticleURL: b.ArticleURL,
		Title:      b.Title,
		Source:     b.Source,
	}

	if !s.offlineCapable() {
		return s.direct(ctx, func() error { return s.gw.CreateBookmark(ctx, payload) })
	}

	// Optimistic durability: the cache write survives a crash mid-call
	// and already represents user-visible success.
	if err := s.cache.CacheBookmark(ctx, b); err != nil {
		return err
	}

	return s.applyOrEnqueue(ctx, payload, func() error { return s.gw.CreateBookmark(ctx, payload) })
}

// RemoveBookmark mirrors AddBookmark with a delete. The remote half only
// runs when the server-side bookmark id is known; a bookmark that never
// reached the server has nothing to delete remotely.
func (s *Syncer) RemoveBookmark(ctx context.Context, articleURL string, bookmarkID int64) error {
	if !s.offlineCapable() {
		if bookmarkID == 0 {
			return nil
		}
		return s.direct(ctx, func() error { return s.gw.DeleteBookmark(ctx, bookmarkID) })
	}

	if err := s.cache.RemoveCachedBookmark(ctx, articleURL); err != nil {
		return err
	}
	if bookmarkID == 0 {
		return nil
	}

	payload := hub.UnbookmarkPayload{BookmarkID: bookmarkID}
	return s.applyOrEnqueue(ctx, payload, func() error { return s.gw.DeleteBookmark(ctx, bookmarkID) })
}

// MarkRead records an article as read.
func (s *Syncer) MarkRead(ctx context.Context, e hub.ReadEntry) error {
	payload := hub.ReadPayload{
		ArticleURL: e.ArticleURL,
		Title:      e.Title,
		Source:     e.Source,
		Category:   e.Category,
	}

	if !s.offlineCapable() {
		return s.direct(ctx, func() error { return s.gw.CreateReadEntry(ctx, payload) })
	}

	if err := s.cache.CacheReadEntry(ctx, e); err != nil {
		return err
	}

	return s.applyOrEnqueue(ctx, payload, func() error { return s.gw.CreateReadEntry(ctx, payload) })
}

// MarkUnread retracts a read entry. The remote endpoint doesn't exist yet,
// so queued unreads are dropped at replay; the local removal still holds.
func (s *Syncer) MarkUnread(ctx context.Context, articleURL string) error {
	payload := hub.UnreadPayload{ArticleURL: articleURL}

	if !s.offlineCapable() {
		return s.direct(ctx, func() error { return s.gw.DeleteReadEntry(ctx, payload) })
	}

	if err := s.cache.RemoveCachedReadEntry(ctx, articleURL); err != nil {
		return err
	}

	return s.applyOrEnqueue(ctx, payload, func() error { return s.gw.DeleteReadEntry(ctx, payload) })
}

// direct is the non-installed path: the feature requires connectivity, and
// there is no reliable place to flush a queue from later, so promising
// "this will sync" would be a lie.
func (s *Syncer) direct(ctx context.Context, call func() error) error {
	if !s.gate.Online() {
		return hub.ErrConnectivityRequired
	}
	if err := call(); err != nil {
		return err
	}

	return nil
}

// applyOrEnqueue runs the installed-session network half: attempt the call
// when online and queue on failure, or skip straight to the queue offline.
// Network failure is never surfaced here; the cache write already counted
// as success.
func (s *Syncer) applyOrEnqueue(ctx context.Context, payload hub.ActionPayload, call func() error) error {
	if s.gate.Online() {
		err := call()
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "direct call failed, queueing action",
			"kind", payload.Kind(), "error", err)
	}

	return s.enqueue(ctx, payload)
}

func (s *Syncer) enqueue(ctx context.Context, payload hub.ActionPayload) error {
	_, err := s.actions.EnqueueAction(ctx, hub.PendingAction{
		Payload:    payload,
		EnqueuedAt: s.now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	return nil
}

// Subscribe registers a handler fired with the summary of every replay
// pass, and returns a function that unregisters it. This is the signal UI
// indicators refresh from instead of polling the queue.
func (s *Syncer) Subscribe(handler func(hub.SyncResult)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, handler)

	i := len(s.subs) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs[i] = nil
	}
}

func (s *Syncer) broadcast(res hub.SyncResult) {
	s.mu.Lock()
	subs := append([]func(hub.SyncResult){}, s.subs...)
	s.mu.Unlock()

	for _, h := range subs {
		if h != nil {
			h(res)
		}
	}
}

// TriggerSync is the manual entry point. It fails fast while offline so
// callers can tell "nothing to sync" apart from "can't sync right now".
func (s *Syncer) TriggerSync(ctx context.Context) (hub.SyncResult, error) {
	if !s.gate.Online() {
		return hub.SyncResult{}, hub.ErrOffline
	}

	return s.SyncPending(ctx)
}

// Run drains the queue on every offline-to-online transition and on a
// fixed interval while online, until the context is done.
func (s *Syncer) Run(ctx context.Context) error {
	unsubscribe := s.gate.OnConnectivityChange(func(online bool) {
		if !online {
			return
		}

		slog.InfoContext(ctx, "back online, syncing pending actions")
		if _, err := s.SyncPending(ctx); err != nil {
			slog.ErrorContext(ctx, "error syncing after reconnect", "error", err)
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !s.gate.Online() {
			continue
		}
		res, err := s.SyncPending(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "error running periodic sync", "error", err)
			continue
		}
		if res.Synced > 0 {
			slog.InfoContext(ctx, "background sync complete",
				"synced", res.Synced, "failed", res.Failed, "total", res.Total)
		}
	}
}
