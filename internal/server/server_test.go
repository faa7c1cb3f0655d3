package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contenthub/internal/hub"
	"contenthub/internal/server"
	"contenthub/internal/syncer"
)

type fakeCache struct {
	stats   hub.CacheStats
	pending int
	err     error
}

func (f *fakeCache) Stats(ctx context.Context) (hub.CacheStats, error) {
	return f.stats, f.err
}

func (f *fakeCache) PendingCount(ctx context.Context) (int, error) {
	return f.pending, f.err
}

type fakeEngine struct {
	syncRes  hub.SyncResult
	syncErr  error
	feeds    syncer.FeedsResult
	feedsErr error
	durable  bool
}

func (f *fakeEngine) TriggerSync(ctx context.Context) (hub.SyncResult, error) {
	return f.syncRes, f.syncErr
}

func (f *fakeEngine) FetchFeeds(ctx context.Context) (syncer.FeedsResult, error) {
	return f.feeds, f.feedsErr
}

func (f *fakeEngine) Durable() bool {
	return f.durable
}

func serve(t *testing.T, c *fakeCache, e *fakeEngine, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	s := server.New(server.Config{Port: 0, CorsOrigin: "*"}, c, e)
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	return rec
}

func TestCacheStats(t *testing.T) {
	age := int64(5000)
	c := &fakeCache{stats: hub.CacheStats{
		Articles:       12,
		Bookmarks:      3,
		ReadEntries:    7,
		PendingActions: 1,
		CacheAge:       &age,
	}}
	rec := serve(t, c, &fakeEngine{durable: true}, http.MethodGet, "/v1/cache/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got struct {
		hub.CacheStats
		Durable bool `json:"durable"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, c.stats, got.CacheStats)
	assert.True(t, got.Durable)
}

func TestPending(t *testing.T) {
	t.Run("with queued actions", func(t *testing.T) {
		rec := serve(t, &fakeCache{pending: 4}, &fakeEngine{}, http.MethodGet, "/v1/sync/pending")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"count": 4, "has_pending": true}`, rec.Body.String())
	})

	t.Run("empty queue", func(t *testing.T) {
		rec := serve(t, &fakeCache{}, &fakeEngine{}, http.MethodGet, "/v1/sync/pending")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"count": 0, "has_pending": false}`, rec.Body.String())
	})
}

func TestTriggerSync(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		e := &fakeEngine{syncRes: hub.SyncResult{Synced: 2, Failed: 1, Total: 3}}
		rec := serve(t, &fakeCache{}, e, http.MethodPost, "/v1/sync")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"synced": 2, "failed": 1, "total": 3}`, rec.Body.String())
	})

	t.Run("offline conflicts", func(t *testing.T) {
		e := &fakeEngine{syncErr: hub.ErrOffline}
		rec := serve(t, &fakeCache{}, e, http.MethodPost, "/v1/sync")

		require.Equal(t, http.StatusConflict, rec.Code)

		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, hub.ErrOffline.Error(), body.Message)
	})
}

func TestFeeds(t *testing.T) {
	t.Run("from cache", func(t *testing.T) {
		ts := int64(1700000000000)
		e := &fakeEngine{feeds: syncer.FeedsResult{
			Articles:   []hub.Article{{Link: "https://x/a", Title: "A", Source: "x"}},
			FromCache:  true,
			LastUpdate: &ts,
		}}
		rec := serve(t, &fakeCache{}, e, http.MethodGet, "/v1/feeds")

		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Articles   []hub.Article `json:"articles"`
			FromCache  bool          `json:"from_cache"`
			LastUpdate *int64        `json:"last_update"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.FromCache)
		require.NotNil(t, got.LastUpdate)
		assert.Equal(t, ts, *got.LastUpdate)
		require.Len(t, got.Articles, 1)
	})

	t.Run("no data anywhere", func(t *testing.T) {
		e := &fakeEngine{feedsErr: hub.ErrConnectivityRequired}
		rec := serve(t, &fakeCache{}, e, http.MethodGet, "/v1/feeds")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestUnstructuredErrorsAreOpaque(t *testing.T) {
	e := &fakeEngine{feedsErr: assert.AnError}
	rec := serve(t, &fakeCache{}, e, http.MethodGet, "/v1/feeds")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
