package gate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contenthub/internal/gate"
)

func TestProbeOnline(t *testing.T) {
	t.Run("reachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodHead, r.Method)
		}))
		defer srv.Close()

		p := gate.NewProbe(srv.URL, true)
		assert.True(t, p.Online())
	})

	t.Run("unhappy response still counts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p := gate.NewProbe(srv.URL, true)
		assert.True(t, p.Online())
	})

	t.Run("closed host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		p := gate.NewProbe(url, true)
		assert.False(t, p.Online())
	})
}

func TestProbeInstalled(t *testing.T) {
	assert.True(t, gate.NewProbe("http://localhost:0", true).Installed())
	assert.False(t, gate.NewProbe("http://localhost:0", false).Installed())
}

func TestProbeWatch(t *testing.T) {
	// Drive an online-to-offline edge by killing the probed server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	p := gate.NewProbe(srv.URL, true)
	require.True(t, p.Online())

	edges := make(chan bool, 4)
	unsubscribe := p.OnConnectivityChange(func(online bool) {
		edges <- online
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, 10*time.Millisecond) }()

	srv.Close()

	select {
	case online := <-edges:
		assert.False(t, online)
	case <-time.After(5 * time.Second):
		t.Fatal("no offline edge observed")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestStatic(t *testing.T) {
	g := gate.NewStatic(false, true)
	assert.False(t, g.Online())
	assert.True(t, g.Installed())

	var edges []bool
	unsubscribe := g.OnConnectivityChange(func(online bool) {
		edges = append(edges, online)
	})

	g.SetOnline(true)
	g.SetOnline(true) // no change, no edge
	g.SetOnline(false)
	assert.Equal(t, []bool{true, false}, edges)

	unsubscribe()
	g.SetOnline(true)
	assert.Equal(t, []bool{true, false}, edges)
}
