// Package gate holds the two environmental predicates the sync engine
// consults before promising any offline behavior: is the network reachable,
// and is this a persistent (installed) session that can flush a queue later.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Gate answers the two questions fresh on every call; neither answer is
// cached across calls since both can change mid-session.
type Gate interface {
	// Online reports browser-style reachability. It is a fast pre-filter
	// only: the truth about the API host is the outcome of a real request.
	Online() bool

	// Installed reports whether this session is persistent enough to be
	// trusted with a sync queue.
	Installed() bool

	// OnConnectivityChange registers a handler for online/offline edges
	// and returns a function that unregisters it.
	OnConnectivityChange(handler func(online bool)) (unsubscribe func())
}

var probeClient = &http.Client{
	Timeout: time.Second * 3,
}

// Probe is the production gate: Online is answered by a HEAD request
// against a configured URL, Installed is fixed at construction.
type Probe struct {
	probeURL  string
	installed bool

	mu       sync.Mutex
	nextID   int
	handlers map[int]func(online bool)
	lastSeen bool
}

func NewProbe(probeURL string, installed bool) *Probe {
	p := &Probe{
		probeURL:  probeURL,
		installed: installed,
		handlers:  map[int]func(online bool){},
	}
	p.lastSeen = p.Online()

	return p
}

func (p *Probe) Online() bool {
	req, err := http.NewRequest(http.MethodHead, p.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := probeClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	// Any response at all proves reachability, even an unhappy one.
	return true
}

func (p *Probe) Installed() bool {
	return p.installed
}

func (p *Probe) OnConnectivityChange(handler func(online bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.handlers[id] = handler

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

// Watch polls for connectivity edges until the context is done, fanning
// each transition out to the registered handlers.
func (p *Probe) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		online := p.Online()

		p.mu.Lock()
		changed := online != p.lastSeen
		p.lastSeen = online
		handlers := make([]func(online bool), 0, len(p.handlers))
		for _, h := range p.handlers {
			handlers = append(handlers, h)
		}
		p.mu.Unlock()

		if !changed {
			continue
		}

		slog.Info("connectivity changed", "online", online)
		for _, h := range handlers {
			h(online)
		}
	}
}

// Static is a gate with fixed answers, for composition in tests and for
// transient (non-installed) invocations that skip probing entirely.
type Static struct {
	mu        sync.Mutex
	online    bool
	installed bool
	handlers  []func(online bool)
}

func NewStatic(online, installed bool) *Static {
	return &Static{online: online, installed: installed}
}

func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Static) Installed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed
}

func (s *Static) OnConnectivityChange(handler func(online bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)

	i := len(s.handlers) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.handlers[i] = nil
	}
}

// SetOnline flips the online answer and notifies handlers on a change.
func (s *Static) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	handlers := append([]func(online bool){}, s.handlers...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, h := range handlers {
		if h != nil {
			h(online)
		}
	}
}
