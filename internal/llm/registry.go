package llm

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps an agent's provider name to a Completer. Lookups for unknown
// providers return the fallback client.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Completer
	fallback Completer
}

func NewRegistry(fallback Completer) *Registry {
	return &Registry{clients: map[string]Completer{}, fallback: fallback}
}

func (r *Registry) Register(provider string, c Completer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[normalizeProvider(provider)] = c
}

func (r *Registry) Get(provider string) Completer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[normalizeProvider(provider)]; ok {
		return c
	}
	return r.fallback
}

func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.clients))
	for name := range r.clients {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalizeProvider(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
