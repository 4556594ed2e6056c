package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/tenscan/internal/model"
)

// ErrUnknownParser is returned when no parser is registered under a name
var ErrUnknownParser = errors.New("unknown parser")

// Registry manages the configured source parsers
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// FromConfig builds a registry with a parser for every enabled source
func FromConfig(cfg *model.Config, fetcher Fetcher) (*Registry, error) {
	registry := NewRegistry()
	for _, sc := range cfg.EnabledSources() {
		p, err := New(sc, fetcher)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a parser; names must be unique
func (r *Registry) Register(p Parser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parsers[p.Name()]; exists {
		return fmt.Errorf("parser %s already registered", p.Name())
	}
	r.parsers[p.Name()] = p
	return nil
}

// Get returns the parser registered under name
func (r *Registry) Get(name string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParser, name)
	}
	return p, nil
}

// Names returns the registered parser names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered parsers in name order
func (r *Registry) All() []Parser {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Parser, 0, len(names))
	for _, name := range names {
		out = append(out, r.parsers[name])
	}
	return out
}

// Len returns the number of registered parsers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parsers)
}
