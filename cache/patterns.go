// Package cache provides small bounded caches for the evaluation hot path.
package cache

import (
	"regexp"
	"sync"
)

// Patterns caches compiled regular expressions keyed by their source text.
// Policy conditions reuse the same handful of patterns across evaluations,
// so compilation happens once per pattern instead of once per check.
type Patterns struct {
	mu      sync.RWMutex
	entries map[string]*regexp.Regexp
	maxSize int
}

// PatternsOption configures the pattern cache.
type PatternsOption func(*Patterns)

// WithMaxSize sets the maximum number of cached patterns.
func WithMaxSize(n int) PatternsOption {
	return func(p *Patterns) { p.maxSize = n }
}

// NewPatterns creates a pattern cache.
func NewPatterns(opts ...PatternsOption) *Patterns {
	p := &Patterns{
		entries: make(map[string]*regexp.Regexp),
		maxSize: 1000,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the compiled form of pattern, compiling and caching it on
// first use. Compilation errors are returned and never cached.
func (p *Patterns) Get(pattern string) (*regexp.Regexp, error) {
	p.mu.RLock()
	re, ok := p.entries[pattern]
	p.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) >= p.maxSize {
		p.evictOne()
	}
	p.entries[pattern] = re
	return re, nil
}

// Len returns the number of cached patterns.
func (p *Patterns) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (p *Patterns) evictOne() {
	for k := range p.entries {
		delete(p.entries, k)
		return
	}
}
