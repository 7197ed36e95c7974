// Package workspace caches the Slack workspace routing domain used to
// build archive permalinks.
package workspace

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// DomainResolver lazily fetches the workspace domain once and reuses it
// for the life of the process. Concurrent first calls may each fetch;
// they converge on the same value, so no lock is taken.
type DomainResolver struct {
	fetch  func(ctx context.Context) (string, error)
	cached atomic.Value
}

func NewDomainResolver(fetch func(ctx context.Context) (string, error)) (*DomainResolver, error) {
	if fetch == nil {
		return nil, fmt.Errorf("nil fetch func")
	}
	return &DomainResolver{fetch: fetch}, nil
}

// Get returns the cached domain, fetching it on first use.
func (r *DomainResolver) Get(ctx context.Context) (string, error) {
	if v, ok := r.cached.Load().(string); ok && v != "" {
		return v, nil
	}
	domain, err := r.fetch(ctx)
	if err != nil {
		return "", err
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("empty workspace domain")
	}
	r.cached.Store(domain)
	return domain, nil
}
