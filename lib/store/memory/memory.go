// Package memory is a process-local storage backend. It will not scale to
// multiple bot instances.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/atareao/expulsabot/lib/store"
)

type factory struct{}

func (factory) Build(ctx context.Context, _ json.RawMessage) (store.Interface, error) {
	return New(ctx), nil
}

func (factory) Valid(json.RawMessage) error { return nil }

func init() {
	store.Register("memory", factory{})
}

type entry struct {
	data []byte
	// expiry is the zero time when the entry never expires.
	expiry time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiry.IsZero() && now.After(e.expiry)
}

type impl struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func (i *impl) Delete(_ context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.entries[key]; !ok {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	delete(i.entries, key)
	return nil
}

func (i *impl) Get(_ context.Context, key string) ([]byte, error) {
	i.mu.RLock()
	ent, ok := i.entries[key]
	i.mu.RUnlock()

	if !ok || ent.expired(time.Now()) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return ent.data, nil
}

func (i *impl) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	ent := entry{data: value}
	if expiry > 0 {
		ent.expiry = time.Now().Add(expiry)
	}

	i.mu.Lock()
	i.entries[key] = ent
	i.mu.Unlock()

	return nil
}

func (i *impl) cleanup() {
	now := time.Now()

	i.mu.Lock()
	defer i.mu.Unlock()

	for key, ent := range i.entries {
		if ent.expired(now) {
			delete(i.entries, key)
		}
	}
}

func (i *impl) cleanupThread(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			i.cleanup()
		}
	}
}

// New creates a simple in-memory store.
func New(ctx context.Context) store.Interface {
	result := &impl{
		entries: map[string]entry{},
	}

	go result.cleanupThread(ctx)

	return result
}
