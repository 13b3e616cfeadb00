// Package registry holds the active challenges. It is the only shared
// mutable state in the challenge core and the only cross-goroutine
// ordering mechanism: for any (chat, participant) key, exactly one
// caller wins Take between a Create and the next Create on that key.
package registry

import (
	"sync"
	"time"

	"github.com/atareao/expulsabot/lib/transport"
)

// Record is one active challenge. It is never mutated after Create and
// is destroyed by exactly one successful Take.
type Record struct {
	ChatID        int64
	UserID        int64
	ExpectedToken string
	Prompt        transport.MessageID
	CreatedAt     time.Time
	Cancel        *CancelToken
}

// Registry maps (chat, participant) to the pending challenge record.
// All mutation happens under one mutex; critical sections only touch
// the maps, never the network, so lock hold times stay negligible.
type Registry struct {
	mu    sync.Mutex
	chats map[int64]map[int64]*Record
}

func New() *Registry {
	return &Registry{
		chats: map[int64]map[int64]*Record{},
	}
}

// Create inserts rec under its (chat, participant) key. A live record
// already present wins: Create returns false and the registry is left
// untouched, so a duplicate arrival can never orphan the prior expiry
// waiter.
func (r *Registry) Create(rec *Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.chats[rec.ChatID]
	if !ok {
		users = map[int64]*Record{}
		r.chats[rec.ChatID] = users
	}

	if _, exists := users[rec.UserID]; exists {
		return false
	}

	users[rec.UserID] = rec
	return true
}

// Take removes and returns the record for the key if present. At most
// one caller observes ok=true for a given record no matter how many
// race for it.
func (r *Registry) Take(chatID, userID int64) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.chats[chatID]
	if !ok {
		return nil, false
	}

	rec, ok := users[userID]
	if !ok {
		return nil, false
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(r.chats, chatID)
	}

	return rec, true
}

// Active reports whether a record is currently pending for the key.
func (r *Registry) Active(chatID, userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.chats[chatID]
	if !ok {
		return false
	}
	_, ok = users[userID]
	return ok
}

// Len counts pending challenges across all chats.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, users := range r.chats {
		n += len(users)
	}
	return n
}

// Chats counts chats that currently have at least one pending
// challenge. Empty per-chat maps are garbage collected by Take, so this
// is also the registry's footprint in chat entries.
func (r *Registry) Chats() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}
