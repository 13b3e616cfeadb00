// Package chatconfig keeps per-chat moderation settings in the configured
// storage backend.
package chatconfig

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/atareao/expulsabot"
	"github.com/atareao/expulsabot/lib/store"
)

// Settings is everything a chat's admins can tune at runtime.
type Settings struct {
	// Whitelist holds user IDs that are never challenged or banned.
	Whitelist []int64 `json:"whitelist"`

	// NotifyOnBan controls whether the chat gets a notice when a bot is
	// banned directly.
	NotifyOnBan bool `json:"notify_on_ban"`

	// BannedBots counts bot accounts banned without a challenge.
	BannedBots uint64 `json:"banned_bots"`
}

// Default returns the settings a chat has before any admin touches them.
func Default() Settings {
	return Settings{NotifyOnBan: true}
}

// Store reads and writes chat settings. Records never expire.
type Store struct {
	db store.JSON[Settings]
}

func New(backing store.Interface) *Store {
	return &Store{
		db: store.JSON[Settings]{
			Underlying: backing,
			Prefix:     expulsabot.ChatConfigPrefix,
		},
	}
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Get returns the settings for a chat, falling back to Default when the chat
// has no stored record yet.
func (s *Store) Get(ctx context.Context, chatID int64) (Settings, error) {
	settings, err := s.db.Get(ctx, key(chatID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("chatconfig: can't load settings for chat %d: %w", chatID, err)
	}

	return settings, nil
}

func (s *Store) Put(ctx context.Context, chatID int64, settings Settings) error {
	if err := s.db.Set(ctx, key(chatID), settings, 0); err != nil {
		return fmt.Errorf("chatconfig: can't save settings for chat %d: %w", chatID, err)
	}

	return nil
}

// Whitelisted reports whether a user is exempt from challenges in a chat.
func (s *Store) Whitelisted(ctx context.Context, chatID, userID int64) (bool, error) {
	settings, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}

	return slices.Contains(settings.Whitelist, userID), nil
}

// AddWhitelist adds a user to a chat's whitelist. It reports whether the user
// was newly added.
func (s *Store) AddWhitelist(ctx context.Context, chatID, userID int64) (bool, error) {
	settings, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}

	if slices.Contains(settings.Whitelist, userID) {
		return false, nil
	}

	settings.Whitelist = append(settings.Whitelist, userID)
	return true, s.Put(ctx, chatID, settings)
}

// RemoveWhitelist removes a user from a chat's whitelist. It reports whether
// the user was present.
func (s *Store) RemoveWhitelist(ctx context.Context, chatID, userID int64) (bool, error) {
	settings, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}

	idx := slices.Index(settings.Whitelist, userID)
	if idx == -1 {
		return false, nil
	}

	settings.Whitelist = slices.Delete(settings.Whitelist, idx, idx+1)
	return true, s.Put(ctx, chatID, settings)
}

func (s *Store) SetNotify(ctx context.Context, chatID int64, notify bool) error {
	settings, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}

	settings.NotifyOnBan = notify
	return s.Put(ctx, chatID, settings)
}

// IncrBanned bumps the direct bot ban counter and returns the new total.
func (s *Store) IncrBanned(ctx context.Context, chatID int64) (uint64, error) {
	settings, err := s.Get(ctx, chatID)
	if err != nil {
		return 0, err
	}

	settings.BannedBots++
	if err := s.Put(ctx, chatID, settings); err != nil {
		return 0, err
	}

	return settings.BannedBots, nil
}
