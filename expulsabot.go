// Package expulsabot contains the process-wide defaults for the group
// gatekeeper daemon. Values here are read once at startup; malformed
// configuration falls back to these instead of aborting.
package expulsabot

import "time"

var (
	// Version is the version tag of Expulsabot, injected at build time.
	Version = "devel"
)

const (
	// DefaultChallengeDuration is how long a new member has to solve
	// their challenge before they are removed from the chat.
	DefaultChallengeDuration = 2 * time.Minute

	// DefaultMinResponse is the minimum believable human response time.
	// Answers arriving faster than this are treated as automation even
	// when they are correct.
	DefaultMinResponse = 2 * time.Second

	// DefaultCleanupDelay is how long challenge prompts and outcome
	// notices linger in the chat before they are deleted.
	DefaultCleanupDelay = 30 * time.Second

	// DefaultLocale is the language used for chat-facing messages when
	// no other locale is configured.
	DefaultLocale = "es"

	// ChatConfigPrefix namespaces per-chat settings in the backing store.
	ChatConfigPrefix = "chatconfig:"
)
