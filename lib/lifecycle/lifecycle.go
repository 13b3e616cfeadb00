// Package lifecycle drives a challenge from a member's arrival to its
// single terminal outcome. The registry is the only ordering mechanism:
// whichever path wins Take (an answer or the expiry waiter) owns the
// record and performs the side effects exactly once.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/atareao/expulsabot"
	"github.com/atareao/expulsabot/lib/localization"
	"github.com/atareao/expulsabot/lib/puzzle"
	"github.com/atareao/expulsabot/lib/registry"
	"github.com/atareao/expulsabot/lib/sink"
	"github.com/atareao/expulsabot/lib/transport"

	// puzzle generators
	_ "github.com/atareao/expulsabot/lib/puzzle/arith"
	_ "github.com/atareao/expulsabot/lib/puzzle/category"
)

var (
	ErrNoTransport = errors.New("lifecycle: no transport configured")
	ErrNoRegistry  = errors.New("lifecycle: no registry configured")
)

// Chat identifies the group a challenge runs in.
type Chat struct {
	ID    int64
	Title string
}

// User identifies the member being challenged.
type User struct {
	ID   int64
	Name string
}

type Options struct {
	Transport transport.Interface
	Registry  *registry.Registry
	Sinks     []sink.Interface

	// Variant is a puzzle generator name, or "random" to draw one per
	// challenge.
	Variant string

	// Duration is how long the member has to answer.
	Duration time.Duration

	// MinResponse is the minimum believable human response time. Correct
	// answers arriving faster still ban.
	MinResponse time.Duration

	// CleanupDelay is how long prompts and outcome notices stay in the
	// chat before deletion.
	CleanupDelay time.Duration

	Localizer *localization.SimpleLocalizer
}

// Controller owns the challenge state machine. All methods are safe for
// concurrent use.
type Controller struct {
	opts Options

	// rand.Rand is not goroutine safe.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, ErrNoTransport
	}
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}

	if opts.Variant == "" {
		opts.Variant = "random"
	}

	if opts.Duration <= 0 {
		slog.Warn("challenge duration is unset or invalid, using default", "duration", opts.Duration, "default", expulsabot.DefaultChallengeDuration)
		opts.Duration = expulsabot.DefaultChallengeDuration
	}

	if opts.MinResponse < 0 {
		slog.Warn("minimum response time is invalid, using default", "minResponse", opts.MinResponse, "default", expulsabot.DefaultMinResponse)
		opts.MinResponse = expulsabot.DefaultMinResponse
	}

	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = expulsabot.DefaultCleanupDelay
	}

	if opts.Localizer == nil {
		opts.Localizer = localization.NewService().Localizer(expulsabot.DefaultLocale)
	}

	result := &Controller{
		opts: opts,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	registerRegistryMetrics(opts.Registry)

	return result, nil
}

// ActiveChallenges counts challenges currently awaiting an answer.
func (c *Controller) ActiveChallenges() int {
	return c.opts.Registry.Len()
}

func (c *Controller) generate() (string, *puzzle.Payload, error) {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	variant, gen, err := puzzle.Pick(c.opts.Variant, c.rng)
	if err != nil {
		return "", nil, err
	}

	payload, err := gen.Generate(c.rng)
	if err != nil {
		return "", nil, fmt.Errorf("lifecycle: variant %q failed to generate: %w", variant, err)
	}

	return variant, payload, nil
}

// Start restricts a newly arrived member and issues their challenge. If a
// challenge is already pending for this member the arrival is ignored and
// the pending challenge keeps running.
func (c *Controller) Start(ctx context.Context, chat Chat, user User) error {
	// Fast path for duplicate arrivals. Create below is the
	// authoritative check.
	if c.opts.Registry.Active(chat.ID, user.ID) {
		return nil
	}

	if err := c.opts.Transport.Restrict(ctx, chat.ID, user.ID); err != nil {
		return fmt.Errorf("lifecycle: can't restrict user %d in chat %d: %w", user.ID, chat.ID, err)
	}

	variant, payload, err := c.generate()
	if err != nil {
		c.compensateUnrestrict(ctx, chat, user)
		return err
	}

	text := c.opts.Localizer.TData("welcome_challenge", map[string]any{
		"Name":     html.EscapeString(user.Name),
		"Question": payload.Prompt,
		"Minutes":  int(c.opts.Duration.Minutes()),
	})

	buttons := make([]transport.Button, len(payload.Answers))
	for i, answer := range payload.Answers {
		buttons[i] = transport.Button{Label: answer.Label, Token: answer.Token}
	}

	promptID, err := c.opts.Transport.SendPrompt(ctx, chat.ID, text, buttons)
	if err != nil {
		c.compensateUnrestrict(ctx, chat, user)
		return fmt.Errorf("lifecycle: can't send prompt to chat %d: %w", chat.ID, err)
	}

	rec := &registry.Record{
		ChatID:        chat.ID,
		UserID:        user.ID,
		ExpectedToken: payload.ExpectedToken,
		Prompt:        promptID,
		CreatedAt:     time.Now(),
		Cancel:        registry.NewCancelToken(),
	}

	if !c.opts.Registry.Create(rec) {
		// A concurrent arrival won. Drop our prompt and leave the prior
		// challenge untouched.
		if err := c.opts.Transport.DeleteMessage(ctx, chat.ID, promptID); err != nil {
			slog.Debug("can't delete duplicate prompt", "chatID", chat.ID, "messageID", promptID, "err", err)
		}
		return nil
	}

	challengesIssued.WithLabelValues(variant).Inc()
	slog.Info("challenge issued", "chatID", chat.ID, "userID", user.ID, "variant", variant)

	go c.waitExpiry(chat, user, rec)

	return nil
}

func (c *Controller) compensateUnrestrict(ctx context.Context, chat Chat, user User) {
	if err := c.opts.Transport.Unrestrict(ctx, chat.ID, user.ID); err != nil {
		slog.Error("can't lift restriction after failed challenge setup", "chatID", chat.ID, "userID", user.ID, "err", err)
	}
}

func (c *Controller) waitExpiry(chat Chat, user User, rec *registry.Record) {
	t := time.NewTimer(c.opts.Duration)
	defer t.Stop()

	select {
	case <-rec.Cancel.Done():
		return
	case <-t.C:
	}

	taken, ok := c.opts.Registry.Take(chat.ID, user.ID)
	if !ok {
		// An answer won the race after our timer fired.
		return
	}

	c.finish(context.Background(), chat, user, taken, OutcomeTimeoutBan)
}

// Resolve settles the pending challenge for a member with the submitted
// answer token. It returns OutcomeNone when no challenge is pending,
// which covers answers from bystanders, repeated taps, and answers
// arriving after expiry.
func (c *Controller) Resolve(ctx context.Context, chat Chat, user User, token string) Outcome {
	rec, ok := c.opts.Registry.Take(chat.ID, user.ID)
	if !ok {
		return OutcomeNone
	}

	elapsed := time.Since(rec.CreatedAt)
	resolutionSeconds.Observe(elapsed.Seconds())

	outcome := OutcomeApproved
	switch {
	case elapsed < c.opts.MinResponse:
		outcome = OutcomeTooFastBan
	case token != rec.ExpectedToken:
		outcome = OutcomeWrongAnswerBan
	}

	c.finish(ctx, chat, user, rec, outcome)

	return outcome
}

// finish performs the side effects of a terminal outcome. The caller
// must own rec via a successful Take.
func (c *Controller) finish(ctx context.Context, chat Chat, user User, rec *registry.Record, outcome Outcome) {
	rec.Cancel.Cancel()
	challengesResolved.WithLabelValues(outcome.String()).Inc()

	name := html.EscapeString(user.Name)
	var msgKey string
	switch outcome {
	case OutcomeApproved:
		if err := c.opts.Transport.Unrestrict(ctx, chat.ID, user.ID); err != nil {
			slog.Error("can't lift restriction for approved user", "chatID", chat.ID, "userID", user.ID, "err", err)
			msgKey = "approve_unrestrict_failed"
		} else {
			msgKey = "approved"
		}
	case OutcomeTimeoutBan:
		c.ban(ctx, chat, user)
		msgKey = "timeout_banned"
	case OutcomeWrongAnswerBan:
		c.ban(ctx, chat, user)
		msgKey = "wrong_answer"
	case OutcomeTooFastBan:
		c.ban(ctx, chat, user)
		msgKey = "too_fast"
	}

	slog.Info("challenge resolved", "chatID", chat.ID, "userID", user.ID, "outcome", outcome.String())

	cleanup := []transport.MessageID{rec.Prompt}

	text := c.opts.Localizer.TData(msgKey, map[string]any{"Name": name})
	if msgID, err := c.opts.Transport.SendNotice(ctx, chat.ID, text); err != nil {
		slog.Error("can't post outcome notice", "chatID", chat.ID, "err", err)
	} else {
		cleanup = append(cleanup, msgID)
	}

	sink.FanOut(ctx, c.opts.Sinks, sink.Event{
		UserID:             user.ID,
		UserName:           user.Name,
		GroupID:            chat.ID,
		GroupName:          chat.Title,
		ChallengeCompleted: outcome == OutcomeApproved,
		Banned:             outcome.Banned(),
	})

	go c.cleanupAfter(chat.ID, cleanup)
}

func (c *Controller) ban(ctx context.Context, chat Chat, user User) {
	if err := c.opts.Transport.Ban(ctx, chat.ID, user.ID); err != nil {
		slog.Error("can't ban user", "chatID", chat.ID, "userID", user.ID, "err", err)
	}
}

func (c *Controller) cleanupAfter(chatID int64, ids []transport.MessageID) {
	t := time.NewTimer(c.opts.CleanupDelay)
	defer t.Stop()
	<-t.C

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, id := range ids {
		if err := c.opts.Transport.DeleteMessage(ctx, chatID, id); err != nil {
			slog.Debug("can't delete stale message", "chatID", chatID, "messageID", id, "err", err)
		}
	}
}
