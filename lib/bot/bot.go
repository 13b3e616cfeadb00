// Package bot is the Telegram-facing orchestration layer: it consumes
// the update stream and routes arrivals, answers, and commands into the
// challenge core.
package bot

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atareao/expulsabot"
	"github.com/atareao/expulsabot/lib/chatconfig"
	"github.com/atareao/expulsabot/lib/exempt"
	"github.com/atareao/expulsabot/lib/lifecycle"
	"github.com/atareao/expulsabot/lib/localization"
	"github.com/atareao/expulsabot/lib/sink"
	"github.com/atareao/expulsabot/lib/transport"
	"github.com/atareao/expulsabot/lib/transport/telegram"
)

var (
	ErrNoAPI        = errors.New("bot: no API client configured")
	ErrNoController = errors.New("bot: no challenge controller configured")
	ErrNoChatConfig = errors.New("bot: no chat settings store configured")
)

var botsBanned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "expulsabot_bots_banned_directly",
	Help: "The number of bot accounts banned without being challenged.",
})

// pollBackoff is how long the update loop waits after a failed poll.
const pollBackoff = 5 * time.Second

// API is everything the bot needs from Telegram: the challenge side
// effects plus the update stream and admin lookups.
type API interface {
	transport.Interface

	GetUpdates(ctx context.Context, offset uint64) ([]telegram.Update, error)
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

type Options struct {
	API        API
	Controller *lifecycle.Controller
	ChatConfig *chatconfig.Store

	// Exemptions may be nil; then only the per-chat whitelist exempts.
	Exemptions *exempt.Policy

	// Sinks receive events for bots banned without a challenge. Outcomes
	// of issued challenges go through the controller's own sinks.
	Sinks []sink.Interface

	// BanBotsDirectly removes arriving bot accounts immediately instead
	// of challenging them.
	BanBotsDirectly bool

	Localizer *localization.SimpleLocalizer
}

type Bot struct {
	opts    Options
	started time.Time
}

func New(opts Options) (*Bot, error) {
	if opts.API == nil {
		return nil, ErrNoAPI
	}
	if opts.Controller == nil {
		return nil, ErrNoController
	}
	if opts.ChatConfig == nil {
		return nil, ErrNoChatConfig
	}

	if opts.Localizer == nil {
		opts.Localizer = localization.NewService().Localizer(expulsabot.DefaultLocale)
	}

	return &Bot{
		opts:    opts,
		started: time.Now(),
	}, nil
}

// Run consumes the update stream until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	var offset uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := b.opts.API.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			slog.Error("can't poll for updates", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollBackoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleAnswer(ctx, update.CallbackQuery)
	case update.ChatMember != nil:
		b.handleMemberTransition(ctx, update.ChatMember)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleAnswer(ctx context.Context, cq *telegram.CallbackQuery) {
	if cq.Message == nil {
		return
	}

	chat := lifecycle.Chat{ID: cq.Message.Chat.ID, Title: cq.Message.Chat.Title}
	user := lifecycle.User{ID: cq.From.ID, Name: displayName(cq.From)}

	b.opts.Controller.Resolve(ctx, chat, user, cq.Data)
}

func (b *Bot) handleMemberTransition(ctx context.Context, cm *telegram.ChatMemberUpdated) {
	if cm.NewChatMember.Status != "member" {
		return
	}
	switch cm.OldChatMember.Status {
	case "member", "creator", "administrator", "restricted":
		// Not an arrival.
		return
	}

	b.handleArrival(ctx, cm.Chat, cm.NewChatMember.User)
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	for _, user := range newcomers(msg) {
		b.handleArrival(ctx, msg.Chat, user)
	}

	if strings.HasPrefix(msg.Text, "/") && msg.From != nil {
		b.handleCommand(ctx, msg)
	}
}

// newcomers collects arriving users across the three shapes the Bot API
// has announced them in, deduplicated by user ID.
func newcomers(msg *telegram.Message) []telegram.User {
	var result []telegram.User
	seen := map[int64]bool{}

	add := func(u telegram.User) {
		if seen[u.ID] {
			return
		}
		seen[u.ID] = true
		result = append(result, u)
	}

	for _, u := range msg.NewChatMembers {
		add(u)
	}
	if msg.NewChatMember != nil {
		add(*msg.NewChatMember)
	}
	if msg.NewChatParticipant != nil {
		add(*msg.NewChatParticipant)
	}

	return result
}

func (b *Bot) handleArrival(ctx context.Context, chat telegram.Chat, user telegram.User) {
	whitelisted, err := b.opts.ChatConfig.Whitelisted(ctx, chat.ID, user.ID)
	if err != nil {
		slog.Error("can't check whitelist, treating user as not whitelisted", "chatID", chat.ID, "userID", user.ID, "err", err)
	}

	exemptByRule := b.opts.Exemptions.Exempt(ctx, exempt.Params{
		UserID:      user.ID,
		Username:    user.Username,
		IsBot:       user.IsBot,
		ChatID:      chat.ID,
		Whitelisted: whitelisted,
	})

	if whitelisted || exemptByRule {
		slog.Info("arrival is exempt", "chatID", chat.ID, "userID", user.ID, "whitelisted", whitelisted, "byRule", exemptByRule)
		return
	}

	if user.IsBot && b.opts.BanBotsDirectly {
		b.banBot(ctx, chat, user)
		return
	}

	lc := lifecycle.Chat{ID: chat.ID, Title: chat.Title}
	lu := lifecycle.User{ID: user.ID, Name: displayName(user)}
	if err := b.opts.Controller.Start(ctx, lc, lu); err != nil {
		slog.Error("can't start challenge", "chatID", chat.ID, "userID", user.ID, "err", err)
	}
}

// banBot removes an arriving bot account without issuing a challenge.
func (b *Bot) banBot(ctx context.Context, chat telegram.Chat, user telegram.User) {
	if err := b.opts.API.Ban(ctx, chat.ID, user.ID); err != nil {
		slog.Error("can't ban arriving bot", "chatID", chat.ID, "userID", user.ID, "err", err)
		return
	}

	botsBanned.Inc()
	slog.Info("banned arriving bot", "chatID", chat.ID, "userID", user.ID)

	if _, err := b.opts.ChatConfig.IncrBanned(ctx, chat.ID); err != nil {
		slog.Error("can't bump banned bot counter", "chatID", chat.ID, "err", err)
	}

	settings, err := b.opts.ChatConfig.Get(ctx, chat.ID)
	if err != nil {
		slog.Error("can't load chat settings", "chatID", chat.ID, "err", err)
		settings = chatconfig.Default()
	}

	if settings.NotifyOnBan {
		text := b.opts.Localizer.TData("bot_banned_notice", map[string]any{"Name": html.EscapeString(displayName(user))})
		if _, err := b.opts.API.SendNotice(ctx, chat.ID, text); err != nil {
			slog.Error("can't post bot ban notice", "chatID", chat.ID, "err", err)
		}
	}

	sink.FanOut(ctx, b.opts.Sinks, sink.Event{
		UserID:    user.ID,
		UserName:  displayName(user),
		GroupID:   chat.ID,
		GroupName: chat.Title,
		Banned:    true,
	})
}

func displayName(u telegram.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}
