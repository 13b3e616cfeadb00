package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/atareao/expulsabot/lib/transport/telegram"
)

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}

	// Commands in groups may carry the bot's mention: /status@somebot.
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	switch cmd {
	case "/start", "/help", "/status", "/whitelist", "/unwhitelist", "/stats", "/notify":
	default:
		return
	}

	ok, err := b.opts.API.IsChatAdmin(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		slog.Error("can't check admin status", "chatID", msg.Chat.ID, "userID", msg.From.ID, "err", err)
		b.reply(ctx, msg.Chat.ID, b.opts.Localizer.T("cmd_admin_check_failed"))
		return
	}
	if !ok {
		b.reply(ctx, msg.Chat.ID, b.opts.Localizer.T("cmd_admin_only"))
		return
	}

	switch cmd {
	case "/start":
		b.reply(ctx, msg.Chat.ID, b.opts.Localizer.T("cmd_start"))
	case "/help":
		b.reply(ctx, msg.Chat.ID, b.opts.Localizer.T("cmd_help"))
	case "/status":
		b.cmdStatus(ctx, msg.Chat.ID)
	case "/whitelist":
		b.cmdWhitelist(ctx, msg.Chat.ID, args)
	case "/unwhitelist":
		b.cmdUnwhitelist(ctx, msg.Chat.ID, args)
	case "/stats":
		b.cmdStats(ctx, msg.Chat.ID)
	case "/notify":
		b.cmdNotify(ctx, msg.Chat.ID, args)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.opts.API.SendNotice(ctx, chatID, text); err != nil {
		slog.Error("can't send command reply", "chatID", chatID, "err", err)
	}
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64) {
	treatment := b.opts.Localizer.T("bot_treatment_challenge")
	if b.opts.BanBotsDirectly {
		treatment = b.opts.Localizer.T("bot_treatment_ban")
	}

	b.reply(ctx, chatID, b.opts.Localizer.TData("status_uptime", map[string]any{
		"Uptime":       time.Since(b.started).Round(time.Second).String(),
		"Active":       b.opts.Controller.ActiveChallenges(),
		"BotTreatment": treatment,
	}))
}

func (b *Bot) cmdWhitelist(ctx context.Context, chatID int64, args []string) {
	userID, ok := parseUserID(args)
	if !ok {
		b.reply(ctx, chatID, b.opts.Localizer.T("whitelist_usage"))
		return
	}

	added, err := b.opts.ChatConfig.AddWhitelist(ctx, chatID, userID)
	if err != nil {
		slog.Error("can't update whitelist", "chatID", chatID, "userID", userID, "err", err)
		return
	}

	key := "whitelist_added"
	if !added {
		key = "whitelist_exists"
	}
	b.reply(ctx, chatID, b.opts.Localizer.TData(key, map[string]any{"ID": userID}))
}

func (b *Bot) cmdUnwhitelist(ctx context.Context, chatID int64, args []string) {
	userID, ok := parseUserID(args)
	if !ok {
		b.reply(ctx, chatID, b.opts.Localizer.T("unwhitelist_usage"))
		return
	}

	removed, err := b.opts.ChatConfig.RemoveWhitelist(ctx, chatID, userID)
	if err != nil {
		slog.Error("can't update whitelist", "chatID", chatID, "userID", userID, "err", err)
		return
	}

	key := "whitelist_removed"
	if !removed {
		key = "whitelist_missing"
	}
	b.reply(ctx, chatID, b.opts.Localizer.TData(key, map[string]any{"ID": userID}))
}

func (b *Bot) cmdStats(ctx context.Context, chatID int64) {
	settings, err := b.opts.ChatConfig.Get(ctx, chatID)
	if err != nil {
		slog.Error("can't load chat settings", "chatID", chatID, "err", err)
		return
	}

	b.reply(ctx, chatID, b.opts.Localizer.TData("stats", map[string]any{
		"BannedBots":  settings.BannedBots,
		"Whitelisted": len(settings.Whitelist),
	}))
}

func (b *Bot) cmdNotify(ctx context.Context, chatID int64, args []string) {
	var notify bool
	switch {
	case len(args) == 1 && args[0] == "on":
		notify = true
	case len(args) == 1 && args[0] == "off":
		notify = false
	default:
		b.reply(ctx, chatID, b.opts.Localizer.T("notify_usage"))
		return
	}

	if err := b.opts.ChatConfig.SetNotify(ctx, chatID, notify); err != nil {
		slog.Error("can't update notify setting", "chatID", chatID, "err", err)
		return
	}

	key := "notify_off"
	if notify {
		key = "notify_on"
	}
	b.reply(ctx, chatID, b.opts.Localizer.T(key))
}

func parseUserID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false
	}

	return userID, true
}
