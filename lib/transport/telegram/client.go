// Package telegram is a thin Bot API client. It covers exactly the
// calls the gatekeeper needs: moderation, prompt delivery, message
// cleanup and long polling. No SDK, just the HTTPS wire format.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/atareao/expulsabot/lib/transport"
)

const (
	// DefaultAPIURL is the production Bot API endpoint prefix; the bot
	// token is appended directly to it.
	DefaultAPIURL = "https://api.telegram.org/bot"

	callTimeout = 10 * time.Second
	pollSeconds = 60
)

// ErrAPI is returned when the Bot API answers with ok=false.
var ErrAPI = errors.New("telegram: api error")

type Client struct {
	apiURL string
	token  string
	client *http.Client
}

var _ transport.Interface = (*Client)(nil)

type Option func(*Client)

// WithAPIURL overrides the Bot API endpoint prefix, mainly for tests.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) { c.apiURL = apiURL }
}

func New(token string, opts ...Option) *Client {
	result := &Client{
		apiURL: DefaultAPIURL,
		token:  token,
		client: &http.Client{},
	}

	for _, opt := range opts {
		opt(result)
	}

	return result
}

// call posts payload to a Bot API method and decodes the envelope's
// result field into out (when out is non-nil).
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: can't encode %s payload: %w", method, err)
	}

	url := c.apiURL + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: can't build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram: can't decode %s response: %w", method, err)
	}

	if !envelope.OK {
		desc := envelope.Description
		if desc == "" {
			desc = "unknown error"
		}
		return fmt.Errorf("%w: %s: %s", ErrAPI, method, desc)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram: can't decode %s result: %w", method, err)
		}
	}

	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, callTimeout)
}

func (c *Client) sendMessage(ctx context.Context, payload map[string]any) (transport.MessageID, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return transport.MessageID(msg.MessageID), nil
}

func (c *Client) SendNotice(ctx context.Context, chatID int64, text string) (transport.MessageID, error) {
	return c.sendMessage(ctx, map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
}

func (c *Client) SendPrompt(ctx context.Context, chatID int64, text string, answers []transport.Button) (transport.MessageID, error) {
	row := make([]inlineKeyboardButton, 0, len(answers))
	for _, a := range answers {
		row = append(row, inlineKeyboardButton{Text: a.Label, CallbackData: a.Token})
	}

	return c.sendMessage(ctx, map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"parse_mode":   "HTML",
		"reply_markup": inlineKeyboardMarkup{InlineKeyboard: [][]inlineKeyboardButton{row}},
	})
}

func (c *Client) setPermissions(ctx context.Context, chatID, userID int64, allowed bool) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.call(ctx, "restrictChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
		"permissions": map[string]bool{
			"can_send_messages":         allowed,
			"can_send_media_messages":   allowed,
			"can_send_other_messages":   allowed,
			"can_add_web_page_previews": allowed,
			"can_change_info":           allowed,
			"can_invite_users":          allowed,
			"can_pin_messages":          allowed,
		},
		"use_independent_chat_permissions": false,
		"until_date":                       0,
	}, nil)
}

func (c *Client) Restrict(ctx context.Context, chatID, userID int64) error {
	return c.setPermissions(ctx, chatID, userID, false)
}

func (c *Client) Unrestrict(ctx context.Context, chatID, userID int64) error {
	return c.setPermissions(ctx, chatID, userID, true)
}

func (c *Client) Ban(ctx context.Context, chatID, userID int64) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.call(ctx, "banChatMember", map[string]any{
		"chat_id":         chatID,
		"user_id":         userID,
		"revoke_messages": true,
	}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, id transport.MessageID) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": int64(id),
	}, nil)
}

// IsChatAdmin reports whether the user administrates the chat, used to
// gate the admin command surface.
func (c *Client) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var member Member
	if err := c.call(ctx, "getChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}, &member); err != nil {
		return false, err
	}

	return member.Status == "administrator" || member.Status == "creator", nil
}

// GetUpdates long-polls for updates at or after offset. The HTTP
// timeout leaves headroom over the server-side poll window.
func (c *Client) GetUpdates(ctx context.Context, offset uint64) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, (pollSeconds+10)*time.Second)
	defer cancel()

	var updates []Update
	if err := c.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": pollSeconds,
	}, &updates); err != nil {
		return nil, err
	}

	slog.Debug("polled updates", "count", len(updates), "offset", offset)
	return updates, nil
}
