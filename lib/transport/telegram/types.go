package telegram

import "encoding/json"

// Wire types for the subset of the Bot API this daemon consumes.

type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text,omitempty"`
	Date      int64  `json:"date,omitempty"`

	// Telegram has announced new members three different ways over the
	// API's lifetime; all three still appear in the wild.
	NewChatMembers     []User `json:"new_chat_members,omitempty"`
	NewChatMember      *User  `json:"new_chat_member,omitempty"`
	NewChatParticipant *User  `json:"new_chat_participant,omitempty"`
}

// Member is a chat membership snapshot. Status is one of "creator",
// "administrator", "member", "restricted", "left", "kicked".
type Member struct {
	Status string `json:"status"`
	User   User   `json:"user"`
}

type ChatMemberUpdated struct {
	Chat          Chat   `json:"chat"`
	From          User   `json:"from"`
	Date          int64  `json:"date"`
	OldChatMember Member `json:"old_chat_member"`
	NewChatMember Member `json:"new_chat_member"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type Update struct {
	UpdateID      uint64             `json:"update_id"`
	Message       *Message           `json:"message,omitempty"`
	CallbackQuery *CallbackQuery     `json:"callback_query,omitempty"`
	ChatMember    *ChatMemberUpdated `json:"chat_member,omitempty"`
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

// apiResponse is the Bot API envelope every call comes back in.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}
