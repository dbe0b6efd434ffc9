package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends messages to a fixed chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a Telegram sender. Returns nil if token is empty
// (Telegram disabled).
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Send sends a plain text message to the configured chat.
func (t *Telegram) Send(msg string) error {
	if t == nil {
		return nil
	}
	m := tgbotapi.NewMessage(t.chatID, msg)
	m.ParseMode = "Markdown"
	if _, err := t.api.Send(m); err != nil {
		return fmt.Errorf("notify.Telegram.Send: %w", err)
	}
	return nil
}
