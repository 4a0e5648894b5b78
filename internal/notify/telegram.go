package notify

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}

// Telegram sends messages to one HR chat. It only sends, it never polls for updates.
type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
}

func NewTelegram(c TelegramConfig) (*Telegram, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   c.Token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}

	return &Telegram{bot: bot, chat: tele.ChatID(c.ChatID)}, nil
}

func (t *Telegram) Send(_ context.Context, text string) error {
	if _, err := t.bot.Send(t.chat, text); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}
