package notify

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

type TelegramOption func(*tele.Settings)

// WithAPIURL points the bot at a different Bot API server.
func WithAPIURL(url string) TelegramOption {
	return func(s *tele.Settings) { s.URL = url }
}

// TelegramNotifier sends summaries to one chat. It never polls for updates.
type TelegramNotifier struct {
	bot  *tele.Bot
	chat tele.ChatID
}

func NewTelegram(token string, chatID int64, opts ...TelegramOption) (*TelegramNotifier, error) {
	settings := tele.Settings{
		Token:   token,
		Offline: true, // no getMe round trip at startup
	}
	for _, opt := range opts {
		opt(&settings)
	}
	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("new bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chat: tele.ChatID(chatID)}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(n.chat, text, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
