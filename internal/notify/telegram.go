package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
)

// Telegram sends messages to one chat through the Bot API.
type Telegram struct {
	bot    *bot.Bot
	chatID any
}

// NewTelegram builds a sender for chatID, which is either a numeric id or an
// @channel username. Extra options (e.g. bot.WithServerURL) are appended.
func NewTelegram(token, chatID string, client *http.Client, opts ...bot.Option) (*Telegram, error) {
	token = strings.TrimSpace(token)
	chatID = strings.TrimSpace(chatID)
	if token == "" {
		return nil, errors.New("telegram: missing bot token")
	}
	if chatID == "" {
		return nil, errors.New("telegram: missing chat id")
	}

	options := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(time.Minute, client),
	}
	options = append(options, opts...)

	b, err := bot.New(token, options...)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	var chat any = chatID
	if n, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		chat = n
	}
	return &Telegram{bot: b, chatID: chat}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if _, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
