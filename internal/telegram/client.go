package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"SigFlow/pkg/logger"
)

// Client wraps the Bot API for outbound delivery. It implements the
// Notifier contract used by the queue job handlers.
type Client struct {
	bot *tgbotapi.BotAPI
	log *logger.Logger
}

func NewClient(token string, log *logger.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}
	log.Info("telegram bot authorized", logger.String("username", bot.Self.UserName))
	return &Client{bot: bot, log: log}, nil
}

// SendMessage sends text to a chat. The Bot API client has no context
// support, so cancellation is checked up front only.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if parseMode != "" {
		msg.ParseMode = parseMode
	}
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// LogNotifier logs outbound messages instead of sending them. Used when
// no bot token is configured, so local runs work without credentials.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendMessage(_ context.Context, chatID int64, text string, _ string) error {
	n.log.Info("telegram disabled, message dropped",
		logger.Int64("chatId", chatID),
		logger.Int("length", len(text)))
	return nil
}
