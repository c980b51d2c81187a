package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/internal/usecase"
	"SigFlow/pkg/logger"
	"SigFlow/pkg/queue"
)

// ChatID tolerates chat identifiers sent as either JSON numbers or
// strings, which external producers mix freely.
type ChatID int64

func (c *ChatID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", s, err)
	}
	*c = ChatID(v)
	return nil
}

// SendSignalJob delivers a formatted signal to one chat.
type SendSignalJob struct {
	notifier repository.Notifier
	log      *logger.Logger
}

func NewSendSignalJob(notifier repository.Notifier, log *logger.Logger) *SendSignalJob {
	return &SendSignalJob{notifier: notifier, log: log}
}

func (j *SendSignalJob) Name() string { return "telegram_signal_sender" }
func (j *SendSignalJob) Type() string { return usecase.JobSendTelegramSignal }

func (j *SendSignalJob) Handle(ctx context.Context, payload interface{}) error {
	msg, err := queue.ParsePayload[models.SignalMessage](payload)
	if err != nil {
		return fmt.Errorf("parse signal payload: %w", err)
	}
	if msg.Signal == nil {
		return fmt.Errorf("signal payload has no signal")
	}

	text := FormatSignal(msg.Signal)
	if err := j.notifier.SendMessage(ctx, msg.ChatID, text, "HTML"); err != nil {
		return fmt.Errorf("send signal to chat %d: %w", msg.ChatID, err)
	}

	j.log.Debug("signal delivered",
		logger.Int64("chatId", msg.ChatID),
		logger.String("instrument", msg.Signal.Instrument))
	return nil
}

type textPayload struct {
	ChatID    ChatID `json:"chatId"`
	Text      string `json:"text"`
	ParseMode string `json:"parseMode"`
}

// SendTextJob delivers plain text to one chat.
type SendTextJob struct {
	notifier repository.Notifier
	log      *logger.Logger
}

func NewSendTextJob(notifier repository.Notifier, log *logger.Logger) *SendTextJob {
	return &SendTextJob{notifier: notifier, log: log}
}

func (j *SendTextJob) Name() string { return "telegram_text_sender" }
func (j *SendTextJob) Type() string { return usecase.JobSendTelegramText }

func (j *SendTextJob) Handle(ctx context.Context, payload interface{}) error {
	msg, err := queue.ParsePayload[textPayload](payload)
	if err != nil {
		return fmt.Errorf("parse text payload: %w", err)
	}
	if msg.ChatID == 0 || msg.Text == "" {
		return fmt.Errorf("text payload missing chat id or text")
	}

	if err := j.notifier.SendMessage(ctx, int64(msg.ChatID), msg.Text, msg.ParseMode); err != nil {
		return fmt.Errorf("send text to chat %d: %w", msg.ChatID, err)
	}
	return nil
}

// FormatSignal renders a signal as a Telegram HTML message.
func FormatSignal(sig *models.Signal) string {
	var b strings.Builder

	icon := "ℹ️"
	switch sig.Side {
	case models.SideBuy:
		icon = "🟢"
	case models.SideSell:
		icon = "🔴"
	}

	fmt.Fprintf(&b, "%s <b>%s %s</b> [%s]\n", icon, sig.Side, sig.Instrument, sig.Interval)
	fmt.Fprintf(&b, "Strategy: <code>%s</code>\n", sig.Strategy)
	if sig.Price != nil {
		fmt.Fprintf(&b, "Price: <b>%.6f</b>\n", *sig.Price)
	}
	fmt.Fprintf(&b, "Confidence: %d\n", sig.Confidence)

	if lv := sig.Levels; lv != nil {
		if lv.Entry != nil {
			fmt.Fprintf(&b, "Entry: %.6f\n", *lv.Entry)
		}
		if lv.SL != nil {
			fmt.Fprintf(&b, "SL: %.6f\n", *lv.SL)
		}
		if lv.TP1 != nil {
			fmt.Fprintf(&b, "TP1: %.6f\n", *lv.TP1)
		}
		if lv.TP2 != nil {
			fmt.Fprintf(&b, "TP2: %.6f\n", *lv.TP2)
		}
	}

	if sig.Reason != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>", htmlEscape(sig.Reason))
	}
	return strings.TrimRight(b.String(), "\n")
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
