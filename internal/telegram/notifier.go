package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxTelegramMessage = 4096
	// TargetPrefix marks delivery targets handled by the Notifier.
	TargetPrefix = "telegram:"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends alert summaries to counselor chats.
type Notifier struct {
	bot sender
}

// New creates a Telegram notifier for the given bot token.
func New(token string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Notifier{bot: bot}, nil
}

// Deliver sends text to the chat named by target ("telegram:<chat_id>"),
// split into Telegram-sized parts. It satisfies delivery.Handler.
func (n *Notifier) Deliver(ctx context.Context, target, text string) error {
	chatID, err := ParseTarget(target)
	if err != nil {
		return err
	}
	for _, part := range splitMessage(text) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("telegram deliver: %w", err)
		}
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := n.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send to %d: %w", chatID, err)
		}
	}
	slog.Debug("telegram alert delivered", "chat_id", chatID)
	return nil
}

// ParseTarget extracts the chat id from "telegram:<chat_id>".
func ParseTarget(target string) (int64, error) {
	raw, ok := strings.CutPrefix(target, TargetPrefix)
	if !ok {
		return 0, fmt.Errorf("not a telegram target: %q", target)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", raw, err)
	}
	return id, nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
