// Package telegram forwards critical alerts to the officials' Telegram group
// and answers a few read-only queue commands there.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"barangay/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the subset of *tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AlertMirror sends notifications to one chat.
type AlertMirror struct {
	Bot    Sender
	ChatID int64
}

// NewAlertMirror creates a mirror posting to chatID.
func NewAlertMirror(bot Sender, chatID int64) *AlertMirror {
	return &AlertMirror{Bot: bot, ChatID: chatID}
}

// Mirror implements notify.Mirror.
func (m *AlertMirror) Mirror(ctx context.Context, n models.Notification) error {
	if m.ChatID == 0 {
		return fmt.Errorf("telegram alert chat is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(m.ChatID, formatAlert(n))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := m.Bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}
	return nil
}

func formatAlert(n models.Notification) string {
	var b strings.Builder
	b.WriteString("*")
	b.WriteString(escapeMarkdownV2(n.Title))
	b.WriteString("*\n")
	b.WriteString(escapeMarkdownV2(n.Message))
	if n.ComplaintID != "" {
		b.WriteString("\n`")
		b.WriteString(n.ComplaintID)
		b.WriteString("`")
	}
	return b.String()
}

var markdownV2 = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

func escapeMarkdownV2(text string) string {
	return markdownV2.Replace(text)
}
