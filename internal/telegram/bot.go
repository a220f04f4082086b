package telegram

import (
	"context"
	"fmt"
	"strings"

	"barangay/backend/internal/models"
	"barangay/backend/internal/triage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const queuePreview = 5

// QueueReader is the read side of the triage queue.
type QueueReader interface {
	View(filters triage.Filters, order triage.SortOrder) []models.Complaint
	Snapshot() []models.Complaint
}

// UpdateSource is the subset of *tgbotapi.BotAPI that yields updates.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotService answers /queue and /stats in the officials' chat. Messages from
// any other chat are ignored.
type BotService struct {
	Bot     Sender
	Updates UpdateSource
	Queue   QueueReader
	ChatID  int64
	Logger  zerolog.Logger
}

// NewBotAPI authorizes token against the Telegram API.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return bot, nil
}

// NewBotService creates the command service.
func NewBotService(bot *tgbotapi.BotAPI, queue QueueReader, chatID int64, logger zerolog.Logger) *BotService {
	return &BotService{
		Bot:     bot,
		Updates: bot,
		Queue:   queue,
		ChatID:  chatID,
		Logger:  logger.With().Str("component", "telegram").Logger(),
	}
}

// Run processes updates until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.Updates.GetUpdatesChan(u)
	defer s.Updates.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			s.HandleUpdate(update)
		}
	}
}

// HandleUpdate answers one update.
func (s *BotService) HandleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() || msg.Chat.ID != s.ChatID {
		return
	}

	var text string
	switch msg.Command() {
	case "queue":
		text = s.renderQueue()
	case "stats":
		text = s.renderStats()
	default:
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := s.Bot.Send(reply); err != nil {
		s.Logger.Error().Err(err).Str("command", msg.Command()).Msg("failed to answer telegram command")
	}
}

func (s *BotService) renderQueue() string {
	top := s.Queue.View(triage.Filters{}, triage.SortPriority)
	if len(top) == 0 {
		return escapeMarkdownV2("The queue is empty.")
	}
	if len(top) > queuePreview {
		top = top[:queuePreview]
	}

	var b strings.Builder
	b.WriteString("*Top complaints*\n")
	for i, c := range top {
		score := "unscored"
		if c.AIAnalysis != nil {
			score = fmt.Sprintf("%d %s", c.AIAnalysis.PriorityScore, c.AIAnalysis.UrgencyLevel)
		}
		line := fmt.Sprintf("%d. %s (%s, %s) [%s]", i+1, c.Title, c.Location, c.Status, score)
		if c.IsEscalated {
			line += " escalated"
		}
		b.WriteString(escapeMarkdownV2(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *BotService) renderStats() string {
	st := triage.ComputeStats(s.Queue.Snapshot())
	return escapeMarkdownV2(fmt.Sprintf(
		"Total: %d\nPending: %d\nCritical: %d\nResolved: %d",
		st.Total, st.Pending, st.Critical, st.Resolved,
	))
}
