package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers one HTML message per matched job to a chat
type Telegram struct {
	api    botAPI
	chatID int64
}

// NewTelegram authenticates the bot token against the Bot API
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("notify: telegram token and chat id are required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: init telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, job domain.MatchedJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, formatJob(job))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("View job", job.URL)),
	)

	_, err := t.api.Send(msg)
	return err
}

func formatJob(j domain.MatchedJob) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(j.Title))
	fmt.Fprintf(&b, "%s\n", html.EscapeString(j.Company))

	loc := j.Location
	if loc == "" {
		loc = "N/A"
	}
	if j.IsBayArea {
		loc += " (Bay Area)"
	}
	fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(loc))

	if j.DatePosted != "" {
		fmt.Fprintf(&b, "📅 %s\n", html.EscapeString(j.DatePosted))
	}
	fmt.Fprintf(&b, "🔖 %s", html.EscapeString(j.Source))
	return b.String()
}
