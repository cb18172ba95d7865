// Package telegram runs the long-polling Telegram bot: /start with the
// mini-app button, /help, and plain-text feedback forwarded to the admin.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/autogenz/movieai/internal/profile"
)

const updateTimeoutSeconds = 30

type Bot struct {
	bot       *tgbotapi.BotAPI
	adminID   int64
	webAppURL string
}

func NewBot(profile *profile.Profile) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(profile.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &Bot{
		bot:       bot,
		adminID:   profile.TelegramAdminID,
		webAppURL: profile.WebAppURL,
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeoutSeconds

	updates := b.bot.GetUpdatesChan(updateConfig)
	slog.Info("telegram bot started", "username", b.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	lang := userLang(msg)
	switch msg.Command() {
	case "start":
		b.sendWelcome(msg.Chat.ID, lang)
	case "help":
		b.reply(msg.Chat.ID, helpMessage[lang])
	case "":
		if msg.Text != "" {
			b.handleFeedback(msg, lang)
		}
	}
}

func (b *Bot) sendWelcome(chatID int64, lang string) {
	reply := tgbotapi.NewMessage(chatID, welcomeMessage[lang])
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.InlineKeyboardButton{
				Text:   buttonText[lang],
				WebApp: &tgbotapi.WebAppInfo{URL: b.webAppURL},
			},
		),
	)
	if _, err := b.bot.Send(reply); err != nil {
		slog.Warn("telegram: failed to send welcome", "chat_id", chatID, "error", err)
	}
}

// handleFeedback forwards a plain message to the admin and acknowledges
// the sender.
func (b *Bot) handleFeedback(msg *tgbotapi.Message, lang string) {
	if b.adminID != 0 && msg.Chat.ID != b.adminID {
		username := msg.From.UserName
		if username == "" {
			username = "no username"
		}
		forward := tgbotapi.NewMessage(b.adminID,
			fmt.Sprintf("Feedback from @%s (%d):\n%s", username, msg.Chat.ID, msg.Text))
		if _, err := b.bot.Send(forward); err != nil {
			slog.Warn("telegram: failed to forward feedback", "error", err)
		}
	}
	b.reply(msg.Chat.ID, feedbackMessage[lang])
}

func (b *Bot) reply(chatID int64, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.bot.Send(reply); err != nil {
		slog.Warn("telegram: failed to send message", "chat_id", chatID, "error", err)
	}
}

func userLang(msg *tgbotapi.Message) string {
	if strings.HasPrefix(msg.From.LanguageCode, "ru") {
		return "ru"
	}
	return "en"
}
