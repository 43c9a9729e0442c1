package notify

import (
	"log"
	"strings"

	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramChannel delivers notifications to users who linked a Telegram chat.
type TelegramChannel struct {
	Bot *tgbotapi.BotAPI
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Deliver(user *models.User, ev models.Event) error {
	if user.TelegramChatID == 0 {
		return nil // not linked, nothing to do
	}
	msg := tgbotapi.NewMessage(user.TelegramChatID, ev.Title+"\n\n"+ev.Body)
	_, err := t.Bot.Send(msg)
	return err
}

// BotService runs the inbound side of the Telegram integration: account
// linking via /start and public report tracking via /track.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Storage   storage.Storage
	Templates *TemplateStore
}

// NewBotService authorizes the bot and returns the service.
func NewBotService(token string, s storage.Storage, templates *TemplateStore) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)

	return &BotService{
		BotAPI:    bot,
		Storage:   s,
		Templates: templates,
	}, nil
}

// Channel returns the delivery channel backed by this bot.
func (s *BotService) Channel() *TelegramChannel {
	return &TelegramChannel{Bot: s.BotAPI}
}

// Run polls Telegram for updates. Call it in its own goroutine.
func (s *BotService) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for update := range s.BotAPI.GetUpdatesChan(u) {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}

		chatID := update.Message.Chat.ID
		switch update.Message.Command() {
		case "start":
			s.handleStart(chatID, strings.TrimSpace(update.Message.CommandArguments()))
		case "track":
			s.handleTrack(chatID, strings.TrimSpace(update.Message.CommandArguments()))
		}
	}
}

// handleStart links the chat to the account whose ID came in the deep-link
// payload (the web app opens t.me/<bot>?start=<user-id>).
func (s *BotService) handleStart(chatID int64, userID string) {
	if userID == "" {
		return
	}
	if err := s.Storage.LinkTelegram(userID, chatID); err != nil {
		log.Printf("ERROR: Failed to link Telegram chat %d to user %s: %v", chatID, userID, err)
		return
	}

	lang := "en"
	if user, err := s.Storage.GetUserByID(userID); err == nil {
		lang = user.Language
	}
	s.reply(chatID, s.Templates.Render(lang, "telegram.linked"))
}

// handleTrack answers with the report's current status. Same contract as the
// public tracking page: complaint ID in, status out, no authentication.
func (s *BotService) handleTrack(chatID int64, complaintID string) {
	if complaintID == "" {
		s.reply(chatID, s.Templates.Render("en", "telegram.track_usage"))
		return
	}

	report, err := s.Storage.GetReportByComplaintID(complaintID)
	if err != nil {
		s.reply(chatID, s.Templates.Render("en", "telegram.track_not_found"))
		return
	}

	s.reply(chatID, s.Templates.Render("en", "telegram.track_status",
		report.ComplaintID, report.Status, report.UpdatedAt.Format("02 Jan 2006 15:04")))
}

func (s *BotService) reply(chatID int64, text string) {
	if _, err := s.BotAPI.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("ERROR: Failed to send Telegram reply to chat %d: %v", chatID, err)
	}
}
