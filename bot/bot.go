package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"earnapp/config"
	"earnapp/service"
)

// Bot handles the Telegram side: the /start entry point with referral
// payloads and a /balance shortcut. All earning happens in the mini app.
type Bot struct {
	instance *telego.Bot
	handler  *th.BotHandler
	cfg      *config.Config
	users    service.UserService
}

// NewBot creates the Telegram bot
func NewBot(cfg *config.Config, users service.UserService) (*Bot, error) {
	tgBot, err := telego.NewBot(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		instance: tgBot,
		cfg:      cfg,
		users:    users,
	}, nil
}

// Instance exposes the underlying client for notifier wiring
func (b *Bot) Instance() *telego.Bot {
	return b.instance
}

// Start begins long polling and blocks until the handler stops
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}
	b.handler = handler

	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleBalance, th.CommandEqual("balance"))

	log.Info("Telegram bot started")
	return handler.Start()
}

// Stop shuts down the update handler
func (b *Bot) Stop() error {
	if b.handler == nil {
		return nil
	}
	return b.handler.Stop()
}

// parseReferralPayload extracts the referrer id from a /start payload of
// the form "ref<id>" (e.g. "ref123456"). Returns nil for anything else.
func parseReferralPayload(text string) *int64 {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return nil
	}
	payload := strings.TrimPrefix(parts[1], "ref")
	if payload == parts[1] {
		return nil
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	userID := message.From.ID

	if _, err := b.users.GetOrCreateUser(ctx.Context(), userID, nil); err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to get or create user")
		return nil
	}

	if refID := parseReferralPayload(message.Text); refID != nil {
		if err := b.users.ConfirmReferral(ctx.Context(), userID, *refID); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"userID":   userID,
				"referrer": *refID,
			}).Error("Failed to confirm referral")
		}
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🎬 Start earning").
				WithWebApp(&telego.WebAppInfo{URL: b.cfg.MiniAppURL}),
		),
	)

	_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(
		tu.ID(message.Chat.ID),
		fmt.Sprintf("Welcome, %s! 👋\n\nWatch ads, earn points and invite friends for a bonus on every ad they watch. Open the app to get started.", message.From.FirstName),
	).WithReplyMarkup(keyboard))
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to send welcome message")
	}
	return nil
}

func (b *Bot) handleBalance(ctx *th.Context, update telego.Update) error {
	message := update.Message
	userID := message.From.ID

	user, err := b.users.GetOrCreateUser(ctx.Context(), userID, nil)
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to load balance")
		return nil
	}

	_, err = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
		tu.ID(message.Chat.ID),
		fmt.Sprintf("💰 Balance: %d points\n👥 Invited friends: %d\n\nMinimum withdrawal: %d points.",
			user.Balance, user.InvitedFriends, b.cfg.MinWithdrawal),
	))
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to send balance message")
	}
	return nil
}
