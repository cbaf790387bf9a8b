package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dungeon-oracle/internal/clock"
	"dungeon-oracle/internal/oracle"
	"dungeon-oracle/internal/report"
	"dungeon-oracle/internal/store"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	oracle      *oracle.Service
	store       store.Store
	clock       *clock.Resolver
	adminUserID int64
	botName     string
	parseMode   string
	username    string
}

func New(botToken string, svc *oracle.Service, st store.Store, res *clock.Resolver, adminUserID int64, botName, parseMode string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:         api,
		s:           botAPISender{api: api},
		oracle:      svc,
		store:       st,
		clock:       res,
		adminUserID: adminUserID,
		botName:     botName,
		parseMode:   parseMode,
		username:    api.Self.UserName,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil {
			// Handlers block on the LLM; dispatch each message on its
			// own goroutine so users don't queue behind each other.
			// Per-user ordering is enforced inside the oracle service.
			msg := update.Message
			go b.handleIncomingMessage(ctx, msg)
			continue
		}
		if update.CallbackQuery != nil {
			b.handleCallback(update.CallbackQuery)
			continue
		}
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if isGroup(msg) {
		// In groups only react when addressed; a mention with text is
		// treated as an advice request.
		if text, ok := b.mentionText(msg); ok && text != "" {
			b.handleAdvice(ctx, msg, text)
		}
		return
	}
	if strings.TrimSpace(msg.Text) != "" {
		b.sendMessage(msg.Chat.ID, "Use /advice <your dilemma> or /quest. Try /stats.")
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Data == "" || cb.From == nil {
		return
	}
	if strings.HasPrefix(cb.Data, ratePrefix) {
		b.handleRateCallback(cb)
		return
	}
}

func isGroup(msg *tgbotapi.Message) bool {
	return msg.Chat != nil && (msg.Chat.IsGroup() || msg.Chat.IsSuperGroup())
}

// mentionText reports whether the bot is @-mentioned and returns the
// message text with the mention stripped.
func (b *Bot) mentionText(msg *tgbotapi.Message) (string, bool) {
	if b.username == "" || msg.Text == "" {
		return "", false
	}
	mention := "@" + b.username
	if !strings.Contains(strings.ToLower(msg.Text), strings.ToLower(mention)) {
		return "", false
	}
	cleaned := strings.NewReplacer(mention, "", strings.ToLower(mention), "").Replace(msg.Text)
	return strings.TrimSpace(cleaned), true
}

// DeliverDailyReport aggregates the given local day and sends the
// report to the admin. Used by both the scheduler and /report_now.
func (b *Bot) DeliverDailyReport(ctx context.Context, day string) error {
	if b.adminUserID == 0 {
		return nil
	}
	from, to, err := b.clock.DayBounds(day)
	if err != nil {
		return err
	}
	sum, err := report.Build(b.store, b.botName, day, from, to)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(b.adminUserID, sum.Text())
	msg.ParseMode = b.parseMode
	if _, err := b.s.Send(msg); err != nil {
		return fmt.Errorf("failed to deliver report: %w", err)
	}
	log.Printf("📮 Daily report for %s delivered", day)
	return nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
