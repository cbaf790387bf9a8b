package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dungeon-oracle/internal/chaos"
	"dungeon-oracle/internal/store"
)

const ratePrefix = "rate:"

const storageErrReply = "🛑 The archive is jammed. Try again in a moment, adventurer."

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "advice":
		b.handleAdvice(ctx, msg, strings.TrimSpace(msg.CommandArguments()))
	case "quest":
		b.handleQuest(ctx, msg)
	case "stop":
		b.handleStop(msg)
	case "stats":
		b.handleStats(msg)
	case "leaderboard":
		b.handleLeaderboard(msg)
	case "report_now":
		b.handleReportNow(ctx, msg)
	case "set_chaos":
		b.handleSetChaos(msg)
	default:
		if !isGroup(msg) {
			b.sendMessage(msg.Chat.ID, "Unknown rite. Try /advice, /quest or /stats.")
		}
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	if err := b.store.UpsertUser(msg.From.ID, msg.From.UserName, b.clock.Now()); err != nil {
		log.Printf("⚠️ Failed to upsert user %d: %v", msg.From.ID, err)
	}
	welcome := fmt.Sprintf(
		"⚔️ *%s*\nI am the %s.\n\n"+
			"• /advice <your dilemma> — snarky, useful guidance\n"+
			"• /quest — a one-shot hook to spark chaos\n"+
			"• /stop — clear your current quest context\n"+
			"• /stats — your usage; /leaderboard — top fools\n"+
			"The more you invoke me today, the wilder I get. Dawn resets my temper.",
		b.botName, b.botName,
	)
	b.sendMessage(msg.Chat.ID, welcome)
}

func (b *Bot) handleAdvice(ctx context.Context, msg *tgbotapi.Message, question string) {
	reply, err := b.oracle.Advise(ctx, msg.From.ID, displayName(msg.From), question, msg.Chat.ID)
	if err != nil {
		log.Printf("❌ Advice request failed for user %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, storageErrReply)
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("%s\n\n_Chaos %.2f • Temp %.2f_", reply.Text, reply.Chaos, reply.Temperature))
	out.ParseMode = b.parseMode
	out.ReplyToMessageID = msg.MessageID
	out.ReplyMarkup = rateButtons(reply.ResponseID)
	if _, err := b.s.Send(out); err != nil {
		log.Printf("failed to send advice reply: %v", err)
	}
}

func (b *Bot) handleQuest(ctx context.Context, msg *tgbotapi.Message) {
	reply, err := b.oracle.QuestHook(ctx, msg.From.ID, displayName(msg.From), msg.Chat.ID)
	if err != nil {
		log.Printf("❌ Quest request failed for user %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, storageErrReply)
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"📜 *Quest Hook*\n%s\n\n_Use /advice to plot your approach — I'll remember this quest._",
		reply.Text,
	))
}

func (b *Bot) handleStop(msg *tgbotapi.Message) {
	if err := b.oracle.AbandonQuest(msg.From.ID); err != nil {
		log.Printf("❌ Failed to clear quest for user %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, storageErrReply)
		return
	}
	b.sendMessage(msg.Chat.ID, "🧹 Quest log cleared. Use /quest to start fresh chaos.")
}

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	stats, err := b.oracle.Stats(msg.From.ID)
	if err != nil {
		log.Printf("❌ Stats lookup failed for user %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, storageErrReply)
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"📊 Your stats — Interactions: %d, Tokens used: %d\n🔥 Today's chaos: %.2f",
		stats.Responses, stats.Tokens, stats.Chaos,
	))
}

func (b *Bot) handleLeaderboard(msg *tgbotapi.Message) {
	rows, err := b.store.Leaderboard(10)
	if err != nil {
		log.Printf("❌ Leaderboard lookup failed: %v", err)
		b.sendMessage(msg.Chat.ID, storageErrReply)
		return
	}
	if len(rows) == 0 {
		b.sendMessage(msg.Chat.ID, "No heroes have darkened my doorway yet.")
		return
	}
	lines := make([]string, 0, len(rows))
	for i, e := range rows {
		name := e.Username
		if name == "" {
			name = "unknown"
		}
		lines = append(lines, fmt.Sprintf("%d. @%s — %d rites", i+1, name, e.Interactions))
	}
	b.sendMessage(msg.Chat.ID, "🏆 *Leaderboard*\n"+strings.Join(lines, "\n"))
}

// handleReportNow sends today's report on demand. It deliberately does
// not touch the scheduler's last-report marker, so the automatic report
// still fires at its usual hour.
func (b *Bot) handleReportNow(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	if err := b.DeliverDailyReport(ctx, b.clock.Today()); err != nil {
		log.Printf("❌ Manual report failed: %v", err)
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("❌ Report failed: %v", err))
	}
}

func (b *Bot) handleSetChaos(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 3 {
		b.sendMessage(msg.Chat.ID, "Usage: /set_chaos <base> <slope> <max>")
		return
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			b.sendMessage(msg.Chat.ID, "Usage: /set_chaos <base> <slope> <max>")
			return
		}
		vals[i] = v
	}
	params := chaos.Params{Base: vals[0], Slope: vals[1], Max: vals[2]}
	b.oracle.SetChaosParams(params)
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Chaos tuned. base=%g, slope=%g, max=%g", params.Base, params.Slope, params.Max))
}

func (b *Bot) handleRateCallback(cb *tgbotapi.CallbackQuery) {
	responseID, vote, ok := parseRateData(cb.Data)
	if !ok {
		b.answerCallback(cb.ID, "Couldn't record that, the quill snapped.")
		return
	}
	if err := b.oracle.RecordVote(responseID, cb.From.ID, vote); err != nil {
		log.Printf("❌ Failed to record vote from %d: %v", cb.From.ID, err)
		b.answerCallback(cb.ID, "Couldn't record that, the quill snapped.")
		return
	}
	b.answerCallback(cb.ID, "Noted, adventurer.")
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.s.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("failed to answer callback: %v", err)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserID != 0 && userID == b.adminUserID
}

func rateButtons(responseID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍 Wise counsel", fmt.Sprintf("%s%d:up", ratePrefix, responseID)),
			tgbotapi.NewInlineKeyboardButtonData("👎 Fool's errand", fmt.Sprintf("%s%d:down", ratePrefix, responseID)),
		),
	)
}

func parseRateData(data string) (int64, store.Vote, bool) {
	parts := strings.Split(strings.TrimPrefix(data, ratePrefix), ":")
	if len(parts) != 2 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	switch parts[1] {
	case "up":
		return id, store.VoteUp, true
	case "down":
		return id, store.VoteDown, true
	}
	return 0, "", false
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return "adventurer"
}
