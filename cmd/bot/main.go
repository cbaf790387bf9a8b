package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"dungeon-oracle/internal/chaos"
	"dungeon-oracle/internal/clock"
	"dungeon-oracle/internal/config"
	"dungeon-oracle/internal/llm"
	"dungeon-oracle/internal/oracle"
	"dungeon-oracle/internal/persona"
	"dungeon-oracle/internal/scheduler"
	"dungeon-oracle/internal/store"
	"dungeon-oracle/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	resolver, err := clock.NewResolver(cfg.Timezone, clock.System())
	if err != nil {
		log.Fatalf("failed to init timezone: %v", err)
	}

	st, err := store.NewSQLite(cfg.DBPath, cfg.MaxHistoryPerUser)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	p, err := persona.Load(cfg.PersonaPath)
	if err != nil {
		log.Fatalf("failed to load persona: %v", err)
	}

	factory := llm.NewFactory(cfg)
	llmClient, err := factory.CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	svc := oracle.New(
		st,
		llmClient,
		p,
		resolver,
		chaos.Params{Base: cfg.ChaosBase, Slope: cfg.ChaosSlope, Max: cfg.ChaosMax},
		cfg.SystemTemperature,
		cfg.LLMTimeout,
	)

	bot, err := telegram.New(
		cfg.TelegramBotToken,
		svc,
		st,
		resolver,
		cfg.AdminUserID,
		cfg.BotName,
		cfg.MessageParseMode,
	)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	if cfg.AdminUserID != 0 {
		sched := scheduler.New(resolver, st, cfg.DailyReportHour)
		sched.SetReportFunction(bot.DeliverDailyReport)
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	} else {
		log.Println("⚠️ ADMIN_USER_ID not set, daily reports disabled")
	}

	log.Printf("⚔️ %s is listening...", cfg.BotName)
	bot.Start(context.Background())
}
