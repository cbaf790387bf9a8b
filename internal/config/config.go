package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminUserID      int64  `env:"ADMIN_USER_ID"`
	BotName          string `env:"BOT_NAME" envDefault:"Dungeon Oracle"`

	// LLM settings
	LLMProvider   LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"15s"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Yandex (optional)
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// Storage & persona
	DBPath      string `env:"DB_PATH" envDefault:"data/dungeon_oracle.db"`
	PersonaPath string `env:"PERSONA_PATH" envDefault:"prompts/persona_dm.json"`

	// Daily cycle
	Timezone        string `env:"TIMEZONE" envDefault:"America/Los_Angeles"`
	DailyReportHour int    `env:"DAILY_REPORT_HOUR" envDefault:"23"`

	// Chaos ramp
	ChaosBase  float64 `env:"CHAOS_BASE" envDefault:"0.5"`
	ChaosSlope float64 `env:"CHAOS_SLOPE" envDefault:"0.015"`
	ChaosMax   float64 `env:"CHAOS_MAX" envDefault:"1.3"`

	MaxHistoryPerUser int     `env:"MAX_HISTORY_PER_USER" envDefault:"5"`
	SystemTemperature float64 `env:"SYSTEM_TEMPERATURE" envDefault:"0.7"`

	// Formatting
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"Markdown"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
