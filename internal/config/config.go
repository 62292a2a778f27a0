package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the bot configuration, read from environment variables
// (with optional .env file support).
type Config struct {
	// Chat transport: "telegram" or "dummy".
	Transport       string
	TelegramAPIBase string
	PollTimeout     int
	SleepSeconds    int

	// Valuation provider: "manheim" or "dummy".
	Provider               string
	ManheimClientID        string
	ManheimClientSecret    string
	ManheimBaseURL         string
	ProviderTimeoutSeconds int

	// History store. ":memory:" keeps search history for the process
	// lifetime only.
	HistoryDBPath string

	// Poll-loop circuit breaker.
	CircuitThreshold       int
	CircuitCooldownSeconds int

	LogLevel  string
	LogPretty bool

	// Scripts for the dummy transport/provider.
	DummyPollScript     string
	DummyProviderScript string
}

// Load reads configuration from the environment, loading a .env file
// first if one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	transportKind := envOrDefault("AUCTIONBOT_TRANSPORT", "telegram")
	providerKind := envOrDefault("AUCTIONBOT_PROVIDER", "manheim")

	telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if transportKind == "telegram" && telegramToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required in environment when AUCTIONBOT_TRANSPORT=telegram")
	}
	clientID := os.Getenv("MANHEIM_CLIENT_ID")
	clientSecret := os.Getenv("MANHEIM_CLIENT_SECRET")
	if providerKind == "manheim" && (clientID == "" || clientSecret == "") {
		return Config{}, fmt.Errorf("MANHEIM_CLIENT_ID and MANHEIM_CLIENT_SECRET are required in environment when AUCTIONBOT_PROVIDER=manheim")
	}

	baseURL := "https://api.manheim.com"
	if envBoolOrDefault("USE_MANHEIM_UAT", false) {
		baseURL = "https://uat.api.manheim.com"
	}

	return Config{
		Transport:              transportKind,
		TelegramAPIBase:        fmt.Sprintf("https://api.telegram.org/bot%s", telegramToken),
		PollTimeout:            envIntOrDefault("TG_TIMEOUT", 30),
		SleepSeconds:           envIntOrDefault("TG_SLEEP_SECONDS", 1),
		Provider:               providerKind,
		ManheimClientID:        clientID,
		ManheimClientSecret:    clientSecret,
		ManheimBaseURL:         envOrDefault("MANHEIM_BASE_URL", baseURL),
		ProviderTimeoutSeconds: envIntOrDefault("MANHEIM_TIMEOUT_SECONDS", 20),
		HistoryDBPath:          envOrDefault("AUCTIONBOT_HISTORY_DB", ":memory:"),
		CircuitThreshold:       envIntOrDefault("AUCTIONBOT_CIRCUIT_THRESHOLD", 5),
		CircuitCooldownSeconds: envIntOrDefault("AUCTIONBOT_CIRCUIT_COOLDOWN_SECONDS", 30),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		LogPretty:              envBoolOrDefault("LOG_PRETTY", false),
		DummyPollScript:        envOrDefault("AUCTIONBOT_DUMMY_POLL_SCRIPT", "ok"),
		DummyProviderScript:    envOrDefault("AUCTIONBOT_DUMMY_PROVIDER_SCRIPT", "ok"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true")
}
