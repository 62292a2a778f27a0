package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/bot"
	"github.com/stupiduntilnot/auctionbot/internal/config"
	"github.com/stupiduntilnot/auctionbot/internal/dummy"
	"github.com/stupiduntilnot/auctionbot/internal/history"
	"github.com/stupiduntilnot/auctionbot/internal/manheim"
	"github.com/stupiduntilnot/auctionbot/internal/session"
	"github.com/stupiduntilnot/auctionbot/internal/telegram"
	"github.com/stupiduntilnot/auctionbot/internal/transport"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
	"github.com/stupiduntilnot/auctionbot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	db, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history db")
	}
	defer db.Close()
	if err := history.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize history schema")
	}

	var t transport.Transport
	switch cfg.Transport {
	case "dummy":
		t, err = dummy.NewTransport(cfg.DummyPollScript)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid dummy transport script")
		}
	case "telegram":
		t = telegram.NewClient(cfg.TelegramAPIBase, time.Duration(cfg.PollTimeout+10)*time.Second)
	default:
		log.Fatal().Str("transport", cfg.Transport).Msg("unknown transport")
	}

	var p valuation.Provider
	switch cfg.Provider {
	case "dummy":
		p, err = dummy.NewProvider(cfg.DummyProviderScript)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid dummy provider script")
		}
	case "manheim":
		p = manheim.NewClient(cfg.ManheimClientID, cfg.ManheimClientSecret, cfg.ManheimBaseURL,
			time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)
	default:
		log.Fatal().Str("provider", cfg.Provider).Msg("unknown provider")
	}

	engine := bot.New(t, p, session.NewMemoryStore(), history.NewRecorder(db), log, bot.Options{
		PollTimeout:      cfg.PollTimeout,
		Sleep:            time.Duration(cfg.SleepSeconds) * time.Second,
		MaxMessageLength: telegram.MaxMessageLength,
		CircuitThreshold: cfg.CircuitThreshold,
		CircuitCooldown:  time.Duration(cfg.CircuitCooldownSeconds) * time.Second,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("transport", cfg.Transport).Str("provider", cfg.Provider).Msg("bot starting")
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("bot stopped")
}
