package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"PriceSentinel/internal/analyzer"
	"PriceSentinel/internal/cache"
	"PriceSentinel/internal/comparison"
	"PriceSentinel/internal/config"
	"PriceSentinel/internal/market"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/notifier"
	"PriceSentinel/internal/recipe"
	"PriceSentinel/internal/recorder"
	"PriceSentinel/internal/units"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	recorder recorder.Recorder
	analyzer *analyzer.Analyzer
	tracker  *analyzer.Tracker
	coster   *recipe.Coster
	telegram *notifier.TelegramNotifier
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newApp(cfg *config.Config) (*app, error) {
	weights, err := units.LoadWeights(cfg.StandardWeightsFile)
	if err != nil {
		return nil, err
	}
	norm := units.NewNormalizer(weights)

	if cfg.Naver.ClientID == "" {
		log.Warn().Msg("naver credentials not configured, every lookup will report no data")
	}
	searcher := market.NewNaverSearcher(cfg.Naver.BaseURL, cfg.Naver.ClientID, cfg.Naver.ClientSecret, cfg.Proxy)
	svc := market.NewService(searcher, weights, cache.NewTTL[string, []model.MarketCandidate](cfg.Cache.SearchTTL))

	engine := comparison.NewEngine(norm, cfg.Analysis.SmallUnitRatio)
	a := analyzer.New(norm, svc, engine, cfg.Analysis.Workers)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.PersistenceEnabled() {
		sr, err := recorder.NewSQLRecorder(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("init recorder failed, using noop")
		} else {
			rec = sr
		}
	}

	return &app{
		cfg:      cfg,
		recorder: rec,
		analyzer: a,
		tracker:  analyzer.NewTracker(a, rec, cfg.Analysis.StaleAfter),
		coster:   recipe.NewCoster(rec, norm, cache.NewTTL[string, recipe.Costing](cfg.Cache.RecipeTTL)),
		telegram: notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy),
	}, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Error().Err(err).Msg("close recorder")
	}
}
