package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/config"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/database"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/handler"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/jobs"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/llm"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/middleware"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/redis"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/repository"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/service"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	accountRepo := repository.NewTokenAccountRepository(db.DB)
	usageRepo := repository.NewUsageRecordRepository(db.DB)
	siteRepo := repository.NewSiteRepository(db.DB)
	versionRepo := repository.NewSiteVersionRepository(db.DB)
	convRepo := repository.NewConversationRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	backend := llm.NewOpenAIBackend(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.GenerationModel,
		Temperature: float32(cfg.GenerationTemperature),
		MaxTokens:   cfg.GenerationMaxTokens,
		Timeout:     cfg.GenerationTimeout(),
	})

	txRunner := service.NewTxRunner(db, accountRepo, usageRepo, siteRepo, versionRepo)
	ledgerService := service.NewLedgerService(txRunner, accountRepo, usageRepo, cfg.MonthlyAllowance, cfg.MaxRollover)
	siteService := service.NewSiteService(txRunner, siteRepo, versionRepo, convRepo)
	convService := service.NewConversationService(convRepo)
	generationService := service.NewGenerationService(
		ledgerService, siteService, backend, broker, cfg.IterationContextMaxChars,
	)

	authMiddleware := middleware.NewAuthMiddleware(accountRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	siteHandler := handler.NewSiteHandler(generationService, siteService)
	tokensHandler := handler.NewTokensHandler(ledgerService)
	accountsHandler := handler.NewAccountsHandler(ledgerService)
	convHandler := handler.NewConversationHandler(convService)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/accounts", accountsHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(rateLimitMiddleware.Handler)

			r.Mount("/sites", siteHandler.Routes())
			r.Mount("/tokens", tokensHandler.Routes())
			r.Mount("/conversations", convHandler.Routes())
			r.Get("/events", eventsHandler.ServeHTTP)
		})
	})

	refillJob := jobs.NewRefillJob(accountRepo, ledgerService, config.RefillJobInterval)
	refillJob.Start()
	defer refillJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
