package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/advisor/internal/api"
	"example.com/advisor/internal/auth"
	"example.com/advisor/internal/config"
	"example.com/advisor/internal/domain"
	"example.com/advisor/internal/engine/agents"
	"example.com/advisor/internal/engine/constraint"
	"example.com/advisor/internal/engine/integrity"
	"example.com/advisor/internal/engine/simulate"
	"example.com/advisor/internal/engine/synthesis"
	"example.com/advisor/internal/narrative"
	"example.com/advisor/internal/outbox"
	persistence "example.com/advisor/internal/persistence/postgres"
	"example.com/advisor/internal/phase"
	httptransport "example.com/advisor/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "advisor-api").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	calendar, err := phase.LoadFile(cfg.PhaseCalendarPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.PhaseCalendarPath).Msg("failed to load phase calendar")
	}

	repo := persistence.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
		outbox.WithLogger(logger))

	go dispatcher.Start(ctx)

	deps := domain.ServiceDeps{
		Profiles:   repo,
		Sessions:   repo,
		Monitoring: repo,
		Decisions:  repo,
		Calendar:   calendar,
		Validator:  integrity.NewValidator(),
		Structural: agents.NewStructuralAgent(),
		Metabolic:  agents.NewMetabolicAgent(),
		Fueling: agents.NewFuelingAgent(agents.FuelingConfig{
			LongSessionMin:  cfg.FuelingLongSessionMin,
			VetoDurationMin: cfg.FuelingCriticalSessionMin,
			MinGutIndex:     cfg.FuelingMinGutIndex,
			MaxDistress:     cfg.FuelingMaxDistress,
			MinCarbsPerHour: cfg.FuelingMinCarbsPerHour,
		}),
		Synth:  synthesis.NewSynthesizer(),
		Plans:  constraint.NewEngine(constraint.DefaultConfig()),
		Sim:    simulate.NewSimulator(cfg.SimulationSeed),
		Logger: logger,
	}
	if cfg.NarrativeURL != "" {
		deps.Narrative = narrative.NewClient(cfg.NarrativeURL, cfg.NarrativeTimeout,
			narrative.WithLogger(logger))
	}
	service := domain.NewService(deps)

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(requestLog(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("advisor-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	dispatcher.Wait()
}
