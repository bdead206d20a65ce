package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memberd/internal/audit"
	"memberd/internal/auth"
	"memberd/internal/credential"
	"memberd/internal/directory"
	jwttoken "memberd/internal/jwt_token"
	memberhandler "memberd/internal/member/handler"
	memberservice "memberd/internal/member/service"
	memberstore "memberd/internal/member/store"
	membershiphandler "memberd/internal/membership/handler"
	membershipservice "memberd/internal/membership/service"
	membershipstore "memberd/internal/membership/store"
	"memberd/internal/payment"
	"memberd/internal/platform/config"
	"memberd/internal/platform/httpserver"
	"memberd/internal/platform/logger"
	"memberd/internal/platform/metrics"
	"memberd/internal/platform/middleware"
	"memberd/internal/platform/postgres"
	"memberd/internal/platform/redis"
	"memberd/internal/provider"
	"memberd/internal/resource"
	httptransport "memberd/internal/transport/http"
	"memberd/pkg/platform/tx"
)

const (
	tokenIssuer     = "memberd"
	shutdownTimeout = 10 * time.Second
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(log, "postgres connection failed", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		fatal(log, "schema migration failed", err)
	}

	cache, err := redis.New(cfg.Redis)
	if err != nil {
		fatal(log, "redis connection failed", err)
	}

	// Revocations live in Redis when it is configured, otherwise Postgres
	// carries them so rotation still takes effect immediately.
	var revocations credential.RevocationList
	if cache != nil {
		revocations = credential.NewRedisRevocationList(cache.Client)
		log.Info("credential revocation backed by redis")
	} else {
		revocations = credential.NewPostgresRevocationList(db)
		log.Info("credential revocation backed by postgres")
	}

	var auditor audit.Recorder = audit.Nop{}
	var publisher *audit.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			fatal(log, "kafka connection failed", err)
		}
		auditor = publisher
		log.Info("audit publishing enabled", "topic", cfg.Kafka.Topic)
	}

	m := metrics.New()
	runner := tx.NewManager(db)

	credentials := credential.NewService(credential.NewPostgres(db), revocations, log)
	members := memberservice.NewService(memberstore.NewPostgres(db), credentials, runner, m, auditor, log)
	memberships := membershipservice.NewService(
		membershipstore.NewPostgresTypes(db),
		membershipstore.NewPostgresMemberships(db),
		m, auditor, log,
	)

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer)

	deps := httptransport.Deps{
		Logger:      log,
		Metrics:     m,
		JWT:         jwttoken.NewJWTServiceAdapter(tokens),
		Credentials: credentials,
		Authorizer:  middleware.PermitAll{},
		DB:          db,
		Handlers: []httptransport.Registrar{
			auth.New(members, tokens, log),
			memberhandler.New(members, log),
			membershiphandler.New(memberships, log),
			resource.NewHandler(directory.CountryDescriptor(), directory.NewPostgresCountries(db), log),
			resource.NewHandler(directory.AddressDescriptor(), directory.NewPostgresAddresses(db), log),
			resource.NewHandler(directory.InstitutionDescriptor(), directory.NewPostgresInstitutions(db), log),
			resource.NewHandler(directory.PlaceOfStudyDescriptor(), directory.NewPostgresPlacesOfStudy(db), log),
			resource.NewHandler(directory.GroupDescriptor(), directory.NewPostgresGroups(db), log),
			resource.NewHandler(payment.TypeDescriptor(), payment.NewPostgresTypes(db), log),
			resource.NewHandler(payment.Descriptor(), payment.NewPostgres(db), log),
			resource.NewHandler(provider.TokenDescriptor(), provider.NewPostgres(db), log),
		},
	}
	if cache != nil {
		deps.Cache = cache
	}

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps))

	go func() {
		log.Info("memberd listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", "error", err)
	}

	if publisher != nil {
		publisher.Close()
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	log.Info("stopped")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
