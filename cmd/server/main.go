package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sockgate/internal/config"
	"sockgate/internal/db"
	"sockgate/internal/gateway"
	identityservice "sockgate/internal/identity/service"
	"sockgate/internal/revocation"
	"sockgate/internal/security"
	"sockgate/internal/server"
	sessionrepo "sockgate/internal/session/repository"
	"sockgate/internal/telemetry"
	telemetryotel "sockgate/internal/telemetry/otel"
	userrepo "sockgate/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	providers, err := telemetryotel.NewProviders(context.Background(), cfg.OTLPEndpoint, "sockgate", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	deps := server.Deps{
		Gate:    gateway.NewGate(emitter),
		Limiter: gateway.NewLimiter(cfg.RateLimitMaxEvents, cfg.RateWindow(), emitter),
	}

	// Revocation store. Without one, revocation checks are skipped.
	var store *revocation.RedisStore
	if cfg.RedisAddr != "" {
		store, err = revocation.NewRedisStore(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer store.Close()
		deps.Store = store
	} else {
		log.Println("REDIS_ADDR not set; revocation checks disabled")
	}
	var checkerStore revocation.Store
	if store != nil {
		checkerStore = store
	}
	checker := revocation.NewChecker(checkerStore, cfg.RevocationFailClosed)

	// Session store. Without one, identities come from token claims alone.
	var resolver gateway.IdentityResolver
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		deps.DB = conn
		resolver = identityservice.NewResolver(
			userrepo.NewPostgresRepository(conn),
			sessionrepo.NewPostgresRepository(conn),
		)
	} else {
		log.Println("DATABASE_URL not set; session resolution disabled, identities come from claims")
	}

	deps.Authenticator = gateway.NewAuthenticator(tokens, checker, resolver, emitter)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go deps.Limiter.Run(sweepCtx, cfg.RateWindow())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("gateway listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gateway...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	stopSweep()

	// Let in-flight async security events finish before the exporter stops.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(context.Background()); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("gateway stopped")
}
