package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/auth"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/config"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection"
	connrepo "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/repo"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/network"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile"
	profrepo "github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/recommendation"
	dismissrepo "github.com/ovaphlow/pitchfork/service-neighbor/internal/recommendation/repo"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/router"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/trust"
	"github.com/ovaphlow/pitchfork/service-neighbor/pkg/database"
	"github.com/ovaphlow/pitchfork/service-neighbor/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}
	sugar.Infow("starting service-neighbor", "addr", cfg.HTTP.Addr, "nearby_estates", len(cfg.NearbyEstates))

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init db
	db, err := database.Connect(ctx, cfg.DB(), sugar)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	profiles := profrepo.NewProfileRepo(db)
	conns := connrepo.NewConnectionRepo(db)
	dismissals := dismissrepo.NewDismissalRepo(db)
	if err := database.EnsureTables(ctx, profiles, conns, dismissals); err != nil {
		sugar.Fatalf("ensure tables: %v", err)
	}

	m := metrics.New()
	scorer := trust.NewScorer(sugar)
	hood := cfg.Neighborhood()

	var cache *network.PairCache
	if ttl := cfg.CacheTTL(); ttl > 0 {
		if cache, err = network.NewPairCache(ttl); err != nil {
			sugar.Fatalf("analysis cache: %v", err)
		}
	}
	networkSvc := network.NewService(profiles, conns, network.DefaultStrength(scorer), cache, sugar, m)
	connSvc := connection.NewService(conns, profiles, utilities.NewIDGenerator(cfg.SnowflakeNode), sugar,
		connection.WithNearby(hood.Nearby),
		connection.WithListener(networkSvc.Invalidate),
	)
	recSvc := recommendation.NewService(profiles, conns, dismissals, recommendation.NewParticipationSignal(), hood,
		recommendation.Limits{Default: cfg.Recommendation.DefaultLimit, Max: cfg.Recommendation.MaxLimit}, sugar, m)

	// mount http server
	handler := router.RegisterRoutes(router.Deps{
		Logger:         sugar,
		Metrics:        m,
		Verifier:       auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, sugar),
		Limiter:        router.NewClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Trust:          trust.NewHandler(scorer),
		Profiles:       profile.NewHandler(profile.NewService(profiles, scorer, sugar, profile.WithListener(networkSvc.ProfileChanged)), sugar),
		Connections:    connection.NewHandler(connSvc, sugar, m, uint(cfg.ConflictRetries)),
		Network:        network.NewHandler(networkSvc, sugar),
		Recommendation: recommendation.NewHandler(recSvc, sugar),
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := db.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
