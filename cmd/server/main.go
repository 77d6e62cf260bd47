// main wires stores, providers, services, the sweeper and the HTTP
// router, then runs the server until a signal arrives. Business logic
// lives in the internal services.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	jwttoken "kycd/internal/jwt_token"
	"kycd/internal/kyc/blob"
	kycconfig "kycd/internal/kyc/config"
	"kycd/internal/kyc/ports"
	"kycd/internal/kyc/providers"
	documentsvc "kycd/internal/kyc/service/document"
	profilesvc "kycd/internal/kyc/service/profile"
	verificationsvc "kycd/internal/kyc/service/verification"
	documentstore "kycd/internal/kyc/store/document"
	profilestore "kycd/internal/kyc/store/profile"
	trackerstore "kycd/internal/kyc/store/tracker"
	logstore "kycd/internal/kyc/store/verificationlog"
	"kycd/internal/kyc/sweeper"
	"kycd/internal/platform/config"
	"kycd/internal/platform/httpserver"
	"kycd/internal/platform/logger"
	"kycd/internal/platform/metrics"
	"kycd/internal/platform/postgres"
	"kycd/internal/refdata"
	httptransport "kycd/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	kycCfg := kycconfig.DefaultConfig()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	var (
		profiles ports.ProfileStore
		trackers ports.TrackerStore
		logs     ports.VerificationLogStore
		docs     ports.DocumentStore
		registry refdata.Store
		seedable refdata.Writer
	)
	if db != nil {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema bootstrap failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		profiles = profilestore.NewPostgres(db)
		trackers = trackerstore.NewPostgres(db)
		logs = logstore.NewPostgres(db)
		docs = documentstore.NewPostgres(db)
		pgRegistry := refdata.NewPostgres(db)
		registry, seedable = pgRegistry, pgRegistry
		log.Info("stores: postgresql")
	} else {
		profiles = profilestore.NewInMemory()
		trackers = trackerstore.NewInMemory()
		logs = logstore.NewInMemory()
		docs = documentstore.NewInMemory()
		memRegistry := refdata.NewInMemory()
		registry, seedable = memRegistry, memRegistry
		log.Info("stores: in-memory (no DATABASE_URL)")
	}

	if cfg.ProviderMode != "api" {
		if err := refdata.Seed(ctx, seedable); err != nil {
			log.Error("seed reference registry", "error", err)
			os.Exit(1)
		}
		log.Info("reference registry seeded for local verification")
	}

	blobs, err := blob.NewFilesystem(cfg.UploadDir)
	if err != nil {
		log.Error("create upload dir", "error", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)
	providerSet := providers.NewSet(cfg.ProviderMode, registry, &kycCfg, log)

	verification, err := verificationsvc.New(profiles, trackers, logs, providerSet,
		verificationsvc.WithConfig(&kycCfg),
		verificationsvc.WithLogger(log),
		verificationsvc.WithMetrics(m))
	if err != nil {
		log.Error("build verification service", "error", err)
		os.Exit(1)
	}
	documents, err := documentsvc.New(profiles, docs, blobs, providerSet.Document,
		documentsvc.WithConfig(&kycCfg),
		documentsvc.WithLogger(log),
		documentsvc.WithMetrics(m))
	if err != nil {
		log.Error("build document service", "error", err)
		os.Exit(1)
	}
	profileSvc, err := profilesvc.New(profiles, profilesvc.WithLogger(log))
	if err != nil {
		log.Error("build profile service", "error", err)
		os.Exit(1)
	}

	sweep, err := sweeper.New(trackers, logs, docs, blobs, cfg.SweepInterval,
		sweeper.WithRetention(kycCfg.Retention),
		sweeper.WithLogger(log),
		sweeper.WithMetrics(m))
	if err != nil {
		log.Error("build sweeper", "error", err)
		os.Exit(1)
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "kycd", "kycd-api")

	handlerCfg := httptransport.Config{
		Profiles:       profileSvc,
		Verification:   verification,
		Documents:      documents,
		Tokens:         tokens,
		Sweeper:        sweep,
		Logger:         log,
		AdminToken:     cfg.AdminToken,
		MaxUploadBytes: kycCfg.Upload.MaxFileSize,
		Registry:       promRegistry,
	}
	router := httptransport.NewRouter(httptransport.NewHandler(handlerCfg), handlerCfg)
	srv := httpserver.New(cfg.Addr, router)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep.Start(runCtx)

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		log.Info("kycd listening", "addr", cfg.Addr, "provider_mode", cfg.ProviderMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}
	sweep.Stop()
	log.Info("shutdown complete")
}
