package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	audithandler "github.com/veritest-io/veritest-saas/domains/audit/be/handler"
	auditrepo "github.com/veritest-io/veritest-saas/domains/audit/be/repo"
	auditservice "github.com/veritest-io/veritest-saas/domains/audit/be/service"
	defectshandler "github.com/veritest-io/veritest-saas/domains/defects/be/handler"
	defectsrepo "github.com/veritest-io/veritest-saas/domains/defects/be/repo"
	defectsservice "github.com/veritest-io/veritest-saas/domains/defects/be/service"
	refvalueshandler "github.com/veritest-io/veritest-saas/domains/refvalues/be/handler"
	refvaluesrepo "github.com/veritest-io/veritest-saas/domains/refvalues/be/repo"
	refvaluesservice "github.com/veritest-io/veritest-saas/domains/refvalues/be/service"
	transferhandler "github.com/veritest-io/veritest-saas/domains/transfer/be/handler"
	transferservice "github.com/veritest-io/veritest-saas/domains/transfer/be/service"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	authoritylocal "github.com/veritest-io/veritest-saas/platform/go/authority/local"
	"github.com/veritest-io/veritest-saas/platform/go/gcp"
	platformlogging "github.com/veritest-io/veritest-saas/platform/go/logging"
	platformmiddleware "github.com/veritest-io/veritest-saas/platform/go/middleware"
	"github.com/veritest-io/veritest-saas/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	// functions | local. The local backend exists for development and
	// integration tests; prod delegates to the callable functions.
	AuthorityBackend string `env:"AUTHORITY_BACKEND" envDefault:"functions"`
	FunctionsBaseURL string `env:"FUNCTIONS_BASE_URL"` // required when AUTHORITY_BACKEND=functions
	DatabaseURL      string `env:"DATABASE_URL"`       // required when AUTHORITY_BACKEND=local
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	_, fsClient, err := gcp.InitFirestore(ctx)
	if err != nil {
		logger.Fatal("init firestore", zap.Error(err))
	}
	defer fsClient.Close()

	var backend authority.Authority
	switch cfg.AuthorityBackend {
	case "functions":
		if cfg.FunctionsBaseURL == "" {
			logger.Fatal("functions base url required when AUTHORITY_BACKEND=functions")
		}
		client, err := authority.NewFunctionsClient(authority.FunctionsConfig{BaseURL: cfg.FunctionsBaseURL})
		if err != nil {
			logger.Fatal("init functions client", zap.Error(err))
		}
		backend = client
	case "local":
		if cfg.DatabaseURL == "" {
			logger.Fatal("database url required when AUTHORITY_BACKEND=local")
		}
		pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
		if err != nil {
			logger.Fatal("init postgres pool", zap.Error(err))
		}
		defer persistence.ClosePool(pool)

		counter, err := persistence.NewKeyCounter(ctx, pool)
		if err != nil {
			logger.Fatal("init key counter", zap.Error(err))
		}

		backend, err = authoritylocal.New(fsClient, counter, logger)
		if err != nil {
			logger.Fatal("init local authority", zap.Error(err))
		}
	default:
		logger.Fatal("invalid AUTHORITY_BACKEND (use functions or local)", zap.String("backend", cfg.AuthorityBackend))
	}

	defectsRepo := defectsrepo.NewFirestoreRepository(fsClient)
	defectsService := defectsservice.New(defectsRepo, backend, logger)
	defectsHTTPHandler := defectshandler.New(defectsService, logger)

	refvaluesRepo := refvaluesrepo.NewFirestoreRepository(fsClient)
	refvaluesService := refvaluesservice.New(refvaluesRepo, backend, logger)
	refvaluesHTTPHandler := refvalueshandler.New(refvaluesService, logger)

	auditRepo := auditrepo.NewFirestoreRepository(fsClient)
	auditService := auditservice.New(auditRepo, backend, logger)
	auditHTTPHandler := audithandler.New(auditService, logger)

	transferService := transferservice.New(backend, logger)
	transferHTTPHandler := transferhandler.New(transferService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(platformmiddleware.Identity)
	apiRouter.Use(platformmiddleware.RequestTrace)

	apiRouter.Route("/organizations/{organizationID}", func(r chi.Router) {
		r.Mount("/", defectsHTTPHandler.Routes())
		r.Mount("/ref", refvaluesHTTPHandler.Routes())
		r.Mount("/audit", auditHTTPHandler.Routes())
		r.Mount("/transfer", transferHTTPHandler.Routes())
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
