package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediacore/internal/adapter/repo"
	"mediacore/internal/hosting"
	"mediacore/internal/http/handlers"
	httpapi "mediacore/internal/http/httpapi"
	"mediacore/internal/infra"
	"mediacore/internal/orchestrator"
	"mediacore/internal/progress"
	"mediacore/internal/resolver"
	"mediacore/internal/storage"
	"mediacore/internal/vendors"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, infra.ComponentLogger(logger, "sql"))
	credRepo := repo.NewCredentialRepository(runner)
	refRepo := repo.NewTaskRefRepository(runner)
	logRepo := repo.NewCallLogRepository(runner)
	assetRepo := repo.NewHostedAssetRepository(runner)

	vendorClient := infra.NewHTTPClient(cfg.VendorTimeout, infra.ComponentLogger(logger, "vendor-http"))

	store, err := buildObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise object storage")
	}

	bus := progress.NewBus()
	orch := orchestrator.New(orchestrator.Options{
		Resolver: resolver.New(credRepo, resolver.EnvCredentials{
			Keys: map[string]string{
				vendors.VendorOpenAI:  cfg.OpenAIAPIKey,
				vendors.VendorGemini:  cfg.GeminiAPIKey,
				vendors.VendorGateway: cfg.GatewayAPIKey,
			},
			BaseURLs: map[string]string{
				vendors.VendorOpenAI:  cfg.OpenAIBaseURL,
				vendors.VendorGemini:  cfg.GeminiBaseURL,
				vendors.VendorGateway: cfg.GatewayBaseURL,
			},
		}, infra.ComponentLogger(logger, "resolver")),
		Registry: vendors.BuildRegistry(vendorClient, infra.ComponentLogger(logger, "vendors")),
		Hosting: hosting.New(hosting.Options{
			Store:    store,
			Records:  assetRepo,
			Client:   vendorClient,
			Logger:   infra.ComponentLogger(logger, "hosting"),
			Disabled: cfg.HostingDisabled,
		}),
		Bus:            bus,
		Refs:           refRepo,
		Audit:          logRepo,
		Logger:         infra.ComponentLogger(logger, "orchestrator"),
		SharedCooldown: cfg.SharedCooldown,
	})

	app := handlers.NewApp(orch, bus, infra.ComponentLogger(logger, "http"), cfg.HeartbeatPeriod)
	router := httpapi.NewRouter(app, httpapi.Options{
		AuthSecret:     cfg.AuthSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         infra.ComponentLogger(logger, "http"),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildObjectStore picks S3 when a bucket is configured, otherwise the
// local filesystem store. With hosting disabled no store is needed at all.
func buildObjectStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (storage.ObjectStore, error) {
	if cfg.HostingDisabled {
		logger.Warn().Msg("asset hosting disabled, vendor urls will be served as-is")
		return nil, nil
	}
	if cfg.S3Bucket != "" {
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
	}
	logger.Info().Str("path", cfg.StoragePath).Msg("using filesystem object store")
	return storage.NewFileStore(cfg.StoragePath, cfg.S3PublicBaseURL)
}
