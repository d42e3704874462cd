package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/contract-analyzer/internal/async"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/events"
	"github.com/joseph-ayodele/contract-analyzer/internal/export"
	"github.com/joseph-ayodele/contract-analyzer/internal/extract"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm/openai"
	"github.com/joseph-ayodele/contract-analyzer/internal/locale"
	"github.com/joseph-ayodele/contract-analyzer/internal/ocr"
	"github.com/joseph-ayodele/contract-analyzer/internal/pii"
	"github.com/joseph-ayodele/contract-analyzer/internal/pipeline"
	repo "github.com/joseph-ayodele/contract-analyzer/internal/repository"
	"github.com/joseph-ayodele/contract-analyzer/internal/server"
	"github.com/joseph-ayodele/contract-analyzer/internal/storage"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = time.Hour
)

func main() {
	// a missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)

	// Ping DB to ensure connectivity
	if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	docsRepo := repo.NewDocumentRepository(db.Driver, logger)
	runsRepo := repo.NewAnalysisRunRepository(db.Driver, logger)
	eventsRepo := repo.NewEventRepository(db.Driver, logger)
	deadlinesRepo := repo.NewDeadlineRepository(db.Driver, logger)
	channel := events.NewChannel(eventsRepo, logger)

	resolver, err := newResolver(cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to configure storage", "error", err)
		os.Exit(1)
	}

	llmCfg, err := openai.ConfigFor(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		logger.Error("failed to configure llm", "error", err)
		os.Exit(2)
	}
	llmCfg.Temperature, llmCfg.MaxTokens, llmCfg.Timeout = cfg.LLM.Temperature, cfg.LLM.MaxTokens, cfg.LLM.Timeout
	gateway := openai.NewClient(llmCfg, logger)

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Runs:      runsRepo,
		Documents: docsRepo,
		Deadlines: deadlinesRepo,
		Events:    channel,
		Storage:   resolver,
		Extractor: newExtractor(cfg.OCR, cfg.Storage.TempDir, logger),
		Redactor:  pii.NewRedactor(logger),
		Gateway:   gateway,
		Catalog:   locale.Default(),
	}, pipeline.OptionsFrom(cfg.Pipeline, cfg.LLM), logger)

	queue := async.NewProcessorQueue(orch.Run, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.RunTimeout),
	)

	api := server.New(server.Deps{
		Runs:              runsRepo,
		Documents:         docsRepo,
		Events:            channel,
		Queue:             queue,
		Storage:           resolver,
		Export:            export.NewService(runsRepo, deadlinesRepo, logger),
		Deadlines:         deadlinesRepo,
		PollInterval:      cfg.Stream.PollInterval,
		MaxStreamDuration: cfg.Stream.MaxDuration,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC server, health only
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	// Set the service as serving (empty string means overall server health)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("contract-analyzer listening", "addr", cfg.Server.HTTPAddr, "provider", llmCfg.Provider, "model", llmCfg.Model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()
	go runCleanup(ctx, orch, logger)

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}

// newResolver serves local paths always and s3:// locations when MinIO is configured.
func newResolver(cfg common.StorageConfig, logger *slog.Logger) (storage.Resolver, error) {
	if cfg.MinioEndpoint == "" {
		return storage.NewRouter(nil), nil
	}
	m, err := storage.NewMinioResolver(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		TempDir:   cfg.TempDir,
	}, logger)
	if err != nil {
		return nil, err
	}
	return storage.NewRouter(m), nil
}

func newExtractor(cfg common.OCRConfig, tempDir string, logger *slog.Logger) *extract.Extractor {
	var fallback extract.OCR
	if cfg.Enabled {
		engine := ocr.NewEngine(ocr.Config{
			TesseractLang: cfg.TesseractLang,
			TessdataDir:   cfg.TessdataDir,
			MaxPages:      cfg.MaxPages,
			PageTimeout:   cfg.PageTimeout,
			TotalTimeout:  cfg.TotalTimeout,
			TempDir:       tempDir,
		}, logger)
		if engine.Available() {
			fallback = extract.NewOCRAdapter(engine, logger)
		} else {
			logger.Warn("ocr binaries not found; scanned PDFs will not be recognized")
		}
	}
	return extract.NewExtractor(extract.DefaultConfig(), fallback, logger)
}

func runCleanup(ctx context.Context, orch *pipeline.Orchestrator, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orch.Cleanup(ctx, 0); err != nil {
				logger.Warn("retention cleanup failed", "error", err)
			}
		}
	}
}
