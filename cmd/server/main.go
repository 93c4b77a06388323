package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "labsight/docs"
	"labsight/internal/analysis"
	"labsight/internal/config"
	"labsight/internal/email/noop"
	"labsight/internal/email/ses"
	"labsight/internal/handler"
	"labsight/internal/llm"
	"labsight/internal/marker"
	"labsight/internal/observability/metrics"
	"labsight/internal/ocr"
	"labsight/internal/pipeline"
	"labsight/internal/port"
	"labsight/internal/repository/postgres"
	"labsight/internal/resilience"
	"labsight/internal/router"
	"labsight/internal/service"
	s3storage "labsight/internal/storage/s3"
	"labsight/internal/store/memory"
	"labsight/internal/validator"
)

// @title Labsight API
// @version 1.0
// @description Lab report processing and health marker analysis service
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize stores
	var (
		documents port.DocumentStore
		users     port.UserStore
		events    port.EventStore
		stats     port.StatsStore
		pinger    handler.Pinger
	)
	switch cfg.Store.Driver {
	case "memory":
		mem := memory.New()
		documents = mem.Documents()
		users = mem.Users()
		events = mem.Events()
		stats = mem.Stats()
		pinger = mem
		log.Printf("main: using in-memory store")
	default:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		documents = postgres.NewDocumentRepo(db)
		users = postgres.NewUserRepo(db)
		events = postgres.NewEventRepo(db)
		stats = postgres.NewStatsRepo(db)
		pinger = db
	}

	// Initialize object storage
	objectStorage, err := s3storage.NewClient(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize outcome email
	var emailSender port.EmailSender
	switch cfg.Email.Provider {
	case "ses":
		emailSender, err = ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.FrontendURL)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	default:
		emailSender = noop.NewNoopSender(cfg.Email.FrontendURL)
	}

	// Initialize pipeline stages
	extractor, err := ocr.NewExtractorChain(&cfg.Extraction)
	if err != nil {
		return fmt.Errorf("failed to initialize text extractor: %w", err)
	}
	completer, err := llm.NewCompleter(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize chat completer: %w", err)
	}
	classifier := marker.NewClassifier(cfg.Pipeline.WarningMargin)
	engine := validator.NewDefaultEngine()
	agent := analysis.NewExtractorAgent(completer, engine, classifier)
	insights := analysis.NewInsightAgent(completer)

	exec := resilience.NewExecutor(resilience.DefaultConfig())
	m := metrics.NewPipelineMetrics()

	orchestrator := pipeline.NewOrchestrator(
		documents, events, users, objectStorage,
		extractor, agent, insights, emailSender,
		exec, m,
		pipeline.Config{
			Bucket:        cfg.S3.Bucket,
			PresignExpiry: cfg.S3.PresignExpiry,
			RunTimeout:    cfg.Pipeline.RunTimeout,
		},
	)

	// Requeue worker reclaims documents stuck in queued after a restart.
	worker := service.NewPipelineWorker(documents, orchestrator, service.PipelineWorkerConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		StaleAfter:   time.Duration(cfg.Queue.StaleAfterSecs) * time.Second,
		Concurrency:  cfg.Queue.Concurrency,
		RunTimeout:   cfg.Pipeline.RunTimeout,
	})
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go worker.Start(workerCtx)

	// Initialize services
	authSvc := service.NewAuthService(users, cfg.JWT)
	docSvc := service.NewDocumentService(documents, events, objectStorage, orchestrator, &cfg.S3, &cfg.Pipeline)
	statsSvc := service.NewStatsService(stats)

	// Initialize handlers
	authH := handler.NewAuthHandler(authSvc)
	docH := handler.NewDocumentHandler(docSvc)
	statsH := handler.NewStatsHandler(statsSvc)
	healthH := handler.NewHealthHandler(pinger)

	// Setup router
	r := router.Setup(cfg, authSvc, authH, docH, statsH, healthH, m)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("main: server starting on %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("main: server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("main: shutting down")

	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
