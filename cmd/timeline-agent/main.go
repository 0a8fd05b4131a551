package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/client"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/config"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/database"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/handler"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/identity"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/ingest"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/logger"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/queue"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/repository"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/router"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/service"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/synthesizer"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/tracker"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/local.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting timeline agent",
		zap.String("env", cfg.Env),
		zap.String("config_path", *configPath),
	)

	// Initialize database
	db, err := database.New(cfg.StoragePath, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Durable stores
	timelineRepo := repository.NewTimelineRepository(db.DB)
	syncQueue := queue.NewSyncQueue(db.DB, log.Logger)
	syncQueue.SetBatchSize(cfg.Sync.BatchSize)
	identityStore := identity.NewStore(db.DB, log.Logger)

	// Backend client
	apiClient := client.NewAPIClient(
		cfg.Backend.BaseURL,
		cfg.Backend.APIKey,
		time.Duration(cfg.Backend.Timeout)*time.Second,
		log.Logger,
	)

	// Sync service with its periodic drain loop
	syncService := service.NewSyncService(
		syncQueue,
		apiClient,
		identityStore,
		time.Duration(cfg.Sync.DrainInterval)*time.Second,
		time.Duration(cfg.Sync.MaxItemAgeHours)*time.Hour,
		log.Logger,
	)

	// Live tracking path
	ingestor := ingest.NewIngestor(cfg.Tracking.IngestBufferSize, log.Logger)
	tripTracker := tracker.NewTripTracker(ingestor, log.Logger)
	synth := synthesizer.NewSynthesizer(log.Logger)

	sessionService := service.NewSessionService(
		ingestor,
		tripTracker,
		synth,
		timelineRepo,
		syncService,
		log.Logger,
	)

	ingestor.Start(tripTracker.HandleLocation)
	syncService.Start()

	// Local intake server for the mobile shell and companion-device bridge
	var httpServer *http.Server
	if cfg.Server.Enabled {
		agentHandler := handler.NewAgentHandler(
			sessionService,
			syncService,
			timelineRepo,
			ingestor,
			identityStore,
			log.Logger,
		)

		addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
		httpServer = &http.Server{
			Addr:         addr,
			Handler:      router.New(agentHandler, log.Logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Info("Starting intake server", zap.String("address", addr))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Intake server error", zap.Error(err))
			}
		}()
	} else {
		log.Info("Intake server disabled in configuration")
	}

	log.Info("Timeline agent started successfully",
		zap.String("backend_url", cfg.Backend.BaseURL),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warn("Intake server shutdown error", zap.Error(err))
		} else {
			log.Info("Intake server stopped")
		}
	}

	// Stop intake, wait for in-flight finalization, then the sync loop
	done := make(chan struct{})
	go func() {
		ingestor.Stop()
		sessionService.Wait()
		syncService.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Timeline agent stopped successfully")
	case <-time.After(5 * time.Second):
		log.Warn("Shutdown timeout reached, forcing immediate exit")
	}
}
