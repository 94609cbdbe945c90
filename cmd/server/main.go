package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studydesk.io/rag-companion/internal/api"
	"studydesk.io/rag-companion/internal/config"
	"studydesk.io/rag-companion/internal/core"
	"studydesk.io/rag-companion/internal/logging"
	"studydesk.io/rag-companion/internal/ragclient"
	"studydesk.io/rag-companion/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()
	logging.Init(config.AppConfig.LogLevel)

	// Initialize the durable state backend
	backend, err := openStateBackend()
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	defer backend.Close()

	sessionStore, err := store.NewSessionStore(backend)
	if err != nil {
		log.Fatalf("Failed to load session state: %v", err)
	}

	// Remote RAG service client
	ragTimeout := time.Duration(config.AppConfig.RAGTimeoutSecs) * time.Second
	rag := ragclient.New(config.AppConfig.RAGBaseURL, ragTimeout)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rag.Health(pingCtx); err != nil {
		logging.L.Warnf("RAG service at %s is not reachable yet: %v", config.AppConfig.RAGBaseURL, err)
	}
	cancelPing()

	// Optional LLM title generation
	var titler *core.TitleService
	if config.AppConfig.GeminiAPIKey != "" {
		titler, err = core.NewTitleService(context.Background(), sessionStore, config.AppConfig.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize title service: %v", err)
		}
		defer titler.Close()
	} else {
		logging.L.Info("GEMINI_API_KEY not set, session title generation is disabled")
	}

	// Core services
	materials := core.NewMaterialService(sessionStore, rag)
	orchestrator := core.NewQueryOrchestrator(sessionStore, rag, titler, core.QueryOptions{
		TopK:         config.AppConfig.AskTopK,
		HistoryDepth: config.AppConfig.AskHistoryDepth,
		Timeout:      ragTimeout,
	})

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(sessionStore, materials, orchestrator)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: ragTimeout + 30*time.Second, // Ask calls wait on the remote service
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logging.L.Infof("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.L.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logging.L.Info("Server exiting gracefully")
}

func openStateBackend() (store.StateStore, error) {
	switch config.AppConfig.StorageBackend {
	case "sqlite":
		return store.NewSQLiteStateStore(config.AppConfig.StoragePath)
	case "pebble":
		return store.NewPebbleStateStore(config.AppConfig.StoragePath)
	case "file":
		return store.NewFileStateStore(config.AppConfig.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", config.AppConfig.StorageBackend)
	}
}
