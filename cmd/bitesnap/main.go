package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/bitesnap/internal/api"
	"github.com/dukerupert/bitesnap/internal/database"
	"github.com/dukerupert/bitesnap/internal/logging"
	"github.com/dukerupert/bitesnap/internal/server"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	godotenv.Load()

	port := os.Getenv("BITESNAP_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BITESNAP_DB_PATH")
	if dbPath == "" {
		dbPath = "bitesnap.db"
	}

	apiURL := os.Getenv("BITESNAP_API_URL")
	if apiURL == "" {
		log.Fatal("BITESNAP_API_URL is required")
	}

	logger := logging.Setup(os.Getenv("BITESNAP_LOG_LEVEL"), os.Getenv("BITESNAP_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	client := api.NewClient(apiURL)
	srv := server.New(db, client, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic cleanup of stale sessions and rate-limit windows.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
				if n, err := srv.SessionStore().DeleteOlderThan(cutoff); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("session cleanup", "removed", n)
				}
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("bitesnap web client running", "addr", "http://localhost:"+port, "backend", apiURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
