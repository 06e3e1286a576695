package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"

	"feellog/database"
	"feellog/infrastructure/bus"
	"feellog/infrastructure/config"
	"feellog/interfaces/devapi"
	"feellog/logging"
	"feellog/platform/clock"
)

func main() {
	if err := godotenv.Load(); err != nil {
		println("No .env file found, using environment variables")
	}
	cfg := config.LoadDevAPIConfigFromEnv()

	logger := logging.NewLogger(cfg.Logging)
	logging.SetDefault(logger)
	logger.Info("Dev API starting", "db_path", cfg.Database.Path, "upload_dir", cfg.UploadDir)

	db, err := database.New(*cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	server := devapi.NewServer(devapi.NewRepository(db), devapi.Config{
		UploadDir:       cfg.UploadDir,
		EnableDevRoutes: true,
	}, clock.System{})

	if cfg.SeedEmail != "" && cfg.SeedPassword != "" {
		if err := server.Seed(context.Background(), cfg.SeedEmail, cfg.SeedPassword, cfg.SeedNickname); err != nil {
			logger.Error("Failed to seed account", "email", cfg.SeedEmail, "error", err)
			os.Exit(1)
		}
		logger.Info("Seed account ready", "email", cfg.SeedEmail)
	}

	if cfg.NATSURL != "" {
		natsClient, err := bus.Connect(cfg.NATSURL, "feellog-devapi")
		if err != nil {
			logger.Warn("NATS unavailable, records complete only through /api/dev", "url", cfg.NATSURL, "error", err)
		} else {
			defer natsClient.Close()
			if _, err := natsClient.SubscribeJSON(cfg.AnalysisDoneSubject, server.HandleAnalysisResult); err != nil {
				logger.Error("Failed to subscribe to analysis results", "subject", cfg.AnalysisDoneSubject, "error", err)
				os.Exit(1)
			}
			logger.Info("Listening for analysis results", "subject", cfg.AnalysisDoneSubject)
		}
	}

	r := chi.NewRouter()
	if cfg.HTTPLogPath != "" {
		if logFile, err := os.OpenFile(cfg.HTTPLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			r.Use(httplog.RequestLogger(httplog.NewLogger("feellog-devapi", httplog.Options{Writer: logFile, JSON: true})))
		} else {
			logger.Error("Failed to open HTTP log file", "error", err, "path", cfg.HTTPLogPath)
		}
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.Health(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "database": stats})
	})
	r.Mount("/api", server.Routes())

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Server starting", "address", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
