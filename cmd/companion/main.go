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

	"feellog/application"
	"feellog/domain/session"
	"feellog/infrastructure/apiclient"
	"feellog/infrastructure/bus"
	"feellog/infrastructure/config"
	"feellog/interfaces/web/handlers"
	"feellog/logging"
	"feellog/platform/clock"
	"feellog/platform/events"
)

func main() {
	// Create app-wide context for graceful shutdown
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	loadEnvironment()
	cfg := config.LoadAppConfigFromEnv()

	logger := initializeLogging(cfg)

	deps := buildDependencies(cfg, logger)
	defer deps.close()

	if cfg.Poller.AutoStart {
		deps.Services.Poller.Start(appCtx)
	}

	// Pick up an existing session before the first poll
	deps.Services.Store.CheckLoginStatus(appCtx)

	router := setupRoutes(deps, cfg)
	startServer(router, cfg.HTTPAddr, logger, deps, appCancel)
}

// ApplicationServices holds application services.
type ApplicationServices struct {
	Store         *application.StoreService
	Notifications *application.NotificationService
	Poller        *application.StatusPoller
	EventBus      *events.RecordEventBus
}

// PresentationLayer groups all presentation components
type PresentationLayer struct {
	StoreHandlers *handlers.StoreHandlers
	SSEManager    *handlers.SSEManager
}

// Dependencies holds all application dependencies organized by layer
type Dependencies struct {
	Logger *logging.Logger
	API    *apiclient.Client
	NATS   *bus.Client

	Services     *ApplicationServices
	Presentation *PresentationLayer
}

func (d *Dependencies) close() {
	if d.NATS != nil {
		d.NATS.Close()
	}
}

func loadEnvironment() {
	if err := godotenv.Load(); err != nil {
		println("No .env file found, using environment variables")
	} else {
		println("Loaded configuration from .env file")
	}
}

func initializeLogging(cfg *config.AppConfig) *logging.Logger {
	logger := logging.NewLogger(cfg.Logging)
	logging.SetDefault(logger)

	logger.Info("Companion starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"log_format", cfg.Logging.Format,
		"api_base_url", cfg.API.BaseURL,
		"poll_interval", cfg.Poller.Interval.String(),
	)

	return logger
}

func initializeAPIClient(cfg *config.AppConfig, logger *logging.Logger) *apiclient.Client {
	client, err := apiclient.New(cfg.API)
	if err != nil {
		logger.Error("Failed to create Feel-Log API client", "error", err)
		os.Exit(1)
	}
	return client
}

// initializeNATS connects the optional completion sink. Failure disables it.
func initializeNATS(cfg *config.AppConfig, logger *logging.Logger) (*bus.Client, events.CompletionSink) {
	if !cfg.NATS.Enabled() {
		return nil, nil
	}

	client, err := bus.Connect(cfg.NATS.URL, "feellog-companion")
	if err != nil {
		logger.Warn("NATS unavailable, completion events stay local", "url", cfg.NATS.URL, "error", err)
		return nil, nil
	}

	logger.Info("Publishing completion events to NATS", "url", cfg.NATS.URL, "subject", cfg.NATS.SubjectCompleted)
	return client, bus.NewCompletionPublisher(client, cfg.NATS.SubjectCompleted)
}

// buildApplicationServices creates application services with dependency injection.
func buildApplicationServices(cfg *config.AppConfig, api *apiclient.Client) *ApplicationServices {
	eventBus := events.NewRecordEventBus()
	clk := clock.System{}

	notifications := application.NewNotificationService(clk, cfg.Notification.HideAfter)
	poller := application.NewStatusPoller(api, notifications, eventBus, clk, cfg.PollerSettings())
	store := application.NewStoreService(api)

	return &ApplicationServices{
		Store:         store,
		Notifications: notifications,
		Poller:        poller,
		EventBus:      eventBus,
	}
}

// buildPresentationLayer creates all handlers
func buildPresentationLayer(services *ApplicationServices, sink events.CompletionSink) *PresentationLayer {
	sseManager := handlers.NewSSEManager()
	storeHandlers := handlers.NewStoreHandlers(services.Store, services.Notifications, services.Poller).
		WithToasts(sseManager)

	// Push state changes to connected clients
	services.Notifications.OnChange(sseManager.BroadcastNotification)
	services.Store.OnChange(func(session.State) { sseManager.BroadcastStateUpdate() })

	setupEventHandlers(services, sseManager, sink)

	return &PresentationLayer{
		StoreHandlers: storeHandlers,
		SSEManager:    sseManager,
	}
}

// buildDependencies creates all application dependencies
func buildDependencies(cfg *config.AppConfig, logger *logging.Logger) *Dependencies {
	api := initializeAPIClient(cfg, logger)
	natsClient, sink := initializeNATS(cfg, logger)

	services := buildApplicationServices(cfg, api)
	presentation := buildPresentationLayer(services, sink)

	return &Dependencies{
		Logger:       logger,
		API:          api,
		NATS:         natsClient,
		Services:     services,
		Presentation: presentation,
	}
}

func setupRoutes(deps *Dependencies, cfg *config.AppConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	setupHTTPLogging(r, deps.Logger, cfg.HTTPLogPath)
	r.Use(middleware.Recoverer)

	setupSystemRoutes(r, deps)
	deps.Presentation.StoreHandlers.RegisterRoutes(r)

	return r
}

func setupHTTPLogging(r *chi.Mux, logger *logging.Logger, path string) {
	if path == "" {
		return
	}

	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Error("Failed to open HTTP log file", "error", err, "path", path)
		return
	}
	// logFile stays open for the server lifetime

	httpLogger := httplog.NewLogger("feellog-companion", httplog.Options{
		Writer: logFile,
		JSON:   true,
	})
	r.Use(httplog.RequestLogger(httpLogger))

	logger.Info("HTTP request logging enabled", "path", path)
}

func setupSystemRoutes(r *chi.Mux, deps *Dependencies) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"status": "ok",
			"poller": deps.Services.Poller.Status(),
			"nats":   deps.NATS != nil,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	r.Get("/events", deps.Presentation.SSEManager.HandleSSEConnection)
}

func startServer(router *chi.Mux, addr string, logger *logging.Logger, deps *Dependencies, appCancel context.CancelFunc) {
	server := &http.Server{Addr: addr, Handler: router}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sig
		logger.Info("Shutdown signal received")

		appCancel()

		logger.Info("Stopping status poller...")
		deps.Services.Poller.Stop()

		logger.Info("Closing SSE connections...")
		deps.Presentation.SSEManager.Close()

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				logger.Error("Graceful shutdown timed out, forcing exit")
				os.Exit(1)
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			os.Exit(1)
		}
		serverStopCtx()
	}()

	logger.Info("Server starting", "address", addr)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	<-serverCtx.Done()
	logger.Info("Server stopped")
}

// setupEventHandlers wires up the event handlers for record notifications
func setupEventHandlers(services *ApplicationServices, sseManager *handlers.SSEManager, sink events.CompletionSink) {
	notificationHandlers := events.NewNotificationEventHandlers(sseManager, services.Store, sink)
	notificationHandlers.RegisterHandlers(services.EventBus)
}
