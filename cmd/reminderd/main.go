package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/wellness-reminders/internal/application"
	"github.com/example/wellness-reminders/internal/config"
	httptransport "github.com/example/wellness-reminders/internal/http"
	"github.com/example/wellness-reminders/internal/notification"
	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/persistence/sqlite"
	"github.com/example/wellness-reminders/internal/recurrence"
	"github.com/example/wellness-reminders/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	location := cfg.Location()
	idGenerator := uuid.NewString
	now := func() time.Time { return time.Now().In(location) }

	settingsService := application.NewSettingsServiceWithLogger(storage, idGenerator, now, logger)
	settingsService.SetCacheTTL(cfg.CacheTTL)
	templateService := application.NewTemplateServiceWithLogger(storage, settingsService, idGenerator, now, logger)

	dispatcher := notification.NewDispatcher(
		notification.NewLogBrowserNotifier(logger),
		notification.NewLogEmailSender(logger),
		logger,
	)

	engine := scheduler.NewEngineWithLogger(
		newEngineSettingsSource(settingsService),
		dispatcher,
		recurrence.NewEvaluator(location),
		now,
		cfg.PollInterval,
		logger,
	)
	defer engine.Stop()

	engineFacade := newEngineFacade(engine)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Settings:   httptransport.NewSettingsHandler(settingsService, engineFacade, logger),
		Templates:  httptransport.NewTemplateHandler(templateService, engineFacade, logger),
		Scheduler:  httptransport.NewSchedulerHandler(engineFacade, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reminder API listening", "addr", server.Addr, "poll_interval", cfg.PollInterval.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// engineSettingsSource feeds the polling engine from the settings service
// without triggering default-aggregate creation for users it has never seen.
type engineSettingsSource struct {
	settings *application.SettingsService
}

func newEngineSettingsSource(settings *application.SettingsService) *engineSettingsSource {
	return &engineSettingsSource{settings: settings}
}

func (s *engineSettingsSource) LoadSettings(ctx context.Context, userID string) (*scheduler.Settings, error) {
	stored, err := s.settings.PeekSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	method, err := notification.ParseMethod(stored.NotificationMethod)
	if err != nil {
		method = notification.MethodBrowser
	}
	return &scheduler.Settings{
		Enabled:   stored.Enabled,
		Method:    method,
		Reminders: stored.Reminders,
	}, nil
}

// engineFacade narrows the engine to the lifecycle surface the HTTP layer
// expects.
type engineFacade struct {
	engine *scheduler.Engine
}

func newEngineFacade(engine *scheduler.Engine) *engineFacade {
	return &engineFacade{engine: engine}
}

func (f *engineFacade) Start(userID string) error { return f.engine.Start(userID) }
func (f *engineFacade) Stop()                     { f.engine.Stop() }
func (f *engineFacade) Running() bool             { return f.engine.Running() }
func (f *engineFacade) Notify()                   { f.engine.Notify() }

func (f *engineFacade) ActiveUser() string {
	userID, _ := f.engine.ActiveUser()
	return userID
}

var _ persistence.SettingsRepository = (*sqlite.Storage)(nil)
var _ persistence.TemplateRepository = (*sqlite.Storage)(nil)
