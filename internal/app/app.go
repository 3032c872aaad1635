package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/handlers"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/services/events"
	"github.com/fieldrun/fieldrun/internal/services/llm"
	"github.com/fieldrun/fieldrun/internal/storage/badger"
	"github.com/fieldrun/fieldrun/internal/worker"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	EventService interfaces.EventService
	LLMService   interfaces.LLMService
	Engine       *worker.Engine
	Janitor      *worker.Janitor

	// HTTP handlers
	ProcessHandler  *handlers.ProcessHandler
	ProjectHandler  *handlers.ProjectHandler
	TemplateHandler *handlers.TemplateHandler
	DocumentHandler *handlers.DocumentHandler
	ResultHandler   *handlers.ResultHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.StorageManager = storageManager

	app.EventService = events.NewService(logger)

	llmService, err := llm.NewService(cfg, logger)
	if err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	app.LLMService = llmService

	app.Engine = worker.NewEngine(&cfg.Processing, app.StorageManager, app.LLMService, app.EventService, logger)

	janitor, err := worker.NewJanitor(&cfg.Processing, app.Engine.Registry(), logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize janitor: %w", err)
	}
	app.Janitor = janitor
	app.Janitor.Start()

	app.initHandlers()

	logger.Info().
		Str("llm_provider", cfg.LLM.DefaultProvider).
		Str("storage_path", cfg.Storage.Badger.Path).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initHandlers() {
	a.ProcessHandler = handlers.NewProcessHandler(a.Engine, a.Logger)
	a.ProjectHandler = handlers.NewProjectHandler(a.StorageManager.ProjectStorage(), a.Logger)
	a.TemplateHandler = handlers.NewTemplateHandler(a.StorageManager.TemplateStorage(), a.EventService, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.StorageManager.DocumentStorage(), a.EventService, a.Logger)
	a.ResultHandler = handlers.NewResultHandler(a.StorageManager.ResultStorage(), a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Engine, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Close shuts down application components in reverse dependency order.
func (a *App) Close() error {
	if a.Janitor != nil {
		a.Janitor.Stop()
	}
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}
	return nil
}
