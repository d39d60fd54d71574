package app

import (
	"context"
	"fmt"

	"github.com/feichai0017/idrouter/config"
	"github.com/feichai0017/idrouter/internal/agent"
	"github.com/feichai0017/idrouter/internal/service/document"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/storage"
)

// App holds a ready batch service and what it needs released.
type App struct {
	Batch      *document.BatchService
	Components *agent.Components
	Store      storage.Storage
}

// New builds the batch service described by cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	components, err := agent.NewProcessorFactory(cfg, log).Build(ctx)
	if err != nil {
		return nil, err
	}
	agent.CheckOCR(components.Recognizer, log)

	store, err := storage.NewStorage(ctx, cfg.Archive, log)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to create archive storage: %w", err)
	}

	identifier := document.NewIdentifier(
		components.Acquirer,
		components.Matcher,
		components.Writer,
		cfg.Pipeline.EnableRotation,
		log,
	)
	batch := document.NewService(identifier, components.Writer, store, log, &document.ServiceConfig{
		ArchivePrefix: cfg.Archive.Prefix,
	})

	return &App{
		Batch:      batch,
		Components: components,
		Store:      store,
	}, nil
}

func (a *App) Close() error {
	return a.Components.Close()
}
