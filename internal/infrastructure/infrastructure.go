// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, the two data stores, blob storage,
// and the language-model collaborator) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/beaconhq/beacon/internal/config"
	"github.com/beaconhq/beacon/internal/extractor"
	"github.com/beaconhq/beacon/pkg/database"
	"github.com/beaconhq/beacon/pkg/lifecycle"
	"github.com/beaconhq/beacon/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// CaseStore is the durable Postgres store; SessionStore is the transient
// SQLite ledger that exists only until sessions become cases.
type Infrastructure struct {
	Lifecycle    *lifecycle.Coordinator
	Logger       *slog.Logger
	CaseStore    database.System
	SessionStore database.System
	Storage      storage.System
	Extractor    *extractor.Client
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	caseStore, err := database.New(&cfg.CaseStore, logger)
	if err != nil {
		return nil, fmt.Errorf("case store init failed: %w", err)
	}

	sessionStore, err := database.New(&cfg.SessionStore, logger)
	if err != nil {
		return nil, fmt.Errorf("session store init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	llm, err := extractor.NewClient(context.Background(), &cfg.Extractor, logger)
	if err != nil {
		return nil, fmt.Errorf("extractor init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle:    lc,
		Logger:       logger,
		CaseStore:    caseStore,
		SessionStore: sessionStore,
		Storage:      store,
		Extractor:    llm,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.CaseStore.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("case store start failed: %w", err)
	}
	if err := i.SessionStore.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("session store start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
