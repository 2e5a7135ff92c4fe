package api

import (
	"github.com/beaconhq/beacon/internal/config"
	"github.com/beaconhq/beacon/internal/extractor"
	"github.com/beaconhq/beacon/internal/infrastructure"
	"github.com/beaconhq/beacon/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination      pagination.Config
	MaxUploadSize   int64
	ExtractorConfig *extractor.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle:    infra.Lifecycle,
			Logger:       infra.Logger.With("module", "api"),
			CaseStore:    infra.CaseStore,
			SessionStore: infra.SessionStore,
			Storage:      infra.Storage,
			Extractor:    infra.Extractor,
		},
		Pagination:      cfg.API.Pagination,
		MaxUploadSize:   cfg.API.MaxUploadSizeBytes(),
		ExtractorConfig: &cfg.Extractor,
	}
}
