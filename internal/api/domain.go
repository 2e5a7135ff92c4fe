package api

import (
	"context"
	"fmt"

	"github.com/beaconhq/beacon/internal/analysis"
	"github.com/beaconhq/beacon/internal/cases"
	"github.com/beaconhq/beacon/internal/conversation"
	"github.com/beaconhq/beacon/internal/evidence"
	"github.com/beaconhq/beacon/internal/sessions"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Sessions    sessions.System
	Evidence    evidence.System
	Cases       cases.System
	Worker      *analysis.Worker
	Coordinator *conversation.Coordinator
	dispatch    analysis.DispatchFunc
}

// NewDomain creates all domain systems from the API runtime. Background
// analysis runs detach onto the lifecycle coordinator so they are drained on
// shutdown.
func NewDomain(runtime *Runtime) (*Domain, error) {
	sessionSys := sessions.New(
		runtime.SessionStore.Connection(),
		runtime.Logger,
	)

	evidenceSys := evidence.New(
		runtime.SessionStore.Connection(),
		runtime.Storage,
		runtime.Logger,
	)

	caseSys := cases.New(
		runtime.CaseStore.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	assessor, err := analysis.NewAssessor(context.Background(), runtime.ExtractorConfig, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("assessor init failed: %w", err)
	}

	worker := analysis.NewWorker(
		sessionSys,
		evidenceSys,
		caseSys,
		assessor,
		runtime.Extractor,
		runtime.Logger,
	)

	dispatch := analysis.DispatchFunc(runtime.Lifecycle.Detach)

	coordinator := conversation.NewCoordinator(
		sessionSys,
		evidenceSys,
		caseSys,
		runtime.Extractor,
		runtime.Extractor,
		worker,
		dispatch,
		runtime.Logger,
	)

	return &Domain{
		Sessions:    sessionSys,
		Evidence:    evidenceSys,
		Cases:       caseSys,
		Worker:      worker,
		Coordinator: coordinator,
		dispatch:    dispatch,
	}, nil
}

// Start registers the domain stores' schema bootstrap hooks.
func (d *Domain) Start(runtime *Runtime) error {
	if err := d.Sessions.Start(runtime.Lifecycle); err != nil {
		return fmt.Errorf("sessions start failed: %w", err)
	}
	if err := d.Evidence.Start(runtime.Lifecycle); err != nil {
		return fmt.Errorf("evidence start failed: %w", err)
	}
	if err := d.Cases.Start(runtime.Lifecycle); err != nil {
		return fmt.Errorf("cases start failed: %w", err)
	}
	return nil
}
