package api

import (
	"net/http"

	"github.com/beaconhq/beacon/internal/analysis"
	"github.com/beaconhq/beacon/internal/conversation"
	"github.com/beaconhq/beacon/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	conversationHandler := conversation.NewHandler(
		domain.Coordinator,
		domain.Sessions,
		runtime.Logger,
	)

	analysisHandler := analysis.NewHandler(
		domain.Worker,
		domain.Cases,
		domain.dispatch,
		runtime.Logger,
	)

	routes.Register(
		mux,
		domain.Sessions.Handler().Routes(),
		domain.Evidence.Handler(domain.Sessions, runtime.MaxUploadSize).Routes(),
		conversationHandler.Routes(),
		domain.Cases.Handler().Routes(),
		analysisHandler.Routes(),
	)
}
