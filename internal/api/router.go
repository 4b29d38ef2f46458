package api

import (
	"net/http"

	"fleet-rollout-api/internal/api/handlers"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter wires HTTP routes to handlers.
func NewRouter(fh *handlers.FirmwareHandler, ah *handlers.ArtifactHandler, rh *handlers.RolloutHandler, nh *handlers.NotificationHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handlers.Health)
	mux.Handle("/api/firmware/", fh)
	mux.Handle("/api/artifacts/", ah)
	mux.Handle("/api/rollouts", rh)
	mux.Handle("/api/rollouts/", rh)
	mux.Handle("/api/notifications", nh)
	mux.Handle("/api/notifications/", nh)

	// Swagger UI at /swagger/index.html
	mux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}
