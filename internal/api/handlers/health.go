package handlers

import (
	"net/http"

	"fleet-rollout-api/internal/util"
)

// Health godoc
// @Summary      Health check
// @Description  Liveness probe for the rollout service
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string  "Service status"
// @Router       /health [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSON(w, map[string]string{"status": "ok"})
}
