package handlers

import (
	"net/http"
	"strings"

	"fleet-rollout-api/internal/auth"
	"fleet-rollout-api/internal/firmware"
	"fleet-rollout-api/internal/notify"
	"fleet-rollout-api/internal/util"
)

// ArtifactHandler exposes the approval lifecycle by artifact id.
type ArtifactHandler struct {
	Auth    auth.Auth
	Service *firmware.Service
	Notify  *notify.Service
}

func (h *ArtifactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/artifacts/")
	parts := filterEmpty(strings.Split(path, "/"))
	if len(parts) == 0 {
		http.Error(w, "missing artifact id", http.StatusBadRequest)
		return
	}
	id := parts[0]

	// GET /api/artifacts/{id}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
			h.get(w, id)
		})(w, r)
		return
	}

	// POST /api/artifacts/{id}/{promote|approve|deprecate}
	if len(parts) == 2 && r.Method == http.MethodPost {
		action := parts[1]
		h.Auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
			h.transition(w, r, id, action)
		})(w, r)
		return
	}

	http.Error(w, "invalid artifact route", http.StatusNotFound)
}

// get godoc
// @Summary      Get artifact
// @Description  Get a single firmware artifact by id
// @Tags         artifacts
// @Produce      json
// @Param        id   path      string  true  "Artifact ID"
// @Success      200  {object}  firmware.ArtifactDTO
// @Failure      404  {string}  string  "Artifact not found"
// @Failure      401  {string}  string  "Unauthorized"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /artifacts/{id} [get]
func (h *ArtifactHandler) get(w http.ResponseWriter, id string) {
	art, err := h.Service.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	util.WriteJSON(w, art.ToDTO(h.Service.DownloadURL(art.DeviceType, art.Version)))
}

// transition godoc
// @Summary      Change artifact status
// @Description  Promote to testing, approve as stable, or deprecate an artifact
// @Tags         artifacts
// @Produce      json
// @Param        id      path      string  true  "Artifact ID"
// @Param        action  path      string  true  "One of promote, approve, deprecate"
// @Success      200     {object}  firmware.ArtifactDTO
// @Failure      404     {string}  string  "Artifact not found"
// @Failure      409     {string}  string  "Transition not allowed"
// @Failure      401     {string}  string  "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /artifacts/{id}/{action} [post]
func (h *ArtifactHandler) transition(w http.ResponseWriter, r *http.Request, id, action string) {
	var art firmware.Artifact
	var err error
	var event string
	switch action {
	case "promote":
		art, err = h.Service.Promote(id)
		event = "firmware.promoted"
	case "approve":
		art, err = h.Service.Approve(id, h.Auth.Identity(r))
		event = "firmware.approved"
	case "deprecate":
		art, err = h.Service.Deprecate(id)
		event = "firmware.deprecated"
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := art.ToDTO(h.Service.DownloadURL(art.DeviceType, art.Version))
	if h.Notify != nil {
		h.Notify.Dispatch(event, dto)
	}
	util.WriteJSON(w, dto)
}
