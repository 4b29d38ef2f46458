package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"fleet-rollout-api/internal/auth"
	"fleet-rollout-api/internal/rollout"
	"fleet-rollout-api/internal/util"
)

// RolloutHandler exposes rollout creation and lifecycle control.
type RolloutHandler struct {
	Auth    auth.Auth
	Service *rollout.Service
}

func (h *RolloutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/rollouts" {
		switch r.Method {
		case http.MethodGet:
			h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
				h.list(w)
			})(w, r)
		case http.MethodPost:
			h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
				h.create(w, r)
			})(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/rollouts/")
	parts := filterEmpty(strings.Split(path, "/"))
	if len(parts) == 0 {
		http.Error(w, "missing rollout id", http.StatusBadRequest)
		return
	}
	id := parts[0]

	// GET /api/rollouts/{id}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
			h.status(w, id)
		})(w, r)
		return
	}

	// POST /api/rollouts/{id}/{start|pause|resume|cancel}
	if len(parts) == 2 && r.Method == http.MethodPost {
		action := parts[1]
		h.Auth.RequireOperator(func(w http.ResponseWriter, r *http.Request) {
			h.control(w, id, action)
		})(w, r)
		return
	}

	http.Error(w, "invalid rollout route", http.StatusNotFound)
}

// create godoc
// @Summary      Create rollout
// @Description  Plan a new firmware rollout; targets and waves are snapshotted at creation and the rollout starts as planned
// @Tags         rollouts
// @Accept       json
// @Produce      json
// @Param        rollout  body      rollout.CreateRequest  true  "Rollout definition"
// @Success      200      {object}  rollout.StatusReport
// @Failure      400      {string}  string  "Validation error"
// @Failure      404      {string}  string  "Artifact not found"
// @Failure      401      {string}  string  "Unauthorized"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /rollouts [post]
func (h *RolloutHandler) create(w http.ResponseWriter, r *http.Request) {
	var req rollout.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = h.Auth.Identity(r)
	}

	ro, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	report, err := h.Service.Status(ro.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	util.WriteJSON(w, report)
}

// list godoc
// @Summary      List rollouts
// @Description  Get status reports for all rollouts, newest first
// @Tags         rollouts
// @Produce      json
// @Success      200  {array}   rollout.StatusReport
// @Failure      401  {string}  string  "Unauthorized"
// @Failure      500  {string}  string  "Database error"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /rollouts [get]
func (h *RolloutHandler) list(w http.ResponseWriter) {
	reports, err := h.Service.List()
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	util.WriteJSON(w, reports)
}

// status godoc
// @Summary      Get rollout status
// @Description  Get the full status report for one rollout, including per-wave results
// @Tags         rollouts
// @Produce      json
// @Param        id   path      string  true  "Rollout ID"
// @Success      200  {object}  rollout.StatusReport
// @Failure      404  {string}  string  "Rollout not found"
// @Failure      401  {string}  string  "Unauthorized"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /rollouts/{id} [get]
func (h *RolloutHandler) status(w http.ResponseWriter, id string) {
	report, err := h.Service.Status(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	util.WriteJSON(w, report)
}

// control godoc
// @Summary      Control rollout
// @Description  Start, pause, resume or cancel a rollout
// @Tags         rollouts
// @Produce      json
// @Param        id      path      string  true  "Rollout ID"
// @Param        action  path      string  true  "One of start, pause, resume, cancel"
// @Success      200     {object}  rollout.StatusReport
// @Failure      404     {string}  string  "Rollout not found"
// @Failure      409     {string}  string  "Operation not valid in current state"
// @Failure      401     {string}  string  "Unauthorized"
// @Security     OperatorKeyAuth
// @Security     BearerAuth
// @Router       /rollouts/{id}/{action} [post]
func (h *RolloutHandler) control(w http.ResponseWriter, id, action string) {
	var err error
	switch action {
	case "start":
		err = h.Service.Start(id)
	case "pause":
		err = h.Service.Pause(id)
	case "resume":
		err = h.Service.Resume(id)
	case "cancel":
		err = h.Service.Cancel(id)
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	report, err := h.Service.Status(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	util.WriteJSON(w, report)
}
