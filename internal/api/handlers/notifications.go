package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"fleet-rollout-api/internal/auth"
	"fleet-rollout-api/internal/notify"
	"fleet-rollout-api/internal/util"
)

// NotificationHandler manages notification channel CRUD.
type NotificationHandler struct {
	Auth auth.Auth
	Repo notify.Repository
}

func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/notifications" {
		switch r.Method {
		case http.MethodGet:
			h.Auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
				h.list(w)
			})(w, r)
		case http.MethodPost:
			h.Auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
				h.create(w, r)
			})(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// /api/notifications/{id}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	id, _ := strconv.ParseInt(idStr, 10, 64)
	if id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	h.Auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, id)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})(w, r)
}

// list godoc
// @Summary      List notification channels
// @Description  Get all registered notification channels
// @Tags         notifications
// @Produce      json
// @Success      200  {array}   notify.ChannelDTO
// @Failure      401  {string}  string  "Unauthorized"
// @Failure      500  {string}  string  "Database error"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *NotificationHandler) list(w http.ResponseWriter) {
	channels, err := h.Repo.List()
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	out := make([]notify.ChannelDTO, 0, len(channels))
	for _, c := range channels {
		out = append(out, notify.ChannelDTO{
			ID: c.ID, Name: c.Name, URL: c.URL, Events: c.Events, Enabled: c.Enabled,
		})
	}
	util.WriteJSON(w, out)
}

// create godoc
// @Summary      Create notification channel
// @Description  Register a new notification endpoint
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        channel  body      notify.ChannelDTO  true  "Channel configuration"
// @Success      200      {object}  map[string]int     "Created channel ID"
// @Failure      400      {string}  string             "Invalid JSON or missing required fields"
// @Failure      401      {string}  string             "Unauthorized"
// @Failure      500      {string}  string             "Database error"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications [post]
func (h *NotificationHandler) create(w http.ResponseWriter, r *http.Request) {
	var dto notify.ChannelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if dto.URL == "" || len(dto.Events) == 0 {
		http.Error(w, "url/events required", http.StatusBadRequest)
		return
	}
	if dto.Enabled == false {
		dto.Enabled = true
	}

	id, err := h.Repo.Create(notify.Channel{
		Name: dto.Name, URL: dto.URL, Events: dto.Events, Enabled: dto.Enabled,
	})
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	util.WriteJSON(w, map[string]any{"id": id})
}

// update godoc
// @Summary      Update notification channel
// @Description  Update an existing notification channel configuration
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Channel ID"
// @Param        channel  body      notify.ChannelDTO  true  "Updated channel configuration"
// @Success      200      {object}  map[string]bool    "Update confirmation"
// @Failure      400      {string}  string             "Invalid JSON or channel ID"
// @Failure      401      {string}  string             "Unauthorized"
// @Failure      500      {string}  string             "Database error"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications/{id} [put]
func (h *NotificationHandler) update(w http.ResponseWriter, r *http.Request, id int64) {
	var dto notify.ChannelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Update(id, notify.Channel{
		Name: dto.Name, URL: dto.URL, Events: dto.Events, Enabled: dto.Enabled,
	}); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	util.WriteJSON(w, map[string]any{"updated": true})
}

// delete godoc
// @Summary      Delete notification channel
// @Description  Remove a notification channel
// @Tags         notifications
// @Produce      json
// @Param        id   path      string           true  "Channel ID"
// @Success      200  {object}  map[string]bool  "Deletion confirmation"
// @Failure      400  {string}  string           "Invalid channel ID"
// @Failure      401  {string}  string           "Unauthorized"
// @Failure      500  {string}  string           "Database error"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) delete(w http.ResponseWriter, id int64) {
	if err := h.Repo.Delete(id); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	util.WriteJSON(w, map[string]any{"deleted": true})
}
