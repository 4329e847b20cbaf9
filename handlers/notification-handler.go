package handlers

import (
	"net/http"
	"strconv"

	"subsidy-crm/crm-service/realtime"
	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
	logger  *logrus.Logger
}

func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	notifications, err := h.service.ListByUsername(r.Context(), actor.Username)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), actor.Username, mux.Vars(r)["notificationID"]); err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor.Username, mux.Vars(r)["notificationID"]); err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}

// History reads the long-term Cassandra archive instead of the Mongo inbox,
// so it still works for notifications the user already deleted.
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			utils.WriteError(w, utils.Validation("limit must be an integer between 1 and 500"))
			return
		}
		limit = parsed
	}

	if h.service.Archive == nil {
		utils.WriteError(w, utils.Conflict("notification history archive is not available"))
		return
	}
	notifications, err := h.service.Archive.HistoryByUsername(actor.Username, limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// Stream upgrades the request to a websocket for live activity events.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.hub.Subscribe(w, r, actor.Username); err != nil {
		h.logger.Errorf("Event ID: WS_UPGRADE_FAILED, Description: Websocket upgrade failed for user %s: %v", actor.Username, err)
	}
}
