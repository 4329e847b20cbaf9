package handlers

import (
	"net/http"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"
)

type SettingsHandler struct {
	service *services.SettingsService
}

func NewSettingsHandler(service *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Get(r.Context()))
}

func (h *SettingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := services.RequireAdmin(actor); err != nil {
		utils.WriteError(w, err)
		return
	}
	var patch models.AppSetting
	if !decodeBody(w, r, &patch) {
		return
	}

	updated, err := h.service.Patch(r.Context(), patch, actor.Username)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
