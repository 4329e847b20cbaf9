package handlers

import (
	"net/http"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"

	"github.com/gorilla/mux"
)

type LeadHandler struct {
	service *services.LeadService
}

func NewLeadHandler(service *services.LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := services.RequireModule(actor, models.ModuleLeads); err != nil {
		utils.WriteError(w, err)
		return
	}
	var input services.CreateLeadInput
	if !decodeBody(w, r, &input) {
		return
	}

	lead, err := h.service.CreateLead(r.Context(), actor, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := services.RequireModule(actor, models.ModuleLeads); err != nil {
		utils.WriteError(w, err)
		return
	}
	leads, err := h.service.GetAllLeads(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := services.RequireModule(actor, models.ModuleLeads); err != nil {
		utils.WriteError(w, err)
		return
	}
	lead, err := h.service.GetLeadByID(r.Context(), mux.Vars(r)["leadID"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := services.RequireModule(actor, models.ModuleLeads); err != nil {
		utils.WriteError(w, err)
		return
	}
	var req struct {
		Status models.LeadStatus `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	lead, err := h.service.ChangeStatus(r.Context(), actor, mux.Vars(r)["leadID"], req.Status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Touch(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := services.RequireModule(actor, models.ModuleLeads); err != nil {
		utils.WriteError(w, err)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	lead, err := h.service.TouchActivity(r.Context(), actor, mux.Vars(r)["leadID"], req.Note)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := services.RequireModule(actor, models.ModuleLeads); err != nil {
		utils.WriteError(w, err)
		return
	}
	client, err := h.service.Convert(r.Context(), actor, mux.Vars(r)["leadID"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}
