package handlers

import (
	"net/http"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"

	"github.com/gorilla/mux"
)

type ClientHandler struct {
	service *services.ClientService
}

func NewClientHandler(service *services.ClientService) *ClientHandler {
	return &ClientHandler{service: service}
}

func (h *ClientHandler) guard(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return models.Actor{}, false
	}
	if err := services.RequireModule(actor, models.ModuleClients); err != nil {
		utils.WriteError(w, err)
		return models.Actor{}, false
	}
	return actor, true
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.ClientInput
	if !decodeBody(w, r, &input) {
		return
	}

	client, err := h.service.CreateClient(r.Context(), actor, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	clients, err := h.service.GetAllClients(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	client, err := h.service.GetClientByID(r.Context(), mux.Vars(r)["clientID"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.ClientInput
	if !decodeBody(w, r, &input) {
		return
	}

	client, err := h.service.UpdateClient(r.Context(), actor, mux.Vars(r)["clientID"], input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}
