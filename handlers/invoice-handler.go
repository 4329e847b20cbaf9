package handlers

import (
	"net/http"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"

	"github.com/gorilla/mux"
)

type InvoiceHandler struct {
	service *services.InvoiceService
}

func NewInvoiceHandler(service *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

func (h *InvoiceHandler) guard(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return models.Actor{}, false
	}
	if err := services.RequireModule(actor, models.ModuleInvoices); err != nil {
		utils.WriteError(w, err)
		return models.Actor{}, false
	}
	return actor, true
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.CreateInvoiceInput
	if !decodeBody(w, r, &input) {
		return
	}

	invoice, err := h.service.CreateInvoice(r.Context(), actor, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invoice)
}

func (h *InvoiceHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	invoices, err := h.service.GetAllInvoices(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	invoice, err := h.service.GetInvoiceByID(r.Context(), mux.Vars(r)["invoiceID"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var patch services.InvoicePatch
	if !decodeBody(w, r, &patch) {
		return
	}

	invoice, err := h.service.UpdateInvoice(r.Context(), actor, mux.Vars(r)["invoiceID"], patch)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.PaymentInput
	if !decodeBody(w, r, &input) {
		return
	}

	invoice, err := h.service.AddPayment(r.Context(), actor, mux.Vars(r)["invoiceID"], input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invoice)
}

func (h *InvoiceHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.StatusChangeInput
	if !decodeBody(w, r, &input) {
		return
	}

	invoice, err := h.service.ChangeStatus(r.Context(), actor, mux.Vars(r)["invoiceID"], input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}
