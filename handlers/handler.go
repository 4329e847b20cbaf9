package handlers

import (
	"encoding/json"
	"net/http"

	"subsidy-crm/crm-service/middleware"
	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/utils"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// requireActor pulls the authenticated actor out of the request context; a
// missing actor means the route was wired without the auth middleware.
func requireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.WriteError(w, utils.Unauthorized("authentication required"))
		return models.Actor{}, false
	}
	return actor, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, utils.Validation("invalid request payload"))
		return false
	}
	return true
}
