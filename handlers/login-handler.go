package handlers

import (
	"net/http"
	"strings"

	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Modules  []string `json:"modules"`
}

type LoginHandler struct {
	UserService *services.UserService
}

func NewLoginHandler(userService *services.UserService) *LoginHandler {
	return &LoginHandler{UserService: userService}
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		utils.WriteError(w, utils.Validation("username and password are required"))
		return
	}

	user, token, err := h.UserService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Username: user.Username,
		Role:     string(user.Role),
		Modules:  user.AllowedModules,
	})
}

func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenStr := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tokenStr == "" {
		utils.WriteError(w, utils.Unauthorized("authorization header missing"))
		return
	}
	if err := h.UserService.Logout(r.Context(), tokenStr); err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
