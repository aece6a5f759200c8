package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.SignupParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Incorrect inputs")
		return
	}

	_, token, err := h.Service.Signup(r.Context(), req)
	switch {
	case err == nil:
		h.sendResponse(w, tokenResponse{Token: token})
	case errors.Is(err, service.ErrInvalidInput):
		h.sendError(w, http.StatusBadRequest, "Incorrect inputs")
	case errors.Is(err, service.ErrUserExists):
		h.sendError(w, http.StatusLengthRequired, "User already exists with this username")
	default:
		log.Printf("Signup failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, "signup failed")
	}
}

func (h *Handler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Incorrect inputs")
		return
	}

	_, token, err := h.Service.Signin(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		h.sendResponse(w, tokenResponse{Token: token})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidCredentials):
		h.sendError(w, http.StatusForbidden, "Incorrect email or password")
	default:
		log.Printf("Signin failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, "signin failed")
	}
}

type loginRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

type loginResponse struct {
	Username string `json:"username"`
	Id       string `json:"id"`
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.Service.Login(r.Context(), req.Provider, req.Code)
	if err != nil {
		log.Printf("Login failed: %v", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	resp := loginResponse{
		Username: user.Username,
		Id:       user.Id,
		Provider: user.Provider,
		Token:    token,
	}
	h.sendResponse(w, resp)
}

type getUserResponse struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Id       string `json:"id"`
	Provider string `json:"provider"`
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		resp := getUserResponse{
			Username: user.Username,
			Name:     user.Name,
			Id:       user.Id,
			Provider: user.Provider,
		}
		h.sendResponse(w, resp)

	case http.MethodDelete:
		h.handleDeleteUser(w, r, user)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type deleteUserResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request, user models.User) {
	if err := h.Service.DeleteUser(r.Context(), user); err != nil {
		log.Printf("Delete user %s failed: %v", user.Id, err)
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}

	h.sendResponse(w, deleteUserResponse{Success: true})
}

// authenticate writes the 401 response itself when the token is rejected.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, err := h.Service.AuthenticateToken(r.Context(), h.getTokenFromAuthHeader(r))
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(messageResponse{Message: message})
}

// getTokenFromAuthHeader accepts "Bearer <token>" as well as a bare token.
func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}
