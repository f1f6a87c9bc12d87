package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dkrasner/taskmind/internal/request"
	"github.com/dkrasner/taskmind/internal/services/oidc"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	oidcClient *oidc.Client
}

// NewAuthHandler creates a new auth handler. oidcClient may be nil when
// OIDC login is not configured; the login endpoint then reports it.
func NewAuthHandler(oidcClient *oidc.Client) *AuthHandler {
	return &AuthHandler{oidcClient: oidcClient}
}

// RegisterRoutes registers auth routes on the given router.
// The router should already have the /auth prefix.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetOIDCLogin returns the OIDC login configuration for the frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidcClient == nil {
		respondJSONError(w, http.StatusNotImplemented, "Not Implemented", "OIDC login is not configured")
		return
	}

	state, err := randomState()
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to generate state")
		return
	}

	respondJSON(w, http.StatusOK, h.oidcClient.LoginConfig(state))
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
