package handlers

import (
	"net/http"
	"strings"

	"kiddeo/internal/logger"
	"kiddeo/internal/middleware"
)

// SessionHandler reports the request identity. Sign-in and sign-out are
// only mounted in development, where no auth layer sets the user.
type SessionHandler struct {
	sessions *middleware.SessionMiddleware
	log      logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *middleware.SessionMiddleware, log logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

type identityResponse struct {
	DeviceID      string `json:"deviceId"`
	UserID        string `json:"userId,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

type signInRequest struct {
	UserID string `json:"userId"`
}

// Get handles GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.GetIdentity(r.Context())
	writeJSON(w, http.StatusOK, identityResponse{
		DeviceID:      ident.DeviceID,
		UserID:        ident.UserID,
		Authenticated: ident.UserID != "",
	})
}

// SignIn handles POST /api/session
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.sessions.SetUser(w, r, req.UserID); err != nil {
		h.log.Error("failed to save session", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	ident, _ := middleware.GetIdentity(r.Context())
	writeJSON(w, http.StatusOK, identityResponse{DeviceID: ident.DeviceID, UserID: req.UserID, Authenticated: true})
}

// SignOut handles DELETE /api/session
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.ClearUser(w, r); err != nil {
		h.log.Error("failed to save session", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	ident, _ := middleware.GetIdentity(r.Context())
	writeJSON(w, http.StatusOK, identityResponse{DeviceID: ident.DeviceID})
}
