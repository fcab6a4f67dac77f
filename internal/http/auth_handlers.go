package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LuisErlacher/Archon/internal/domain"
	"github.com/LuisErlacher/Archon/internal/service/auth"
)

const maxVerifyBodyBytes = 64 << 10

type verifyTokenRequest struct {
	Token *string `json:"token"`
}

type verifyTokenResponse struct {
	Valid bool                      `json:"valid"`
	User  *domain.AuthenticatedUser `json:"user"`
}

// handleVerifyToken reports whether a token is valid. Rejected tokens are a
// 200 with valid=false, never a 401.
func (r *Router) handleVerifyToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var body verifyTokenRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxVerifyBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if body.Token == nil {
		writeError(w, http.StatusUnprocessableEntity, "token is required")
		return
	}
	user, err := r.auth.VerifyToken(req.Context(), *body.Token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeJSON(w, http.StatusOK, verifyTokenResponse{Valid: false})
			return
		}
		r.logger.Error("verify token", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, verifyTokenResponse{Valid: true, User: user})
}

func (r *Router) handleCurrentUser(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	user, ok := userFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user.Normalized())
}

func (r *Router) handleAuthHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "auth"})
}
