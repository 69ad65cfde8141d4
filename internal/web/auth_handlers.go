package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/response"
)

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleToken exchanges an API key for a short-lived access token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		response.Fail(w, http.StatusNotImplemented, response.CodeBadRequest, "token issuing is disabled")
		return
	}

	var req tokenRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if !auth.IsAPIKey(key) {
		response.BadRequest(w, "api_key is required")
		return
	}

	p, err := s.authn.ValidateKey(r.Context(), r.RemoteAddr, key)
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		response.Fail(w, http.StatusTooManyRequests, response.CodeTooManyRequests, "too many requests")
		return
	case errors.Is(err, auth.ErrInvalidToken):
		response.Unauthorized(w, "invalid credentials")
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}

	token, expiresAt, err := s.tokens.Issue(p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, http.StatusOK)
}

// handleMe returns the authenticated caller.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	u, err := s.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, u, http.StatusOK)
}
