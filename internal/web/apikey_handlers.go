package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/response"
)

// apikeyHandlers lets callers manage their own API keys.
type apikeyHandlers struct {
	keys *auth.APIKeyStore
	log  *zap.Logger
}

type apiKeyResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	KeyPrefix  string  `json:"key_prefix"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

type apiKeyCreateResponse struct {
	Key    string         `json:"key"` // raw key, shown once
	APIKey apiKeyResponse `json:"api_key"`
}

const keyTimeLayout = "2006-01-02T15:04:05Z"

func toKeyResponse(k auth.APIKey) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		CreatedAt: k.CreatedAt.UTC().Format(keyTimeLayout),
	}
	if k.LastUsedAt != nil {
		s := k.LastUsedAt.UTC().Format(keyTimeLayout)
		resp.LastUsedAt = &s
	}
	return resp
}

// handleCreateKey generates a new API key for the caller.
func (h *apikeyHandlers) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = "API Key"
	}

	p := principal(r)
	rawKey, key, err := h.keys.Create(r.Context(), name, p.UserID)
	if err != nil {
		h.log.Error("creating api key", zap.String("user_id", p.UserID), zap.Error(err))
		response.Internal(w, "internal error")
		return
	}

	response.JSON(w, apiKeyCreateResponse{Key: rawKey, APIKey: toKeyResponse(*key)}, http.StatusCreated)
}

// handleListKeys returns the caller's API keys (without raw keys).
func (h *apikeyHandlers) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context(), principal(r).UserID)
	if err != nil {
		h.log.Error("listing api keys", zap.Error(err))
		response.Internal(w, "internal error")
		return
	}

	resp := make([]apiKeyResponse, len(keys))
	for i, k := range keys {
		resp[i] = toKeyResponse(k)
	}
	response.JSON(w, resp, http.StatusOK)
}

// handleRevokeKey deletes one of the caller's API keys.
func (h *apikeyHandlers) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "keyID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid key ID")
		return
	}

	if err := h.keys.Delete(r.Context(), id, principal(r).UserID); err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			response.NotFound(w, "key not found")
			return
		}
		h.log.Error("deleting api key", zap.Int64("id", id), zap.Error(err))
		response.Internal(w, "internal error")
		return
	}

	response.JSON(w, map[string]interface{}{"id": id, "revoked": true}, http.StatusOK)
}
