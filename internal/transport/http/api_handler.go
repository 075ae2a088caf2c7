package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"phishguard-engine/internal/app"
	"phishguard-engine/internal/domain"
	"phishguard-engine/internal/identity"
)

// APIHandler serves the JSON endpoints for groups, profiles, and leaderboard
// pages.
type APIHandler struct {
	progression *app.ProgressionService
	groups      *app.GroupService
	verifier    *identity.Verifier
	pageLimit   int
	log         *zap.Logger
}

func NewAPIHandler(progression *app.ProgressionService, groups *app.GroupService, verifier *identity.Verifier, pageLimit int, log *zap.Logger) *APIHandler {
	if pageLimit <= 0 {
		pageLimit = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &APIHandler{
		progression: progression,
		groups:      groups,
		verifier:    verifier,
		pageLimit:   pageLimit,
		log:         log,
	}
}

// Register wires the API routes onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/profile", h.handleProfile)
	mux.HandleFunc("/api/groups", h.handleCreateGroup)
	mux.HandleFunc("/api/groups/join", h.handleJoinGroup)
	mux.HandleFunc("/api/groups/leave", h.handleLeaveGroup)
	mux.HandleFunc("/api/groups/leaderboard", h.handleGroupLeaderboard)
}

func (h *APIHandler) identify(r *http.Request) (identity.Identity, error) {
	if h.verifier != nil {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			return h.verifier.Verify(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	id := identity.Identity{
		UserID:      r.URL.Query().Get("userId"),
		DisplayName: r.URL.Query().Get("name"),
	}
	if id.UserID == "" {
		return identity.Identity{}, errors.New("missing identity")
	}
	return id, nil
}

func (h *APIHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := h.pageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	ranked, err := h.progression.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ranked)
}

func (h *APIHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := h.identify(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		profile, err := h.progression.Profile(r.Context(), id.UserID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, profile)
	case http.MethodDelete:
		if err := h.progression.WipeAccount(r.Context(), id.UserID); err != nil {
			h.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *APIHandler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := h.identify(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	group, err := h.groups.CreateGroup(r.Context(), id.UserID, id.DisplayName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, group)
}

type groupCodeRequest struct {
	Code string `json:"code"`
}

func (h *APIHandler) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := h.identify(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	var req groupCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "missing group code", http.StatusBadRequest)
		return
	}
	group, err := h.groups.JoinGroup(r.Context(), id.UserID, id.DisplayName, strings.ToUpper(req.Code))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, group)
}

func (h *APIHandler) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := h.identify(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	var req groupCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "missing group code", http.StatusBadRequest)
		return
	}
	if err := h.groups.LeaveGroup(r.Context(), id.UserID, strings.ToUpper(req.Code)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) handleGroupLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := strings.ToUpper(r.URL.Query().Get("code"))
	if code == "" {
		http.Error(w, "missing group code", http.StatusBadRequest)
		return
	}
	ranked, err := h.progression.GroupLeaderboard(r.Context(), code, h.pageLimit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ranked)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Warn("write response failed", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP statuses. An exhausted code
// allocation is reported as retryable, not as a hard server failure.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrGroupNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidXPDelta):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrCodeExhausted):
		http.Error(w, "could not allocate a group code, try again", http.StatusServiceUnavailable)
	default:
		h.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
