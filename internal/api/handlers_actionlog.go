package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/flagmap/flagmap/server/internal/api/respond"
	"github.com/flagmap/flagmap/server/internal/auth"
	"github.com/flagmap/flagmap/server/internal/model"
	"github.com/flagmap/flagmap/server/internal/services"
)

// ActionLogHandler serves the /action_logs endpoints.
type ActionLogHandler struct {
	svc  *services.ActionLogService
	auth *auth.Resolver
	log  zerolog.Logger
}

func NewActionLogHandler(svc *services.ActionLogService, authz *auth.Resolver, log zerolog.Logger) *ActionLogHandler {
	return &ActionLogHandler{svc: svc, auth: authz, log: log}
}

// Register mounts the action-log routes on the router.
func (h *ActionLogHandler) Register(r *mux.Router) {
	r.HandleFunc("/action_logs", h.List).Methods("GET")
	r.HandleFunc("/action_logs", h.Create).Methods("POST")
	r.HandleFunc("/action_logs/{id:[0-9]+}", h.Get).Methods("GET")
	r.HandleFunc("/action_logs/{id:[0-9]+}", h.Delete).Methods("DELETE")
	r.HandleFunc("/action_logs/user/{userId:[0-9]+}", h.ListByUser).Methods("GET")
}

// List returns every log joined with user and challenge details.
func (h *ActionLogHandler) List(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.Success(w, logs)
}

// Create persists a new action log for the authenticated actor.
// The challenge_id key must be present in the body; a null value records a
// log with no challenge topic.
func (h *ActionLogHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.ResolveUser(r.Context(), r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	if _, ok := raw["challenge_id"]; !ok {
		respond.Fail(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	var req struct {
		ChallengeID  *int64 `json:"challenge_id"`
		ActionType   int    `json:"actionType"`
		ActionDetail string `json:"actionDetail"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	out, err := h.svc.Create(r.Context(), actor, req.ChallengeID, req.ActionType, req.ActionDetail)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.Success(w, out)
}

// Get returns one log to its owner or an admin.
func (h *ActionLogHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.ResolveUser(r.Context(), r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "invalid log id")
		return
	}

	entry, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.Success(w, entry)
}

// Delete removes one log. Admin only.
func (h *ActionLogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.ResolveUser(r.Context(), r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "invalid log id")
		return
	}

	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	respond.Success(w, nil)
}

// ListByUser returns one user's logs to that user or an admin.
func (h *ActionLogHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.ResolveUser(r.Context(), r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	userID, err := pathID(r, "userId")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	logs, err := h.svc.ListByUser(r.Context(), actor, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.Success(w, logs)
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[key], 10, 64)
}

// writeError maps service faults onto the API's status/envelope contract.
func (h *ActionLogHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respond.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		respond.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrTokenNotFound):
		respond.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrPermissionDenied):
		respond.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.Fail(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg("action log request failed")
		respond.Fail(w, http.StatusInternalServerError, err.Error())
	}
}
