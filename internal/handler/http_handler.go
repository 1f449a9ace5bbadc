package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/weiawesome/oidi-live/internal/domain"
	"github.com/weiawesome/oidi-live/internal/service"
	"github.com/weiawesome/oidi-live/internal/simulator"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
	"github.com/weiawesome/oidi-live/pkg/response"
)

// HTTPHandler handles the session REST API.
type HTTPHandler struct {
	service service.LiveService
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc service.LiveService) *HTTPHandler {
	return &HTTPHandler{
		service: svc,
	}
}

// StartSessionRequest is the body of POST /sessions and POST /sessions/{id}/start.
type StartSessionRequest struct {
	HostUsername string `json:"host_username"`
	HostAvatar   string `json:"host_avatar,omitempty"`
}

type CommentRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type HeartRequest struct {
	Position float64 `json:"position"`
}

type ViewersRequest struct {
	Amount *int `json:"amount,omitempty"`
}

type ViewersResponse struct {
	ViewerCount      int    `json:"viewer_count"`
	ViewerCountLabel string `json:"viewer_count_label"`
}

type EffectRequest struct {
	Effect string `json:"effect"`
}

type QualityRequest struct {
	Quality string `json:"quality"`
}

type FlashRequest struct {
	Enabled bool `json:"enabled"`
}

// SessionListResponse is the body of GET /sessions.
type SessionListResponse struct {
	Sessions []*domain.SessionInfo `json:"sessions"`
	Total    int                   `json:"total"`
}

// RegisterRoutes mounts the API on router.
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(sessionLogger)
	api.HandleFunc("/sessions", h.StartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.ListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{session_id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{session_id}", h.EndSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{session_id}/start", h.RestartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{session_id}/comments", h.AddComment).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{session_id}/hearts", h.AddHeart).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{session_id}/hearts", h.GetHearts).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{session_id}/joiners/{username}", h.RemoveJoiner).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{session_id}/viewers", h.GetViewers).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{session_id}/viewers/{direction:increment|decrement}", h.AdjustViewers).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{session_id}/effect", h.SetEffect).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{session_id}/quality", h.SetQuality).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{session_id}/flash", h.ToggleFlash).Methods(http.MethodPut)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
}

// StartSession handles POST /api/v1/sessions
func (h *HTTPHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.HostUsername) == "" {
		response.BadRequest(w, "host_username is required")
		return
	}

	info, err := h.service.StartSession(r.Context(), req.HostUsername, req.HostAvatar)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Created(w, info)
}

// ListSessions handles GET /api/v1/sessions
func (h *HTTPHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.service.ListSessions(r.Context())
	response.Success(w, SessionListResponse{Sessions: sessions, Total: len(sessions)})
}

// GetSession handles GET /api/v1/sessions/{session_id}
func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.GetSession(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, info)
}

// EndSession handles DELETE /api/v1/sessions/{session_id}
// The session stays readable unless ?purge=true is given.
func (h *HTTPHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]

	if r.URL.Query().Get("purge") == "true" {
		if err := h.service.DeleteSession(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.NoContent(w)
		return
	}

	info, err := h.service.EndSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, info)
}

// RestartSession handles POST /api/v1/sessions/{session_id}/start
// An empty body keeps the previous host.
func (h *HTTPHandler) RestartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	info, err := h.service.RestartSession(r.Context(), mux.Vars(r)["session_id"], req.HostUsername, req.HostAvatar)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, info)
}

// AddComment handles POST /api/v1/sessions/{session_id}/comments
func (h *HTTPHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Message == "" {
		response.BadRequest(w, "username and message are required")
		return
	}

	c, err := h.service.AddComment(r.Context(), mux.Vars(r)["session_id"], req.Username, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Created(w, c)
}

// AddHeart handles POST /api/v1/sessions/{session_id}/hearts
func (h *HTTPHandler) AddHeart(w http.ResponseWriter, r *http.Request) {
	var req HeartRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Position < 0 || req.Position > 1 {
		response.BadRequest(w, "position must be between 0 and 1")
		return
	}

	heart, err := h.service.AddHeart(r.Context(), mux.Vars(r)["session_id"], req.Position)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Created(w, heart)
}

// GetHearts handles GET /api/v1/sessions/{session_id}/hearts
func (h *HTTPHandler) GetHearts(w http.ResponseWriter, r *http.Request) {
	hearts, err := h.service.Hearts(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, hearts)
}

// RemoveJoiner handles DELETE /api/v1/sessions/{session_id}/joiners/{username}
func (h *HTTPHandler) RemoveJoiner(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.RemoveJoiner(r.Context(), vars["session_id"], vars["username"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.NoContent(w)
}

// GetViewers handles GET /api/v1/sessions/{session_id}/viewers
func (h *HTTPHandler) GetViewers(w http.ResponseWriter, r *http.Request) {
	viewers, err := h.service.Viewers(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, viewers)
}

// AdjustViewers handles POST /api/v1/sessions/{session_id}/viewers/{increment|decrement}
func (h *HTTPHandler) AdjustViewers(w http.ResponseWriter, r *http.Request) {
	var req ViewersRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	amount := domain.DefaultViewerStep
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount < 0 {
		response.BadRequest(w, "amount must not be negative")
		return
	}

	vars := mux.Vars(r)
	if vars["direction"] == "decrement" {
		amount = -amount
	}

	count, err := h.service.AdjustViewers(r.Context(), vars["session_id"], amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, ViewersResponse{ViewerCount: count, ViewerCountLabel: domain.FormatViewerCount(count)})
}

// SetEffect handles PUT /api/v1/sessions/{session_id}/effect
func (h *HTTPHandler) SetEffect(w http.ResponseWriter, r *http.Request) {
	var req EffectRequest
	if !decode(w, r, &req) {
		return
	}
	effect, err := domain.ParseCameraEffect(req.Effect)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	id := mux.Vars(r)["session_id"]
	if err := h.service.SetCameraEffect(r.Context(), id, effect); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.GetSession(w, r)
}

// SetQuality handles PUT /api/v1/sessions/{session_id}/quality
func (h *HTTPHandler) SetQuality(w http.ResponseWriter, r *http.Request) {
	var req QualityRequest
	if !decode(w, r, &req) {
		return
	}
	quality, err := domain.ParseStreamQuality(req.Quality)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	id := mux.Vars(r)["session_id"]
	if err := h.service.SetStreamQuality(r.Context(), id, quality); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.GetSession(w, r)
}

// ToggleFlash handles PUT /api/v1/sessions/{session_id}/flash
func (h *HTTPHandler) ToggleFlash(w http.ResponseWriter, r *http.Request) {
	var req FlashRequest
	if !decode(w, r, &req) {
		return
	}

	status, err := h.service.ToggleFlash(r.Context(), mux.Vars(r)["session_id"], req.Enabled)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, status)
}

// HealthCheck handles GET /health
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}

// sessionLogger tags the request logger with the session id from the route.
func sessionLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := mux.Vars(r)["session_id"]; id != "" {
			r = r.WithContext(pkglog.WithSession(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var torchErr *simulator.TorchError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, simulator.ErrAlreadyLive):
		response.Conflict(w, err.Error())
	case errors.Is(err, simulator.ErrEmptyHost):
		response.BadRequest(w, err.Error())
	case errors.As(err, &torchErr):
		response.Error(w, http.StatusUnprocessableEntity, domain.ErrCodeTorchFailed, err.Error())
	default:
		l := pkglog.Ctx(r.Context())
		l.Error().Err(err).Msg("request failed")
		response.InternalError(w, "internal error")
	}
}
