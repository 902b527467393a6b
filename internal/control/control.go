// Package control exposes the local HTTP surface that drives the sync
// layer, standing in for the app screens.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shared-space-client/internal/api"
	"shared-space-client/internal/models"
	"shared-space-client/internal/store"
	"shared-space-client/internal/sync"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Handler serves the local control API
type Handler struct {
	requestsAPI *api.RequestAPI
	spacesAPI   *api.SpaceAPI

	requests *store.RequestStore
	space    *store.SpaceStore
	status   *store.StatusStore
	presence *store.PresenceStore
	notices  *store.NoticeStore
	nav      store.Navigator

	feed     *sync.FeedCoordinator
	location *sync.LocationReporter
}

// NewHandler creates a control handler
func NewHandler(
	requestsAPI *api.RequestAPI,
	spacesAPI *api.SpaceAPI,
	requests *store.RequestStore,
	space *store.SpaceStore,
	status *store.StatusStore,
	presence *store.PresenceStore,
	notices *store.NoticeStore,
	nav store.Navigator,
	feed *sync.FeedCoordinator,
	location *sync.LocationReporter,
) *Handler {
	return &Handler{
		requestsAPI: requestsAPI,
		spacesAPI:   spacesAPI,
		requests:    requests,
		space:       space,
		status:      status,
		presence:    presence,
		notices:     notices,
		nav:         nav,
		feed:        feed,
		location:    location,
	}
}

// Router builds the control API router
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/status", h.GetStatus)
	r.Get("/notices", h.GetNotices)
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", h.ListRequests)
		r.Post("/", h.SendRequest)
		r.Post("/read", h.MarkAllRead)
		r.Post("/{request_id}/accept", h.AcceptRequest)
		r.Post("/{request_id}/reject", h.RejectRequest)
		r.Delete("/{request_id}", h.CancelRequest)
	})
	r.Route("/space", func(r chi.Router) {
		r.Get("/", h.GetSpace)
		r.Delete("/", h.DeleteSpace)
		r.Post("/feed", h.Feed)
	})
	r.Post("/location", h.ReportLocation)

	return r
}

type statusResponse struct {
	store.StatusSnapshot
	PartnerOnline bool `json:"partnerOnline"`
	UnreadCount   int  `json:"unreadCount"`
}

// GetStatus handles GET /status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		StatusSnapshot: h.status.Snapshot(),
		PartnerOnline:  h.presence.PartnerOnline(),
		UnreadCount:    h.requests.UnreadCount(),
	})
}

// GetNotices handles GET /notices, consuming the queued notices
func (h *Handler) GetNotices(w http.ResponseWriter, r *http.Request) {
	notices := h.notices.Drain()
	if notices == nil {
		notices = []store.Notice{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"notices": notices})
}

// ListRequests handles GET /requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"requests":    h.requests.Requests(),
		"unreadCount": h.requests.UnreadCount(),
	})
}

type sendRequestBody struct {
	ToInviteCode string `json:"toInviteCode"`
	Message      string `json:"message"`
	SpaceName    string `json:"spaceName"`
	FromUserName string `json:"fromUserName"`
}

// SendRequest handles POST /requests
func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.ToInviteCode == "" {
		respondError(w, "toInviteCode is required", http.StatusBadRequest)
		return
	}

	req, err := h.requestsAPI.SendRequest(r.Context(), body.ToInviteCode, body.Message, body.SpaceName, body.FromUserName)
	if err != nil {
		if errors.Is(err, api.ErrDuplicateRequest) {
			respondError(w, "你已经发送过邀请，请等待回应", http.StatusConflict)
			return
		}
		log.Error().Err(err).Msg("Failed to send request")
		respondError(w, "发送失败，请稍后再试", http.StatusBadGateway)
		return
	}

	h.status.SetSentRequest(req)
	respondJSON(w, http.StatusOK, req)
}

// MarkAllRead handles POST /requests/read
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.requests.MarkAllAsRead(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to mark requests read")
		respondError(w, "failed to mark requests read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptRequest handles POST /requests/{request_id}/accept
func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ToUserName string `json:"toUserName"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	h.respond(w, r, chi.URLParam(r, "request_id"), models.StatusAccepted, body.ToUserName)
}

// RejectRequest handles POST /requests/{request_id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, chi.URLParam(r, "request_id"), models.StatusRejected, "")
}

// respond re-validates freshness immediately before acting: a request that
// is gone or no longer pending is evicted locally and reported as stale
// instead of being acted on.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, id string, status models.RequestStatus, toUserName string) {
	ctx := r.Context()
	if id == "" {
		respondError(w, "request_id is required", http.StatusBadRequest)
		return
	}

	current, err := h.requestsAPI.FetchRequestByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("request_id", id).Msg("Failed to re-validate request")
		respondError(w, "验证请求状态失败，请稍后再试", http.StatusBadGateway)
		return
	}
	if current == nil || current.Status != models.StatusPending {
		h.requests.RemoveRequestByID(ctx, id)
		h.notices.Show(store.NoticeInfo, "", "该邀请已失效")
		respondError(w, "request is no longer pending", http.StatusGone)
		return
	}

	if err := h.requestsAPI.RespondToRequest(ctx, id, status, toUserName); err != nil {
		log.Error().Err(err).Str("request_id", id).Msg("Failed to respond to request")
		respondError(w, "响应请求失败，请稍后再试", http.StatusBadGateway)
		return
	}

	h.requests.RemoveRequestByID(ctx, id)
	if status == models.StatusAccepted {
		h.status.UpdateSpaceStatus(ctx)
		h.space.FetchSpaceInfo(ctx, true)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelRequest handles DELETE /requests/{request_id}, withdrawing the
// user's outbound invitation
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "request_id")
	if id == "" {
		respondError(w, "request_id is required", http.StatusBadRequest)
		return
	}

	if err := h.requestsAPI.CancelRequest(ctx, id); err != nil {
		log.Error().Err(err).Str("request_id", id).Msg("Failed to cancel request")
		respondError(w, "取消请求失败，请稍后再试", http.StatusBadGateway)
		return
	}

	h.status.ClearSentRequestIf(id)
	w.WriteHeader(http.StatusNoContent)
}

// GetSpace handles GET /space
func (h *Handler) GetSpace(w http.ResponseWriter, r *http.Request) {
	space := h.space.Space()
	if space == nil {
		respondError(w, "no space", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, space)
}

// DeleteSpace handles DELETE /space
func (h *Handler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.spacesAPI.DeleteMySpace(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to delete space")
		respondError(w, "删除失败，请稍后再试", http.StatusBadGateway)
		return
	}

	h.space.Clear()
	h.status.RefreshStatus(ctx)
	h.nav.ReplaceHome("space deleted by user")
	w.WriteHeader(http.StatusNoContent)
}

// Feed handles POST /space/feed
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	space := h.space.Space()
	if space == nil {
		respondError(w, "no space", http.StatusNotFound)
		return
	}
	if err := h.feed.Feed(r.Context(), space.ID); err != nil {
		log.Error().Err(err).Msg("Feed action failed")
		respondError(w, "喂食失败，请稍后再试", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reportLocationBody struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	District  string   `json:"district"`
}

// ReportLocation handles POST /location
func (h *Handler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	var body reportLocationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Latitude == nil || body.Longitude == nil {
		respondError(w, "latitude and longitude are required", http.StatusBadRequest)
		return
	}
	space := h.space.Space()
	if space == nil {
		respondError(w, "no space", http.StatusNotFound)
		return
	}

	h.location.ReportOnce(r.Context(), space.ID, *body.Latitude, *body.Longitude, body.City, body.Country, body.District)
	w.WriteHeader(http.StatusNoContent)
}

// Serve runs the control server until the context ends
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{Addr: addr, Handler: h.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Control API listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
