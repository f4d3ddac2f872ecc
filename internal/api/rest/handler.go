// Package rest exposes the kidreel core over HTTP for the dev server
// and the kidctl CLI.
package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ayasaka/kidreel/internal/app/feed"
	"github.com/ayasaka/kidreel/internal/app/playback"
	"github.com/ayasaka/kidreel/internal/app/purchase"
	"github.com/ayasaka/kidreel/internal/app/settings"
	"github.com/ayasaka/kidreel/internal/domain/apperr"
	"github.com/ayasaka/kidreel/internal/infra/identity"
	"github.com/ayasaka/kidreel/internal/infra/metrics"
)

// Handler exposes the core services as HTTP endpoints.
type Handler struct {
	feed     *feed.Service
	player   *playback.Controller
	settings *settings.Store
	purchase *purchase.Service
	identity *identity.Client
	metrics  *metrics.Metrics
}

// NewHandler returns a Handler over the given services. identity and
// metrics may be nil (e.g. in tests).
func NewHandler(
	f *feed.Service,
	player *playback.Controller,
	st *settings.Store,
	p *purchase.Service,
	id *identity.Client,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		feed:     f,
		player:   player,
		settings: st,
		purchase: p,
		identity: id,
		metrics:  m,
	}
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListVideos handles GET /videos.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.feed.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.player.SetVideos(videos)
	videos = h.player.Videos()

	type item struct {
		ID           string  `json:"id"`
		SourceURL    string  `json:"url"`
		ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
		Filename     string  `json:"filename,omitempty"`
		Duration     float64 `json:"duration,omitempty"`
		DisplayName  string  `json:"displayName"`
		Selected     bool    `json:"selected"`
	}
	out := make([]item, 0, len(videos))
	for _, v := range videos {
		out = append(out, item{
			ID:           v.ID,
			SourceURL:    v.SourceURL,
			ThumbnailURL: v.ThumbnailURL,
			Filename:     v.Filename,
			Duration:     v.Duration.Seconds(),
			DisplayName:  v.DisplayName(),
			Selected:     h.settings.IsSelected(v.ID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": out})
}

type videoIDRequest struct {
	VideoID string `json:"videoId"`
}

// Play handles POST /playback/play.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	var req videoIDRequest
	if !decode(w, r, &req) {
		return
	}
	if req.VideoID == "" {
		writeError(w, &apperr.ValidationError{Field: "videoId", Reason: "required"})
		return
	}
	if err := h.player.Play(r.Context(), req.VideoID); err != nil {
		if h.metrics != nil {
			var pbErr *apperr.PlaybackError
			if errors.As(err, &pbErr) {
				h.metrics.IncPlaybackErrors()
			}
		}
		writeError(w, err)
		return
	}
	h.writeState(w)
}

// TogglePause handles POST /playback/pause.
func (h *Handler) TogglePause(w http.ResponseWriter, r *http.Request) {
	if err := h.player.TogglePause(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.writeState(w)
}

// Retry handles POST /playback/retry.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	var req videoIDRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.player.Retry(r.Context(), req.VideoID); err != nil {
		writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncRetries()
	}
	h.writeState(w)
}

// ResetVideo handles POST /playback/reset.
func (h *Handler) ResetVideo(w http.ResponseWriter, r *http.Request) {
	var req videoIDRequest
	if !decode(w, r, &req) {
		return
	}
	h.player.ResetVideo(req.VideoID)
	h.writeState(w)
}

// PlaybackState handles GET /playback/state.
func (h *Handler) PlaybackState(w http.ResponseWriter, r *http.Request) {
	h.writeState(w)
}

func (h *Handler) writeState(w http.ResponseWriter) {
	snap := h.player.GetSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    snap.State.String(),
		"activeId": snap.ActiveID,
		"paused":   snap.Paused,
		"entitled": snap.Entitled,
		"errors":   snap.Errors,
		"retries":  snap.Retries,
	})
}

type pinRequest struct {
	Pin string `json:"pin"`
}

// SetPin handles POST /settings/pin.
func (h *Handler) SetPin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.settings.SetPin(req.Pin); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pinSet": h.settings.IsPinSet()})
}

// VerifyPin handles POST /settings/pin/verify.
func (h *Handler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": h.settings.VerifyPin(req.Pin)})
}

// ToggleSelection handles POST /settings/selection. The free-tier gate
// applies here; a denied selection answers 402.
func (h *Handler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req videoIDRequest
	if !decode(w, r, &req) {
		return
	}
	if req.VideoID == "" {
		writeError(w, &apperr.ValidationError{Field: "videoId", Reason: "required"})
		return
	}
	selected, err := h.player.RequestSelection(req.VideoID)
	if err != nil {
		if errors.Is(err, playback.ErrUpgradeRequired) && h.metrics != nil {
			h.metrics.IncUpgradePrompts()
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selectedIds": selected})
}

// ToggleRestrictedMode handles POST /settings/restricted-mode.
func (h *Handler) ToggleRestrictedMode(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.settings.ToggleRestrictedMode()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"restrictedMode": enabled})
}

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	snap := h.settings.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"pinSet":         snap.PinSet,
		"restrictedMode": snap.Restricted,
		"selectedIds":    snap.Selected,
	})
}

// ClearSettings handles POST /settings/clear.
func (h *Handler) ClearSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Clear(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Purchase handles POST /purchase.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceInfo string `json:"deviceInfo"`
		AppVersion string `json:"appVersion"`
	}
	if !decode(w, r, &req) {
		return
	}

	buyer := purchase.Buyer{
		DeviceInfo: req.DeviceInfo,
		AppVersion: req.AppVersion,
	}
	if h.identity != nil {
		u, ok := h.identity.CurrentUser()
		if !ok {
			writeError(w, &apperr.AuthError{Message: "sign in before purchasing"})
			return
		}
		buyer.UserID = u.ID
		buyer.UserName = u.DisplayName
		buyer.UserEmail = u.Email
	}

	if err := h.purchase.Purchase(r.Context(), buyer); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"entitled": h.player.Entitled()})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles POST /auth/signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.identity.SignIn)
}

// SignUp handles POST /auth/signup.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.identity.SignUp)
}

func (h *Handler) authenticate(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, email, password string) (*identity.User, error),
) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, &apperr.ValidationError{Field: "email", Reason: "email and password are required"})
		return
	}
	u, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// SignOut handles POST /auth/signout.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.identity.SignOut()
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, &apperr.ValidationError{Field: "email", Reason: "required"})
		return
	}
	if err := h.identity.SendPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		zlog.Debug().Msgf("rest: invalid request body: %v", err)
		writeError(w, &apperr.ValidationError{Field: "body", Reason: "invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Warn().Msgf("rest: failed to encode response: %v", err)
	}
}
