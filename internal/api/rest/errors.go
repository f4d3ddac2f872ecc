package rest

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/ayasaka/kidreel/internal/app/playback"
	"github.com/ayasaka/kidreel/internal/domain/apperr"
)

// writeError maps application errors onto HTTP statuses and answers
// with a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, playback.ErrUpgradeRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, playback.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrNotPlaying),
		errors.Is(err, playback.ErrNotErrored),
		errors.Is(err, playback.ErrRetryExhausted):
		return http.StatusConflict
	}

	var validationErr *apperr.ValidationError
	var authErr *apperr.AuthError
	var netErr *apperr.NetworkError
	var playbackErr *apperr.PlaybackError
	var persistErr *apperr.PersistenceError
	var paymentErr *apperr.PaymentError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &netErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &playbackErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	case errors.As(err, &paymentErr):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}
