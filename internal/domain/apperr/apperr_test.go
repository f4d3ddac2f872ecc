package apperr

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsOffline(t *testing.T) {
	assert.True(t, IsOffline(Offline("list videos")))
	assert.True(t, IsOffline(errors.Wrap(Offline("fetch"), "feed")))
	assert.False(t, IsOffline(&NetworkError{Op: "fetch", Err: errors.New("503")}))
	assert.False(t, IsOffline(errors.New("unrelated")))
	assert.False(t, IsOffline(nil))
}

func TestIsPaymentCanceled(t *testing.T) {
	canceled := &PaymentError{Code: PaymentCodeCanceled, Message: "sheet dismissed"}
	rejected := &PaymentError{Code: PaymentCodeRejected, Message: "card declined"}

	assert.True(t, IsPaymentCanceled(canceled))
	assert.True(t, IsPaymentCanceled(errors.Wrap(canceled, "purchase")))
	assert.False(t, IsPaymentCanceled(rejected))
	assert.False(t, IsPaymentCanceled(errors.New("unrelated")))
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", &ValidationError{Field: "pin", Reason: "too short"}, "invalid pin: too short"},
		{"auth", &AuthError{Message: "wrong password"}, "auth: wrong password"},
		{"offline", Offline("list videos"), "list videos: offline"},
		{"playback", &PlaybackError{VideoID: "v1", Message: "source missing"}, "playback v1: source missing"},
		{"payment", &PaymentError{Code: PaymentCodeRejected, Message: "declined"}, "payment (rejected): declined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	pe := &PersistenceError{Key: "selected_ids", Err: cause}
	assert.True(t, errors.Is(pe, cause))
}
