package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestCreateIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-payment", r.URL.Path)

		var req CreateIntentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		assert.Equal(t, "unlimited_selection", req.PurchaseType)

		json.NewEncoder(w).Encode(Intent{
			ClientSecret:    "cs_test",
			PaymentIntentID: "pi_test",
			Amount:          499,
		})
	})

	intent, err := c.CreateIntent(context.Background(), CreateIntentRequest{
		UserID:       "user-1",
		UserName:     "Parent",
		UserEmail:    "parent@example.com",
		DeviceInfo:   "test-device",
		AppVersion:   "1.2.3",
		PurchaseType: "unlimited_selection",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test", intent.ClientSecret)
	assert.Equal(t, "pi_test", intent.PaymentIntentID)
	assert.Equal(t, int64(499), intent.Amount)
}

func TestCreateIntent_ProcessorRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"message":"card declined"}`))
	})

	_, err := c.CreateIntent(context.Background(), CreateIntentRequest{UserID: "u"})
	require.Error(t, err)

	var pe *apperr.PaymentError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "card declined", pe.Message)
	assert.False(t, pe.Canceled())
}

func TestCreateIntent_IncompleteIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"clientSecret":""}`))
	})

	_, err := c.CreateIntent(context.Background(), CreateIntentRequest{UserID: "u"})
	var pe *apperr.PaymentError
	require.True(t, errors.As(err, &pe))
}

func TestConfirm(t *testing.T) {
	var got struct {
		PaymentIntentID string `json:"paymentIntentId"`
		UserID          string `json:"userId"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/confirm-payment", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Confirm(context.Background(), "pi_test", "user-1"))
	assert.Equal(t, "pi_test", got.PaymentIntentID)
	assert.Equal(t, "user-1", got.UserID)
}

func TestConfirm_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Error(t, c.Confirm(context.Background(), "pi_test", "user-1"))
}
