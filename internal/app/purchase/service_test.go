package purchase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
	"github.com/ayasaka/kidreel/internal/infra/payment"
)

type fakeProcessor struct {
	createErr  error
	confirmErr error

	created   []payment.CreateIntentRequest
	confirmed []string
}

func (f *fakeProcessor) CreateIntent(ctx context.Context, req payment.CreateIntentRequest) (*payment.Intent, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &payment.Intent{ClientSecret: "cs_test", PaymentIntentID: "pi_test", Amount: 499}, nil
}

func (f *fakeProcessor) Confirm(ctx context.Context, paymentIntentID, userID string) error {
	f.confirmed = append(f.confirmed, paymentIntentID)
	return f.confirmErr
}

type fakePresenter struct {
	err       error
	presented []string
}

func (f *fakePresenter) Present(ctx context.Context, clientSecret string) error {
	f.presented = append(f.presented, clientSecret)
	return f.err
}

type fakeEntitlements struct{ granted bool }

func (f *fakeEntitlements) SetEntitlement(g bool) { f.granted = g }

func testBuyer() Buyer {
	return Buyer{
		UserID:     "user-1",
		UserName:   "Parent",
		UserEmail:  "parent@example.com",
		DeviceInfo: "test-device",
		AppVersion: "1.2.3",
	}
}

func TestPurchase_HappyPath(t *testing.T) {
	proc := &fakeProcessor{}
	pres := &fakePresenter{}
	ent := &fakeEntitlements{}
	svc := New(proc, pres, ent)

	require.NoError(t, svc.Purchase(context.Background(), testBuyer()))

	require.Len(t, proc.created, 1)
	assert.Equal(t, PurchaseTypeUnlimited, proc.created[0].PurchaseType)
	assert.Equal(t, []string{"cs_test"}, pres.presented)
	assert.True(t, ent.granted)
	assert.Equal(t, []string{"pi_test"}, proc.confirmed)
}

func TestPurchase_UserCancelIsSilent(t *testing.T) {
	proc := &fakeProcessor{}
	pres := &fakePresenter{err: &apperr.PaymentError{Code: apperr.PaymentCodeCanceled, Message: "dismissed"}}
	ent := &fakeEntitlements{}
	svc := New(proc, pres, ent)

	// Cancellation: nil error, no grant, no confirmation call.
	require.NoError(t, svc.Purchase(context.Background(), testBuyer()))
	assert.False(t, ent.granted)
	assert.Empty(t, proc.confirmed)
}

func TestPurchase_SheetFailureSurfaces(t *testing.T) {
	proc := &fakeProcessor{}
	pres := &fakePresenter{err: &apperr.PaymentError{Code: apperr.PaymentCodeRejected, Message: "declined"}}
	ent := &fakeEntitlements{}
	svc := New(proc, pres, ent)

	err := svc.Purchase(context.Background(), testBuyer())
	assert.Error(t, err)
	assert.False(t, ent.granted)
	assert.Empty(t, proc.confirmed)
}

func TestPurchase_CreateIntentFailureSurfaces(t *testing.T) {
	proc := &fakeProcessor{createErr: assert.AnError}
	pres := &fakePresenter{}
	svc := New(proc, pres, &fakeEntitlements{})

	err := svc.Purchase(context.Background(), testBuyer())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, pres.presented)
}

func TestPurchase_ConfirmFailureKeepsGrant(t *testing.T) {
	proc := &fakeProcessor{confirmErr: assert.AnError}
	ent := &fakeEntitlements{}
	svc := New(proc, &fakePresenter{}, ent)

	// Confirmation failure after a successful charge is log-only.
	require.NoError(t, svc.Purchase(context.Background(), testBuyer()))
	assert.True(t, ent.granted)
}
