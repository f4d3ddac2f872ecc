// Package purchase provides the unlimited-selection purchase flow.
//
// The flow is intent -> payment sheet -> entitlement grant -> backend
// confirmation. The grant is optimistic: it happens as soon as the sheet
// reports success, and a confirmation failure is logged without
// reverting it. That is accepted business policy, not a bug.
package purchase

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
	"github.com/ayasaka/kidreel/internal/infra/payment"
)

// PurchaseTypeUnlimited unlocks the unlimited-selection entitlement.
const PurchaseTypeUnlimited = "unlimited_selection"

// Processor is the payment backend port.
type Processor interface {
	CreateIntent(ctx context.Context, req payment.CreateIntentRequest) (*payment.Intent, error)
	Confirm(ctx context.Context, paymentIntentID, userID string) error
}

// SheetPresenter presents the platform payment sheet for a client
// secret. A user dismissal surfaces as a canceled PaymentError.
type SheetPresenter interface {
	Present(ctx context.Context, clientSecret string) error
}

// Entitlements receives the grant on success.
type Entitlements interface {
	SetEntitlement(granted bool)
}

// Buyer identifies the purchasing account and device.
type Buyer struct {
	UserID     string
	UserName   string
	UserEmail  string
	DeviceInfo string
	AppVersion string
}

// Service runs the purchase flow.
type Service struct {
	processor    Processor
	presenter    SheetPresenter
	entitlements Entitlements
}

// New creates a purchase service.
func New(processor Processor, presenter SheetPresenter, entitlements Entitlements) *Service {
	return &Service{processor: processor, presenter: presenter, entitlements: entitlements}
}

// Purchase runs the flow for the given buyer. A user cancellation is a
// silent no-op (nil error, no grant); other failures are returned for
// the caller to display.
func (s *Service) Purchase(ctx context.Context, buyer Buyer) error {
	intent, err := s.processor.CreateIntent(ctx, payment.CreateIntentRequest{
		UserID:       buyer.UserID,
		UserName:     buyer.UserName,
		UserEmail:    buyer.UserEmail,
		DeviceInfo:   buyer.DeviceInfo,
		AppVersion:   buyer.AppVersion,
		PurchaseType: PurchaseTypeUnlimited,
	})
	if err != nil {
		return err
	}

	if err := s.presenter.Present(ctx, intent.ClientSecret); err != nil {
		if apperr.IsPaymentCanceled(err) {
			zlog.Debug().Msgf("purchase: sheet canceled by user (intent %s)", intent.PaymentIntentID)
			return nil
		}
		return err
	}

	// The charge went through on the sheet; grant immediately.
	s.entitlements.SetEntitlement(true)

	if err := s.processor.Confirm(ctx, intent.PaymentIntentID, buyer.UserID); err != nil {
		// Log-only: the entitlement is never reversed here.
		zlog.Warn().Msgf("purchase: confirmation failed for intent %s: %v", intent.PaymentIntentID, err)
	}
	return nil
}
