package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/controlcopy/capi-bridge/internal/models"
)

// ErrSessionNotFound indicates the session identifier does not exist at the
// payment provider.
var ErrSessionNotFound = errors.New("checkout session not found")

// SessionLookup fetches a payment session by the identifier the front-end
// supplies. The purchase flow is the only caller.
type SessionLookup interface {
	Lookup(ctx context.Context, sessionID string) (models.PaymentSession, error)
}

// StripeLookup retrieves checkout sessions from Stripe with the payment
// intent and line items expanded.
type StripeLookup struct {
	api *client.API
}

// NewStripeLookup builds a lookup with its own API client; the secret key is
// injected here, not read from package state.
func NewStripeLookup(secretKey string) *StripeLookup {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeLookup{api: api}
}

// Lookup fetches the session and maps it to the vendor-neutral model.
// A zero amount_total is treated as absent so the line-item fallback applies.
func (s *StripeLookup) Lookup(ctx context.Context, sessionID string) (models.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("payment_intent")
	params.AddExpand("line_items")

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return models.PaymentSession{}, ErrSessionNotFound
		}
		return models.PaymentSession{}, err
	}

	session := models.PaymentSession{
		ID:               sess.ID,
		PaymentSucceeded: sess.PaymentIntent != nil && sess.PaymentIntent.Status == stripe.PaymentIntentStatusSucceeded,
		CurrencyCode:     string(sess.Currency),
	}

	if sess.CustomerDetails != nil {
		session.CustomerEmail = sess.CustomerDetails.Email
		session.CustomerName = sess.CustomerDetails.Name
		session.CustomerPhone = sess.CustomerDetails.Phone
	}

	if sess.AmountTotal > 0 {
		total := sess.AmountTotal
		session.AmountTotalMinorUnits = &total
	}

	if sess.LineItems != nil {
		for _, item := range sess.LineItems.Data {
			li := models.LineItem{Quantity: item.Quantity}
			if item.Price != nil {
				li.UnitAmountMinorUnits = item.Price.UnitAmount
				if item.Price.Product != nil {
					li.ProductID = item.Price.Product.ID
				}
			}
			session.LineItems = append(session.LineItems, li)
		}
	}

	return session, nil
}
