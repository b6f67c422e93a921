package models

// PurchaseRequest is the POST /events/purchase payload sent by the front-end
// after a checkout redirect. Only sessionId is required; the attribution
// cookies are absent for cookie-less visitors.
type PurchaseRequest struct {
	SessionID       string `json:"sessionId"`
	FBCLID          string `json:"fbclid,omitempty"`
	FBC             string `json:"fbc,omitempty"`
	FBP             string `json:"fbp,omitempty"`
	ClientUserAgent string `json:"clientUserAgent,omitempty"`
	SourceURL       string `json:"sourceUrl,omitempty"`
	TestEventCode   string `json:"testEventCode,omitempty"`
	EventID         string `json:"eventId,omitempty"`
}

// ClickRequest is the payload for the body-only flows
// (/events/click, /events/outbound-click, /events/lead).
// email/phone/name arrive raw and are hashed server-side.
type ClickRequest struct {
	FBC             string   `json:"fbc,omitempty"`
	FBP             string   `json:"fbp,omitempty"`
	FBCLID          string   `json:"fbclid,omitempty"`
	ClientUserAgent string   `json:"clientUserAgent,omitempty"`
	SourceURL       string   `json:"sourceUrl,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Name            string   `json:"name,omitempty"`
	Value           *float64 `json:"value,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	ContentName     string   `json:"contentName,omitempty"`
	TestEventCode   string   `json:"testEventCode,omitempty"`
	EventID         string   `json:"eventId,omitempty"`
}

// SubmitResponse is returned to the front-end on the submission path.
type SubmitResponse struct {
	Success          bool        `json:"success"`
	Message          string      `json:"message"`
	FacebookResponse interface{} `json:"facebookResponse,omitempty"`
	Status           int         `json:"status,omitempty"`
}

// LineItem is one purchased item from the payment provider, amounts in the
// currency's minor unit (cents for USD).
type LineItem struct {
	ProductID            string
	Quantity             int64
	UnitAmountMinorUnits int64
}

// PaymentSession is the vendor-neutral view of a checkout session.
// AmountTotalMinorUnits is a pointer because "absent" and "zero" mean
// different things to the value fallback.
type PaymentSession struct {
	ID                    string
	PaymentSucceeded      bool
	CustomerEmail         string
	CustomerName          string
	CustomerPhone         string
	AmountTotalMinorUnits *int64
	CurrencyCode          string
	LineItems             []LineItem
}
