package capi

// EventKind selects which flow a request follows: which fields are required,
// whether a payment session is fetched, and which custom_data shape is built.
type EventKind int

const (
	EventPurchase EventKind = iota
	EventClick
	EventOutboundClick
	EventLead
)

// Name returns the vendor event name sent in event_name.
func (k EventKind) Name() string {
	switch k {
	case EventPurchase:
		return "Purchase"
	case EventClick:
		return "Click"
	case EventOutboundClick:
		return "OutboundClick"
	case EventLead:
		return "Lead"
	default:
		return "Unknown"
	}
}

// RequiresSession reports whether the flow fetches a payment session before
// assembling the event.
func (k EventKind) RequiresSession() bool {
	return k == EventPurchase
}

// RequiresClickID reports whether policy demands at least one of fbc/fbp in
// the request body. Lead flows may identify via hashed PII alone.
func (k EventKind) RequiresClickID() bool {
	return k == EventClick || k == EventOutboundClick
}

// Content is a single line item in the vendor's custom_data shape.
// item_price is in major units (dollars, not cents).
type Content struct {
	ID        string  `json:"id"`
	Quantity  int64   `json:"quantity"`
	ItemPrice float64 `json:"item_price"`
}

// CustomData is the purchase-detail block of a conversion event. Value is a
// pointer so an unresolvable amount is omitted rather than sent as 0.
// NumItems is a pointer for the same reason in reverse: for purchases it is
// always present, even when it is 0.
type CustomData struct {
	Currency    string    `json:"currency,omitempty"`
	Value       *float64  `json:"value,omitempty"`
	Contents    []Content `json:"contents,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	ContentName string    `json:"content_name,omitempty"`
	ContentIDs  []string  `json:"content_ids,omitempty"`
	NumItems    *int64    `json:"num_items,omitempty"`
}

// ConversionEvent is one event in the ingestion envelope.
type ConversionEvent struct {
	EventName      string            `json:"event_name"`
	EventTime      int64             `json:"event_time"`
	EventSourceURL string            `json:"event_source_url,omitempty"`
	ActionSource   string            `json:"action_source"`
	EventID        string            `json:"event_id,omitempty"`
	UserData       map[string]string `json:"user_data"`
	CustomData     *CustomData       `json:"custom_data,omitempty"`
}

// Envelope is the request body POSTed to the ingestion endpoint.
type Envelope struct {
	Data          []ConversionEvent `json:"data"`
	TestEventCode string            `json:"test_event_code,omitempty"`
}
