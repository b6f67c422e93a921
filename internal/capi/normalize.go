package capi

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/controlcopy/capi-bridge/internal/models"
)

// HashPII normalizes and one-way hashes a PII value: trim, lowercase,
// SHA-256, hex digest. Empty or whitespace-only input stays empty: a hash of
// "" would look like a real identifier to the vendor.
func HashPII(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// OmitEmpty returns a copy of m without empty-string values. The vendor
// treats a present-but-empty field as a signal, so absence is required.
func OmitEmpty(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// ResolveClientIP extracts the original client IP from proxy headers.
// The first entry of X-Forwarded-For is the client by convention (later
// entries are intermediate proxies); X-Real-IP is the fallback.
func ResolveClientIP(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	return strings.TrimSpace(h.Get("X-Real-IP"))
}

// ResolveValue computes the monetary value of a session in major units.
// Primary source is the session total; when that is absent the line items are
// summed. When neither exists ok is false and the value must be omitted from
// custom_data, never defaulted to 0.
func ResolveValue(session models.PaymentSession) (float64, bool) {
	if session.AmountTotalMinorUnits != nil {
		return float64(*session.AmountTotalMinorUnits) / 100, true
	}
	if len(session.LineItems) == 0 {
		return 0, false
	}
	var total int64
	for _, item := range session.LineItems {
		total += item.UnitAmountMinorUnits * item.Quantity
	}
	return float64(total) / 100, true
}

// Identity carries everything that can identify the user for attribution.
// Email, Name and Phone are raw PII and are hashed here; the rest are sent
// as-is.
type Identity struct {
	Email           string
	Name            string
	Phone           string
	FBC             string
	FBP             string
	FBCLID          string
	ClientIPAddress string
	ClientUserAgent string
}

// BuildUserData assembles the user_data block: hashed PII plus raw
// attribution fields, with empty values dropped. The vendor cannot attribute
// an event without at least one of em/ph/fbp/fbc, so an identity that ends up
// with none of them is rejected.
func BuildUserData(id Identity) (map[string]string, *Error) {
	userData := OmitEmpty(map[string]string{
		"em":                HashPII(id.Email),
		"fn":                HashPII(id.Name),
		"ph":                HashPII(id.Phone),
		"client_ip_address": id.ClientIPAddress,
		"client_user_agent": id.ClientUserAgent,
		"fbc":               id.FBC,
		"fbp":               id.FBP,
		"fbclid":            id.FBCLID,
	})

	if userData["em"] == "" && userData["ph"] == "" && userData["fbp"] == "" && userData["fbc"] == "" {
		return nil, NewError(KindInsufficientIdentifiers,
			"missing required user identifiers (need at least one of email, phone, fbp, or fbc)")
	}
	return userData, nil
}

// BuildPurchaseCustomData maps a payment session to the vendor's purchase
// custom_data. Line items without a product id are dropped from contents;
// content_ids keeps order and duplicates so it stays aligned with contents;
// num_items is always present, 0 when there are no line items.
func BuildPurchaseCustomData(session models.PaymentSession) *CustomData {
	cd := &CustomData{
		Currency:    strings.ToUpper(session.CurrencyCode),
		ContentType: "product",
	}

	if value, ok := ResolveValue(session); ok {
		cd.Value = &value
	}

	var numItems int64
	for _, item := range session.LineItems {
		numItems += item.Quantity
		if item.ProductID == "" {
			continue
		}
		cd.Contents = append(cd.Contents, Content{
			ID:        item.ProductID,
			Quantity:  item.Quantity,
			ItemPrice: float64(item.UnitAmountMinorUnits) / 100,
		})
		cd.ContentIDs = append(cd.ContentIDs, item.ProductID)
	}
	cd.NumItems = &numItems

	return cd
}

// BuildClickCustomData maps the optional pricing fields of a click/lead
// request to custom_data. Returns nil when every field is empty so the block
// is omitted entirely.
func BuildClickCustomData(value *float64, currency, contentName string) *CustomData {
	if value == nil && currency == "" && contentName == "" {
		return nil
	}
	cd := &CustomData{
		Currency:    strings.ToUpper(currency),
		Value:       value,
		ContentName: contentName,
		ContentType: "product",
	}
	if contentName != "" {
		cd.ContentIDs = []string{contentName}
	}
	return cd
}

// AssembleEvent builds the final event. event_time is captured here, as whole
// Unix seconds, not reused from any client-supplied timestamp. eventID and
// testEventCode stay out of the wire shape when empty: the vendor reads a
// null test code as an explicit test-mode flag.
func AssembleEvent(kind EventKind, sourceURL string, userData map[string]string, customData *CustomData, eventID string) ConversionEvent {
	return ConversionEvent{
		EventName:      kind.Name(),
		EventTime:      time.Now().Unix(),
		EventSourceURL: sourceURL,
		ActionSource:   "website",
		EventID:        eventID,
		UserData:       userData,
		CustomData:     customData,
	}
}
