package capi

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlcopy/capi-bridge/internal/models"
)

func sha256hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func int64p(v int64) *int64 { return &v }

func TestHashPII(t *testing.T) {
	assert.Equal(t, "", HashPII(""))
	assert.Equal(t, "", HashPII("   "))

	// Trim + lowercase happen before the digest.
	assert.Equal(t, HashPII("foo@bar.com"), HashPII(" Foo@Bar.COM "))
	assert.Equal(t, sha256hex("a@b.com"), HashPII("A@B.com"))

	// Deterministic.
	assert.Equal(t, HashPII("x"), HashPII("x"))
}

func TestOmitEmpty(t *testing.T) {
	out := OmitEmpty(map[string]string{
		"em":  "abc",
		"fn":  "",
		"fbp": "fb.1.123",
	})

	assert.Equal(t, map[string]string{"em": "abc", "fbp": "fb.1.123"}, out)
}

func TestResolveClientIP(t *testing.T) {
	h := http.Header{}
	h.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", ResolveClientIP(h))

	h = http.Header{}
	h.Set("X-Real-IP", "9.9.9.9")
	assert.Equal(t, "9.9.9.9", ResolveClientIP(h))

	// Forwarded-for takes precedence over real-ip.
	h.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "1.2.3.4", ResolveClientIP(h))

	assert.Equal(t, "", ResolveClientIP(http.Header{}))
}

func TestResolveValue_FromAmountTotal(t *testing.T) {
	value, ok := ResolveValue(models.PaymentSession{AmountTotalMinorUnits: int64p(1999)})
	require.True(t, ok)
	assert.InDelta(t, 19.99, value, 1e-9)
}

func TestResolveValue_LineItemFallback(t *testing.T) {
	value, ok := ResolveValue(models.PaymentSession{
		LineItems: []models.LineItem{
			{UnitAmountMinorUnits: 500, Quantity: 2},
			{UnitAmountMinorUnits: 1000, Quantity: 1},
		},
	})
	require.True(t, ok)
	assert.InDelta(t, 20.00, value, 1e-9)
}

func TestResolveValue_BothAbsent(t *testing.T) {
	_, ok := ResolveValue(models.PaymentSession{})
	assert.False(t, ok)
}

func TestBuildUserData_HashesPIIAndKeepsRawAttribution(t *testing.T) {
	userData, err := BuildUserData(Identity{
		Email:           " A@B.com ",
		Name:            "Jane Doe",
		Phone:           "+15550100",
		FBC:             "fb.1.1.AbC",
		FBP:             "fb.1.2.XyZ",
		FBCLID:          "click-1",
		ClientIPAddress: "1.2.3.4",
		ClientUserAgent: "Mozilla/5.0",
	})
	require.Nil(t, err)

	assert.Equal(t, sha256hex("a@b.com"), userData["em"])
	assert.Equal(t, sha256hex("jane doe"), userData["fn"])
	assert.Equal(t, sha256hex("+15550100"), userData["ph"])
	assert.Equal(t, "fb.1.1.AbC", userData["fbc"])
	assert.Equal(t, "fb.1.2.XyZ", userData["fbp"])
	assert.Equal(t, "click-1", userData["fbclid"])
	assert.Equal(t, "1.2.3.4", userData["client_ip_address"])
	assert.Equal(t, "Mozilla/5.0", userData["client_user_agent"])
}

func TestBuildUserData_NeverContainsEmptyValues(t *testing.T) {
	userData, err := BuildUserData(Identity{FBP: "fb.1.2.XyZ"})
	require.Nil(t, err)

	for k, v := range userData {
		assert.NotEmpty(t, v, "key %q must not be empty", k)
	}
	assert.Equal(t, map[string]string{"fbp": "fb.1.2.XyZ"}, userData)
}

func TestBuildUserData_InsufficientIdentifiers(t *testing.T) {
	// fn, ip and ua alone cannot attribute an event.
	_, err := BuildUserData(Identity{
		Name:            "Jane Doe",
		ClientIPAddress: "1.2.3.4",
		ClientUserAgent: "Mozilla/5.0",
	})
	require.NotNil(t, err)
	assert.Equal(t, KindInsufficientIdentifiers, err.Kind)
	assert.Equal(t, http.StatusBadRequest, err.Kind.HTTPStatus())
}

func TestBuildPurchaseCustomData(t *testing.T) {
	cd := BuildPurchaseCustomData(models.PaymentSession{
		AmountTotalMinorUnits: int64p(2500),
		CurrencyCode:          "usd",
		LineItems: []models.LineItem{
			{ProductID: "p1", Quantity: 1, UnitAmountMinorUnits: 2500},
			{Quantity: 3, UnitAmountMinorUnits: 100}, // no product id: dropped from contents
			{ProductID: "p1", Quantity: 2, UnitAmountMinorUnits: 2500},
		},
	})

	assert.Equal(t, "USD", cd.Currency)
	require.NotNil(t, cd.Value)
	assert.InDelta(t, 25.00, *cd.Value, 1e-9)
	assert.Equal(t, "product", cd.ContentType)

	// Duplicates and order preserved, aligned with contents.
	assert.Equal(t, []string{"p1", "p1"}, cd.ContentIDs)
	require.Len(t, cd.Contents, 2)
	assert.Equal(t, Content{ID: "p1", Quantity: 1, ItemPrice: 25.00}, cd.Contents[0])
	assert.Equal(t, Content{ID: "p1", Quantity: 2, ItemPrice: 25.00}, cd.Contents[1])

	// num_items counts every line item, including the one without an id.
	require.NotNil(t, cd.NumItems)
	assert.Equal(t, int64(6), *cd.NumItems)
}

func TestBuildPurchaseCustomData_NoLineItemsNoTotal(t *testing.T) {
	cd := BuildPurchaseCustomData(models.PaymentSession{CurrencyCode: "eur"})

	assert.Equal(t, "EUR", cd.Currency)
	assert.Nil(t, cd.Value, "unresolvable value must be omitted, not defaulted to 0")
	require.NotNil(t, cd.NumItems)
	assert.Equal(t, int64(0), *cd.NumItems)
	assert.Empty(t, cd.Contents)
	assert.Empty(t, cd.ContentIDs)
}

func TestBuildClickCustomData(t *testing.T) {
	assert.Nil(t, BuildClickCustomData(nil, "", ""))

	v := 9.99
	cd := BuildClickCustomData(&v, "usd", "widget")
	require.NotNil(t, cd)
	assert.Equal(t, "USD", cd.Currency)
	assert.Equal(t, &v, cd.Value)
	assert.Equal(t, "widget", cd.ContentName)
	assert.Equal(t, []string{"widget"}, cd.ContentIDs)
}

func TestAssembleEvent(t *testing.T) {
	before := time.Now().Unix()
	event := AssembleEvent(EventPurchase, "https://shop.example/thanks", map[string]string{"fbp": "fb.1"}, nil, "evt-1")
	after := time.Now().Unix()

	assert.Equal(t, "Purchase", event.EventName)
	assert.Equal(t, "website", event.ActionSource)
	assert.Equal(t, "https://shop.example/thanks", event.EventSourceURL)
	assert.Equal(t, "evt-1", event.EventID)
	assert.GreaterOrEqual(t, event.EventTime, before)
	assert.LessOrEqual(t, event.EventTime, after)
	assert.Nil(t, event.CustomData)
}

func TestEventKindNames(t *testing.T) {
	assert.Equal(t, "Purchase", EventPurchase.Name())
	assert.Equal(t, "Click", EventClick.Name())
	assert.Equal(t, "OutboundClick", EventOutboundClick.Name())
	assert.Equal(t, "Lead", EventLead.Name())

	assert.True(t, EventPurchase.RequiresSession())
	assert.False(t, EventLead.RequiresSession())
	assert.True(t, EventClick.RequiresClickID())
	assert.True(t, EventOutboundClick.RequiresClickID())
	assert.False(t, EventLead.RequiresClickID())
}
