package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/controlcopy/capi-bridge/internal/capi"
	"github.com/controlcopy/capi-bridge/internal/models"
	"github.com/controlcopy/capi-bridge/internal/payments"
	"github.com/controlcopy/capi-bridge/internal/store"
)

// EventHandlers holds the collaborators of the conversion flows. lookup and
// deliveries may be nil: a missing lookup fails purchase requests with a
// misconfiguration error, a missing delivery log just skips the audit write.
type EventHandlers struct {
	lookup     payments.SessionLookup
	capiClient *capi.Client
	deliveries *store.PostgresStore
}

// NewEventHandlers wires the conversion flows.
func NewEventHandlers(lookup payments.SessionLookup, capiClient *capi.Client, deliveries *store.PostgresStore) *EventHandlers {
	return &EventHandlers{
		lookup:     lookup,
		capiClient: capiClient,
		deliveries: deliveries,
	}
}

// RegisterEventRoutes registers the public, browser-facing conversion
// endpoints. One parameterized flow per event kind replaces what used to be
// copy-pasted per-endpoint handlers.
//
// POST /events/purchase       - session lookup + full purchase custom_data
// POST /events/click          - body-only, fbc or fbp required
// POST /events/outbound-click - body-only, fbc or fbp required
// POST /events/lead           - body-only, hashed PII alone may identify
func RegisterEventRoutes(r gin.IRoutes, h *EventHandlers) {
	r.POST("/events/purchase", h.handlePurchase)
	r.POST("/events/click", h.handleClick(capi.EventClick))
	r.POST("/events/outbound-click", h.handleClick(capi.EventOutboundClick))
	r.POST("/events/lead", h.handleClick(capi.EventLead))
}

// handlePurchase reconciles a payment-provider session with client-supplied
// attribution and forwards the Purchase event. Every validation step runs
// before any outbound call.
func (h *EventHandlers) handlePurchase(c *gin.Context) {
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, capi.NewError(capi.KindMalformedJSON, "invalid JSON payload"))
		return
	}

	if req.SessionID == "" {
		respondError(c, capi.NewError(capi.KindMissingIdentifier, "sessionId required"))
		return
	}

	if h.lookup == nil || !h.capiClient.Configured() {
		respondError(c, capi.NewError(capi.KindServerMisconfiguration, "server misconfiguration: missing required credentials"))
		return
	}

	session, err := h.lookup.Lookup(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			respondError(c, capi.NewError(capi.KindSessionNotFound, "checkout session not found"))
			return
		}
		logrus.WithError(err).Error("checkout session lookup failed")
		respondError(c, capi.NewError(capi.KindUnexpected, "failed to retrieve checkout session"))
		return
	}

	if !session.PaymentSucceeded {
		respondError(c, capi.NewError(capi.KindPaymentNotSucceeded, "payment not succeeded"))
		return
	}

	userData, uerr := capi.BuildUserData(capi.Identity{
		Email:           session.CustomerEmail,
		Name:            session.CustomerName,
		Phone:           session.CustomerPhone,
		FBC:             req.FBC,
		FBP:             req.FBP,
		FBCLID:          req.FBCLID,
		ClientIPAddress: capi.ResolveClientIP(c.Request.Header),
		ClientUserAgent: clientUserAgent(c, req.ClientUserAgent),
	})
	if uerr != nil {
		respondError(c, uerr)
		return
	}

	// Dedup precedence mirrors the ingest contract: client-supplied eventId
	// first, else the session id so the browser pixel and this server-side
	// report merge into one event.
	eventID := req.EventID
	if eventID == "" {
		eventID = session.ID
	}

	event := capi.AssembleEvent(capi.EventPurchase, req.SourceURL, userData, capi.BuildPurchaseCustomData(session), eventID)
	h.submit(c, event, req.TestEventCode)
}

// handleClick builds the body-only flows (Click, OutboundClick, Lead). The
// kind decides the event name and whether a click identifier is mandatory.
func (h *EventHandlers) handleClick(kind capi.EventKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ClickRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, capi.NewError(capi.KindMalformedJSON, "invalid JSON payload"))
			return
		}

		if kind.RequiresClickID() && req.FBC == "" && req.FBP == "" {
			respondError(c, capi.NewError(capi.KindMissingIdentifier, "at least one of fbc or fbp required"))
			return
		}

		if !h.capiClient.Configured() {
			respondError(c, capi.NewError(capi.KindServerMisconfiguration, "server misconfiguration: missing required credentials"))
			return
		}

		userData, uerr := capi.BuildUserData(capi.Identity{
			Email:           req.Email,
			Name:            req.Name,
			Phone:           req.Phone,
			FBC:             req.FBC,
			FBP:             req.FBP,
			FBCLID:          req.FBCLID,
			ClientIPAddress: capi.ResolveClientIP(c.Request.Header),
			ClientUserAgent: clientUserAgent(c, req.ClientUserAgent),
		})
		if uerr != nil {
			respondError(c, uerr)
			return
		}

		// No session to fall back on here; a generated UUID still allows
		// vendor-side dedup when the client reports the same eventId twice.
		eventID := req.EventID
		if eventID == "" {
			eventID = uuid.New().String()
		}

		customData := capi.BuildClickCustomData(req.Value, req.Currency, req.ContentName)
		event := capi.AssembleEvent(kind, req.SourceURL, userData, customData, eventID)
		h.submit(c, event, req.TestEventCode)
	}
}

// submit performs the single upstream submission attempt, records the audit
// row, and answers the caller. A vendor rejection is forwarded with the
// vendor's status and body, never swallowed into a generic 500.
func (h *EventHandlers) submit(c *gin.Context, event capi.ConversionEvent, testEventCode string) {
	envelope := capi.Envelope{
		Data:          []capi.ConversionEvent{event},
		TestEventCode: testEventCode,
	}

	// The caller may disconnect while the vendor call is in flight; the
	// submission still completes server-side, bounded only by the client
	// timeout. No cancellation propagates from the request.
	ctx := context.WithoutCancel(c.Request.Context())

	result, err := h.capiClient.Submit(ctx, envelope)
	if err != nil {
		logrus.WithError(err).WithField("event_name", event.EventName).Error("conversion submission failed")
		respondError(c, capi.NewError(capi.KindUnexpected, "failed to reach ingestion API"))
		return
	}

	h.recordDelivery(ctx, event, result)

	logrus.WithFields(logrus.Fields{
		"event_name":      event.EventName,
		"event_id":        event.EventID,
		"upstream_status": result.StatusCode,
		"accepted":        result.OK,
	}).Info("conversion event submitted")

	resp := models.SubmitResponse{
		Success: result.OK,
		Status:  result.StatusCode,
	}
	if result.Body != nil {
		resp.FacebookResponse = result.Body
	}

	if !result.OK {
		status := result.StatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		resp.Message = "ingestion API rejected the event"
		c.JSON(status, resp)
		return
	}

	resp.Message = event.EventName + " event processed and sent"
	c.JSON(http.StatusOK, resp)
}

// recordDelivery appends the submission outcome to the delivery log when one
// is configured. Best effort: a failed audit write is logged, not surfaced.
func (h *EventHandlers) recordDelivery(ctx context.Context, event capi.ConversionEvent, result *capi.SubmitResult) {
	if h.deliveries == nil {
		return
	}

	err := h.deliveries.RecordDelivery(ctx, store.Delivery{
		EventID:        event.EventID,
		EventName:      event.EventName,
		UpstreamStatus: result.StatusCode,
		Accepted:       result.OK,
	})
	if err != nil {
		logrus.WithError(err).Warn("delivery log write failed")
	}
}

// respondError maps a classified failure to its client-facing status.
func respondError(c *gin.Context, err *capi.Error) {
	c.JSON(err.Kind.HTTPStatus(), gin.H{"error": err.Message})
}

// clientUserAgent prefers the value the front-end captured at the original
// user action; the transport header is only a fallback.
func clientUserAgent(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.Request.UserAgent()
}
