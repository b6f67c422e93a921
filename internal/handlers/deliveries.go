package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/controlcopy/capi-bridge/internal/auth"
	"github.com/controlcopy/capi-bridge/internal/store"
)

// RegisterDeliveryRoutes registers the operator-only audit endpoint.
//
// GET /ops/deliveries?event_name=...&from=...&to=...
// - Requires X-API-Key
// - Returns the number of recorded upstream submissions in [from,to)
func RegisterDeliveryRoutes(r gin.IRoutes, st *store.PostgresStore) {
	r.GET("/ops/deliveries", func(c *gin.Context) {
		// Audit who is reading the delivery log.
		logrus.WithField("operator", auth.Operator(c)).Info("delivery log queried")

		if st == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "delivery log not configured"})
			return
		}

		eventName := c.Query("event_name")
		fromStr := c.Query("from")
		toStr := c.Query("to")

		// Required query params per contract.
		if eventName == "" || fromStr == "" || toStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_name, from, to are required"})
			return
		}

		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}

		from = from.UTC()
		to = to.UTC()

		// Validate window to avoid confusing results.
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be < to"})
			return
		}

		count, err := st.CountDeliveries(c.Request.Context(), eventName, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"event_name": eventName,
			"count":      count,
		})
	})
}
