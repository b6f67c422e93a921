package main

import (
	"github.com/sirupsen/logrus"

	"github.com/controlcopy/capi-bridge/internal/capi"
	"github.com/controlcopy/capi-bridge/internal/config"
	"github.com/controlcopy/capi-bridge/internal/handlers"
	"github.com/controlcopy/capi-bridge/internal/httpserver"
	"github.com/controlcopy/capi-bridge/internal/payments"
	"github.com/controlcopy/capi-bridge/internal/store"
)

// main boots the service: config → optional delivery log → clients → HTTP server.
func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// Load runtime config from environment (credentials, endpoints, DB_URL).
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load failed")
	}

	// Optional delivery log. Without DB_URL the service runs stateless.
	var deliveries *store.PostgresStore
	if cfg.DBURL != "" {
		deliveries, err = store.NewPostgresStore(cfg.DBURL)
		if err != nil {
			logrus.WithError(err).Fatal("delivery log connect failed")
		}
		defer deliveries.Close()

		// Ensure required tables/indexes exist so `docker compose up --build` is enough.
		if err := deliveries.EnsureSchema(); err != nil {
			logrus.WithError(err).Fatal("delivery log schema failed")
		}
	}

	// Payment session lookup; left nil when the key is absent so purchase
	// requests answer with a misconfiguration error instead of panicking.
	var lookup payments.SessionLookup
	if cfg.StripeSecretKey != "" {
		lookup = payments.NewStripeLookup(cfg.StripeSecretKey)
	} else {
		logrus.Warn("STRIPE_SECRET_KEY not set; purchase flow disabled")
	}

	if cfg.FBAccessToken == "" || cfg.FBPixelID == "" {
		logrus.Warn("FB_ACCESS_TOKEN/FB_PIXEL_ID not set; submissions will fail with server misconfiguration")
	}

	capiClient := capi.NewClient(capi.ClientConfig{
		BaseURL:     cfg.FBGraphBaseURL,
		Version:     cfg.FBGraphVersion,
		PixelID:     cfg.FBPixelID,
		AccessToken: cfg.FBAccessToken,
		Timeout:     cfg.UpstreamTimeout,
	})

	eventHandlers := handlers.NewEventHandlers(lookup, capiClient, deliveries)

	// Build HTTP router (public conversion endpoints + operator surface).
	router := httpserver.NewRouter(cfg, eventHandlers, deliveries)

	logrus.WithField("addr", cfg.Addr).Info("server started")
	if err := router.Run(cfg.Addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
