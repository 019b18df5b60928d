package adapter

import (
	"context"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/form"
	"gitlab.com/ignitionrobotics/billing/cashier/internal/conf"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"go.uber.org/zap"
	"net/http"
)

const (
	// pathCheckoutSessions is the Stripe endpoint used to create checkout sessions.
	pathCheckoutSessions = "/v1/checkout/sessions"

	// metadataHandle is the metadata key used to link a Stripe customer with an application handle.
	metadataHandle = "handle"
)

// stripeAdapter implements Client using the Stripe API and tools.
type stripeAdapter struct {
	// key is the secret key used to authenticate against the Stripe API.
	key string
	// backend performs the raw HTTP calls against the Stripe API.
	backend stripe.Backend
	// API contains a stripe client implementation.
	API *client.API
	logger *zap.Logger
}

// CreateCustomer creates a customer in Stripe. It returns the ID of the new customer.
// Stripe docs: https://stripe.com/docs/api/customers/create
func (s *stripeAdapter) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{}
	if len(req.Email) > 0 {
		params.Email = stripe.String(req.Email)
	}
	if len(req.Name) > 0 {
		params.Name = stripe.String(req.Name)
	}
	params.Context = ctx
	params.AddMetadata(metadataHandle, req.Handle)

	c, err := s.API.Customers.New(params)
	if err != nil {
		s.logger.Warn("Failed to create stripe customer", zap.String("handle", req.Handle), zap.Error(err))
		return "", &api.ProviderError{Err: err}
	}
	s.logger.Debug("Stripe customer created", zap.String("handle", req.Handle), zap.String("customer", c.ID))
	return c.ID, nil
}

// CreateCheckoutSession initializes a new Stripe Checkout session.
// The params are form encoded and the given options are set over the encoded values, which allows callers to reach
// session parameters that are not modeled by stripe.CheckoutSessionParams.
// Stripe docs: https://stripe.com/docs/api/checkout/sessions/create
func (s *stripeAdapter) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams, opts api.Options) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	if params.IdempotencyKey == nil {
		params.IdempotencyKey = stripe.String(uuid.NewString())
	}

	body := EncodeCheckoutSession(params, opts)

	session := &stripe.CheckoutSession{}
	if err := s.backend.CallRaw(http.MethodPost, pathCheckoutSessions, s.key, body, &params.Params, session); err != nil {
		s.logger.Warn("Failed to create checkout session", zap.Error(err))
		return nil, &api.ProviderError{Err: err}
	}
	s.logger.Debug("Checkout session created",
		zap.String("session", session.ID),
		zap.String("mode", string(session.Mode)),
		zap.Int64("amount_total", session.AmountTotal),
	)
	return session, nil
}

// EncodeCheckoutSession form encodes the given params and sets every option over the result.
func EncodeCheckoutSession(params *stripe.CheckoutSessionParams, opts api.Options) *form.Values {
	body := &form.Values{}
	form.AppendTo(body, params)
	for k, v := range opts {
		body.Set(k, v)
	}
	return body
}

// NewStripeClient initializes a new Stripe client using the provided conf.Stripe config.
func NewStripeClient(cfg conf.Stripe, logger *zap.Logger) *client.API {
	return client.New(cfg.SecretKey, newBackends(cfg, logger))
}

func newBackends(cfg conf.Stripe, logger *zap.Logger) *stripe.Backends {
	if logger == nil {
		logger = zap.NewNop()
	}
	var backendURL *string
	if len(cfg.URL) > 0 {
		backendURL = &cfg.URL
	}
	config := stripe.BackendConfig{
		URL:               backendURL,
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	return &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, &config),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, &config),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, &config),
	}
}

// NewStripeAdapter initializes a new adapter using the Stripe client.
func NewStripeAdapter(cfg conf.Stripe, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	backends := newBackends(cfg, logger)
	return &stripeAdapter{
		key:     cfg.SecretKey,
		backend: backends.API,
		API:     client.New(cfg.SecretKey, backends),
		logger:  logger,
	}
}
