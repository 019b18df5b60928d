package application

import (
	"context"
	"errors"
	"github.com/stripe/stripe-go/v72"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/adapter"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/billing"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/customers"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"time"
)

// service contains the business logic to start checkout sessions on different billing systems such as Stripe.
type service struct {
	// logger is used to log relevant information when running this service.
	logger *zap.Logger

	// customers contains the store of billable customers.
	customers customers.Store

	// timeout is used as the timeout duration for the circuit breaking mechanism when calling different methods.
	timeout time.Duration

	// adapter contains an implementation of a payment service client.
	// E.g. Stripe, Paypal, etc.
	adapter adapter.Client

	// currency is the currency used for ad-hoc charges.
	currency string

	metrics *Metrics

	// lookups coalesces concurrent customer lookups for the same handle.
	lookups singleflight.Group
}

// CreateSession creates a checkout session for a customer to purchase a set of catalog prices.
func (s *service) CreateSession(ctx context.Context, req api.CreateSessionRequest) (api.CreateSessionResponse, error) {
	s.logger.Info("Creating checkout session", zap.String("handle", req.Handle), zap.Int("items", len(req.Items)))

	res, err := run(ctx, s, "CreateSession", func(ctx context.Context) (api.CreateSessionResponse, error) {
		if err := req.Validate(); err != nil {
			return api.CreateSessionResponse{}, err
		}

		cus, err := s.customer(ctx, req.Customer)
		if err != nil {
			return api.CreateSessionResponse{}, err
		}

		checkout, err := cus.Checkout(ctx, req.Items, req.Options)
		if err != nil {
			return api.CreateSessionResponse{}, err
		}
		return newSessionResponse(checkout), nil
	})
	s.metrics.observeCheckout(string(stripe.CheckoutSessionModePayment), err)
	return res, err
}

// CreateChargeSession creates a checkout session for a customer to pay a single ad-hoc amount.
func (s *service) CreateChargeSession(ctx context.Context, req api.CreateChargeSessionRequest) (api.CreateSessionResponse, error) {
	s.logger.Info("Creating charge checkout session",
		zap.String("handle", req.Handle),
		zap.Int64("amount", req.Amount),
		zap.String("name", req.Name),
	)

	res, err := run(ctx, s, "CreateChargeSession", func(ctx context.Context) (api.CreateSessionResponse, error) {
		if err := req.Validate(); err != nil {
			return api.CreateSessionResponse{}, err
		}

		cus, err := s.customer(ctx, req.Customer)
		if err != nil {
			return api.CreateSessionResponse{}, err
		}

		qty, err := api.NormalizeQuantity(req.Quantity)
		if err != nil {
			return api.CreateSessionResponse{}, err
		}

		checkout, err := cus.CheckoutCharge(ctx, req.Amount, req.Name, qty, req.Options)
		if err != nil {
			return api.CreateSessionResponse{}, err
		}
		return newSessionResponse(checkout), nil
	})
	s.metrics.observeCheckout(string(stripe.CheckoutSessionModePayment), err)
	return res, err
}

// CreateSubscriptionSession creates a checkout session for a customer to subscribe to a recurring price.
func (s *service) CreateSubscriptionSession(ctx context.Context, req api.CreateSubscriptionSessionRequest) (api.CreateSessionResponse, error) {
	s.logger.Info("Creating subscription checkout session",
		zap.String("handle", req.Handle),
		zap.String("name", req.Name),
		zap.String("price", req.Price),
	)

	res, err := run(ctx, s, "CreateSubscriptionSession", func(ctx context.Context) (api.CreateSessionResponse, error) {
		if err := req.Validate(); err != nil {
			return api.CreateSessionResponse{}, err
		}

		cus, err := s.customer(ctx, req.Customer)
		if err != nil {
			return api.CreateSessionResponse{}, err
		}

		b := cus.NewSubscription(req.Name, req.Price)
		if req.Quantity != nil {
			b.Quantity(*req.Quantity)
		}
		if len(req.Coupon) > 0 {
			b.WithCoupon(req.Coupon)
		}
		if req.AllowPromotionCodes {
			b.AllowPromotionCodes()
		}
		if req.TrialDays > 0 {
			b.TrialDays(req.TrialDays)
		}

		checkout, err := b.Checkout(ctx, req.Options)
		if err != nil {
			return api.CreateSessionResponse{}, err
		}
		return newSessionResponse(checkout), nil
	})
	s.metrics.observeCheckout(string(stripe.CheckoutSessionModeSubscription), err)
	return res, err
}

// UpdateTaxRates replaces the tax rates applied to the subscriptions of a customer.
func (s *service) UpdateTaxRates(ctx context.Context, req api.UpdateTaxRatesRequest) (api.UpdateTaxRatesResponse, error) {
	s.logger.Info("Updating tax rates", zap.String("handle", req.Handle), zap.Strings("tax_rates", req.TaxRates))

	return run(ctx, s, "UpdateTaxRates", func(ctx context.Context) (api.UpdateTaxRatesResponse, error) {
		if err := req.Validate(); err != nil {
			return api.UpdateTaxRatesResponse{}, err
		}

		if _, err := s.findOrCreateCustomer(ctx, api.Customer{Handle: req.Handle}); err != nil {
			return api.UpdateTaxRatesResponse{}, err
		}

		if err := s.customers.SetTaxRates(ctx, req.Handle, req.TaxRates); err != nil {
			return api.UpdateTaxRatesResponse{}, err
		}
		return api.UpdateTaxRatesResponse{TaxRates: req.TaxRates}, nil
	})
}

// customer returns the billable customer identified by the given request customer.
func (s *service) customer(ctx context.Context, req api.Customer) (*billing.Customer, error) {
	record, err := s.findOrCreateCustomer(ctx, req)
	if err != nil {
		return nil, err
	}
	return billing.NewCustomer(billing.CustomerOptions{
		Handle:   record.Handle,
		Email:    record.Email,
		Name:     record.Name,
		StripeID: record.StripeID,
		TaxRates: record.TaxRates,
		Currency: s.currency,
		Client:   s.adapter,
		Store:    s.customers,
		Logger:   s.logger,
	}), nil
}

// findOrCreateCustomer returns the stored customer for the given handle, creating it if it doesn't exist.
// Concurrent calls for the same handle share a single lookup: it runs detached from the caller's cancellation, and a
// missing customer is created with the email and name of the caller that started it.
func (s *service) findOrCreateCustomer(ctx context.Context, req api.Customer) (customers.Customer, error) {
	lookupCtx := context.WithoutCancel(ctx)
	ch := s.lookups.DoChan(req.Handle, func() (interface{}, error) {
		return s.lookupCustomer(lookupCtx, req)
	})

	select {
	case <-ctx.Done():
		return customers.Customer{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return customers.Customer{}, res.Err
		}
		return res.Val.(customers.Customer), nil
	}
}

func (s *service) lookupCustomer(ctx context.Context, req api.Customer) (customers.Customer, error) {
	record, err := s.customers.FindByHandle(ctx, req.Handle)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, customers.ErrCustomerNotFound) {
		return customers.Customer{}, err
	}

	record = customers.Customer{
		Handle: req.Handle,
		Email:  req.Email,
		Name:   req.Name,
	}
	if err = s.customers.Create(ctx, &record); err != nil {
		// The customer may have been created by a concurrent request.
		if existing, findErr := s.customers.FindByHandle(ctx, req.Handle); findErr == nil {
			return existing, nil
		}
		return customers.Customer{}, err
	}
	s.metrics.CustomersCreated.Inc()
	s.logger.Info("Customer created", zap.String("handle", req.Handle))
	return record, nil
}

// newSessionResponse maps a checkout into the API response.
func newSessionResponse(checkout *billing.Checkout) api.CreateSessionResponse {
	session := checkout.AsStripeCheckoutSession()
	return api.CreateSessionResponse{
		Service:             api.PaymentServiceStripe,
		Session:             session.ID,
		URL:                 session.URL,
		AmountTotal:         session.AmountTotal,
		AllowPromotionCodes: session.AllowPromotionCodes,
	}
}

// run calls fn in a separate goroutine, returning early if the context is done or the service timeout expires.
func run[T any](ctx context.Context, s *service, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Main thread
	ch := make(chan T, 1)
	errs := make(chan error, 1)
	go func() {
		res, err := fn(ctx)
		if err != nil {
			errs <- err
			return
		}
		ch <- res
	}()

	select {
	case <-ctx.Done(): // Circuit breaker
		s.logger.Warn("Context error", zap.String("operation", operation), zap.Error(ctx.Err()))
		return zero, ctx.Err()
	case err := <-errs: // Error handler
		s.logger.Warn("Operation failed", zap.String("operation", operation), zap.Error(err))
		return zero, err
	case res := <-ch: // Post-processing
		s.logger.Info("Operation finished", zap.String("operation", operation))
		return res, nil
	}
}

// Service holds methods to start checkout sessions in different payments systems.
type Service interface {
	api.PaymentsV1
}

// Options contains a set of components needed to configure the cashier service.
type Options struct {
	// Customers holds the customers store.
	Customers customers.Store

	// Logger contains a logger mechanism. If set to nil, it defaults to a no-op logger.
	Logger *zap.Logger

	// Timeout contains a circuit breaking timeout used to prevent long process runs. Zero disables it.
	Timeout time.Duration

	// Adapter contains a payment adapter implementation such as Stripe.
	Adapter adapter.Client

	// Currency is the currency used for ad-hoc charges. Defaults to billing.DefaultCurrency.
	Currency string

	// Metrics holds the service collectors. If set to nil, collectors are created but not registered.
	Metrics *Metrics
}

// NewCashierService initializes a new Service implementation.
func NewCashierService(opts Options) Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if len(opts.Currency) == 0 {
		opts.Currency = billing.DefaultCurrency
	}
	return &service{
		logger:    opts.Logger,
		customers: opts.Customers,
		timeout:   opts.Timeout,
		adapter:   opts.Adapter,
		currency:  opts.Currency,
		metrics:   opts.Metrics,
	}
}
