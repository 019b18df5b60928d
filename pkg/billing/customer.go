// Package billing maps billable customers and subscriptions onto Stripe Checkout sessions.
package billing

import (
	"context"
	"github.com/stripe/stripe-go/v72"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/adapter"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"go.uber.org/zap"
)

// DefaultCurrency is the currency used for ad-hoc charges when the customer doesn't define one.
const DefaultCurrency = "usd"

// Store persists the Stripe customer id of a billable entity once it has been created.
type Store interface {
	// SetStripeID links the customer identified by handle with a Stripe customer.
	SetStripeID(ctx context.Context, handle, stripeID string) error
}

// Customer is a billable entity. It holds the billing metadata needed to start checkout sessions.
// Customer is not safe for concurrent use: tax rates must not be changed while a checkout is in flight.
type Customer struct {
	handle   string
	email    string
	name     string
	stripeID string
	taxRates []string
	currency string

	client adapter.Client
	store  Store
	logger *zap.Logger
}

// CustomerOptions contains the data and components needed to initialize a Customer.
type CustomerOptions struct {
	// Handle is the customer identity in the context of a certain application.
	Handle string

	// Email and Name are sent to Stripe when the Stripe customer is created.
	Email string
	Name  string

	// StripeID is the customer ID in Stripe. If empty, it is created on the first checkout.
	StripeID string

	// TaxRates contains the Stripe tax rate ids applied to subscriptions.
	TaxRates []string

	// Currency is the ISO 4217 currency in lowercase used for ad-hoc charges. Defaults to DefaultCurrency.
	Currency string

	// Client is the payment service adapter.
	Client adapter.Client

	// Store persists the Stripe customer id. Optional.
	Store Store

	// Logger contains a logger mechanism. If set to nil, it defaults to a no-op logger.
	Logger *zap.Logger
}

// NewCustomer initializes a new billable Customer.
func NewCustomer(opts CustomerOptions) *Customer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Currency) == 0 {
		opts.Currency = DefaultCurrency
	}
	return &Customer{
		handle:   opts.Handle,
		email:    opts.Email,
		name:     opts.Name,
		stripeID: opts.StripeID,
		taxRates: append([]string(nil), opts.TaxRates...),
		currency: opts.Currency,
		client:   opts.Client,
		store:    opts.Store,
		logger:   opts.Logger.With(zap.String("handle", opts.Handle)),
	}
}

// Handle returns the customer identity.
func (c *Customer) Handle() string {
	return c.handle
}

// StripeID returns the Stripe customer id, empty if it hasn't been created yet.
func (c *Customer) StripeID() string {
	return c.stripeID
}

// HasStripeID reports whether the customer exists in Stripe.
func (c *Customer) HasStripeID() bool {
	return len(c.stripeID) > 0
}

// TaxRates returns the tax rate ids applied to the customer subscriptions.
func (c *Customer) TaxRates() []string {
	return append([]string(nil), c.taxRates...)
}

// SetTaxRates replaces the tax rate ids applied to the customer subscriptions.
func (c *Customer) SetTaxRates(ids ...string) {
	c.taxRates = append([]string(nil), ids...)
}

// Currency returns the currency used for ad-hoc charges.
func (c *Customer) Currency() string {
	return c.currency
}

// CreateOrGetStripeCustomer returns the Stripe customer id, creating the Stripe customer first if needed.
// A newly created id is persisted through the customer Store.
func (c *Customer) CreateOrGetStripeCustomer(ctx context.Context) (string, error) {
	if c.HasStripeID() {
		return c.stripeID, nil
	}

	id, err := c.client.CreateCustomer(ctx, adapter.CustomerRequest{
		Handle: c.handle,
		Email:  c.email,
		Name:   c.name,
	})
	if err != nil {
		return "", err
	}
	c.stripeID = id

	if c.store != nil {
		if err = c.store.SetStripeID(ctx, c.handle, id); err != nil {
			c.logger.Error("Failed to persist stripe customer", zap.String("customer", id), zap.Error(err))
			return "", err
		}
	}
	c.logger.Info("Stripe customer created", zap.String("customer", id))
	return id, nil
}

// Checkout starts a payment checkout session for the given catalog prices.
// Items without quantity are purchased once. The options must contain the success and cancel URLs.
func (c *Customer) Checkout(ctx context.Context, items []api.Item, opts api.Options) (*Checkout, error) {
	if err := api.ValidateItems(items); err != nil {
		return nil, err
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, it := range items {
		qty, err := api.NormalizeQuantity(it.Quantity)
		if err != nil {
			return nil, err
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(it.Price),
			Quantity: stripe.Int64(qty),
		})
	}

	return newCheckout(ctx, c, &stripe.CheckoutSessionParams{
		Mode:      stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: lineItems,
	}, opts)
}

// CheckoutCharge starts a payment checkout session for a single ad-hoc amount, without a catalog price.
// The amount is expressed in the smallest currency unit. Amount and quantity must be positive.
func (c *Customer) CheckoutCharge(ctx context.Context, amount int64, name string, quantity int64, opts api.Options) (*Checkout, error) {
	if err := api.ValidateCharge(amount, name, quantity); err != nil {
		return nil, err
	}

	return newCheckout(ctx, c, &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(quantity),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
					UnitAmount: stripe.Int64(amount),
				},
			},
		},
	}, opts)
}

// NewSubscription returns a builder for a subscription to the given price, stored under the given local name.
func (c *Customer) NewSubscription(name, price string) *SubscriptionBuilder {
	return &SubscriptionBuilder{
		owner:    c,
		name:     name,
		price:    price,
		metadata: map[string]string{},
	}
}
