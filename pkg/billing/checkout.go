package billing

import (
	"context"
	"github.com/stripe/stripe-go/v72"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"go.uber.org/zap"
)

// Checkout wraps a Stripe checkout session returned when starting a checkout.
type Checkout struct {
	session *stripe.CheckoutSession
}

// AsStripeCheckoutSession returns the underlying Stripe checkout session.
func (c *Checkout) AsStripeCheckoutSession() *stripe.CheckoutSession {
	return c.session
}

// newCheckout creates a checkout session in Stripe on behalf of owner.
func newCheckout(ctx context.Context, owner *Customer, params *stripe.CheckoutSessionParams, opts api.Options) (*Checkout, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	customer, err := owner.CreateOrGetStripeCustomer(ctx)
	if err != nil {
		return nil, err
	}

	params.Customer = stripe.String(customer)
	params.SuccessURL = stripe.String(opts.SuccessURL())
	params.CancelURL = stripe.String(opts.CancelURL())
	params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
	params.AddExpand("line_items")

	session, err := owner.client.CreateCheckoutSession(ctx, params, opts)
	if err != nil {
		return nil, err
	}

	owner.logger.Debug("Checkout session started",
		zap.String("session", session.ID),
		zap.String("mode", stripe.StringValue(params.Mode)),
	)
	return &Checkout{session: session}, nil
}
