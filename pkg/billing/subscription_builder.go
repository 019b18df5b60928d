package billing

import (
	"context"
	"fmt"
	"github.com/stripe/stripe-go/v72"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
)

// metadataName is the subscription metadata key holding the local subscription name.
const metadataName = "name"

// SubscriptionBuilder accumulates the configuration of a new subscription and starts its checkout.
// Configuration methods return the same builder so they can be chained. A builder is consumed by Checkout;
// configuring it afterwards records api.ErrIllegalState, available through Err.
type SubscriptionBuilder struct {
	owner *Customer

	name                string
	price               string
	quantity            int64
	coupon              string
	allowPromotionCodes bool
	trialDays           int64
	metadata            map[string]string

	submitted bool
	err       error
}

// AllowPromotionCodes enables user redeemable promotion codes in the checkout page.
func (b *SubscriptionBuilder) AllowPromotionCodes() *SubscriptionBuilder {
	if b.mutable("AllowPromotionCodes") {
		b.allowPromotionCodes = true
	}
	return b
}

// WithCoupon applies the given coupon to the subscription.
// When promotion codes are allowed too, both are sent and Stripe decides which one applies.
func (b *SubscriptionBuilder) WithCoupon(coupon string) *SubscriptionBuilder {
	if b.mutable("WithCoupon") {
		b.coupon = coupon
	}
	return b
}

// Quantity sets the quantity of the subscribed price. Defaults to 1.
func (b *SubscriptionBuilder) Quantity(qty int64) *SubscriptionBuilder {
	if !b.mutable("Quantity") {
		return b
	}
	if qty <= 0 {
		b.err = fmt.Errorf("%w: quantity must be positive, got %d", api.ErrInvalidRequest, qty)
		return b
	}
	b.quantity = qty
	return b
}

// TrialDays sets the amount of trial days before the customer is charged.
func (b *SubscriptionBuilder) TrialDays(days int64) *SubscriptionBuilder {
	if !b.mutable("TrialDays") {
		return b
	}
	if days < 0 {
		b.err = fmt.Errorf("%w: trial days must not be negative, got %d", api.ErrInvalidRequest, days)
		return b
	}
	b.trialDays = days
	return b
}

// WithMetadata adds the given metadata to the subscription.
func (b *SubscriptionBuilder) WithMetadata(md map[string]string) *SubscriptionBuilder {
	if b.mutable("WithMetadata") {
		for k, v := range md {
			b.metadata[k] = v
		}
	}
	return b
}

// Err returns the first error recorded while configuring the builder.
func (b *SubscriptionBuilder) Err() error {
	return b.err
}

// Submitted reports whether Checkout has already sent this subscription to Stripe.
func (b *SubscriptionBuilder) Submitted() bool {
	return b.submitted
}

// Checkout starts a subscription checkout session. The options must contain the success and cancel URLs.
// The customer tax rates are applied as default tax rates of the subscription.
func (b *SubscriptionBuilder) Checkout(ctx context.Context, opts api.Options) (*Checkout, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.submitted {
		return nil, b.illegalState("Checkout")
	}
	if len(b.price) == 0 {
		return nil, fmt.Errorf("%w: empty price", api.ErrInvalidRequest)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	params := b.params()
	b.submitted = true

	return newCheckout(ctx, b.owner, params, opts)
}

// params builds the checkout session params for the current configuration.
func (b *SubscriptionBuilder) params() *stripe.CheckoutSessionParams {
	qty := b.quantity
	if qty == 0 {
		qty = 1
	}

	metadata := make(map[string]string, len(b.metadata)+1)
	for k, v := range b.metadata {
		metadata[k] = v
	}
	metadata[metadataName] = b.name

	data := &stripe.CheckoutSessionSubscriptionDataParams{
		Metadata: metadata,
	}
	if len(b.coupon) > 0 {
		data.Coupon = stripe.String(b.coupon)
	}
	if rates := b.owner.TaxRates(); len(rates) > 0 {
		data.DefaultTaxRates = stripe.StringSlice(rates)
	}
	if b.trialDays > 0 {
		data.TrialPeriodDays = stripe.Int64(b.trialDays)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(b.price),
				Quantity: stripe.Int64(qty),
			},
		},
		SubscriptionData: data,
	}
	if b.allowPromotionCodes {
		params.AllowPromotionCodes = stripe.Bool(true)
	}
	return params
}

// mutable reports whether the builder can still be configured, recording an illegal state error otherwise.
func (b *SubscriptionBuilder) mutable(method string) bool {
	if !b.submitted {
		return true
	}
	if b.err == nil {
		b.err = b.illegalState(method)
	}
	return false
}

func (b *SubscriptionBuilder) illegalState(method string) error {
	return fmt.Errorf("%w: %s called on submitted subscription %q", api.ErrIllegalState, method, b.name)
}
