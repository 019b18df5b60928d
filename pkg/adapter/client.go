package adapter

import (
	"context"
	"github.com/stripe/stripe-go/v72"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
)

// Client wraps a payment service client such as Stripe to be used as an adapter.
type Client interface {
	// CreateCustomer creates a customer in the context of the payment service. It returns the customer ID.
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)

	// CreateCheckoutSession creates a checkout session in the context of the payment service.
	// The given options are merged over the encoded params, options take precedence.
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams, opts api.Options) (*stripe.CheckoutSession, error)
}

// CustomerRequest is the input for the Client.CreateCustomer method.
type CustomerRequest struct {
	// Handle is the customer identity in the context of a certain application.
	Handle string

	// Email is the customer's email address.
	Email string

	// Name is the customer's full name or business name.
	Name string
}
