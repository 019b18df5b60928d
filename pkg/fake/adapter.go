package fake

import (
	"context"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v72"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/adapter"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
)

var _ adapter.Client = (*Adapter)(nil)

// Adapter is a fake implementation of adapter.Client.
type Adapter struct {
	mock.Mock
}

// CreateCustomer mocks a CreateCustomer call.
func (a *Adapter) CreateCustomer(ctx context.Context, req adapter.CustomerRequest) (string, error) {
	args := a.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// CreateCheckoutSession mocks a CreateCheckoutSession call.
func (a *Adapter) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams, opts api.Options) (*stripe.CheckoutSession, error) {
	args := a.Called(ctx, params, opts)
	res, _ := args.Get(0).(*stripe.CheckoutSession)
	return res, args.Error(1)
}

// NewAdapter initializes a new fake adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}
