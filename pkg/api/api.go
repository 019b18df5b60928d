package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidRequest is returned when the local input of a checkout is malformed. E.g. an empty set of items or a
	// non-positive quantity.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingRequiredOption is returned when either (or both) of the callback URLs are missing from the options.
	ErrMissingRequiredOption = errors.New("missing required option")

	// ErrIllegalState is returned when a subscription builder is used after it has been submitted.
	ErrIllegalState = errors.New("illegal state")

	// ErrInvalidURL is returned when a callback URL option is not an absolute URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrEmptyHandle is returned when a request doesn't identify the customer.
	ErrEmptyHandle = errors.New("empty handle")
)

// ProviderError is returned when the payment provider fails to process a request.
// The underlying error is kept untouched, a *stripe.Error can be recovered with errors.As.
type ProviderError struct {
	Err error
}

// Error returns the message of the underlying error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %v", e.Err)
}

// Unwrap returns the underlying provider error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PaymentService identifies different payment services such as Stripe, PayPal, and more.
type PaymentService string

const (
	// PaymentServiceStripe represents the stripe payment service.
	PaymentServiceStripe PaymentService = "stripe"
)

const (
	// OptionSuccessURL is the option key holding the URL where to redirect a checkout process when it succeeds.
	OptionSuccessURL = "success_url"

	// OptionCancelURL is the option key holding the URL where to redirect a checkout process when it's canceled.
	OptionCancelURL = "cancel_url"
)

// Options is a bag of checkout session parameters keyed by their provider form name.
//	Examples: "success_url", "subscription_data[trial_period_days]", "locale".
// Keys other than the callback URLs are forwarded verbatim to the payment provider and take precedence over the
// values generated for a request.
type Options map[string]string

// Validate checks that both callback URLs are present and well-formed.
func (o Options) Validate() error {
	for _, key := range []string{OptionSuccessURL, OptionCancelURL} {
		v, ok := o[key]
		if !ok || len(v) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingRequiredOption, key)
		}
		if err := validateURL(v); err != nil {
			return err
		}
	}
	return nil
}

// SuccessURL returns the success callback URL.
func (o Options) SuccessURL() string {
	return o[OptionSuccessURL]
}

// CancelURL returns the cancel callback URL.
func (o Options) CancelURL() string {
	return o[OptionCancelURL]
}

// Item is a line item of a checkout referencing a catalog price.
type Item struct {
	// Price is the price identifier in the payment provider.
	Price string `json:"price" validate:"required"`

	// Quantity is the amount of units of the given price. Nil means omitted and defaults to 1.
	Quantity *int64 `json:"quantity,omitempty"`
}

// Quantity returns a pointer to the given quantity.
func Quantity(n int64) *int64 {
	return &n
}

// Prices returns a list of items for the given price ids, each with the default quantity.
func Prices(ids ...string) []Item {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, Item{Price: id})
	}
	return items
}

// ItemsFromMap returns a list of items out of a mapping between price ids and quantities.
// Items are sorted by price id.
func ItemsFromMap(m map[string]int64) []Item {
	items := make([]Item, 0, len(m))
	for price, qty := range m {
		items = append(items, Item{Price: price, Quantity: Quantity(qty)})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Price < items[j].Price
	})
	return items
}

// NormalizeQuantity returns the quantity to send to the payment provider. Omitted quantities default to 1.
func NormalizeQuantity(qty *int64) (int64, error) {
	if qty == nil {
		return 1, nil
	}
	if err := validateQuantity(*qty); err != nil {
		return 0, err
	}
	return *qty, nil
}

func validateQuantity(qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidRequest, qty)
	}
	return nil
}

// ValidateItems validates a list of checkout items.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidRequest)
	}
	for _, it := range items {
		if len(it.Price) == 0 {
			return fmt.Errorf("%w: empty price", ErrInvalidRequest)
		}
		if _, err := NormalizeQuantity(it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// PaymentsV1 holds the methods that allow starting checkout sessions in a payment platform such as Stripe.
// The audience of this interface is internal to the different billing and application services as it shouldn't be called
// from the internet.
type PaymentsV1 interface {
	// CreateSession creates a checkout session for a customer to purchase a set of catalog prices.
	CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResponse, error)

	// CreateChargeSession creates a checkout session for a customer to pay a single ad-hoc amount.
	CreateChargeSession(ctx context.Context, req CreateChargeSessionRequest) (CreateSessionResponse, error)

	// CreateSubscriptionSession creates a checkout session for a customer to subscribe to a recurring price.
	CreateSubscriptionSession(ctx context.Context, req CreateSubscriptionSessionRequest) (CreateSessionResponse, error)

	// UpdateTaxRates replaces the tax rates applied to the subscriptions of a customer.
	UpdateTaxRates(ctx context.Context, req UpdateTaxRatesRequest) (UpdateTaxRatesResponse, error)
}

// Customer identifies the customer starting a checkout session.
type Customer struct {
	// Handle is the customer identity in the context of a certain application.
	// E.g. application username, application organization name.
	Handle string `json:"handle" validate:"required"`

	// Email is used when creating the customer in the payment service.
	Email string `json:"email,omitempty" validate:"omitempty,email"`

	// Name is used when creating the customer in the payment service.
	Name string `json:"name,omitempty"`
}

// CreateSessionRequest is the input for the PaymentsV1.CreateSession method.
type CreateSessionRequest struct {
	Customer

	// Items contains the prices to purchase.
	Items []Item `json:"items" validate:"dive"`

	// Options contains the callback URLs and any passthrough parameter.
	Options Options `json:"options"`
}

// Validate validates the current request.
func (r CreateSessionRequest) Validate() error {
	if err := validateCustomer(r.Customer); err != nil {
		return err
	}
	if err := ValidateItems(r.Items); err != nil {
		return err
	}
	return r.Options.Validate()
}

// CreateChargeSessionRequest is the input for the PaymentsV1.CreateChargeSession method.
type CreateChargeSessionRequest struct {
	Customer

	// Amount contains the unit amount in the smallest currency unit.
	Amount int64 `json:"amount"`

	// Name is the product name displayed in the checkout page.
	Name string `json:"name"`

	// Quantity is the amount of units to charge. Nil defaults to 1.
	Quantity *int64 `json:"quantity,omitempty"`

	// Options contains the callback URLs and any passthrough parameter.
	Options Options `json:"options"`
}

// Validate validates the current request.
func (r CreateChargeSessionRequest) Validate() error {
	if err := validateCustomer(r.Customer); err != nil {
		return err
	}
	qty, err := NormalizeQuantity(r.Quantity)
	if err != nil {
		return err
	}
	if err = ValidateCharge(r.Amount, r.Name, qty); err != nil {
		return err
	}
	return r.Options.Validate()
}

// ValidateCharge validates the values of an ad-hoc charge. The quantity must be positive.
func ValidateCharge(amount int64, name string, quantity int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidRequest, amount)
	}
	if len(name) == 0 {
		return fmt.Errorf("%w: empty name", ErrInvalidRequest)
	}
	return validateQuantity(quantity)
}

// CreateSubscriptionSessionRequest is the input for the PaymentsV1.CreateSubscriptionSession method.
type CreateSubscriptionSessionRequest struct {
	Customer

	// Name is the local subscription slot. E.g. default.
	Name string `json:"name" validate:"required"`

	// Price is the recurring price the customer subscribes to.
	Price string `json:"price" validate:"required"`

	// Quantity of the subscribed price. Nil defaults to 1.
	Quantity *int64 `json:"quantity,omitempty"`

	// Coupon is applied to the created subscription.
	Coupon string `json:"coupon,omitempty"`

	// AllowPromotionCodes enables user redeemable promotion codes in the checkout page.
	AllowPromotionCodes bool `json:"allow_promotion_codes,omitempty"`

	// TrialDays is the amount of trial days before charging the customer.
	TrialDays int64 `json:"trial_days,omitempty" validate:"min=0"`

	// Options contains the callback URLs and any passthrough parameter.
	Options Options `json:"options"`
}

// Validate validates the current request.
func (r CreateSubscriptionSessionRequest) Validate() error {
	if err := validateCustomer(r.Customer); err != nil {
		return err
	}
	if err := validateStruct(r); err != nil {
		return err
	}
	if _, err := NormalizeQuantity(r.Quantity); err != nil {
		return err
	}
	return r.Options.Validate()
}

// CreateSessionResponse is the output of the PaymentsV1 session methods.
type CreateSessionResponse struct {
	// Service is the payment service that created the session.
	Service PaymentService `json:"service"`

	// Session is the session identifier.
	Session string `json:"session"`

	// URL is the hosted checkout page URL.
	URL string `json:"url,omitempty"`

	// AmountTotal is the total amount of the session after discounts and taxes.
	AmountTotal int64 `json:"amount_total"`

	// AllowPromotionCodes reports whether the session accepts promotion codes.
	AllowPromotionCodes bool `json:"allow_promotion_codes"`
}

// UpdateTaxRatesRequest is the input for the PaymentsV1.UpdateTaxRates method.
type UpdateTaxRatesRequest struct {
	// Handle is the customer identity in the context of a certain application.
	Handle string `json:"handle" validate:"required"`

	// TaxRates contains the tax rate ids in the payment service.
	TaxRates []string `json:"tax_rates" validate:"dive,required"`
}

// Validate validates the current request.
func (r UpdateTaxRatesRequest) Validate() error {
	if len(r.Handle) == 0 {
		return ErrEmptyHandle
	}
	return validateStruct(r)
}

// UpdateTaxRatesResponse is the output of the PaymentsV1.UpdateTaxRates method.
type UpdateTaxRatesResponse struct {
	// TaxRates contains the tax rates stored for the customer.
	TaxRates []string `json:"tax_rates"`
}

func validateCustomer(c Customer) error {
	if len(c.Handle) == 0 {
		return ErrEmptyHandle
	}
	return validateStruct(c)
}
