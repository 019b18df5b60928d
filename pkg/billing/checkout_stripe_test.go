package billing

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"gitlab.com/ignitionrobotics/billing/cashier/internal/conf"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/adapter"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"os"
	"testing"
)

// checkoutStripeTestSuite runs the checkout flows against the Stripe API in test mode.
// It requires CASHIER_STRIPE_SECRET_KEY to contain a test mode secret key.
type checkoutStripeTestSuite struct {
	suite.Suite
	Stripe  *client.API
	Adapter adapter.Client
}

func TestCheckoutStripe(t *testing.T) {
	if len(os.Getenv("CASHIER_STRIPE_SECRET_KEY")) == 0 {
		t.Skip("CASHIER_STRIPE_SECRET_KEY is not set")
	}
	suite.Run(t, new(checkoutStripeTestSuite))
}

func (s *checkoutStripeTestSuite) SetupSuite() {
	var cfg conf.Stripe
	s.Require().NoError(cfg.Parse())

	s.Stripe = adapter.NewStripeClient(cfg, nil)
	s.Adapter = adapter.NewStripeAdapter(cfg, nil)
}

func (s *checkoutStripeTestSuite) newCustomer(name string) *Customer {
	return NewCustomer(CustomerOptions{
		Handle: name,
		Email:  fmt.Sprintf("%s@cashier-test.com", name),
		Client: s.Adapter,
	})
}

func (s *checkoutStripeTestSuite) options() api.Options {
	return api.Options{
		api.OptionSuccessURL: "http://example.com",
		api.OptionCancelURL:  "http://example.com",
	}
}

func (s *checkoutStripeTestSuite) newPrice(params *stripe.PriceParams) *stripe.Price {
	params.Currency = stripe.String("USD")
	price, err := s.Stripe.Prices.New(params)
	s.Require().NoError(err)
	return price
}

func (s *checkoutStripeTestSuite) TestCustomersCanStartAProductCheckoutSession() {
	user := s.newCustomer("customers_can_start_a_product_checkout_session")

	shirt := s.newPrice(&stripe.PriceParams{
		ProductData: &stripe.PriceProductDataParams{Name: stripe.String("T-shirt")},
		UnitAmount:  stripe.Int64(1500),
	})
	car := s.newPrice(&stripe.PriceParams{
		ProductData: &stripe.PriceProductDataParams{Name: stripe.String("Car")},
		UnitAmount:  stripe.Int64(30000),
	})

	items := append(api.ItemsFromMap(map[string]int64{shirt.ID: 5}), api.Prices(car.ID)...)

	checkout, err := user.Checkout(context.Background(), items, s.options())
	s.Require().NoError(err)

	session := checkout.AsStripeCheckoutSession()
	s.Require().NotNil(session)
	s.Assert().NotEmpty(session.ID)
	s.Require().NotNil(session.LineItems)
	s.Assert().Len(session.LineItems.Data, 2)
	s.Assert().Equal(int64(5*1500+30000), session.AmountTotal)
}

func (s *checkoutStripeTestSuite) TestCustomersCanStartAOneOffChargeCheckoutSession() {
	user := s.newCustomer("customers_can_start_a_one_off_charge_checkout_session")

	checkout, err := user.CheckoutCharge(context.Background(), 1200, "T-shirt", 1, s.options())
	s.Require().NoError(err)

	session := checkout.AsStripeCheckoutSession()
	s.Require().NotNil(session)
	s.Assert().Equal(int64(1200), session.AmountTotal)
}

func (s *checkoutStripeTestSuite) TestCustomersCanStartASubscriptionCheckoutSession() {
	user := s.newCustomer("customers_can_start_a_subscription_checkout_session")

	price := s.newPrice(&stripe.PriceParams{
		ProductData: &stripe.PriceProductDataParams{Name: stripe.String("Forge")},
		Nickname:    stripe.String("Forge Hobby"),
		Recurring:   &stripe.PriceRecurringParams{Interval: stripe.String("year")},
		UnitAmount:  stripe.Int64(1500),
	})

	taxRate, err := s.Stripe.TaxRates.New(&stripe.TaxRateParams{
		DisplayName:  stripe.String("VAT"),
		Description:  stripe.String("VAT Belgium"),
		Jurisdiction: stripe.String("BE"),
		Percentage:   stripe.Float64(21),
		Inclusive:    stripe.Bool(false),
	})
	s.Require().NoError(err)

	user.SetTaxRates(taxRate.ID)

	checkout, err := user.NewSubscription("default", price.ID).
		AllowPromotionCodes().
		Checkout(context.Background(), s.options())
	s.Require().NoError(err)

	session := checkout.AsStripeCheckoutSession()
	s.Assert().True(session.AllowPromotionCodes)
	s.Assert().Equal(int64(1815), session.AmountTotal)

	coupon, err := s.Stripe.Coupons.New(&stripe.CouponParams{
		ID:               stripe.String("coupon-" + uuid.NewString()[:10]),
		Duration:         stripe.String(string(stripe.CouponDurationRepeating)),
		AmountOff:        stripe.Int64(500),
		DurationInMonths: stripe.Int64(3),
		Currency:         stripe.String("USD"),
	})
	s.Require().NoError(err)

	checkout, err = user.NewSubscription("default", price.ID).
		WithCoupon(coupon.ID).
		Checkout(context.Background(), s.options())
	s.Require().NoError(err)

	session = checkout.AsStripeCheckoutSession()
	s.Assert().False(session.AllowPromotionCodes)
	s.Assert().Equal(int64(1210), session.AmountTotal)
}
