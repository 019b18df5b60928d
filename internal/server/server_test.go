package server

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v72"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/application"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/client"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/customers"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/fake"
	"go.uber.org/zap"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"
)

type setupTestSuite struct {
	suite.Suite
	Logger *zap.Logger
}

func TestSetupSuite(t *testing.T) {
	suite.Run(t, new(setupTestSuite))
}

func (s *setupTestSuite) SetupSuite() {
	s.Logger = zap.NewNop()
}

func (s *setupTestSuite) TearDownTest() {
	for _, key := range []string{
		"CASHIER_HTTP_SERVER_PORT",
		"CASHIER_STRIPE_SECRET_KEY",
		"CASHIER_CIRCUIT_BREAKER_TIMEOUT",
	} {
		s.Require().NoError(os.Unsetenv(key))
	}
}

func (s *setupTestSuite) TestSucceed() {
	s.Require().NoError(os.Setenv("CASHIER_HTTP_SERVER_PORT", "8001"))
	s.Require().NoError(os.Setenv("CASHIER_STRIPE_SECRET_KEY", "sk_test_1234"))
	s.Require().NoError(os.Setenv("CASHIER_CIRCUIT_BREAKER_TIMEOUT", "10s"))

	cfg, err := Setup(s.Logger)

	s.Assert().NoError(err)
	s.Assert().Equal(uint(8001), cfg.Port)
	s.Assert().Equal("sk_test_1234", cfg.Stripe.SecretKey)
	s.Assert().Equal(10*time.Second, cfg.Timeout)
}

func (s *setupTestSuite) TestDefaultValues() {
	s.Require().NoError(os.Setenv("CASHIER_STRIPE_SECRET_KEY", "sk_test_1234"))

	cfg, err := Setup(s.Logger)
	s.Assert().NoError(err)
	s.Assert().Equal(uint(80), cfg.Port)
	s.Assert().Equal(30*time.Second, cfg.Timeout)
}

func (s *setupTestSuite) TestMissingEnvVars() {
	s.Require().NoError(os.Unsetenv("CASHIER_STRIPE_SECRET_KEY"))

	_, err := Setup(s.Logger)
	s.Assert().Error(err)
}

type clientTestSuite struct {
	suite.Suite
	HTTP    *httptest.Server
	Adapter *fake.Adapter
	Store   customers.Store
	Client  client.Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(clientTestSuite))
}

func (s *clientTestSuite) SetupTest() {
	db, err := customers.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	s.Require().NoError(err)

	s.Adapter = fake.NewAdapter()
	store := customers.NewStore(db)
	s.Store = store
	s.Require().NoError(store.Create(context.Background(), &customers.Customer{
		Handle:   "test",
		StripeID: "cus_HdRJTeoStCxpP4E",
	}))

	s.HTTP = httptest.NewServer(NewServer(Options{
		Payments: application.NewCashierService(application.Options{
			Customers: store,
			Adapter:   s.Adapter,
			Timeout:   200 * time.Millisecond,
		}),
	}))

	u, err := url.Parse(s.HTTP.URL)
	s.Require().NoError(err)
	s.Client = client.NewClient(u, s.HTTP.Client())
}

func (s *clientTestSuite) TearDownTest() {
	s.HTTP.Close()
}

func (s *clientTestSuite) options() api.Options {
	return api.Options{
		api.OptionSuccessURL: "http://example.com",
		api.OptionCancelURL:  "http://example.com",
	}
}

func (s *clientTestSuite) TestCreateSubscriptionSession() {
	s.Adapter.On("CreateCheckoutSession", mock.Anything, mock.Anything, s.options()).
		Return(&stripe.CheckoutSession{ID: "cs_test_coupon", AmountTotal: 1210}, nil).Once()

	res, err := s.Client.CreateSubscriptionSession(context.Background(), api.CreateSubscriptionSessionRequest{
		Customer: api.Customer{Handle: "test"},
		Name:     "default",
		Price:    "price_forge",
		Coupon:   "coupon-forge",
		Options:  s.options(),
	})
	s.Require().NoError(err)
	s.Assert().Equal("cs_test_coupon", res.Session)
	s.Assert().Equal(int64(1210), res.AmountTotal)
	s.Assert().False(res.AllowPromotionCodes)
}

func (s *clientTestSuite) TestCreateSessionMissingOptions() {
	_, err := s.Client.CreateSession(context.Background(), api.CreateSessionRequest{
		Customer: api.Customer{Handle: "test"},
		Items:    api.Prices("price_shirt"),
	})
	s.Assert().ErrorIs(err, api.ErrMissingRequiredOption)
}

func (s *clientTestSuite) TestCreateChargeSessionInvalid() {
	_, err := s.Client.CreateChargeSession(context.Background(), api.CreateChargeSessionRequest{
		Customer: api.Customer{Handle: "test"},
		Name:     "T-shirt",
		Options:  s.options(),
	})
	s.Assert().ErrorIs(err, api.ErrInvalidRequest)
}

func (s *clientTestSuite) TestProviderError() {
	s.Adapter.On("CreateCheckoutSession", mock.Anything, mock.Anything, s.options()).
		Return(nil, &api.ProviderError{Err: &stripe.Error{Msg: "No such price"}}).Once()

	_, err := s.Client.CreateSession(context.Background(), api.CreateSessionRequest{
		Customer: api.Customer{Handle: "test"},
		Items:    api.Prices("price_missing"),
		Options:  s.options(),
	})
	var perr *api.ProviderError
	s.Assert().ErrorAs(err, &perr)
}

func (s *clientTestSuite) TestUpdateTaxRates() {
	res, err := s.Client.UpdateTaxRates(context.Background(), api.UpdateTaxRatesRequest{
		Handle:   "test",
		TaxRates: []string{"txr_vat"},
	})
	s.Require().NoError(err)
	s.Assert().Equal([]string{"txr_vat"}, res.TaxRates)

	_, err = s.Client.UpdateTaxRates(context.Background(), api.UpdateTaxRatesRequest{})
	s.Assert().Equal(api.ErrEmptyHandle, err)
}

func (s *clientTestSuite) TestUpdateTaxRatesReservedCharacters() {
	for _, handle := range []string{"acme corp", "acme/corp", "100%"} {
		_, err := s.Client.UpdateTaxRates(context.Background(), api.UpdateTaxRatesRequest{
			Handle:   handle,
			TaxRates: []string{"txr_vat"},
		})
		s.Require().NoError(err, handle)

		stored, err := s.Store.FindByHandle(context.Background(), handle)
		s.Require().NoError(err, handle)
		s.Assert().Equal([]string{"txr_vat"}, stored.TaxRates)
	}
}
