package server

import (
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/ignitionrobotics/billing/cashier/internal/conf"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/adapter"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/application"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/customers"
	"go.uber.org/zap"
	"net/http"
)

// Server is the cashier HTTP server.
type Server struct {
	config   conf.Config
	payments application.Service
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	router   chi.Router
}

// ServeHTTP dispatches the request to the server routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes registers the HTTP handlers.
func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/checkout", s.CreateSession)
	r.Post("/checkout/charge", s.CreateChargeSession)
	r.Post("/checkout/subscription", s.CreateSubscriptionSession)
	r.Put("/customers/{handle}/tax-rates", s.UpdateTaxRates)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
}

// Options contains the components needed to initialize a Server.
type Options struct {
	// Config contains the server configuration.
	Config conf.Config

	// Payments contains the cashier service called by the HTTP handlers.
	Payments application.Service

	// Logger contains a logger mechanism. If set to nil, it defaults to a no-op logger.
	Logger *zap.Logger

	// Gatherer exposes metrics in the /metrics route. If set to nil, the route is not registered.
	Gatherer prometheus.Gatherer
}

// NewServer initializes a new Server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		config:   opts.Config,
		payments: opts.Payments,
		logger:   opts.Logger,
		gatherer: opts.Gatherer,
	}
	s.routes()
	return s
}

// Setup initializes the conf.Config to run the web server.
func Setup(logger *zap.Logger) (conf.Config, error) {
	var cfg conf.Config
	if err := cfg.Parse(); err != nil {
		logger.Error("Failed to parse config", zap.Error(err))
		return conf.Config{}, err
	}
	return cfg, nil
}

// Run runs the web server using the given config.
func Run(config conf.Config, logger *zap.Logger) error {
	db, err := customers.Open(config.Database.Driver, config.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open customers database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	payments := application.NewCashierService(application.Options{
		Customers: customers.NewStore(db),
		Logger:    logger.Named("cashier"),
		Timeout:   config.Timeout,
		Adapter:   adapter.NewStripeAdapter(config.Stripe, logger),
		Currency:  config.Currency,
		Metrics:   application.NewMetrics(registry),
	})

	s := NewServer(Options{
		Config:   config,
		Payments: payments,
		Logger:   logger.Named("server"),
		Gatherer: registry,
	})

	addr := fmt.Sprintf(":%d", config.Port)
	logger.Info("Listening for HTTP requests", zap.String("addr", addr))
	return http.ListenAndServe(addr, s)
}
