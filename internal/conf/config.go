package conf

import (
	"github.com/caarlos0/env/v6"
	"time"
)

// Stripe contains the needed config to interact with the stripe API.
type Stripe struct {
	// SecretKey is the key used to allow the stripe client use the stripe API.
	SecretKey string `env:"CASHIER_STRIPE_SECRET_KEY,required"`

	// URL is the backend stripe API url, only used for testing purposes.
	URL string `env:"CASHIER_STRIPE_URL"`

	// MaxNetworkRetries is the amount of times the stripe client retries a failed request.
	MaxNetworkRetries int64 `env:"CASHIER_STRIPE_MAX_NETWORK_RETRIES" envDefault:"0"`
}

// Parse fills Stripe data from an external source.
func (c *Stripe) Parse() error {
	return env.Parse(c)
}

// Database contains the config to connect to the customers database.
type Database struct {
	// Driver is the gorm dialect used to open the database. Supported values: postgres, sqlite.
	Driver string `env:"CASHIER_DATABASE_DRIVER" envDefault:"sqlite"`

	// DSN is the data source name passed to the driver.
	DSN string `env:"CASHIER_DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
}

// Parse fills Database data from an external source.
func (c *Database) Parse() error {
	return env.Parse(c)
}

// Config contains the needed config to start the Cashier HTTP server.
type Config struct {
	// Stripe contains configuration for the stripe client.
	Stripe Stripe

	// Database contains configuration for the customers store.
	Database Database

	// Port is the TCP port to listen to for incoming HTTP requests.
	Port uint `env:"CASHIER_HTTP_SERVER_PORT" envDefault:"80"`

	// Timeout is used as the amount of time requests originated from the cashier service should wait until it fails due
	// to timeout.
	Timeout time.Duration `env:"CASHIER_CIRCUIT_BREAKER_TIMEOUT" envDefault:"30s"`

	// Currency is the ISO 4217 currency in lowercase used for ad-hoc charges.
	Currency string `env:"CASHIER_CURRENCY" envDefault:"usd"`
}

// Parse fills Config data from an external source.
func (c *Config) Parse() error {
	if err := c.Stripe.Parse(); err != nil {
		return err
	}
	if err := c.Database.Parse(); err != nil {
		return err
	}
	return env.Parse(c)
}
