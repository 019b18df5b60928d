package customers

import (
	"context"
	"errors"
	"fmt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrCustomerNotFound is returned when a customer cannot be found.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrUnsupportedDriver is returned when opening a database with an unknown driver.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Customer is the persisted billable entity.
type Customer struct {
	gorm.Model

	// Handle is the customer identity in the context of a certain application.
	Handle string `gorm:"uniqueIndex;not null"`

	Email string
	Name  string

	// StripeID is the customer ID in Stripe. Empty until the first checkout.
	StripeID string `gorm:"index"`

	// TaxRates contains the Stripe tax rate ids applied to the customer subscriptions.
	TaxRates []string `gorm:"serializer:json"`
}

// Store persists customers.
type Store interface {
	// FindByHandle returns the customer identified by the given handle.
	FindByHandle(ctx context.Context, handle string) (Customer, error)

	// Create persists a new customer.
	Create(ctx context.Context, c *Customer) error

	// SetStripeID links the customer identified by handle with a Stripe customer.
	SetStripeID(ctx context.Context, handle, stripeID string) error

	// SetTaxRates replaces the tax rates of the customer identified by handle.
	SetTaxRates(ctx context.Context, handle string, taxRates []string) error
}

// store implements Store using gorm.
type store struct {
	db *gorm.DB
}

// FindByHandle returns the customer identified by the given handle.
func (s *store) FindByHandle(ctx context.Context, handle string) (Customer, error) {
	var c Customer
	err := s.db.WithContext(ctx).Where("handle = ?", handle).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Customer{}, ErrCustomerNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Create persists a new customer.
func (s *store) Create(ctx context.Context, c *Customer) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// SetStripeID links the customer identified by handle with a Stripe customer.
func (s *store) SetStripeID(ctx context.Context, handle, stripeID string) error {
	return s.update(ctx, handle, "stripe_id", stripeID)
}

// SetTaxRates replaces the tax rates of the customer identified by handle.
func (s *store) SetTaxRates(ctx context.Context, handle string, taxRates []string) error {
	res := s.db.WithContext(ctx).Model(&Customer{}).Where("handle = ?", handle).
		Select("TaxRates").Updates(&Customer{TaxRates: taxRates})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (s *store) update(ctx context.Context, handle, column string, value interface{}) error {
	res := s.db.WithContext(ctx).Model(&Customer{}).Where("handle = ?", handle).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// NewStore initializes a new Store using the given gorm connection.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

// Open opens a database connection with the given driver and migrates the customers schema.
//	Supported drivers: postgres, sqlite.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err = db.AutoMigrate(&Customer{}); err != nil {
		return nil, err
	}
	return db, nil
}
