// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"targetradar/internal/model"
)

// SearchItem is one row of a paged company search.
type SearchItem struct {
	CompanyNumber  string
	CompanyName    string
	DateOfCreation string
	SICCodes       []string
}

// PartialDate is a year/month of birth as reported by the registry. Month is
// zero when the registry omits it.
type PartialDate struct {
	Year  int
	Month int
}

// Person is an active director or individual beneficial owner.
type Person struct {
	Name        string
	DateOfBirth *PartialDate
}

// PeriodInfo describes one periodic filing obligation (accounts or
// confirmation statement).
type PeriodInfo struct {
	LastMadeUpTo string
	NextDue      string
	Overdue      bool
}

// CompanyProfile is the subset of the registry profile the pipeline consumes.
type CompanyProfile struct {
	CompanyNumber        string
	Postcode             string
	HasInsolvencyHistory bool
	HasCharges           bool
	UndeliverableAddress bool
	OfficeInDispute      bool
	Accounts             PeriodInfo
	Confirmation         PeriodInfo
}

// AccountsFiling is one accounts-category entry from the filing history.
type AccountsFiling struct {
	Date             string
	Description      string
	DocumentMetadata string
}

// RegistrySource defines the registry accessors the pipeline depends on.
// Accessors return plain structured records and never filter beyond what the
// endpoint itself scopes (active officers, individual owners, accounts
// filings); filtering against query bounds is the pipeline's job.
type RegistrySource interface {
	SearchCompanies(ctx context.Context, sicCodes []string, size, startIndex int) ([]SearchItem, error)
	CompanyProfile(ctx context.Context, companyNumber string) (*CompanyProfile, error)
	ActiveDirectors(ctx context.Context, companyNumber string) ([]Person, error)
	IndividualOwners(ctx context.Context, companyNumber string) ([]Person, error)
	AccountsFilings(ctx context.Context, companyNumber string) ([]AccountsFiling, error)
	// OutstandingCharges returns (nil, nil) when the endpoint fails; charges
	// data is explicitly soft.
	OutstandingCharges(ctx context.Context, companyNumber string) (*int, error)
	ProfileURL(companyNumber string) string
}

// FinancialSource extracts best-effort financial figures for a company.
type FinancialSource interface {
	Financials(ctx context.Context, companyNumber string) (model.Financials, error)
}

// Geocoder resolves postal codes to coordinates. Implementations are
// failure-tolerant: unresolvable codes map to nil rather than errors.
type Geocoder interface {
	ResolveOne(ctx context.Context, postcode string) (*model.GeoPoint, error)
	BulkResolve(ctx context.Context, postcodes []string) (map[string]*model.GeoPoint, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
