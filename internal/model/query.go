// Package model holds the query and result types shared across the pipeline.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is the sentinel wrapped by Validate failures.
var ErrInvalidQuery = errors.New("invalid query")

// CandidateQuery configures a single pipeline run: which companies to search
// for and which gates to apply. Pointer fields distinguish "no bound
// requested" from a zero bound.
type CandidateQuery struct {
	// SICCodes selects the industry classification codes to search on.
	SICCodes []string

	// MinDirectorAge rejects any company whose active directors include one
	// younger than this, or whose age is unknown.
	MinDirectorAge int

	// MaxDirectors rejects companies with more active directors than this.
	MaxDirectors int

	// MinYearsTrading, when positive, rejects companies incorporated more
	// recently than this many whole years ago.
	MinYearsTrading int

	// PageSize and Pages control search pagination.
	PageSize int
	Pages    int

	// LimitCompanies caps the number of candidates examined per run. Every
	// examined candidate counts, rejected or not.
	LimitCompanies int

	// FetchFinancials enables the accounts-document extraction stage for the
	// first FinancialsTopN candidates that reach it.
	FetchFinancials bool
	FinancialsTopN  int

	// MinEmployees, when positive, rejects companies whose known employee
	// figure falls below it. Unknown figures pass.
	MinEmployees int

	// FetchOwners enables the ownership stage. OwnerMinAge applies the same
	// missing-excludes policy as director ages; OwnerMaxCount caps the number
	// of individual owners.
	FetchOwners   bool
	OwnerMinAge   int
	OwnerMaxCount int

	// Filing-freshness gates. The Require fields bound months since the last
	// filing; nil means no bound.
	RequireAccountsWithinMonths     *int
	ExcludeOverdueAccounts          bool
	RequireConfirmationWithinMonths *int
	ExcludeOverdueConfirmation      bool

	// Risk-flag exclusions from the company profile.
	ExcludeInsolvencyHistory    bool
	ExcludeUndeliverableAddress bool
	ExcludeOfficeInDispute      bool

	// FetchCharges enables the outstanding-charges stage for the first
	// ChargesTopN candidates. MaxOutstandingCharges rejects only when the
	// count is known.
	FetchCharges          bool
	ChargesTopN           int
	MaxOutstandingCharges *int
}

// DefaultQuery returns a query over the given SIC codes with the standard
// bounds applied.
func DefaultQuery(sicCodes []string) CandidateQuery {
	return CandidateQuery{
		SICCodes:        sicCodes,
		MinDirectorAge:  55,
		MaxDirectors:    2,
		MinYearsTrading: 1,
		PageSize:        100,
		Pages:           1,
		LimitCompanies:  120,
		FinancialsTopN:  40,
		OwnerMaxCount:   2,
		ChargesTopN:     50,
	}
}

// Validate checks the query is runnable.
func (q *CandidateQuery) Validate() error {
	if len(q.SICCodes) == 0 {
		return fmt.Errorf("%w: at least one SIC code is required", ErrInvalidQuery)
	}
	if q.PageSize <= 0 || q.PageSize > 5000 {
		return fmt.Errorf("%w: page size must be between 1 and 5000", ErrInvalidQuery)
	}
	if q.Pages <= 0 {
		return fmt.Errorf("%w: pages must be positive", ErrInvalidQuery)
	}
	if q.LimitCompanies <= 0 {
		return fmt.Errorf("%w: company limit must be positive", ErrInvalidQuery)
	}
	if q.MinDirectorAge < 0 || q.MaxDirectors < 0 || q.MinYearsTrading < 0 ||
		q.MinEmployees < 0 || q.OwnerMinAge < 0 || q.OwnerMaxCount < 0 {
		return fmt.Errorf("%w: bounds must not be negative", ErrInvalidQuery)
	}
	if q.RequireAccountsWithinMonths != nil && *q.RequireAccountsWithinMonths < 0 {
		return fmt.Errorf("%w: accounts freshness bound must not be negative", ErrInvalidQuery)
	}
	if q.RequireConfirmationWithinMonths != nil && *q.RequireConfirmationWithinMonths < 0 {
		return fmt.Errorf("%w: confirmation freshness bound must not be negative", ErrInvalidQuery)
	}
	if q.MaxOutstandingCharges != nil && *q.MaxOutstandingCharges < 0 {
		return fmt.Errorf("%w: charges ceiling must not be negative", ErrInvalidQuery)
	}
	return nil
}
