// Package pipeline orchestrates the paged search, per-candidate enrichment
// and inline filtering that turns a SIC-code query into a result list.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"targetradar/internal/model"
	"targetradar/internal/service"
)

// candidatePause is the courtesy pause between emitted candidates.
const candidatePause = 20 * time.Millisecond

// Finder runs the candidate pipeline. Execution is sequential per candidate:
// each later gate may depend on whether an earlier one passed, and ordering
// the cheapest, most selective checks first protects the request budget.
type Finder struct {
	registry   service.RegistrySource
	financials service.FinancialSource
	logger     *slog.Logger
	now        func() time.Time
	pause      func()

	// Progress, when set, is called after each candidate is processed.
	Progress func(processed, emitted int)
}

// NewFinder creates a pipeline over the given registry and financial source.
func NewFinder(registry service.RegistrySource, financials service.FinancialSource) *Finder {
	return &Finder{
		registry:   registry,
		financials: financials,
		logger:     slog.Default().With("component", "pipeline"),
		now:        time.Now,
		pause:      func() { time.Sleep(candidatePause) },
	}
}

// FindTargets runs the gate chain over paged search results and returns the
// qualifying candidate records. Every examined candidate, rejected or
// emitted, advances the processed counter; the run stops the moment the
// counter reaches the per-run cap, even mid-page. A failure of the search
// call itself aborts the run; soft sub-fetches degrade per candidate instead.
func (f *Finder) FindTargets(ctx context.Context, q model.CandidateQuery) ([]model.CandidateRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	f.logger.Info("Starting candidate search",
		"sic_codes", q.SICCodes,
		"pages", q.Pages,
		"limit", q.LimitCompanies)

	results := make([]model.CandidateRecord, 0, q.LimitCompanies)
	processed := 0
	today := f.now()

	startIndex := 0
	for page := 0; page < q.Pages; page++ {
		items, err := f.registry.SearchCompanies(ctx, q.SICCodes, q.PageSize, startIndex)
		if err != nil {
			return nil, fmt.Errorf("search page %d failed: %w", page, err)
		}
		if len(items) == 0 {
			break
		}

		for i := range items {
			if processed >= q.LimitCompanies {
				f.logger.Info("Processed cap reached", "processed", processed, "results", len(results))
				return results, nil
			}

			record, ok := f.examine(ctx, &items[i], &q, processed, today)
			processed++
			if ok {
				results = append(results, *record)
				f.pause()
			}
			if f.Progress != nil {
				f.Progress(processed, len(results))
			}
		}

		startIndex += q.PageSize
	}

	f.logger.Info("Candidate search finished", "processed", processed, "results", len(results))
	return results, nil
}

// examine runs one candidate through the gate chain. It returns the emitted
// record, or false at the first failing gate. Missing data fails any gate the
// caller actively requested a bound for.
func (f *Finder) examine(ctx context.Context, item *service.SearchItem, q *model.CandidateQuery, processed int, today time.Time) (*model.CandidateRecord, bool) {
	number := item.CompanyNumber
	log := f.logger.With("company_number", number)

	// Years trading: cheapest gate, no extra request.
	years := yearsSince(item.DateOfCreation, today)
	if q.MinYearsTrading > 0 && (years == nil || *years < q.MinYearsTrading) {
		log.Debug("Rejected on years trading", "years", ptrOrNil(years))
		return nil, false
	}

	// Active directors and their ages.
	directors, err := f.registry.ActiveDirectors(ctx, number)
	if err != nil {
		log.Debug("Rejected: director lookup failed", "error", err)
		return nil, false
	}
	if len(directors) == 0 || len(directors) > q.MaxDirectors {
		log.Debug("Rejected on director count", "count", len(directors))
		return nil, false
	}

	directorAges := make([]int, 0, len(directors))
	for i := range directors {
		age := approxAge(directors[i].DateOfBirth, today)
		if age == nil || *age < q.MinDirectorAge {
			log.Debug("Rejected on director age", "age", ptrOrNil(age))
			return nil, false
		}
		directorAges = append(directorAges, *age)
	}
	avgDirAge := average(directorAges)

	// Profile: postcode, risk flags, filing freshness.
	profile, err := f.registry.CompanyProfile(ctx, number)
	if err != nil {
		log.Debug("Rejected: profile lookup failed", "error", err)
		return nil, false
	}
	if q.ExcludeInsolvencyHistory && profile.HasInsolvencyHistory {
		log.Debug("Rejected on insolvency history")
		return nil, false
	}
	if q.ExcludeUndeliverableAddress && profile.UndeliverableAddress {
		log.Debug("Rejected on undeliverable address")
		return nil, false
	}
	if q.ExcludeOfficeInDispute && profile.OfficeInDispute {
		log.Debug("Rejected on office in dispute")
		return nil, false
	}

	sinceAccounts := monthsSince(profile.Accounts.LastMadeUpTo, today)
	if q.ExcludeOverdueAccounts && profile.Accounts.Overdue {
		log.Debug("Rejected on overdue accounts")
		return nil, false
	}
	if q.RequireAccountsWithinMonths != nil &&
		(sinceAccounts == nil || *sinceAccounts > *q.RequireAccountsWithinMonths) {
		log.Debug("Rejected on accounts freshness", "months", ptrOrNil(sinceAccounts))
		return nil, false
	}

	sinceConfirmation := monthsSince(profile.Confirmation.LastMadeUpTo, today)
	if q.ExcludeOverdueConfirmation && profile.Confirmation.Overdue {
		log.Debug("Rejected on overdue confirmation statement")
		return nil, false
	}
	if q.RequireConfirmationWithinMonths != nil &&
		(sinceConfirmation == nil || *sinceConfirmation > *q.RequireConfirmationWithinMonths) {
		log.Debug("Rejected on confirmation freshness", "months", ptrOrNil(sinceConfirmation))
		return nil, false
	}

	// Financials: best-effort, only for the first N candidates reaching this
	// stage. A known employee figure below the floor rejects; an unknown one
	// passes through as null by contract.
	var fin model.Financials
	if q.FetchFinancials && processed < q.FinancialsTopN {
		fin, err = f.financials.Financials(ctx, number)
		if err != nil {
			log.Debug("Financial extraction failed, continuing without", "error", err)
			fin = model.Financials{}
		}
		if q.MinEmployees > 0 && fin.Employees != nil && *fin.Employees < float64(q.MinEmployees) {
			log.Debug("Rejected on employee floor", "employees", *fin.Employees)
			return nil, false
		}
	}

	// Ownership.
	var ownerCount *int
	var ownerAges []int
	var avgOwnerAge *float64
	if q.FetchOwners {
		owners, err := f.registry.IndividualOwners(ctx, number)
		if err != nil {
			log.Debug("Rejected: owner lookup failed", "error", err)
			return nil, false
		}
		n := len(owners)
		ownerCount = &n
		for i := range owners {
			if age := approxAge(owners[i].DateOfBirth, today); age != nil {
				ownerAges = append(ownerAges, *age)
			}
		}
		if q.OwnerMaxCount > 0 && n > q.OwnerMaxCount {
			log.Debug("Rejected on owner count", "count", n)
			return nil, false
		}
		if q.OwnerMinAge > 0 {
			if len(ownerAges) == 0 {
				log.Debug("Rejected on owner age: no known ages")
				return nil, false
			}
			for _, age := range ownerAges {
				if age < q.OwnerMinAge {
					log.Debug("Rejected on owner age", "age", age)
					return nil, false
				}
			}
		}
		if len(ownerAges) > 0 {
			avgOwnerAge = average(ownerAges)
		}
	}

	// Outstanding charges: soft endpoint, capped to the first M candidates.
	var outstandingCharges *int
	if q.FetchCharges && processed < q.ChargesTopN {
		outstandingCharges, _ = f.registry.OutstandingCharges(ctx, number)
		if q.MaxOutstandingCharges != nil && outstandingCharges != nil &&
			*outstandingCharges > *q.MaxOutstandingCharges {
			log.Debug("Rejected on outstanding charges", "count", *outstandingCharges)
			return nil, false
		}
	}

	record := model.CandidateRecord{
		CompanyNumber:            number,
		CompanyName:              item.CompanyName,
		Incorporated:             item.DateOfCreation,
		YearsTrading:             years,
		SICCodes:                 append([]string(nil), item.SICCodes...),
		ActiveDirectors:          len(directors),
		DirectorAges:             directorAges,
		AvgDirectorAge:           avgDirAge,
		OwnerCount:               ownerCount,
		OwnerAges:                ownerAges,
		AvgOwnerAge:              avgOwnerAge,
		Postcode:                 profile.Postcode,
		Financials:               fin,
		LastAccountsMadeUpTo:     profile.Accounts.LastMadeUpTo,
		MonthsSinceAccounts:      sinceAccounts,
		AccountsOverdue:          profile.Accounts.Overdue,
		NextAccountsDue:          profile.Accounts.NextDue,
		ConfirmationLastMadeUpTo: profile.Confirmation.LastMadeUpTo,
		MonthsSinceConfirmation:  sinceConfirmation,
		ConfirmationOverdue:      profile.Confirmation.Overdue,
		NextConfirmationDue:      profile.Confirmation.NextDue,
		HasInsolvencyHistory:     profile.HasInsolvencyHistory,
		HasCharges:               profile.HasCharges,
		UndeliverableAddress:     profile.UndeliverableAddress,
		OfficeInDispute:          profile.OfficeInDispute,
		OutstandingCharges:       outstandingCharges,
		RegistryURL:              f.registry.ProfileURL(number),
		SearchURL:                searchURL(item.CompanyName, profile.Postcode),
	}

	log.Debug("Candidate emitted",
		"company_name", record.CompanyName,
		"avg_director_age", ptrOrNil(avgDirAge))
	return &record, true
}

// searchURL builds a web-search outreach link from the company name and
// postcode.
func searchURL(name, postcode string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(name+" "+postcode)
}

func average[T int | float64](vals []T) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += float64(v)
	}
	avg := math.Round(sum/float64(len(vals))*10) / 10
	return &avg
}

func ptrOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
