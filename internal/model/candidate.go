package model

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Financials carries the figures extracted from a company's latest accounts
// document. Any measure the document does not yield stays nil.
type Financials struct {
	Turnover  *float64
	Profit    *float64
	Employees *float64
}

// CandidateRecord is one qualifying company as emitted by the pipeline.
// Nullable fields are pointers so downstream consumers can render a blank
// cell instead of a fabricated zero.
type CandidateRecord struct {
	CompanyNumber string
	CompanyName   string
	Incorporated  string
	YearsTrading  *int
	SICCodes      []string

	ActiveDirectors int
	DirectorAges    []int
	AvgDirectorAge  *float64

	OwnerCount  *int
	OwnerAges   []int
	AvgOwnerAge *float64

	Postcode string

	Financials Financials

	LastAccountsMadeUpTo     string
	MonthsSinceAccounts      *int
	AccountsOverdue          bool
	NextAccountsDue          string
	ConfirmationLastMadeUpTo string
	MonthsSinceConfirmation  *int
	ConfirmationOverdue      bool
	NextConfirmationDue      string

	HasInsolvencyHistory bool
	HasCharges           bool
	UndeliverableAddress bool
	OfficeInDispute      bool
	OutstandingCharges   *int

	RegistryURL string
	SearchURL   string

	// Set by the geo layer when geocoding ran.
	Location   *GeoPoint
	DistanceKM *float64

	// Set by the scoring layer.
	Score *float64
}

// Clone returns a deep copy. Annotating layers (geo, scoring) clone before
// mutating so callers' slices stay untouched.
func (r CandidateRecord) Clone() CandidateRecord {
	c := r
	c.SICCodes = append([]string(nil), r.SICCodes...)
	c.DirectorAges = append([]int(nil), r.DirectorAges...)
	c.OwnerAges = append([]int(nil), r.OwnerAges...)
	c.YearsTrading = clonePtr(r.YearsTrading)
	c.AvgDirectorAge = clonePtr(r.AvgDirectorAge)
	c.OwnerCount = clonePtr(r.OwnerCount)
	c.AvgOwnerAge = clonePtr(r.AvgOwnerAge)
	c.MonthsSinceAccounts = clonePtr(r.MonthsSinceAccounts)
	c.MonthsSinceConfirmation = clonePtr(r.MonthsSinceConfirmation)
	c.OutstandingCharges = clonePtr(r.OutstandingCharges)
	c.Financials.Turnover = clonePtr(r.Financials.Turnover)
	c.Financials.Profit = clonePtr(r.Financials.Profit)
	c.Financials.Employees = clonePtr(r.Financials.Employees)
	c.Location = clonePtr(r.Location)
	c.DistanceKM = clonePtr(r.DistanceKM)
	c.Score = clonePtr(r.Score)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
