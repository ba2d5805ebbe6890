package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQuery(t *testing.T) {
	q := DefaultQuery([]string{"25110", "10710"})
	require.NoError(t, q.Validate())

	assert.Equal(t, []string{"25110", "10710"}, q.SICCodes)
	assert.Equal(t, 55, q.MinDirectorAge)
	assert.Equal(t, 2, q.MaxDirectors)
	assert.Equal(t, 120, q.LimitCompanies)
	assert.False(t, q.FetchFinancials)
	assert.False(t, q.FetchOwners)
	assert.False(t, q.FetchCharges)
	assert.Nil(t, q.RequireAccountsWithinMonths)
	assert.Nil(t, q.MaxOutstandingCharges)
}

func TestQueryValidate(t *testing.T) {
	neg := -1
	tests := []struct {
		name   string
		mutate func(*CandidateQuery)
		valid  bool
	}{
		{"defaults are valid", func(*CandidateQuery) {}, true},
		{"no sic codes", func(q *CandidateQuery) { q.SICCodes = nil }, false},
		{"zero page size", func(q *CandidateQuery) { q.PageSize = 0 }, false},
		{"oversized page", func(q *CandidateQuery) { q.PageSize = 5001 }, false},
		{"zero pages", func(q *CandidateQuery) { q.Pages = 0 }, false},
		{"zero limit", func(q *CandidateQuery) { q.LimitCompanies = 0 }, false},
		{"negative min age", func(q *CandidateQuery) { q.MinDirectorAge = -1 }, false},
		{"negative freshness bound", func(q *CandidateQuery) { q.RequireAccountsWithinMonths = &neg }, false},
		{"negative charges ceiling", func(q *CandidateQuery) { q.MaxOutstandingCharges = &neg }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := DefaultQuery([]string{"25110"})
			tt.mutate(&q)
			err := q.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidQuery))
			}
		})
	}
}

func TestCandidateRecordClone(t *testing.T) {
	years := 12
	avg := 67.5
	turnover := 500000.0
	r := CandidateRecord{
		CompanyNumber:  "01234567",
		SICCodes:       []string{"25110"},
		DirectorAges:   []int{66, 69},
		YearsTrading:   &years,
		AvgDirectorAge: &avg,
		Financials:     Financials{Turnover: &turnover},
		Location:       &GeoPoint{Lat: 53.0, Lon: -2.0},
	}

	c := r.Clone()
	require.Equal(t, r, c)

	c.SICCodes[0] = "99999"
	c.DirectorAges[0] = 1
	*c.YearsTrading = 99
	*c.AvgDirectorAge = 0
	*c.Financials.Turnover = 0
	c.Location.Lat = 0

	assert.Equal(t, "25110", r.SICCodes[0])
	assert.Equal(t, 66, r.DirectorAges[0])
	assert.Equal(t, 12, *r.YearsTrading)
	assert.Equal(t, 67.5, *r.AvgDirectorAge)
	assert.Equal(t, 500000.0, *r.Financials.Turnover)
	assert.Equal(t, 53.0, r.Location.Lat)
}
