// Package export renders candidate records to flat delimited output.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"targetradar/internal/model"
)

var csvHeader = []string{
	"company_number",
	"company_name",
	"incorporated",
	"years_trading",
	"sic_codes",
	"active_directors",
	"director_ages",
	"avg_director_age",
	"owner_count",
	"avg_owner_age",
	"postcode",
	"turnover",
	"profit",
	"employees",
	"last_accounts_made_up_to",
	"months_since_accounts",
	"accounts_overdue",
	"confirmation_last_made_up_to",
	"months_since_confirmation",
	"confirmation_overdue",
	"insolvency_history",
	"undeliverable_address",
	"office_in_dispute",
	"outstanding_charges",
	"distance_km",
	"latitude",
	"longitude",
	"score",
	"registry_url",
	"search_url",
}

// WriteCSV writes the records in the given order with a uniform header.
// Unknown values render as empty cells, never as zeroes.
func WriteCSV(w io.Writer, rows []model.CandidateRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		var lat, lon string
		if r.Location != nil {
			lat = formatFloat(r.Location.Lat)
			lon = formatFloat(r.Location.Lon)
		}
		row := []string{
			r.CompanyNumber,
			r.CompanyName,
			r.Incorporated,
			intCell(r.YearsTrading),
			strings.Join(r.SICCodes, ";"),
			strconv.Itoa(r.ActiveDirectors),
			joinInts(r.DirectorAges),
			floatCell(r.AvgDirectorAge),
			intCell(r.OwnerCount),
			floatCell(r.AvgOwnerAge),
			r.Postcode,
			floatCell(r.Financials.Turnover),
			floatCell(r.Financials.Profit),
			floatCell(r.Financials.Employees),
			r.LastAccountsMadeUpTo,
			intCell(r.MonthsSinceAccounts),
			strconv.FormatBool(r.AccountsOverdue),
			r.ConfirmationLastMadeUpTo,
			intCell(r.MonthsSinceConfirmation),
			strconv.FormatBool(r.ConfirmationOverdue),
			strconv.FormatBool(r.HasInsolvencyHistory),
			strconv.FormatBool(r.UndeliverableAddress),
			strconv.FormatBool(r.OfficeInDispute),
			intCell(r.OutstandingCharges),
			floatCell(r.DistanceKM),
			lat,
			lon,
			floatCell(r.Score),
			r.RegistryURL,
			r.SearchURL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", r.CompanyNumber, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinInts(vals []int) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ";")
}
