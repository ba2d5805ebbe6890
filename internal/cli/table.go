package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"targetradar/internal/model"
)

// SortByScore orders records by score descending, unscored records last,
// ties broken by company name for stable output.
func SortByScore(rows []model.CandidateRecord) []model.CandidateRecord {
	out := make([]model.CandidateRecord, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Score, out[j].Score
		switch {
		case si == nil && sj == nil:
			return out[i].CompanyName < out[j].CompanyName
		case si == nil:
			return false
		case sj == nil:
			return true
		case *si != *sj:
			return *si > *sj
		default:
			return out[i].CompanyName < out[j].CompanyName
		}
	})
	return out
}

// RenderTable renders the result set as a styled summary table, sorted by
// score descending.
func RenderTable(rows []model.CandidateRecord) string {
	if len(rows) == 0 {
		return SubtleStyle.Render("No qualifying companies found.")
	}
	rows = SortByScore(rows)

	headers := []string{"SCORE", "COMPANY", "NUMBER", "DIR AGE", "YEARS", "POSTCODE", "DIST KM", "TURNOVER"}
	widths := []int{6, 34, 9, 8, 6, 9, 8, 12}

	var b strings.Builder
	var header strings.Builder
	for i, h := range headers {
		header.WriteString(TableCellStyle.Render(pad(h, widths[i])))
	}
	b.WriteString(TableHeaderStyle.Render(header.String()))
	b.WriteString("\n")

	for i := range rows {
		r := &rows[i]
		cells := []string{
			floatText(r.Score),
			truncate(r.CompanyName, widths[1]-1),
			r.CompanyNumber,
			floatText(r.AvgDirectorAge),
			intText(r.YearsTrading),
			r.Postcode,
			floatText(r.DistanceKM),
			moneyText(r.Financials.Turnover),
		}
		for j, c := range cells {
			b.WriteString(TableCellStyle.Render(pad(c, widths[j])))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary renders the post-run KPI lines: result count and the means
// of score, years trading and director age across the result set.
func RenderSummary(rows []model.CandidateRecord) string {
	lines := []string{
		FormatSuccess(fmt.Sprintf("%d qualifying companies", len(rows))),
	}
	if len(rows) > 0 {
		var scores, years, ages []float64
		for i := range rows {
			if rows[i].Score != nil {
				scores = append(scores, *rows[i].Score)
			}
			if rows[i].YearsTrading != nil {
				years = append(years, float64(*rows[i].YearsTrading))
			}
			if rows[i].AvgDirectorAge != nil {
				ages = append(ages, *rows[i].AvgDirectorAge)
			}
		}
		lines = append(lines,
			SubtleStyle.Render(fmt.Sprintf("  mean score %s   mean years trading %s   mean director age %s",
				meanText(scores), meanText(years), meanText(ages))))
	}
	return strings.Join(lines, "\n")
}

func meanText(vals []float64) string {
	if len(vals) == 0 {
		return "-"
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return strconv.FormatFloat(sum/float64(len(vals)), 'f', 1, 64)
}

func floatText(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func intText(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func moneyText(v *float64) string {
	if v == nil {
		return "-"
	}
	return "£" + strconv.FormatFloat(*v, 'f', 0, 64)
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
