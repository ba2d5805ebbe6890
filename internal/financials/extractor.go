// Package financials extracts best-effort figures from filed accounts
// documents. Real-world filings use inconsistent tag vocabularies, so the
// design goal is "often right, never wrong in a crash-causing way".
package financials

import (
	"context"
	"log/slog"
	"strings"

	"targetradar/internal/model"
	"targetradar/internal/service"
)

// Recognized tag names per measure, in priority order. Matching is against
// the namespace-stripped local name, case-insensitively, because the tolerant
// HTML parser lowercases element names.
var (
	turnoverTags = []string{
		"Turnover",
		"TurnoverRevenue",
		"Revenue",
		"Sales",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"RevenueFromContractWithCustomerIncludingAssessedTax",
	}
	profitTags = []string{
		"ProfitLoss",
		"ProfitLossForPeriod",
		"ProfitLossOnOrdinaryActivitiesBeforeTax",
		"ProfitLossOnOrdinaryActivitiesAfterTax",
	}
	employeeTags = []string{
		"AverageNumberEmployeesDuringPeriod",
		"AverageNumberOfEmployeesDuringThePeriod",
		"AverageNumberOfEmployees",
	}
)

// DocumentRegistry is the slice of the registry client the extractor needs.
type DocumentRegistry interface {
	AccountsFilings(ctx context.Context, companyNumber string) ([]service.AccountsFiling, error)
	DocumentContent(ctx context.Context, documentID string) ([]byte, string, error)
}

// Extractor locates a company's most recent accounts document and scans it
// for turnover, profit and employee-count tags.
type Extractor struct {
	registry DocumentRegistry
	logger   *slog.Logger
}

// NewExtractor creates an extractor backed by the given registry.
func NewExtractor(registry DocumentRegistry) *Extractor {
	return &Extractor{
		registry: registry,
		logger:   slog.Default().With("component", "financials"),
	}
}

// Financials returns the figures found in the latest accounts filing. Every
// degrade path (no filing, no document, PDF-only representation, fetch
// failure, unrecognized markup) yields nil measures rather than an error.
func (e *Extractor) Financials(ctx context.Context, companyNumber string) (model.Financials, error) {
	var out model.Financials

	filings, err := e.registry.AccountsFilings(ctx, companyNumber)
	if err != nil {
		e.logger.Debug("Filing history unavailable", "company_number", companyNumber, "error", err)
		return out, nil
	}

	docID := latestDocumentID(filings)
	if docID == "" {
		return out, nil
	}

	content, mime, err := e.registry.DocumentContent(ctx, docID)
	if err != nil {
		e.logger.Debug("Document fetch failed", "company_number", companyNumber, "error", err)
		return out, nil
	}
	if len(content) == 0 || mime == "application/pdf" {
		return out, nil
	}

	elements, ok := parseDocument(content)
	if !ok {
		e.logger.Debug("Document did not parse as markup", "company_number", companyNumber)
		return out, nil
	}

	out.Turnover = pick(elements, turnoverTags)
	out.Profit = pick(elements, profitTags)
	out.Employees = pick(elements, employeeTags)
	return out, nil
}

// latestDocumentID finds the first filing carrying a document-metadata link
// and extracts the document identifier from it.
func latestDocumentID(filings []service.AccountsFiling) string {
	for _, f := range filings {
		if idx := strings.LastIndex(f.DocumentMetadata, "/document/"); idx >= 0 {
			return f.DocumentMetadata[idx+len("/document/"):]
		}
	}
	return ""
}

// pick returns the value of the first tag in priority order that has a
// numerically parseable occurrence, scanning occurrences in document order.
func pick(elements []element, tags []string) *float64 {
	for _, tag := range tags {
		for _, el := range elements {
			if !strings.EqualFold(el.localName, tag) {
				continue
			}
			if v, ok := parseNumber(el.text); ok {
				return &v
			}
		}
	}
	return nil
}

var _ service.FinancialSource = (*Extractor)(nil)
