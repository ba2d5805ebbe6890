// Package registry provides typed accessors for the company registry API.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"targetradar/internal/fetch"
	"targetradar/internal/service"
)

// Default endpoint bases for the registry and its document service.
const (
	DefaultAPIBase      = "https://api.company-information.service.gov.uk"
	DefaultDocumentBase = "https://document-api.company-information.service.gov.uk"
	DefaultPublicBase   = "https://find-and-update.company-information.service.gov.uk"
)

// Document representations in preference order; structured markup is parsed,
// a PDF fallback is fetched but never parsed.
var documentMimePreference = []string{
	"application/xhtml+xml",
	"text/html",
	"application/pdf",
}

// Client exposes the registry endpoints the pipeline consumes. Accessors
// return plain structured records; filtering against query bounds is the
// pipeline's job.
type Client struct {
	fetcher      *fetch.Fetcher
	logger       *slog.Logger
	apiBase      string
	documentBase string
	publicBase   string
}

// Config holds registry client configuration. Empty bases fall back to the
// production endpoints.
type Config struct {
	Fetcher      *fetch.Fetcher
	APIBase      string
	DocumentBase string
	PublicBase   string
}

// NewClient creates a registry client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	c := &Client{
		fetcher:      cfg.Fetcher,
		apiBase:      cfg.APIBase,
		documentBase: cfg.DocumentBase,
		publicBase:   cfg.PublicBase,
		logger:       slog.Default().With("component", "registry"),
	}
	if c.apiBase == "" {
		c.apiBase = DefaultAPIBase
	}
	if c.documentBase == "" {
		c.documentBase = DefaultDocumentBase
	}
	if c.publicBase == "" {
		c.publicBase = DefaultPublicBase
	}
	return c, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, class fetch.Class, out any) error {
	body, err := c.fetcher.Get(ctx, c.apiBase, path, params, class)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// SearchCompanies runs one page of the advanced company search for the given
// SIC codes, restricted to active companies.
func (c *Client) SearchCompanies(ctx context.Context, sicCodes []string, size, startIndex int) ([]service.SearchItem, error) {
	params := url.Values{
		"sic_codes":      {strings.Join(sicCodes, ",")},
		"size":           {strconv.Itoa(size)},
		"start_index":    {strconv.Itoa(startIndex)},
		"company_status": {"active"},
	}
	var resp searchResponse
	if err := c.getJSON(ctx, "/advanced-search/companies", params, fetch.ClassLookup, &resp); err != nil {
		return nil, fmt.Errorf("company search failed: %w", err)
	}

	items := make([]service.SearchItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, service.SearchItem{
			CompanyNumber:  it.CompanyNumber,
			CompanyName:    it.CompanyName,
			DateOfCreation: it.DateOfCreation,
			SICCodes:       it.SICCodes,
		})
	}
	return items, nil
}

// CompanyProfile fetches a single company profile.
func (c *Client) CompanyProfile(ctx context.Context, companyNumber string) (*service.CompanyProfile, error) {
	var resp profileResponse
	if err := c.getJSON(ctx, "/company/"+companyNumber, nil, fetch.ClassLookup, &resp); err != nil {
		return nil, fmt.Errorf("profile lookup failed for %s: %w", companyNumber, err)
	}

	profile := &service.CompanyProfile{
		CompanyNumber:        companyNumber,
		HasInsolvencyHistory: resp.HasInsolvencyHistory,
		HasCharges:           resp.HasCharges,
		UndeliverableAddress: resp.UndeliverableAddress,
		OfficeInDispute:      resp.OfficeInDispute,
	}
	if ro := resp.RegisteredOfficeAddress; ro != nil {
		profile.Postcode = ro.PostalCode
		if profile.Postcode == "" {
			profile.Postcode = ro.Postcode
		}
	}
	if acc := resp.Accounts; acc != nil {
		profile.Accounts.Overdue = acc.Overdue
		if la := acc.LastAccounts; la != nil {
			profile.Accounts.LastMadeUpTo = la.MadeUpTo
			if profile.Accounts.LastMadeUpTo == "" {
				profile.Accounts.LastMadeUpTo = la.PeriodEndOn
			}
		}
		if na := acc.NextAccounts; na != nil {
			profile.Accounts.Overdue = profile.Accounts.Overdue || na.Overdue
			profile.Accounts.NextDue = na.DueOn
			if profile.Accounts.NextDue == "" {
				profile.Accounts.NextDue = na.NextDue
			}
		}
	}
	if conf := resp.Confirmation; conf != nil {
		profile.Confirmation = service.PeriodInfo{
			LastMadeUpTo: conf.LastMadeUpTo,
			NextDue:      conf.NextDue,
			Overdue:      conf.Overdue,
		}
	}
	return profile, nil
}

// ActiveDirectors lists a company's officers, keeping only directors that
// have not resigned.
func (c *Client) ActiveDirectors(ctx context.Context, companyNumber string) ([]service.Person, error) {
	params := url.Values{
		"items_per_page": {"100"},
		"order_by":       {"appointed_on"},
	}
	var resp officersResponse
	if err := c.getJSON(ctx, "/company/"+companyNumber+"/officers", params, fetch.ClassLookup, &resp); err != nil {
		return nil, fmt.Errorf("officer lookup failed for %s: %w", companyNumber, err)
	}

	var out []service.Person
	for _, it := range resp.Items {
		if it.OfficerRole != "director" || it.ResignedOn != "" {
			continue
		}
		out = append(out, service.Person{Name: it.Name, DateOfBirth: toPartialDate(it.DateOfBirth)})
	}
	return out, nil
}

// IndividualOwners lists a company's persons with significant control,
// keeping only individual owners that have not ceased.
func (c *Client) IndividualOwners(ctx context.Context, companyNumber string) ([]service.Person, error) {
	params := url.Values{"items_per_page": {"100"}}
	var resp pscResponse
	if err := c.getJSON(ctx, "/company/"+companyNumber+"/persons-with-significant-control", params, fetch.ClassLookup, &resp); err != nil {
		return nil, fmt.Errorf("owner lookup failed for %s: %w", companyNumber, err)
	}

	var out []service.Person
	for _, it := range resp.Items {
		if it.CeasedOn != "" || it.Kind != "individual-person-with-significant-control" {
			continue
		}
		out = append(out, service.Person{Name: it.Name, DateOfBirth: toPartialDate(it.DateOfBirth)})
	}
	return out, nil
}

// AccountsFilings lists the accounts category of a company's filing history.
func (c *Client) AccountsFilings(ctx context.Context, companyNumber string) ([]service.AccountsFiling, error) {
	params := url.Values{
		"category":       {"accounts"},
		"items_per_page": {"50"},
	}
	var resp filingHistoryResponse
	if err := c.getJSON(ctx, "/company/"+companyNumber+"/filing-history", params, fetch.ClassLookup, &resp); err != nil {
		return nil, fmt.Errorf("filing history lookup failed for %s: %w", companyNumber, err)
	}

	out := make([]service.AccountsFiling, 0, len(resp.Items))
	for _, it := range resp.Items {
		filing := service.AccountsFiling{Date: it.Date, Description: it.Description}
		if it.Links != nil {
			filing.DocumentMetadata = it.Links.DocumentMetadata
		}
		out = append(out, filing)
	}
	return out, nil
}

// OutstandingCharges counts a company's outstanding charges. The endpoint is
// soft: any failure yields (nil, nil) rather than an error.
func (c *Client) OutstandingCharges(ctx context.Context, companyNumber string) (*int, error) {
	var resp chargesResponse
	if err := c.getJSON(ctx, "/company/"+companyNumber+"/charges", nil, fetch.ClassLookup, &resp); err != nil {
		c.logger.Debug("Charges lookup failed, treating as unknown",
			"company_number", companyNumber,
			"error", err)
		return nil, nil
	}

	count := 0
	for _, ch := range resp.Items {
		if strings.EqualFold(ch.Status, "outstanding") {
			count++
		}
	}
	return &count, nil
}

// DocumentContent fetches the content of a filed document, preferring a
// structured markup representation over the PDF fallback. It returns the raw
// bytes and the representation's MIME type.
func (c *Client) DocumentContent(ctx context.Context, documentID string) ([]byte, string, error) {
	body, err := c.fetcher.Get(ctx, c.documentBase, "/document/"+documentID, nil, fetch.ClassDocument)
	if err != nil {
		return nil, "", fmt.Errorf("document metadata fetch failed for %s: %w", documentID, err)
	}

	var meta documentMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, "", fmt.Errorf("failed to decode document metadata: %w", err)
	}

	for _, mime := range documentMimePreference {
		res, ok := meta.Resources[mime]
		if !ok || res.Links.Self == "" {
			continue
		}
		content, err := c.fetcher.Get(ctx, c.documentBase, res.Links.Self, nil, fetch.ClassDocument)
		if err != nil {
			c.logger.Debug("Document representation fetch failed",
				"document_id", documentID,
				"mime", mime,
				"error", err)
			continue
		}
		return content, mime, nil
	}
	return nil, "", nil
}

// ProfileURL returns the public registry page for a company, used as an
// outreach link.
func (c *Client) ProfileURL(companyNumber string) string {
	return c.publicBase + "/company/" + companyNumber
}

func toPartialDate(d *partialDate) *service.PartialDate {
	if d == nil || d.Year == 0 {
		return nil
	}
	return &service.PartialDate{Year: d.Year, Month: d.Month}
}

var _ service.RegistrySource = (*Client)(nil)
