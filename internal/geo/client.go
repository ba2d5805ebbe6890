// Package geo resolves postal codes to coordinates and applies distance
// filtering to candidate records.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"targetradar/internal/fetch"
	"targetradar/internal/model"
	"targetradar/internal/service"
)

// DefaultBase is the production postcode lookup endpoint.
const DefaultBase = "https://api.postcodes.io"

// bulkChunkSize is the remote bulk-lookup API's own request limit.
const bulkChunkSize = 100

// Client looks up postcode coordinates. It is failure-tolerant by contract:
// unresolvable codes and failed batches map to nil coordinates, never errors.
type Client struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
	base    string
}

// NewClient creates a geocoding client. An empty base falls back to the
// production endpoint.
func NewClient(fetcher *fetch.Fetcher, base string) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if base == "" {
		base = DefaultBase
	}
	return &Client{
		fetcher: fetcher,
		base:    base,
		logger:  slog.Default().With("component", "geo"),
	}, nil
}

type singleResponse struct {
	Result *coordinates `json:"result"`
}

type bulkResponse struct {
	Result []bulkResult `json:"result"`
}

type bulkResult struct {
	Query  string       `json:"query"`
	Result *coordinates `json:"result"`
}

type coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Normalize canonicalizes a postcode for lookup and map keys.
func Normalize(postcode string) string {
	return strings.ToUpper(strings.TrimSpace(postcode))
}

// ResolveOne resolves a single postcode, returning nil when it cannot be
// resolved.
func (c *Client) ResolveOne(ctx context.Context, postcode string) (*model.GeoPoint, error) {
	pc := Normalize(postcode)
	if pc == "" {
		return nil, nil
	}

	body, err := c.fetcher.Get(ctx, c.base, "/postcodes/"+url.PathEscape(pc), nil, fetch.ClassGeo)
	if err != nil {
		c.logger.Debug("Postcode lookup failed", "postcode", pc, "error", err)
		return nil, nil
	}

	var resp singleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("Postcode response malformed", "postcode", pc, "error", err)
		return nil, nil
	}
	return toPoint(resp.Result), nil
}

// BulkResolve resolves many postcodes at once, deduplicating and chunking to
// the remote API's batch limit. Every requested code appears in the returned
// map; a failed batch maps its codes to nil rather than raising.
func (c *Client) BulkResolve(ctx context.Context, postcodes []string) (map[string]*model.GeoPoint, error) {
	out := make(map[string]*model.GeoPoint)

	seen := make(map[string]bool)
	var uniq []string
	for _, pc := range postcodes {
		n := Normalize(pc)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		uniq = append(uniq, n)
	}

	for start := 0; start < len(uniq); start += bulkChunkSize {
		end := start + bulkChunkSize
		if end > len(uniq) {
			end = len(uniq)
		}
		chunk := uniq[start:end]
		for pc, point := range c.resolveChunk(ctx, chunk) {
			out[pc] = point
		}
	}
	return out, nil
}

func (c *Client) resolveChunk(ctx context.Context, chunk []string) map[string]*model.GeoPoint {
	out := make(map[string]*model.GeoPoint, len(chunk))
	for _, pc := range chunk {
		out[pc] = nil
	}

	payload, err := json.Marshal(map[string][]string{"postcodes": chunk})
	if err != nil {
		return out
	}

	cacheKey := "/postcodes/bulk:" + strings.Join(chunk, ",")
	body, err := c.fetcher.Post(ctx, c.base+"/postcodes", cacheKey, payload, fetch.ClassGeo)
	if err != nil {
		c.logger.Debug("Bulk postcode lookup failed", "size", len(chunk), "error", err)
		return out
	}

	var resp bulkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("Bulk postcode response malformed", "error", err)
		return out
	}

	for _, item := range resp.Result {
		q := Normalize(item.Query)
		if q == "" {
			continue
		}
		out[q] = toPoint(item.Result)
	}
	return out
}

func toPoint(c *coordinates) *model.GeoPoint {
	if c == nil || c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &model.GeoPoint{Lat: *c.Latitude, Lon: *c.Longitude}
}

var _ service.Geocoder = (*Client)(nil)
