package geo

import (
	"context"
	"math"
	"sort"

	"targetradar/internal/model"
	"targetradar/internal/service"
)

// earthRadiusKM is the mean Earth radius used by the spherical-earth
// great-circle approximation.
const earthRadiusKM = 6371.0

// Haversine computes the great-circle distance between two points in
// kilometers.
func Haversine(a, b model.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

// FilterByRadius restricts records to those within radiusKM of the centre
// postcode, attaching distance and coordinates, sorted ascending by distance.
// An unresolvable centre fails closed: it returns an empty list rather than
// silently passing out-of-area candidates through. Records whose postcode
// cannot be resolved are dropped. Input records are cloned, never mutated.
func FilterByRadius(ctx context.Context, geocoder service.Geocoder, records []model.CandidateRecord, centrePostcode string, radiusKM float64) ([]model.CandidateRecord, error) {
	if len(records) == 0 || Normalize(centrePostcode) == "" || radiusKM <= 0 {
		return records, nil
	}

	centre, err := geocoder.ResolveOne(ctx, centrePostcode)
	if err != nil {
		return nil, err
	}
	if centre == nil {
		return []model.CandidateRecord{}, nil
	}

	points, err := bulkResolveRecords(ctx, geocoder, records)
	if err != nil {
		return nil, err
	}

	out := make([]model.CandidateRecord, 0, len(records))
	for i := range records {
		point := points[Normalize(records[i].Postcode)]
		if point == nil {
			continue
		}
		dist := Haversine(*centre, *point)
		if dist > radiusKM {
			continue
		}
		r := records[i].Clone()
		rounded := math.Round(dist*10) / 10
		r.DistanceKM = &rounded
		r.Location = point
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceKM < *out[j].DistanceKM
	})
	return out, nil
}

// GeocodeRows annotates every record with coordinates (possibly nil) without
// dropping any, for map rendering when no radius filter was requested.
func GeocodeRows(ctx context.Context, geocoder service.Geocoder, records []model.CandidateRecord) ([]model.CandidateRecord, error) {
	points, err := bulkResolveRecords(ctx, geocoder, records)
	if err != nil {
		return nil, err
	}

	out := make([]model.CandidateRecord, 0, len(records))
	for i := range records {
		r := records[i].Clone()
		r.Location = points[Normalize(records[i].Postcode)]
		out = append(out, r)
	}
	return out, nil
}

func bulkResolveRecords(ctx context.Context, geocoder service.Geocoder, records []model.CandidateRecord) (map[string]*model.GeoPoint, error) {
	postcodes := make([]string, 0, len(records))
	for i := range records {
		postcodes = append(postcodes, records[i].Postcode)
	}
	return geocoder.BulkResolve(ctx, postcodes)
}
