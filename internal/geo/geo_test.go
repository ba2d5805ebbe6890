package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetradar/internal/fetch"
	"targetradar/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(fetch.New(fetch.Config{}), srv.URL)
	require.NoError(t, err)
	return client
}

func TestHaversine(t *testing.T) {
	t.Run("zero distance to itself", func(t *testing.T) {
		p := model.GeoPoint{Lat: 53.38, Lon: -2.49}
		assert.Zero(t, Haversine(p, p))
	})

	t.Run("london to manchester", func(t *testing.T) {
		london := model.GeoPoint{Lat: 51.5074, Lon: -0.1278}
		manchester := model.GeoPoint{Lat: 53.4808, Lon: -2.2426}
		d := Haversine(london, manchester)
		// Roughly 262 km great-circle.
		assert.InDelta(t, 262, d, 5)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := model.GeoPoint{Lat: 51.5, Lon: -0.1}
		b := model.GeoPoint{Lat: 53.5, Lon: -2.2}
		assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
	})
}

func TestResolveOne(t *testing.T) {
	t.Run("resolves coordinates", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/postcodes/WA13%200AG", r.URL.EscapedPath())
			_, _ = w.Write([]byte(`{"result":{"latitude":53.38,"longitude":-2.49}}`))
		}))

		p, err := client.ResolveOne(context.Background(), " wa13 0ag ")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, 53.38, p.Lat)
		assert.Equal(t, -2.49, p.Lon)
	})

	t.Run("lookup failure maps to nil", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		p, err := client.ResolveOne(context.Background(), "ZZ99 9ZZ")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("empty postcode short-circuits", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{}`))
		}))

		p, err := client.ResolveOne(context.Background(), "  ")
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Zero(t, calls.Load())
	})
}

func TestBulkResolve(t *testing.T) {
	t.Run("dedupes and normalizes before lookup", func(t *testing.T) {
		var batches [][]string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Postcodes []string `json:"postcodes"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			batches = append(batches, req.Postcodes)

			resp := bulkResponse{}
			for _, pc := range req.Postcodes {
				lat, lon := 50.0, -1.0
				resp.Result = append(resp.Result, bulkResult{
					Query:  pc,
					Result: &coordinates{Latitude: &lat, Longitude: &lon},
				})
			}
			_ = json.NewEncoder(w).Encode(resp)
		}))

		got, err := client.BulkResolve(context.Background(), []string{"m1 1ae", "M1 1AE", " M2 2BB ", ""})
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.ElementsMatch(t, []string{"M1 1AE", "M2 2BB"}, batches[0])
		require.Len(t, got, 2)
		require.NotNil(t, got["M1 1AE"])
		assert.Equal(t, 50.0, got["M1 1AE"].Lat)
	})

	t.Run("chunks batches of 100", func(t *testing.T) {
		var batchSizes []int
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Postcodes []string `json:"postcodes"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			batchSizes = append(batchSizes, len(req.Postcodes))
			_, _ = w.Write([]byte(`{"result":[]}`))
		}))

		postcodes := make([]string, 0, 150)
		for i := 0; i < 150; i++ {
			postcodes = append(postcodes, "PC"+string(rune('A'+i%26))+string(rune('0'+i%10))+string(rune('A'+i/26)))
		}
		got, err := client.BulkResolve(context.Background(), postcodes)
		require.NoError(t, err)
		assert.Equal(t, []int{100, 50}, batchSizes)
		// Unreturned queries still appear as unresolved.
		assert.Len(t, got, 150)
	})

	t.Run("failed batch maps every code to unresolved", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))

		got, err := client.BulkResolve(context.Background(), []string{"M1 1AE", "M2 2BB"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Nil(t, got["M1 1AE"])
		assert.Nil(t, got["M2 2BB"])
	})
}

// fakeGeocoder serves canned coordinates for the radius tests.
type fakeGeocoder struct {
	points map[string]*model.GeoPoint
}

func (f *fakeGeocoder) ResolveOne(_ context.Context, postcode string) (*model.GeoPoint, error) {
	return f.points[Normalize(postcode)], nil
}

func (f *fakeGeocoder) BulkResolve(_ context.Context, postcodes []string) (map[string]*model.GeoPoint, error) {
	out := make(map[string]*model.GeoPoint)
	for _, pc := range postcodes {
		out[Normalize(pc)] = f.points[Normalize(pc)]
	}
	return out, nil
}

func records(postcodes ...string) []model.CandidateRecord {
	out := make([]model.CandidateRecord, 0, len(postcodes))
	for i, pc := range postcodes {
		out = append(out, model.CandidateRecord{
			CompanyNumber: string(rune('A' + i)),
			Postcode:      pc,
		})
	}
	return out
}

func TestFilterByRadius(t *testing.T) {
	ctx := context.Background()
	geocoder := &fakeGeocoder{points: map[string]*model.GeoPoint{
		"CENTRE": {Lat: 53.0, Lon: -2.0},
		"NEAR":   {Lat: 53.05, Lon: -2.0},  // ~5.6 km north
		"MID":    {Lat: 53.2, Lon: -2.0},   // ~22 km north
		"FAR":    {Lat: 54.0, Lon: -2.0},   // ~111 km north
	}}

	t.Run("drops far and unresolved, sorts by distance", func(t *testing.T) {
		rows := records("MID", "FAR", "NEAR", "NOWHERE")
		got, err := FilterByRadius(ctx, geocoder, rows, "centre", 25)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "NEAR", got[0].Postcode)
		assert.Equal(t, "MID", got[1].Postcode)
		for _, r := range got {
			require.NotNil(t, r.DistanceKM)
			assert.LessOrEqual(t, *r.DistanceKM, 25.0)
			require.NotNil(t, r.Location)
		}
		assert.LessOrEqual(t, *got[0].DistanceKM, *got[1].DistanceKM)
	})

	t.Run("unresolvable centre fails closed", func(t *testing.T) {
		rows := records("NEAR", "MID")
		got, err := FilterByRadius(ctx, geocoder, rows, "ZZ99 9ZZ", 25)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no centre or radius passes records through", func(t *testing.T) {
		rows := records("NEAR")
		got, err := FilterByRadius(ctx, geocoder, rows, "", 25)
		require.NoError(t, err)
		assert.Equal(t, rows, got)

		got, err = FilterByRadius(ctx, geocoder, rows, "CENTRE", 0)
		require.NoError(t, err)
		assert.Equal(t, rows, got)
	})

	t.Run("input records are not mutated", func(t *testing.T) {
		rows := records("NEAR")
		_, err := FilterByRadius(ctx, geocoder, rows, "CENTRE", 25)
		require.NoError(t, err)
		assert.Nil(t, rows[0].DistanceKM)
		assert.Nil(t, rows[0].Location)
	})
}

func TestGeocodeRows(t *testing.T) {
	ctx := context.Background()
	geocoder := &fakeGeocoder{points: map[string]*model.GeoPoint{
		"NEAR": {Lat: 53.05, Lon: -2.0},
	}}

	rows := records("NEAR", "NOWHERE")
	got, err := GeocodeRows(ctx, geocoder, rows)
	require.NoError(t, err)
	require.Len(t, got, 2, "no records dropped")
	require.NotNil(t, got[0].Location)
	assert.Nil(t, got[1].Location)
	assert.Nil(t, rows[0].Location, "input untouched")
}
