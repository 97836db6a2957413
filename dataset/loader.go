package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/citymetrics/parkscout/cache"
	"github.com/citymetrics/parkscout/observe"
)

// DefaultRowLimit caps how many rows one download requests.
const DefaultRowLimit = 5000

// Loader downloads and cleans datasets, memoizing each download through
// the computation cache so repeated requests and process restarts reuse
// prior results.
type Loader struct {
	client *Client
	memo   *cache.Memoizer
	mw     *observe.Middleware
	logger observe.Logger
	limit  int
}

// NewLoader creates a loader. mw and logger may be nil, in which case
// telemetry is discarded. limit <= 0 falls back to DefaultRowLimit.
func NewLoader(client *Client, memo *cache.Memoizer, mw *observe.Middleware, logger observe.Logger, limit int) *Loader {
	if mw == nil {
		mw = observe.NopMiddleware()
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	if memo != nil {
		memo.OnLookup(mw.RecordCacheLookup)
	}
	return &Loader{
		client: client,
		memo:   memo,
		mw:     mw,
		logger: logger,
		limit:  limit,
	}
}

// Parks returns the cleaned parks dataset.
func (l *Loader) Parks(ctx context.Context) ([]Park, error) {
	var parks []Park
	err := l.load(ctx, "load_parks", ParksResource, parseParks, &parks)
	return parks, err
}

// Restaurants returns the cleaned restaurant inspection dataset.
func (l *Loader) Restaurants(ctx context.Context) ([]Restaurant, error) {
	var restaurants []Restaurant
	err := l.load(ctx, "load_restaurants", RestaurantsResource, parseRestaurants, &restaurants)
	return restaurants, err
}

// Stations returns the cleaned subway stations dataset.
func (l *Loader) Stations(ctx context.Context) ([]Station, error) {
	var stations []Station
	err := l.load(ctx, "load_stations", StationsResource, parseStations, &stations)
	return stations, err
}

// Invalidate drops the cached copy of every dataset download.
func (l *Loader) Invalidate(ctx context.Context) error {
	computations := []struct {
		name     string
		resource string
	}{
		{"load_parks", ParksResource},
		{"load_restaurants", RestaurantsResource},
		{"load_stations", StationsResource},
	}
	for _, c := range computations {
		if err := l.memo.Invalidate(ctx, c.name, l.cacheInput(c.resource)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) cacheInput(resource string) map[string]any {
	return map[string]any{"resource": resource, "limit": l.limit}
}

// load runs one memoized download-parse-serialize computation and
// unmarshals the cached payload into out.
func (l *Loader) load(ctx context.Context, name, resource string, parse func([]byte) ([]byte, error), out any) error {
	compute := l.mw.Wrap(
		observe.OpMeta{Name: name, Dataset: resource, Kind: "download"},
		func(ctx context.Context) ([]byte, error) {
			raw, err := l.client.Fetch(ctx, resource, l.limit)
			if err != nil {
				return nil, err
			}
			return parse(raw)
		},
	)

	payload, err := l.memo.Do(ctx, name, l.cacheInput(resource), cache.ComputeFunc(compute))
	if err != nil {
		if payload == nil {
			return err
		}
		// The computation succeeded; only persisting it failed. Serve the
		// result and note the storage problem.
		l.logger.Warn(ctx, "cache store failed", observe.Field{Key: "computation", Value: name}, observe.Field{Key: "error", Value: err.Error()})
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("dataset: decode cached %s payload: %w", name, err)
	}
	return nil
}

// Raw Socrata record shapes. Socrata serves every scalar as a string.

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type parkRecord struct {
	SignName     string    `json:"signname"`
	Name         string    `json:"name"`
	Borough      string    `json:"borough"`
	Acres        string    `json:"acres"`
	Latitude     string    `json:"latitude"`
	Longitude    string    `json:"longitude"`
	MultiPolygon *geometry `json:"multipolygon"`
}

type restaurantRecord struct {
	DBA       string `json:"dba"`
	Cuisine   string `json:"cuisine_description"`
	Score     string `json:"score"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type stationRecord struct {
	Name string    `json:"name"`
	Line string    `json:"line"`
	Geom *geometry `json:"the_geom"`
}

// parseParks cleans raw parks rows: name and borough fallbacks, numeric
// acres with zero fallback, coordinates from the first multipolygon
// point (or direct latitude/longitude fields), rows without coordinates
// dropped.
func parseParks(raw []byte) ([]byte, error) {
	var records []parkRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("dataset: decode parks rows: %w", err)
	}

	parks := make([]Park, 0, len(records))
	for _, r := range records {
		lat, lon, ok := parkCoordinates(r)
		if !ok {
			continue
		}

		name := r.SignName
		if name == "" {
			name = r.Name
		}
		if name == "" {
			name = "Unknown Park"
		}
		borough := r.Borough
		if borough == "" {
			borough = "Unknown"
		}

		parks = append(parks, Park{
			Name:    name,
			Borough: borough,
			Acres:   coerceFloat(r.Acres),
			Lat:     lat,
			Lon:     lon,
		})
	}
	return json.Marshal(parks)
}

func parkCoordinates(r parkRecord) (lat, lon float64, ok bool) {
	if r.MultiPolygon != nil {
		if lat, lon, ok = firstMultiPolygonPoint(r.MultiPolygon); ok {
			return lat, lon, true
		}
	}
	if r.Latitude != "" && r.Longitude != "" {
		lat, errLat := strconv.ParseFloat(r.Latitude, 64)
		lon, errLon := strconv.ParseFloat(r.Longitude, 64)
		if errLat == nil && errLon == nil {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

// firstMultiPolygonPoint extracts the first ring point of a multipolygon:
// coordinates[0][0][0] = [lon, lat].
func firstMultiPolygonPoint(g *geometry) (lat, lon float64, ok bool) {
	var coords [][][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return 0, 0, false
	}
	if len(coords) == 0 || len(coords[0]) == 0 || len(coords[0][0]) == 0 || len(coords[0][0][0]) < 2 {
		return 0, 0, false
	}
	point := coords[0][0][0]
	return point[1], point[0], true
}

// parseRestaurants cleans raw inspection rows; rows without coordinates
// or without a numeric score are dropped.
func parseRestaurants(raw []byte) ([]byte, error) {
	var records []restaurantRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("dataset: decode restaurant rows: %w", err)
	}

	restaurants := make([]Restaurant, 0, len(records))
	for _, r := range records {
		lat, errLat := strconv.ParseFloat(r.Latitude, 64)
		lon, errLon := strconv.ParseFloat(r.Longitude, 64)
		if errLat != nil || errLon != nil || (lat == 0 && lon == 0) {
			continue
		}
		score, err := strconv.ParseFloat(r.Score, 64)
		if err != nil {
			continue
		}

		name := r.DBA
		if name == "" {
			name = "Unknown Restaurant"
		}

		restaurants = append(restaurants, Restaurant{
			Name:            name,
			Cuisine:         r.Cuisine,
			InspectionScore: score,
			Lat:             lat,
			Lon:             lon,
		})
	}
	return json.Marshal(restaurants)
}

// parseStations cleans raw station rows; rows without point geometry are
// dropped.
func parseStations(raw []byte) ([]byte, error) {
	var records []stationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("dataset: decode station rows: %w", err)
	}

	stations := make([]Station, 0, len(records))
	for _, r := range records {
		if r.Geom == nil {
			continue
		}
		var point []float64
		if err := json.Unmarshal(r.Geom.Coordinates, &point); err != nil || len(point) < 2 {
			continue
		}

		stations = append(stations, Station{
			Name:   r.Name,
			Routes: r.Line,
			Lat:    point[1],
			Lon:    point[0],
		})
	}
	return json.Marshal(stations)
}

// coerceFloat parses a numeric string, falling back to zero like the
// upstream dataset's numeric coercion.
func coerceFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
