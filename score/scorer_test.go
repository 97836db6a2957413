package score

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/citymetrics/parkscout/dataset"
)

// Synthetic coordinates around lat 40.7: one degree of latitude is about
// 111km, so 0.001 degrees is roughly 111m of north-south distance.

func park(name, borough string, acres, lat, lon float64) dataset.Park {
	return dataset.Park{Name: name, Borough: borough, Acres: acres, Lat: lat, Lon: lon}
}

func station(name string, lat, lon float64) dataset.Station {
	return dataset.Station{Name: name, Lat: lat, Lon: lon}
}

func restaurant(name string, score, lat, lon float64) dataset.Restaurant {
	return dataset.Restaurant{Name: name, InspectionScore: score, Lat: lat, Lon: lon}
}

func mustScorer(t *testing.T, parks []dataset.Park, restaurants []dataset.Restaurant, stations []dataset.Station, opts Options) *Scorer {
	t.Helper()
	s, err := NewScorer(parks, restaurants, stations, opts)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	return s
}

func TestScorer_FiltersSmallParks(t *testing.T) {
	parks := []dataset.Park{
		park("Big Park", "Brooklyn", 10, 40.7000, -73.9500),
		park("Tiny Park", "Brooklyn", 1, 40.7000, -73.9500),
	}
	stations := []dataset.Station{station("Near", 40.7001, -73.9500)}

	s := mustScorer(t, parks, nil, stations, Options{MinParkArea: 5})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}
	if len(best) != 1 || best[0].Park.Name != "Big Park" {
		t.Errorf("got %+v, want only Big Park", best)
	}
}

func TestScorer_ExcludesParksFarFromSubway(t *testing.T) {
	parks := []dataset.Park{
		park("Connected Park", "Queens", 10, 40.7000, -73.9500),
		// About 1.1km from the only station.
		park("Remote Park", "Queens", 10, 40.7100, -73.9500),
	}
	stations := []dataset.Station{station("Near", 40.7001, -73.9500)}

	s := mustScorer(t, parks, nil, stations, Options{MaxSubwayDistance: 500})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}
	if len(best) != 1 || best[0].Park.Name != "Connected Park" {
		t.Errorf("got %+v, want only Connected Park", best)
	}
}

func TestScorer_AccessibilityScore(t *testing.T) {
	parks := []dataset.Park{
		park("At Station", "Manhattan", 10, 40.7000, -73.9500),
		// 0.003 degrees of latitude, about 334m away.
		park("Mid Walk", "Manhattan", 10, 40.7030, -73.9500),
	}
	stations := []dataset.Station{station("Stop", 40.7000, -73.9500)}

	s := mustScorer(t, parks, nil, stations, Options{MaxSubwayDistance: 500, TopPerBorough: 5})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}
	if len(best) != 2 {
		t.Fatalf("got %d locations, want 2", len(best))
	}

	// Results are sorted by combined score, so the park at the station
	// comes first.
	atStation, midWalk := best[0], best[1]
	if atStation.Park.Name != "At Station" {
		t.Fatalf("best location = %q, want At Station", atStation.Park.Name)
	}
	if atStation.AccessibilityScore != 100 {
		t.Errorf("at-station accessibility = %v, want 100", atStation.AccessibilityScore)
	}
	// 334m of a 500m budget leaves about a third of the score.
	if midWalk.AccessibilityScore < 25 || midWalk.AccessibilityScore > 40 {
		t.Errorf("mid-walk accessibility = %v, want roughly 33", midWalk.AccessibilityScore)
	}
	if midWalk.DistanceToSubwayM < 300 || midWalk.DistanceToSubwayM > 370 {
		t.Errorf("mid-walk distance = %v, want roughly 334m", midWalk.DistanceToSubwayM)
	}
}

func TestScorer_SocialActivity(t *testing.T) {
	parks := []dataset.Park{
		park("Dining Park", "Bronx", 10, 40.7000, -73.9500),
		park("Quiet Park", "Bronx", 10, 40.8000, -73.9500),
	}
	stations := []dataset.Station{
		station("A", 40.7000, -73.9500),
		station("B", 40.8000, -73.9500),
	}
	restaurants := []dataset.Restaurant{
		restaurant("Good One", 10, 40.7001, -73.9500),
		restaurant("Good Two", 15, 40.7002, -73.9500),
		// Poor inspection score: does not count as a quality restaurant.
		restaurant("Failing", 40, 40.7001, -73.9500),
		// Quality, but nowhere near either park.
		restaurant("Distant", 5, 40.9000, -73.9500),
	}

	s := mustScorer(t, parks, restaurants, stations, Options{TopPerBorough: 5})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}
	if len(best) != 2 {
		t.Fatalf("got %d locations, want 2", len(best))
	}

	dining, quiet := best[0], best[1]
	if dining.Park.Name != "Dining Park" {
		t.Fatalf("best location = %q, want Dining Park", dining.Park.Name)
	}
	if dining.RestaurantCount != 2 {
		t.Errorf("dining restaurant count = %d, want 2", dining.RestaurantCount)
	}
	// Densest candidate normalizes to 100.
	if dining.SocialActivityScore != 100 {
		t.Errorf("dining social score = %v, want 100", dining.SocialActivityScore)
	}
	if quiet.RestaurantCount != 0 || quiet.SocialActivityScore != 0 {
		t.Errorf("quiet park = count %d score %v, want 0 and 0", quiet.RestaurantCount, quiet.SocialActivityScore)
	}
}

func TestScorer_CombinedScoreIsMeanOfSignals(t *testing.T) {
	parks := []dataset.Park{park("Solo", "Manhattan", 10, 40.7000, -73.9500)}
	stations := []dataset.Station{station("Stop", 40.7000, -73.9500)}
	restaurants := []dataset.Restaurant{restaurant("Cafe", 10, 40.7001, -73.9500)}

	s := mustScorer(t, parks, restaurants, stations, Options{})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}
	loc := best[0]
	want := (loc.AccessibilityScore + loc.SocialActivityScore) / 2
	if math.Abs(loc.CombinedScore-want) > 1e-9 {
		t.Errorf("combined = %v, want %v", loc.CombinedScore, want)
	}
}

func TestScorer_TopPerBorough(t *testing.T) {
	// Three Brooklyn parks at increasing subway distance, one Queens park.
	parks := []dataset.Park{
		park("BK First", "Brooklyn", 10, 40.7000, -73.9500),
		park("BK Second", "Brooklyn", 10, 40.7010, -73.9500),
		park("BK Third", "Brooklyn", 10, 40.7020, -73.9500),
		park("QN Only", "Queens", 10, 40.7500, -73.9000),
	}
	stations := []dataset.Station{
		station("BK Stop", 40.7000, -73.9500),
		station("QN Stop", 40.7500, -73.9000),
	}

	s := mustScorer(t, parks, nil, stations, Options{TopPerBorough: 2})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}

	names := make([]string, len(best))
	for i, loc := range best {
		names[i] = loc.Park.Name
	}
	// Two best Brooklyn parks plus the single Queens park, ordered by
	// combined score: the two at-station parks tie at the top.
	if len(best) != 3 {
		t.Fatalf("got %v, want 3 locations", names)
	}
	for _, loc := range best {
		if loc.Park.Name == "BK Third" {
			t.Errorf("BK Third should have been cut by the per-borough cap: %v", names)
		}
	}
}

func TestScorer_EmptyDatasets(t *testing.T) {
	stations := []dataset.Station{station("Stop", 40.7, -73.95)}
	parks := []dataset.Park{park("Park", "Manhattan", 10, 40.7, -73.95)}

	s := mustScorer(t, nil, nil, stations, Options{})
	if _, err := s.BestLocations(); !errors.Is(err, ErrNoParks) {
		t.Errorf("no parks: got %v, want ErrNoParks", err)
	}

	s = mustScorer(t, parks, nil, nil, Options{})
	if _, err := s.BestLocations(); !errors.Is(err, ErrNoStations) {
		t.Errorf("no stations: got %v, want ErrNoStations", err)
	}
}

func TestScorer_NoQualifyingParks(t *testing.T) {
	parks := []dataset.Park{park("Remote", "Manhattan", 10, 40.9000, -73.9500)}
	stations := []dataset.Station{station("Stop", 40.7000, -73.9500)}

	s := mustScorer(t, parks, nil, stations, Options{})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}
	if len(best) != 0 {
		t.Errorf("got %d locations, want empty result", len(best))
	}
}

func TestNewScorer_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative min area", Options{MinParkArea: -1}},
		{"negative subway distance", Options{MaxSubwayDistance: -10}},
		{"negative restaurant radius", Options{RestaurantRadius: -10}},
		{"negative inspection score", Options{MaxInspectionScore: -1}},
		{"negative top per borough", Options{TopPerBorough: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScorer(nil, nil, nil, tt.opts)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("got %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestScorer_Deterministic(t *testing.T) {
	parks := []dataset.Park{
		park("A", "Brooklyn", 10, 40.7000, -73.9500),
		park("B", "Queens", 10, 40.7500, -73.9000),
		park("C", "Brooklyn", 10, 40.7010, -73.9500),
	}
	stations := []dataset.Station{
		station("S1", 40.7000, -73.9500),
		station("S2", 40.7500, -73.9000),
	}
	restaurants := []dataset.Restaurant{
		restaurant("R1", 10, 40.7001, -73.9500),
	}

	s := mustScorer(t, parks, restaurants, stations, Options{})
	first, err := s.BestLocations()
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := s.BestLocations()
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated runs over the same inputs diverged")
	}
}

func TestScorer_Justification(t *testing.T) {
	parks := []dataset.Park{park("Herbert Von King Park", "Brooklyn", 7.8, 40.7000, -73.9500)}
	stations := []dataset.Station{station("Stop", 40.7001, -73.9500)}
	restaurants := []dataset.Restaurant{restaurant("Cafe", 10, 40.7002, -73.9500)}

	s := mustScorer(t, parks, restaurants, stations, Options{})
	best, err := s.BestLocations()
	if err != nil {
		t.Fatalf("BestLocations failed: %v", err)
	}

	j := best[0].Justification
	if !strings.Contains(j, "Herbert Von King Park") {
		t.Errorf("justification missing park name: %q", j)
	}
	if !strings.Contains(j, "quality restaurant") {
		t.Errorf("justification missing restaurant evidence: %q", j)
	}
}
