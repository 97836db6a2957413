package score

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/citymetrics/parkscout/dataset"
)

var (
	// ErrNoParks indicates scoring was attempted with an empty parks dataset.
	ErrNoParks = errors.New("score: no parks to score")

	// ErrNoStations indicates scoring was attempted with an empty stations
	// dataset; accessibility cannot be computed without stations.
	ErrNoStations = errors.New("score: no subway stations to score against")

	// ErrInvalidOptions indicates an out-of-range scoring parameter.
	ErrInvalidOptions = errors.New("score: invalid options")
)

// Options controls which parks qualify and how they are ranked.
type Options struct {
	// MinParkArea filters out parks smaller than this many acres.
	MinParkArea float64

	// MaxSubwayDistance is the maximum walking distance in meters from a
	// park to its nearest subway station. Parks farther away are excluded.
	MaxSubwayDistance float64

	// RestaurantRadius is the radius in meters around a park within which
	// quality restaurants count toward its social activity score.
	RestaurantRadius float64

	// MaxInspectionScore is the worst (highest) health inspection score a
	// restaurant may have and still count as a quality restaurant.
	MaxInspectionScore float64

	// TopPerBorough is the number of top-ranked parks kept per borough.
	TopPerBorough int
}

// DefaultOptions returns the scoring defaults: 5-acre minimum, 500m
// subway walk, 500m restaurant radius, inspection score at most 20
// (an A or B grade), top 3 parks per borough.
func DefaultOptions() Options {
	return Options{
		MinParkArea:        5.0,
		MaxSubwayDistance:  500,
		RestaurantRadius:   500,
		MaxInspectionScore: 20,
		TopPerBorough:      3,
	}
}

// Validate reports the first out-of-range option.
func (o Options) Validate() error {
	if o.MinParkArea < 0 {
		return fmt.Errorf("%w: min park area %v must not be negative", ErrInvalidOptions, o.MinParkArea)
	}
	if o.MaxSubwayDistance <= 0 {
		return fmt.Errorf("%w: max subway distance %v must be positive", ErrInvalidOptions, o.MaxSubwayDistance)
	}
	if o.RestaurantRadius <= 0 {
		return fmt.Errorf("%w: restaurant radius %v must be positive", ErrInvalidOptions, o.RestaurantRadius)
	}
	if o.MaxInspectionScore < 0 {
		return fmt.Errorf("%w: max inspection score %v must not be negative", ErrInvalidOptions, o.MaxInspectionScore)
	}
	if o.TopPerBorough <= 0 {
		return fmt.Errorf("%w: top per borough %d must be positive", ErrInvalidOptions, o.TopPerBorough)
	}
	return nil
}

// Location is one ranked park with its scores and the supporting
// evidence used to compute them.
type Location struct {
	Park dataset.Park `json:"park"`

	AccessibilityScore  float64 `json:"accessibility_score"`
	SocialActivityScore float64 `json:"social_activity_score"`
	CombinedScore       float64 `json:"combined_score"`

	// DistanceToSubwayM is the walking distance in meters to the nearest
	// subway station.
	DistanceToSubwayM float64 `json:"distance_to_subway_m"`

	// SubwayCount is the number of stations within MaxSubwayDistance.
	SubwayCount int `json:"subway_count"`

	// RestaurantCount is the number of quality restaurants within
	// RestaurantRadius.
	RestaurantCount int `json:"restaurant_count"`

	// NearbyStations and NearbyRestaurants index into the scorer's input
	// slices, for callers that want to plot the supporting points.
	NearbyStations    []int `json:"nearby_station_ids"`
	NearbyRestaurants []int `json:"nearby_restaurant_ids"`

	Justification string `json:"justification"`
}

// Scorer ranks parks against restaurant and subway datasets.
type Scorer struct {
	parks       []dataset.Park
	restaurants []dataset.Restaurant
	stations    []dataset.Station
	opts        Options
}

// NewScorer creates a scorer over the given datasets. Zero-value fields
// in opts are replaced with their defaults.
func NewScorer(parks []dataset.Park, restaurants []dataset.Restaurant, stations []dataset.Station, opts Options) (*Scorer, error) {
	defaults := DefaultOptions()
	if opts.MaxSubwayDistance == 0 {
		opts.MaxSubwayDistance = defaults.MaxSubwayDistance
	}
	if opts.RestaurantRadius == 0 {
		opts.RestaurantRadius = defaults.RestaurantRadius
	}
	if opts.MaxInspectionScore == 0 {
		opts.MaxInspectionScore = defaults.MaxInspectionScore
	}
	if opts.TopPerBorough == 0 {
		opts.TopPerBorough = defaults.TopPerBorough
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{
		parks:       parks,
		restaurants: restaurants,
		stations:    stations,
		opts:        opts,
	}, nil
}

// BestLocations ranks every qualifying park and returns the top
// TopPerBorough parks from each borough, ordered by combined score
// descending. A park qualifies when it meets the minimum area and is
// within walking distance of a subway station.
func (s *Scorer) BestLocations() ([]Location, error) {
	if len(s.parks) == 0 {
		return nil, ErrNoParks
	}
	if len(s.stations) == 0 {
		return nil, ErrNoStations
	}

	candidates := s.scoreCandidates()
	if len(candidates) == 0 {
		return []Location{}, nil
	}

	s.normalizeSocialActivity(candidates)

	for i := range candidates {
		c := &candidates[i]
		c.CombinedScore = (c.AccessibilityScore + c.SocialActivityScore) / 2
		c.Justification = s.justification(*c)
	}

	best := topPerBorough(candidates, s.opts.TopPerBorough)
	sort.SliceStable(best, func(i, j int) bool {
		return best[i].CombinedScore > best[j].CombinedScore
	})
	return best, nil
}

// scoreCandidates filters parks by area and subway distance and fills
// in everything except the normalized social score and the combined
// score.
func (s *Scorer) scoreCandidates() []Location {
	candidates := make([]Location, 0, len(s.parks))
	for _, park := range s.parks {
		if park.Acres < s.opts.MinParkArea {
			continue
		}

		nearest, stations := s.nearbyStations(park)
		if nearest > s.opts.MaxSubwayDistance {
			continue
		}

		restaurants := s.nearbyRestaurants(park)
		candidates = append(candidates, Location{
			Park:                park,
			AccessibilityScore:  accessibilityScore(nearest, s.opts.MaxSubwayDistance),
			DistanceToSubwayM:   nearest,
			SubwayCount:         len(stations),
			RestaurantCount:     len(restaurants),
			NearbyStations:      stations,
			NearbyRestaurants:   restaurants,
			SocialActivityScore: float64(len(restaurants)), // raw count, normalized later
		})
	}
	return candidates
}

// nearbyStations returns the distance to the nearest station and the
// indices of all stations within MaxSubwayDistance.
func (s *Scorer) nearbyStations(park dataset.Park) (nearest float64, within []int) {
	nearest = math.Inf(1)
	for i, st := range s.stations {
		d := Distance(park.Lat, park.Lon, st.Lat, st.Lon)
		if d < nearest {
			nearest = d
		}
		if d <= s.opts.MaxSubwayDistance {
			within = append(within, i)
		}
	}
	return nearest, within
}

// nearbyRestaurants returns the indices of quality restaurants within
// RestaurantRadius. Lower inspection scores are better; restaurants
// above MaxInspectionScore do not count.
func (s *Scorer) nearbyRestaurants(park dataset.Park) []int {
	var within []int
	for i, r := range s.restaurants {
		if r.InspectionScore > s.opts.MaxInspectionScore {
			continue
		}
		if Distance(park.Lat, park.Lon, r.Lat, r.Lon) <= s.opts.RestaurantRadius {
			within = append(within, i)
		}
	}
	return within
}

// accessibilityScore maps subway distance to 0-100: a park right at a
// station scores 100, one at the maximum distance scores 0.
func accessibilityScore(distance, max float64) float64 {
	if distance >= max {
		return 0
	}
	return (1 - distance/max) * 100
}

// normalizeSocialActivity rescales raw restaurant counts to 0-100
// relative to the densest candidate. With no restaurants anywhere,
// every social score is 0.
func (s *Scorer) normalizeSocialActivity(candidates []Location) {
	var maxCount float64
	for _, c := range candidates {
		if c.SocialActivityScore > maxCount {
			maxCount = c.SocialActivityScore
		}
	}
	for i := range candidates {
		if maxCount == 0 {
			candidates[i].SocialActivityScore = 0
			continue
		}
		candidates[i].SocialActivityScore = candidates[i].SocialActivityScore / maxCount * 100
	}
}

// topPerBorough keeps the TopPerBorough highest-scoring parks from each
// borough, preserving per-borough rank order.
func topPerBorough(candidates []Location, n int) []Location {
	byBorough := make(map[string][]Location)
	for _, c := range candidates {
		byBorough[c.Park.Borough] = append(byBorough[c.Park.Borough], c)
	}

	// Deterministic borough order keeps repeated runs byte-identical.
	boroughs := make([]string, 0, len(byBorough))
	for b := range byBorough {
		boroughs = append(boroughs, b)
	}
	sort.Strings(boroughs)

	var best []Location
	for _, b := range boroughs {
		group := byBorough[b]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CombinedScore > group[j].CombinedScore
		})
		if len(group) > n {
			group = group[:n]
		}
		best = append(best, group...)
	}
	return best
}

// justification builds the human-readable explanation shown alongside
// a ranked park.
func (s *Scorer) justification(c Location) string {
	msg := fmt.Sprintf(
		"%s (%.1f acres) is %.0fm from the nearest subway station with %d station(s) within %.0fm",
		c.Park.Name, c.Park.Acres, c.DistanceToSubwayM, c.SubwayCount, s.opts.MaxSubwayDistance,
	)
	if c.RestaurantCount > 0 {
		msg += fmt.Sprintf(", and has %d quality restaurant(s) within %.0fm for post-event dining",
			c.RestaurantCount, s.opts.RestaurantRadius)
	} else {
		msg += ", though it has no quality restaurants nearby"
	}
	return msg + "."
}
