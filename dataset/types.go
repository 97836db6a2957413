package dataset

// Park is one cleaned row of the NYC parks properties dataset.
type Park struct {
	Name    string  `json:"name"`
	Borough string  `json:"borough"`
	Acres   float64 `json:"acres"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Restaurant is one cleaned row of the restaurant inspection dataset.
// InspectionScore follows the health-department convention: lower is better.
type Restaurant struct {
	Name            string  `json:"name"`
	Cuisine         string  `json:"cuisine"`
	InspectionScore float64 `json:"inspection_score"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
}

// Station is one cleaned row of the subway stations dataset.
type Station struct {
	Name   string  `json:"name"`
	Routes string  `json:"routes"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}
