package health

import "time"

// Report is the JSON shape served by the readiness endpoint.
type Report struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is one checker's entry in a Report.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewReport converts raw check results into the wire shape.
func NewReport(status Status, results map[string]Result) Report {
	report := Report{
		Status:    status.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]CheckReport, len(results)),
	}
	for name, result := range results {
		check := CheckReport{
			Status:   result.Status.String(),
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			check.Error = result.Error.Error()
		}
		report.Checks[name] = check
	}
	return report
}
