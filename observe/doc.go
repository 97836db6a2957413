// Package observe provides telemetry for dataset downloads, scoring runs,
// and cache activity: OpenTelemetry tracing and metrics plus a JSON
// structured logger with sensitive-field redaction.
package observe
