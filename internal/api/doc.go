// Package api exposes the run status surface: health, Prometheus metrics and
// the JSON run summary.
package api
