// Package progress tracks per-run query outcomes for the CLI summary and the
// status endpoint.
package progress
