// Package scraper defines the core types and interfaces shared by the
// resolution, extraction, merge, and storage stages of the season pipeline.
package scraper
