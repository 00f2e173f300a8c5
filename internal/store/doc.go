// Package store holds the column/row model shared by the file and in-memory
// season stores. Backends live in subpackages; this package must not import
// database drivers or concrete clients.
package store
