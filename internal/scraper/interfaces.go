package scraper

import (
	"context"
	"errors"
	"io"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata. Non-success
// status codes are returned as pages, not errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// SeasonStore persists merged records keyed by season label. Append never
// deduplicates unless the implementation was explicitly configured to.
type SeasonStore interface {
	Append(ctx context.Context, season string, records []SeasonRecord) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Pauser blocks for the given delay or until ctx finishes.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Hasher computes digests for archive naming.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// ErrQueueClosed is returned by Dequeue once a closed queue is drained.
var ErrQueueClosed = errors.New("queue closed")

// Queue hands queries to workers.
type Queue interface {
	Enqueue(ctx context.Context, q Query) error
	Dequeue(ctx context.Context) (Query, error)
}
