package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	_, err = New(&storage.Client{}, Config{})
	require.Error(t, err)
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	s, err := New(&storage.Client{}, Config{Bucket: "pages", Prefix: "/cfb/"})
	require.NoError(t, err)
	require.Equal(t, "cfb/run-1/page.html", s.ObjectName("run-1/page.html"))

	bare, err := New(&storage.Client{}, Config{Bucket: "pages"})
	require.NoError(t, err)
	require.Equal(t, "run-1/page.html", bare.ObjectName("run-1/page.html"))
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	s, err := New(&storage.Client{}, Config{Bucket: "pages"})
	require.NoError(t, err)
	_, err = s.PutObject(context.Background(), " ", "text/html", nil)
	require.Error(t, err)
	require.NoError(t, s.Close())
}
