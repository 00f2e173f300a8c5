package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "run/page.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://run/page.html", uri)

	payload[0] = 'C'
	got, ok := store.Object("run/page.html")
	require.True(t, ok)
	require.Equal(t, "content", string(got))

	got[0] = 'X'
	again, _ := store.Object("run/page.html")
	require.Equal(t, "content", string(again))
	require.Equal(t, []string{"run/page.html"}, store.Paths())

	_, ok = store.Object("missing")
	require.False(t, ok)
}
