package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/resolver"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
	blobmem "github.com/JakeFAU/cfb-rookie-crawler/internal/storage/memory"
	storemem "github.com/JakeFAU/cfb-rookie-crawler/internal/store/memory"
)

const base = "https://cfb.example"

const janeDoePage = `<html><body>
<div class="table_wrapper" id="all_passing">
<table id="passing">
<thead><tr><th data-stat="year_id">Year</th><th data-stat="school_name">School</th><th data-stat="pass_cmp">Cmp</th><th data-stat="pass_att">Att</th></tr></thead>
<tbody>
<tr><th data-stat="year_id">2018</th><td data-stat="school_name">Example University</td><td>10</td><td>20</td></tr>
<tr><th data-stat="year_id">2019</th><td data-stat="school_name">Example University</td><td>30</td><td>40</td></tr>
</tbody></table></div>
<div class="table_wrapper" id="all_rushing_and_receiving"><!--
<table id="rushing_and_receiving">
<thead><tr><th data-stat="year_id">Year</th><th data-stat="school_name">School</th><th data-stat="rush_yds">Yds</th></tr></thead>
<tbody>
<tr><th data-stat="year_id">2019</th><td data-stat="school_name">Example University</td><td>100</td></tr>
<tr><th data-stat="year_id">2020</th><td data-stat="school_name">Example University</td><td>200</td></tr>
</tbody></table>
--></div>
</body></html>`

type fakeFetcher struct {
	pages map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (scraper.Page, error) {
	f.calls++
	body, ok := f.pages[url]
	if !ok {
		return scraper.Page{URL: url, StatusCode: http.StatusNotFound}, nil
	}
	return scraper.Page{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

type noPause struct{}

func (noPause) Pause(context.Context, time.Duration) {}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeHasher struct{}

func (fakeHasher) Hash([]byte) (string, error) { return "abc123", nil }

type failingStore struct{}

func (failingStore) Append(context.Context, string, []scraper.SeasonRecord) error {
	return errors.New("disk full")
}

type stubResolver struct {
	res resolver.Resolution
	err error
}

func (s stubResolver) Resolve(context.Context, string, string) (resolver.Resolution, error) {
	return s.res, s.err
}

var janeDoe = scraper.Query{Player: "Jane Doe", DraftYear: 2021, College: "Example University"}

func newResolver(f scraper.Fetcher) *resolver.Resolver {
	return resolver.New(f, noPause{}, resolver.Config{BaseURL: base}, zap.NewNop())
}

func TestProcessEndToEnd(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		base + "/cfb/players/jane-doe.html": janeDoePage,
	}}
	store := storemem.New(false)
	archive := blobmem.NewBlobStore()

	p, err := New(Deps{
		Resolver: newResolver(fetcher),
		Store:    store,
		Archive:  archive,
		Hasher:   fakeHasher{},
		Clock:    fixedClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		RunID:    "run-1",
	}, Config{ArchivePrefix: "pages"}, zap.NewNop())
	require.NoError(t, err)

	res := p.Process(context.Background(), janeDoe)
	require.NoError(t, res.Err)
	require.Equal(t, scraper.OutcomeStored, res.Outcome)
	require.Equal(t, 3, res.Records)
	require.Equal(t, base+"/cfb/players/jane-doe.html", res.URL)
	require.Equal(t, 1, fetcher.calls)

	ctx := context.Background()
	require.Equal(t, []string{"2018", "2019", "2020"}, store.Seasons())

	s2019, err := store.Rows(ctx, "2019")
	require.NoError(t, err)
	require.Len(t, s2019.Rows, 1)
	assert.Equal(t, "Jane Doe", s2019.Value(0, "Player"))
	assert.Equal(t, "2021", s2019.Value(0, "Draft Year"))
	assert.Equal(t, "2019", s2019.Value(0, "Season"))
	assert.Equal(t, "Example University", s2019.Value(0, "College"))
	assert.Equal(t, "30", s2019.Value(0, "Pass_Cmp"))
	assert.Equal(t, "100", s2019.Value(0, "Rush_Yds"))

	s2018, err := store.Rows(ctx, "2018")
	require.NoError(t, err)
	assert.NotContains(t, s2018.Columns, "Rush_Yds")

	s2020, err := store.Rows(ctx, "2020")
	require.NoError(t, err)
	assert.NotContains(t, s2020.Columns, "Pass_Cmp")
	assert.Equal(t, "200", s2020.Value(0, "Rush_Yds"))

	body, ok := archive.Object("pages/2024-05-01/run-1/jane-doe-abc123.html")
	require.True(t, ok)
	assert.True(t, strings.Contains(string(body), `id="passing"`))
}

func TestProcessNoMatch(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{}}
	store := storemem.New(false)
	p, err := New(Deps{Resolver: newResolver(fetcher), Store: store}, Config{}, nil)
	require.NoError(t, err)

	res := p.Process(context.Background(), janeDoe)
	require.Equal(t, scraper.OutcomeNoMatch, res.Outcome)
	require.ErrorIs(t, res.Err, resolver.ErrNoMatch)
	require.Equal(t, 5, fetcher.calls)
	require.Empty(t, store.Seasons())
}

func TestProcessUnresolvableName(t *testing.T) {
	t.Parallel()

	p, err := New(Deps{Resolver: stubResolver{}, Store: storemem.New(false)}, Config{}, nil)
	require.NoError(t, err)

	res := p.Process(context.Background(), scraper.Query{Player: "  ", College: "X"})
	require.Equal(t, scraper.OutcomeUnresolvable, res.Outcome)
}

func TestProcessResolverFailure(t *testing.T) {
	t.Parallel()

	p, err := New(Deps{Resolver: stubResolver{err: context.Canceled}, Store: storemem.New(false)}, Config{}, nil)
	require.NoError(t, err)

	res := p.Process(context.Background(), janeDoe)
	require.Equal(t, scraper.OutcomeFailed, res.Outcome)
	require.ErrorIs(t, res.Err, context.Canceled)
}

func TestProcessStoreFailure(t *testing.T) {
	t.Parallel()

	stub := stubResolver{res: resolver.Resolution{
		Candidate: scraper.Candidate{URL: base + "/cfb/players/jane-doe.html"},
		Page:      scraper.Page{StatusCode: http.StatusOK, Body: []byte(janeDoePage)},
	}}
	p, err := New(Deps{Resolver: stub, Store: failingStore{}}, Config{}, nil)
	require.NoError(t, err)

	res := p.Process(context.Background(), janeDoe)
	require.Equal(t, scraper.OutcomeFailed, res.Outcome)
	require.ErrorContains(t, res.Err, "disk full")
}

func TestProcessWithoutSectionsReportsNoSections(t *testing.T) {
	t.Parallel()

	stub := stubResolver{res: resolver.Resolution{
		Page: scraper.Page{StatusCode: http.StatusOK, Body: []byte("<html><body>empty</body></html>")},
	}}
	store := storemem.New(false)
	p, err := New(Deps{Resolver: stub, Store: store}, Config{}, nil)
	require.NoError(t, err)

	res := p.Process(context.Background(), janeDoe)
	require.Equal(t, scraper.OutcomeNoSections, res.Outcome)
	require.NoError(t, res.Err)
	require.Zero(t, res.Records)
	require.Empty(t, store.Seasons())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{Store: storemem.New(false)}, Config{}, nil)
	require.Error(t, err)
	_, err = New(Deps{Resolver: stubResolver{}}, Config{}, nil)
	require.Error(t, err)
	_, err = New(Deps{Resolver: stubResolver{}, Store: storemem.New(false), Archive: blobmem.NewBlobStore()}, Config{}, nil)
	require.Error(t, err)
}
