package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/config"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/pipeline"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/progress"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/resolver"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

type mockApp struct {
	mock.Mock
}

func (m *mockApp) Close() { m.Called() }

func (m *mockApp) Logger() *zap.Logger { return zap.NewNop() }

func (m *mockApp) Resolver() pipeline.Resolver {
	args := m.Called()
	return args.Get(0).(pipeline.Resolver)
}

func (m *mockApp) Run(ctx context.Context, queries []scraper.Query) (progress.Summary, error) {
	args := m.Called(ctx, queries)
	return args.Get(0).(progress.Summary), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, slug, college string) (resolver.Resolution, error) {
	args := m.Called(ctx, slug, college)
	return args.Get(0).(resolver.Resolution), args.Error(1)
}

// withApp swaps the application factory for the duration of a test.
func withApp(t *testing.T, a App) {
	t.Helper()
	orig := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		return a, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &rootOptions{}
	root := newRootCmd(opts)
	defer opts.closeApp()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", ""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeDraftFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestScrapeRunsQueriesAndRendersSummary(t *testing.T) {
	dir := t.TempDir()
	writeDraftFile(t, dir, "2021.csv", "Player,College/Univ,Year\nJane Doe,State,2021\nJohn Roe,Tech,2021\n")

	app := &mockApp{}
	finished := time.Date(2024, 5, 1, 12, 0, 30, 0, time.UTC)
	summary := progress.Summary{
		RunID:      "run-1",
		StartedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
		Total:      2,
		Processed:  2,
		Outcomes:   map[string]int{"stored": 1, "no_match": 1},
		Records:    3,
		BySource:   map[string]int{"2021.csv": 2},
		Misses:     []progress.Miss{{Player: "John Roe", College: "Tech", Outcome: "no_match"}},
	}
	app.On("Run", mock.Anything, mock.MatchedBy(func(qs []scraper.Query) bool {
		return len(qs) == 2 && qs[0].Player == "Jane Doe" && qs[1].Player == "John Roe"
	})).Return(summary, nil).Once()
	app.On("Close").Return().Once()
	withApp(t, app)

	out, err := execute(t, "scrape", "--input-dir", dir, "--show-misses")
	require.NoError(t, err)
	out = strings.ToLower(out)

	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "2 / 2")
	assert.Contains(t, out, "outcome no_match")
	assert.Contains(t, out, "from 2021.csv")
	assert.Contains(t, out, "30s")
	assert.Contains(t, out, "john roe")
	app.AssertExpectations(t)
}

func TestScrapeLimit(t *testing.T) {
	dir := t.TempDir()
	writeDraftFile(t, dir, "2022.csv", "Player,College/Univ,Year\nA One,X,2022\nB Two,Y,2022\nC Three,Z,2022\n")

	app := &mockApp{}
	app.On("Run", mock.Anything, mock.MatchedBy(func(qs []scraper.Query) bool {
		return len(qs) == 1 && qs[0].Player == "A One"
	})).Return(progress.Summary{RunID: "r"}, nil).Once()
	app.On("Close").Return()
	withApp(t, app)

	_, err := execute(t, "scrape", "--input-dir", dir, "--limit", "1")
	require.NoError(t, err)
	app.AssertExpectations(t)
}

func TestScrapeMissingInput(t *testing.T) {
	app := &mockApp{}
	app.On("Close").Return()
	withApp(t, app)

	_, err := execute(t, "scrape", "--input-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load input")
	app.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	app.AssertCalled(t, "Close")
}

func TestScrapeRunError(t *testing.T) {
	dir := t.TempDir()
	writeDraftFile(t, dir, "2023.csv", "Player,College/Univ,Year\nA One,X,2023\n")

	app := &mockApp{}
	app.On("Run", mock.Anything, mock.Anything).Return(progress.Summary{RunID: "r"}, errors.New("boom")).Once()
	app.On("Close").Return()
	withApp(t, app)

	_, err := execute(t, "scrape", "--input-dir", dir)
	require.EqualError(t, err, "boom")
}

func TestResolvePrintsProfile(t *testing.T) {
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, "jane-doe", "State").Return(resolver.Resolution{
		Candidate: scraper.Candidate{Slug: "jane-doe", SuffixIndex: 1, URL: "https://example.test/players/jane-doe-1.html"},
		Signal:    "State",
	}, nil).Once()
	app := &mockApp{}
	app.On("Resolver").Return(res)
	app.On("Close").Return()
	withApp(t, app)

	out, err := execute(t, "resolve", "Jane Doe", "State")
	require.NoError(t, err)
	assert.Contains(t, out, "jane-doe-1.html")
	res.AssertExpectations(t)
}

func TestResolveNoMatch(t *testing.T) {
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, mock.Anything, "Nowhere").Return(resolver.Resolution{}, resolver.ErrNoMatch)
	app := &mockApp{}
	app.On("Resolver").Return(res)
	app.On("Close").Return()
	withApp(t, app)

	out, err := execute(t, "resolve", "Jane Doe", "Nowhere")
	require.NoError(t, err)
	assert.Contains(t, out, "no profile")
}

func TestResolveRequiresArgs(t *testing.T) {
	app := &mockApp{}
	app.On("Close").Return()
	withApp(t, app)

	_, err := execute(t, "resolve", "Jane Doe")
	require.Error(t, err)
}

func TestAppFactoryError(t *testing.T) {
	orig := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		return nil, errors.New("no store")
	}
	t.Cleanup(func() { newApp = orig })

	_, err := execute(t, "resolve", "Jane Doe", "State")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize application services")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFBCRAWLER_CMD_TEST_KEY=loaded\n"), 0o600))
	t.Setenv("CFBCRAWLER_CMD_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("CFBCRAWLER_CMD_TEST_KEY"))
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("CFBCRAWLER_CMD_TEST_KEY"))
}
