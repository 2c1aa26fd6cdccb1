package causelist

import (
	"archive/zip"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/browser/mockbrowser"
	"github.com/court-causelist/backend/internal/scraper"
	"github.com/court-causelist/backend/internal/storage/models"
	"github.com/court-causelist/backend/internal/storage/sqlite"
	"github.com/court-causelist/backend/pkg/circuitbreaker"
	"github.com/court-causelist/backend/pkg/poll"
)

type memCache struct {
	mu     sync.Mutex
	values map[string][]string
	gets   int
}

func (c *memCache) GetList(_ context.Context, key string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memCache) SetList(_ context.Context, key string, values []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = values
	return nil
}

func (c *memCache) Close() error { return nil }

type countingOpener struct {
	mu    sync.Mutex
	opens int
	err   error
}

func (o *countingOpener) factory(site scraper.Site) scraper.Opener {
	return func(ctx context.Context) (browser.Page, func(), error) {
		o.mu.Lock()
		o.opens++
		err := o.err
		o.mu.Unlock()
		if err != nil {
			return nil, nil, err
		}
		return scraper.MockPage(site), func() {}, nil
	}
}

func newTestService(t *testing.T, opener *countingOpener, cache *memCache) (*Service, *sqlite.Client) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.NewClient(filepath.Join(root, "causelist.db"))
	require.NoError(t, err)
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { store.Close() })

	pollCfg := poll.DefaultConfig()
	pollCfg.Interval = time.Millisecond

	registry := scraper.NewRegistry(
		scraper.NewECourts("https://court.test/ecourtindia_v6", 50*time.Millisecond),
		scraper.NewDelhi("https://delhi.test", 50*time.Millisecond),
	)
	svc := NewService(registry, opener.factory, cache, store, Config{
		DefaultSite: "ecourts",
		OutputDir:   filepath.Join(root, "output"),
		Retention:   5 * time.Minute,
		MaxSessions: 1,
		Poll:        pollCfg,
		Breaker:     circuitbreaker.Config{FailureThreshold: 2, Cooldown: time.Hour},
	}, nil)
	return svc, store
}

var patialaRequest = FetchRequest{
	State:        "Delhi",
	District:     "Delhi",
	CourtComplex: "Patiala House Court Complex",
	Date:         "2024-10-15",
	CaseType:     "both",
}

func TestFetchBundlesSeveralPDFs(t *testing.T) {
	svc, store := newTestService(t, &countingOpener{}, &memCache{values: map[string][]string{}})

	res, err := svc.Fetch(context.Background(), patialaRequest)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "Generated 8 cause list PDFs", res.Message)
	assert.Equal(t, "cause_lists_2024-10-15_"+res.RunID+".zip", res.Filename)
	assert.Equal(t, "/api/download/"+res.Filename, res.PDFURL)
	assert.Equal(t, models.RunSuccess, res.Report.Status)
	assert.Equal(t, 10, res.Report.Attempts)

	artifact, err := svc.Artifact(res.Filename)
	require.NoError(t, err)
	assert.Equal(t, "application/zip", artifact.ContentType)
	assert.Equal(t, res.RunID, artifact.RunID)

	zr, err := zip.OpenReader(artifact.Path)
	require.NoError(t, err)
	defer zr.Close()
	assert.Len(t, zr.File, 8)

	run, err := store.GetFetchRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 8, run.Records)
	assert.Equal(t, 5, run.JudgesResolved)
}

func TestFetchSinglePDF(t *testing.T) {
	svc, _ := newTestService(t, &countingOpener{}, &memCache{values: map[string][]string{}})

	req := patialaRequest
	req.CourtName = "Judge 3"
	req.CaseType = "civil"
	res, err := svc.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "Generated cause list PDF", res.Message)
	assert.Equal(t, "causelist_Honble_Judge_3_-_Patiala_House_Court_Complex_2024-10-15_civil_"+res.RunID+".pdf", res.Filename)

	artifact, err := svc.Artifact(res.Filename)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", artifact.ContentType)
	assert.FileExists(t, artifact.Path)
}

func TestFetchDownloadsStayPerRequest(t *testing.T) {
	svc, _ := newTestService(t, &countingOpener{}, &memCache{values: map[string][]string{}})

	first, err := svc.Fetch(context.Background(), patialaRequest)
	require.NoError(t, err)

	req := patialaRequest
	req.CourtComplex = "Saket Court Complex"
	second, err := svc.Fetch(context.Background(), req)
	require.NoError(t, err)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, first.PDFURL, second.PDFURL)

	a, err := svc.Artifact(first.Filename)
	require.NoError(t, err)
	b, err := svc.Artifact(second.Filename)
	require.NoError(t, err)
	assert.Equal(t, first.RunID, a.RunID)
	assert.Equal(t, second.RunID, b.RunID)
	assert.NotEqual(t, filepath.Dir(a.Path), filepath.Dir(b.Path))

	zr, err := zip.OpenReader(a.Path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		assert.Contains(t, f.Name, "Patiala_House")
	}
}

func TestFetchNothingFound(t *testing.T) {
	svc, store := newTestService(t, &countingOpener{}, &memCache{values: map[string][]string{}})

	req := patialaRequest
	req.CourtName = "Judge 5"
	res, err := svc.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, NoCauseListsMessage, res.Message)
	assert.Empty(t, res.PDFURL)
	assert.Equal(t, models.RunEmpty, res.Report.Status)

	run, err := store.GetFetchRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Attempts)
}

func TestFetchRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, &countingOpener{}, &memCache{values: map[string][]string{}})

	req := patialaRequest
	req.Date = "15-10-2024"
	_, err := svc.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req = patialaRequest
	req.CaseType = "family"
	_, err = svc.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req = patialaRequest
	req.Site = "bombay"
	_, err = svc.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, scraper.ErrUnknownSite)
}

func TestFetchSessionFailureOpensBreaker(t *testing.T) {
	opener := &countingOpener{err: errors.New("chrome failed to start")}
	opener.err = errors.Join(browser.ErrSessionUnavailable, opener.err)
	svc, _ := newTestService(t, opener, &memCache{values: map[string][]string{}})

	for i := 0; i < 2; i++ {
		_, err := svc.Fetch(context.Background(), patialaRequest)
		require.ErrorIs(t, err, browser.ErrSessionUnavailable)
	}

	_, err := svc.Fetch(context.Background(), patialaRequest)
	require.ErrorIs(t, err, browser.ErrSessionUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, opener.opens, "an open breaker does not launch browsers")

	// The semaphore slot is released on failure, so lookups on another site still run.
	states, err := svc.ListStates(context.Background(), "delhi")
	require.ErrorIs(t, err, browser.ErrSessionUnavailable)
	assert.Nil(t, states)
}

func TestMetadataLookupsAreCached(t *testing.T) {
	opener := &countingOpener{}
	cache := &memCache{values: map[string][]string{}}
	svc, _ := newTestService(t, opener, cache)
	ctx := context.Background()

	first, err := svc.ListDistricts(ctx, "", "Maharashtra")
	require.NoError(t, err)
	second, err := svc.ListDistricts(ctx, "ecourts", "Maharashtra")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, opener.opens)
	assert.Len(t, cache.values, 1)
}

func TestEmptyLookupIsNotCached(t *testing.T) {
	opener := &countingOpener{}
	cache := &memCache{values: map[string][]string{}}
	svc, _ := newTestService(t, opener, cache)

	courts, err := svc.ListCourtComplexes(context.Background(), "", "Atlantis", "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, courts)
	assert.Empty(t, cache.values)
}

func TestJudgesAreNeverCached(t *testing.T) {
	opener := &countingOpener{}
	cache := &memCache{values: map[string][]string{}}
	svc, _ := newTestService(t, opener, cache)
	path := scraper.Path{State: "Delhi", District: "Delhi", CourtComplex: "Patiala House Court Complex"}

	for i := 0; i < 2; i++ {
		judges, err := svc.ListJudges(context.Background(), "", path)
		require.NoError(t, err)
		assert.Len(t, judges, mockbrowser.JudgesPerComplex)
	}
	assert.Equal(t, 2, opener.opens)
	assert.Zero(t, cache.gets)
}

func TestArtifactExpiry(t *testing.T) {
	svc, store := newTestService(t, &countingOpener{}, &memCache{values: map[string][]string{}})
	now := time.Now()
	require.NoError(t, store.InsertArtifact(&models.Artifact{ID: "a", Filename: "old.pdf", Path: "/tmp/old.pdf", ContentType: "application/pdf", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}))

	_, err := svc.Artifact("old.pdf")
	assert.ErrorIs(t, err, ErrExpired)

	_, err = svc.Artifact("missing.pdf")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}
