// Package causelist serves metadata lookups and cause list fetches on top of
// the scraper, adding caching, PDF output, run reports and admission control.
package causelist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/cache/redis"
	"github.com/court-causelist/backend/internal/metrics"
	"github.com/court-causelist/backend/internal/report"
	"github.com/court-causelist/backend/internal/scraper"
	"github.com/court-causelist/backend/internal/storage/models"
	"github.com/court-causelist/backend/pkg/circuitbreaker"
	"github.com/court-causelist/backend/pkg/poll"
)

const (
	NoCauseListsMessage = "No cause lists found for the given criteria"
	RenderFailedMessage = "Failed to generate PDF files"
	DownloadPrefix      = "/api/download/"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrExpired        = errors.New("artifact expired")
)

// Store persists downloadable artifacts and run reports.
type Store interface {
	InsertArtifact(a *models.Artifact) error
	GetArtifact(filename string) (*models.Artifact, error)
	InsertFetchRun(run *models.FetchRun) error
	GetFetchRun(id string) (*models.FetchRun, error)
	CountRunsByStatus(since time.Time) (map[models.RunStatus]int, error)
}

// OpenerFactory returns the unguarded page opener for a site.
type OpenerFactory func(site scraper.Site) scraper.Opener

type Config struct {
	DefaultSite string
	OutputDir   string
	Retention   time.Duration
	// MaxSessions bounds the browsers running at once.
	MaxSessions int
	Poll        poll.Config
	Breaker     circuitbreaker.Config
}

type Service struct {
	sites    *scraper.Registry
	open     OpenerFactory
	cache    redis.Cache
	store    Store
	renderer *report.Renderer
	sem      *semaphore.Weighted
	breakers *circuitbreaker.Group
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

func NewService(sites *scraper.Registry, open OpenerFactory, cache redis.Cache, store Store, cfg Config, log *zap.Logger) *Service {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 2
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cache == nil {
		cache = redis.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	breakerCfg := cfg.Breaker
	breakerCfg.Logger = log
	breakerCfg.OnStateChange = func(name string, _, to circuitbreaker.State) {
		metrics.BreakerState.WithLabelValues(name).Set(float64(to))
	}

	return &Service{
		sites:    sites,
		open:     open,
		cache:    cache,
		store:    store,
		renderer: report.NewRenderer(log),
		sem:      semaphore.NewWeighted(int64(cfg.MaxSessions)),
		breakers: circuitbreaker.NewGroup(breakerCfg),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) site(name string) (scraper.Site, error) {
	if name == "" {
		name = s.cfg.DefaultSite
	}
	return s.sites.Get(name)
}

// openGuarded waits for a session slot and opens a page through the site's
// circuit breaker. Only session start failures count against the breaker.
func (s *Service) openGuarded(ctx context.Context, site scraper.Site) (browser.Page, func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("waiting for a browser session: %w", err)
	}

	var (
		page    browser.Page
		release func()
	)
	err := s.breakers.Get(site.Name()).Execute(func() error {
		var err error
		page, release, err = s.open(site)(ctx)
		return err
	}, func(err error) bool {
		return errors.Is(err, browser.ErrSessionUnavailable)
	})
	if err != nil {
		s.sem.Release(1)
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			err = fmt.Errorf("%w: %s: %w", browser.ErrSessionUnavailable, site.Name(), err)
		}
		return nil, nil, err
	}

	metrics.ActiveSessions.Inc()
	var once sync.Once
	return page, func() {
		once.Do(func() {
			release()
			metrics.ActiveSessions.Dec()
			s.sem.Release(1)
		})
	}, nil
}

func (s *Service) scraperFor(site scraper.Site, open scraper.Opener, log *zap.Logger) *scraper.Scraper {
	return scraper.New(site, open, s.cfg.Poll, log)
}

func (s *Service) guardedOpener(site scraper.Site) scraper.Opener {
	return func(ctx context.Context) (browser.Page, func(), error) {
		return s.openGuarded(ctx, site)
	}
}

// reuse hands an already open page to a scraper without giving up ownership.
func reuse(page browser.Page) scraper.Opener {
	return func(context.Context) (browser.Page, func(), error) {
		return page, func() {}, nil
	}
}

func (s *Service) ListStates(ctx context.Context, siteName string) ([]string, error) {
	return s.cachedList(ctx, siteName, scraper.LevelState, nil, func(sc *scraper.Scraper) ([]string, error) {
		return sc.ListStates(ctx)
	})
}

func (s *Service) ListDistricts(ctx context.Context, siteName, state string) ([]string, error) {
	return s.cachedList(ctx, siteName, scraper.LevelDistrict, []string{state}, func(sc *scraper.Scraper) ([]string, error) {
		return sc.ListDistricts(ctx, state)
	})
}

func (s *Service) ListCourtComplexes(ctx context.Context, siteName, state, district string) ([]string, error) {
	return s.cachedList(ctx, siteName, scraper.LevelCourtComplex, []string{state, district}, func(sc *scraper.Scraper) ([]string, error) {
		return sc.ListCourtComplexes(ctx, state, district)
	})
}

// ListJudges always asks the site; judge lists are never cached.
func (s *Service) ListJudges(ctx context.Context, siteName string, path scraper.Path) ([]models.Judge, error) {
	site, err := s.site(siteName)
	if err != nil {
		return nil, err
	}

	judges, err := s.scraperFor(site, s.guardedOpener(site), s.log).ListJudges(ctx, path)
	metrics.LookupTotal.WithLabelValues(site.Name(), scraper.LevelJudge.String(), lookupStatus(len(judges), err)).Inc()
	return judges, err
}

func (s *Service) cachedList(ctx context.Context, siteName string, level scraper.Level, args []string, fetch func(*scraper.Scraper) ([]string, error)) ([]string, error) {
	site, err := s.site(siteName)
	if err != nil {
		return nil, err
	}

	key := redis.MetadataKey(append([]string{site.Name(), level.String()}, args...)...)
	if values, ok, err := s.cache.GetList(ctx, key); err != nil {
		s.log.Warn("Metadata cache read failed", zap.Error(err))
	} else if ok {
		metrics.CacheHits.WithLabelValues("metadata").Inc()
		return values, nil
	}
	metrics.CacheMisses.WithLabelValues("metadata").Inc()

	values, err := fetch(s.scraperFor(site, s.guardedOpener(site), s.log))
	metrics.LookupTotal.WithLabelValues(site.Name(), level.String(), lookupStatus(len(values), err)).Inc()
	if err != nil {
		return nil, err
	}

	// An empty list may be a contained site fault; it is not worth keeping.
	if len(values) > 0 {
		if err := s.cache.SetList(ctx, key, values); err != nil {
			s.log.Warn("Metadata cache write failed", zap.Error(err))
		}
	}
	return values, nil
}

func lookupStatus(n int, err error) string {
	switch {
	case err != nil:
		return "error"
	case n == 0:
		return "empty"
	default:
		return "ok"
	}
}

type FetchRequest struct {
	State        string `json:"state"`
	District     string `json:"district"`
	CourtComplex string `json:"court_complex"`
	CourtName    string `json:"court_name,omitempty"`
	Date         string `json:"date"`
	CaseType     string `json:"case_type,omitempty"`
	Site         string `json:"site,omitempty"`
}

type FetchResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	PDFURL   string           `json:"pdf_url,omitempty"`
	Filename string           `json:"filename,omitempty"`
	RunID    string           `json:"run_id"`
	Report   *models.FetchRun `json:"report"`
}

// Fetch scrapes the requested cause lists, prints them with the same browser
// session and registers the download. Finding nothing is not an error.
func (s *Service) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	site, err := s.site(req.Site)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	caseType, err := scraper.ParseCaseType(req.CaseType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	run := &models.FetchRun{
		ID:           uuid.NewString(),
		Site:         site.Name(),
		State:        req.State,
		District:     req.District,
		CourtComplex: req.CourtComplex,
		JudgeFilter:  req.CourtName,
		Date:         date.Format("2006-01-02"),
		CaseType:     string(caseType),
		StartedAt:    s.now(),
	}
	log := s.log.With(zap.String("run_id", run.ID), zap.String("site", site.Name()))

	page, release, err := s.openGuarded(ctx, site)
	if err != nil {
		s.recordRun(run, failedReport(err), log)
		return nil, err
	}
	defer release()

	lists, rep, err := s.scraperFor(site, reuse(page), log).Fetch(ctx, scraper.Request{
		Path: scraper.Path{
			State:        req.State,
			District:     req.District,
			CourtComplex: req.CourtComplex,
		},
		Judge:    req.CourtName,
		Date:     date,
		CaseType: caseType,
	})
	s.recordRun(run, rep, log)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{RunID: run.ID, Report: run}
	if len(lists) == 0 {
		result.Message = NoCauseListsMessage
		return result, nil
	}

	artifact, n, err := s.publish(ctx, page, lists, run, log)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		result.Message = RenderFailedMessage
		return result, nil
	}

	result.Success = true
	result.Filename = artifact.Filename
	result.PDFURL = DownloadPrefix + artifact.Filename
	if n > 1 {
		result.Message = fmt.Sprintf("Generated %d cause list PDFs", n)
	} else {
		result.Message = "Generated cause list PDF"
	}
	return result, nil
}

// publish renders the lists, zips them when there is more than one and
// registers the download. A nil artifact means no PDF could be printed.
func (s *Service) publish(ctx context.Context, printer report.Printer, lists []models.CauseList, run *models.FetchRun, log *zap.Logger) (*models.Artifact, int, error) {
	now := s.now()
	dir, err := report.NewOutputDir(s.cfg.OutputDir, now, run.ID)
	if err != nil {
		return nil, 0, err
	}

	files := s.renderer.RenderAll(ctx, printer, lists, dir)
	if len(files) == 0 {
		log.Error("No PDF could be generated", zap.Int("records", len(lists)))
		return nil, 0, nil
	}

	// Download names carry the run id; the artifact index is keyed by name.
	path, contentType, kind := files[0], "application/pdf", "pdf"
	if len(files) > 1 {
		path, err = report.Bundle(dir, report.Tagged(report.BundleName(run.Date), run.ID), files)
		if err != nil {
			return nil, 0, err
		}
		contentType, kind = "application/zip", "zip"
	} else {
		tagged := filepath.Join(dir, report.Tagged(filepath.Base(path), run.ID))
		if err := os.Rename(path, tagged); err != nil {
			return nil, 0, fmt.Errorf("failed to name download: %w", err)
		}
		path = tagged
	}
	metrics.ArtifactsGenerated.WithLabelValues("pdf").Add(float64(len(files)))
	if kind == "zip" {
		metrics.ArtifactsGenerated.WithLabelValues("zip").Inc()
	}

	artifact := &models.Artifact{
		ID:          uuid.NewString(),
		Filename:    filepath.Base(path),
		Path:        path,
		ContentType: contentType,
		RunID:       run.ID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Retention),
	}
	if err := s.store.InsertArtifact(artifact); err != nil {
		return nil, 0, err
	}

	log.Info("Cause lists published",
		zap.String("filename", artifact.Filename),
		zap.Int("pdfs", len(files)),
		zap.Time("expires_at", artifact.ExpiresAt),
	)
	return artifact, len(files), nil
}

func failedReport(err error) *scraper.Report {
	return &scraper.Report{
		Status: models.RunFailed,
		Faults: []models.Fault{{Kind: models.FaultSession, Scope: "request", Message: err.Error()}},
	}
}

// recordRun copies the scraper's report into the run and publishes it to
// metrics, logs and the run store.
func (s *Service) recordRun(run *models.FetchRun, rep *scraper.Report, log *zap.Logger) {
	run.FinishedAt = s.now()
	run.Status = rep.Status
	run.JudgesResolved = rep.JudgesResolved
	run.Attempts = rep.Attempts
	run.Records = rep.Records
	run.Faults = rep.Faults
	if run.Faults == nil {
		run.Faults = []models.Fault{}
	}

	metrics.FetchDuration.WithLabelValues(run.Site).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	metrics.FetchTotal.WithLabelValues(run.Site, string(run.Status)).Inc()
	metrics.RecordsProduced.WithLabelValues(run.Site).Add(float64(run.Records))
	metrics.SubmitAttempts.Observe(float64(run.Attempts))
	for _, f := range run.Faults {
		if f.Kind == models.FaultSession {
			continue
		}
		metrics.FaultsContained.WithLabelValues(run.Site, string(f.Kind)).Inc()
	}

	if err := s.store.InsertFetchRun(run); err != nil {
		log.Error("Failed to store fetch run", zap.Error(err))
	}
}

func (s *Service) Run(id string) (*models.FetchRun, error) {
	return s.store.GetFetchRun(id)
}

// Artifact returns a registered download that has not expired yet.
func (s *Service) Artifact(filename string) (*models.Artifact, error) {
	a, err := s.store.GetArtifact(filename)
	if err != nil {
		return nil, err
	}
	if !a.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("artifact %q expired: %w", filename, ErrExpired)
	}
	return a, nil
}

// RunStats counts the fetches of the last window by outcome.
func (s *Service) RunStats(window time.Duration) (map[models.RunStatus]int, error) {
	return s.store.CountRunsByStatus(s.now().Add(-window))
}

func (s *Service) Sites() []string {
	return s.sites.Names()
}

func (s *Service) DefaultSite() string {
	return s.cfg.DefaultSite
}
