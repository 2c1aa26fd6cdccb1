package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/storage/models"
	"github.com/court-causelist/backend/pkg/poll"
)

// Opener hands out a page for one request together with the function that
// releases it. Every Fetch and lookup opens its own page.
type Opener func(ctx context.Context) (browser.Page, func(), error)

// SessionOpener opens a fresh browser session per call.
func SessionOpener(newSession func() *browser.Session) Opener {
	return func(ctx context.Context) (browser.Page, func(), error) {
		sess := newSession()
		page, err := sess.Acquire(ctx)
		if err != nil {
			sess.Release()
			return nil, nil, err
		}
		return page, sess.Release, nil
	}
}

type Request struct {
	Path     Path
	Judge    string
	Date     time.Time
	CaseType CaseType
}

// Report describes how a fetch went. An empty result with contained faults
// is reported as degraded so it can be told apart from an empty list.
type Report struct {
	Status         models.RunStatus
	JudgesResolved int
	Attempts       int
	Records        int
	Faults         []models.Fault
}

func (r *Report) contain(f models.Fault) {
	r.Faults = append(r.Faults, f)
}

func (r *Report) finish(records int) {
	r.Records = records
	switch {
	case records > 0 && len(r.Faults) > 0:
		r.Status = models.RunPartial
	case records > 0:
		r.Status = models.RunSuccess
	case len(r.Faults) > 0:
		r.Status = models.RunDegraded
	default:
		r.Status = models.RunEmpty
	}
}

func (r *Report) fail(err error) {
	r.Faults = append(r.Faults, models.Fault{
		Kind:    models.FaultSession,
		Scope:   "request",
		Message: err.Error(),
	})
	r.Records = 0
	r.Status = models.RunFailed
}

type Scraper struct {
	site Site
	open Opener
	poll poll.Config
	log  *zap.Logger
}

func New(site Site, open Opener, pollCfg poll.Config, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{
		site: site,
		open: open,
		poll: pollCfg,
		log:  log.With(zap.String("site", site.Name())),
	}
}

func (s *Scraper) Site() Site { return s.site }

// Fetch retrieves the cause lists of every judge matching req. Only session
// faults and context cancellation are returned as errors; anything else is
// recorded in the report and costs only the affected judge or case type.
func (s *Scraper) Fetch(ctx context.Context, req Request) ([]models.CauseList, *Report, error) {
	report := &Report{}

	page, release, err := s.open(ctx)
	if err != nil {
		report.fail(err)
		return nil, report, err
	}
	defer release()

	nav := NewNavigator(s.site, page, s.poll, s.log)
	lists, err := s.fetch(ctx, nav, page, req, report)
	if err != nil {
		report.fail(err)
		return nil, report, err
	}
	report.finish(len(lists))

	s.log.Info("Fetch finished",
		zap.String("status", string(report.Status)),
		zap.Int("judges", report.JudgesResolved),
		zap.Int("attempts", report.Attempts),
		zap.Int("records", report.Records),
		zap.Int("faults", len(report.Faults)),
	)
	return lists, report, nil
}

func (s *Scraper) fetch(ctx context.Context, nav *Navigator, page browser.Page, req Request, report *Report) ([]models.CauseList, error) {
	lists := make([]models.CauseList, 0)

	judges, err := nav.Resolve(ctx, req.Path, LevelJudge)
	if err != nil {
		if fatal(ctx, err) {
			return nil, abortError(ctx, err)
		}
		s.containFault(report, models.Fault{Kind: models.FaultNavigation, Scope: "request", Message: err.Error()})
		return lists, nil
	}
	if judge := strings.TrimSpace(req.Judge); judge != "" {
		judges = MatchJudge(judges, judge)
	}
	report.JudgesResolved = len(judges)
	if len(judges) == 0 {
		return lists, nil
	}

	date := req.Date.Format("2006-01-02")
	dateValue := s.site.DateValue(req.Date)

	for _, judge := range judges {
		for _, caseType := range s.caseTypes(req.CaseType) {
			if ctx.Err() != nil {
				return nil, abortError(ctx, ctx.Err())
			}
			report.Attempts++

			entries, fault, err := s.attempt(ctx, nav, page, judge, caseType, dateValue)
			if err != nil {
				return nil, abortError(ctx, err)
			}
			// Entries read before a failed return to the form still count.
			if len(entries) > 0 {
				lists = append(lists, models.CauseList{
					CourtName: req.Path.CourtComplex,
					JudgeName: judge.Label,
					Date:      date,
					CaseType:  string(caseType),
					Entries:   entries,
				})
			}
			if fault == nil {
				continue
			}

			fault.Judge = judge.Label
			fault.CaseType = string(caseType)
			s.containFault(report, *fault)
			if err := s.reloadForm(ctx, nav, req.Path); err != nil {
				return nil, abortError(ctx, err)
			}
			if fault.Scope == "judge" {
				break
			}
		}
	}

	return lists, nil
}

// attempt submits the form for one judge and case type. A non-nil fault is
// contained by the caller; a non-nil error aborts the fetch. Entries may come
// back together with a fault when the page failed after extraction.
func (s *Scraper) attempt(ctx context.Context, nav *Navigator, page browser.Page, judge browser.Option, caseType CaseType, dateValue string) ([]models.HearingEntry, *models.Fault, error) {
	var entries []models.HearingEntry
	navFault := func(scope string, err error) ([]models.HearingEntry, *models.Fault, error) {
		if fatal(ctx, err) {
			return nil, nil, err
		}
		return entries, &models.Fault{Kind: models.FaultNavigation, Scope: scope, Message: err.Error()}, nil
	}

	if err := nav.SelectJudge(ctx, judge); err != nil {
		return navFault("judge", err)
	}
	if err := page.SetInput(ctx, s.site.DateInput(), dateValue); err != nil {
		return navFault("judge", navigationError("fill date", err))
	}

	before, err := page.HTML(ctx)
	if err != nil {
		return navFault("case_type", navigationError("read form", err))
	}
	if err := page.Click(ctx, s.site.SubmitControlFor(caseType)); err != nil {
		return navFault("case_type", navigationError("submit", err))
	}

	html, err := nav.SettleResults(ctx, before)
	if err != nil {
		return navFault("case_type", err)
	}

	entries, extractErr := ExtractEntries(html)
	if extractErr != nil {
		entries = nil
	}

	if err := page.Back(ctx); err != nil {
		return navFault("case_type", navigationError("return to form", err))
	}
	if err := nav.SettleForm(ctx); err != nil {
		return navFault("case_type", err)
	}

	if extractErr != nil {
		return nil, &models.Fault{Kind: models.FaultExtraction, Scope: "case_type", Message: extractErr.Error()}, nil
	}
	return entries, nil, nil
}

// reloadForm reloads the form after a contained fault so the next attempt does
// not start from an unknown page. A failure to reload is contained too; the
// next attempt will record its own fault.
func (s *Scraper) reloadForm(ctx context.Context, nav *Navigator, path Path) error {
	if _, err := nav.Resolve(ctx, path, LevelJudge); err != nil {
		if fatal(ctx, err) {
			return err
		}
		s.log.Debug("Form reload failed", zap.Error(err))
	}
	return nil
}

func (s *Scraper) caseTypes(ct CaseType) []CaseType {
	if ct == CaseBoth && s.site.SplitsCaseTypes() {
		return []CaseType{CaseCivil, CaseCriminal}
	}
	return []CaseType{ct}
}

func (s *Scraper) containFault(report *Report, f models.Fault) {
	report.contain(f)
	s.log.Warn("Contained scraping fault",
		zap.String("kind", string(f.Kind)),
		zap.String("scope", f.Scope),
		zap.String("judge", f.Judge),
		zap.String("case_type", f.CaseType),
		zap.String("error", f.Message),
	)
}

func (s *Scraper) ListStates(ctx context.Context) ([]string, error) {
	return s.lookupLabels(ctx, Path{}, LevelState)
}

func (s *Scraper) ListDistricts(ctx context.Context, state string) ([]string, error) {
	return s.lookupLabels(ctx, Path{State: state}, LevelDistrict)
}

func (s *Scraper) ListCourtComplexes(ctx context.Context, state, district string) ([]string, error) {
	return s.lookupLabels(ctx, Path{State: state, District: district}, LevelCourtComplex)
}

func (s *Scraper) ListJudges(ctx context.Context, path Path) ([]models.Judge, error) {
	opts, err := s.lookup(ctx, path, LevelJudge)
	if err != nil {
		return nil, err
	}
	judges := make([]models.Judge, 0, len(opts))
	for _, o := range opts {
		judges = append(judges, s.site.DescribeJudge(o))
	}
	return judges, nil
}

func (s *Scraper) lookupLabels(ctx context.Context, path Path, level Level) ([]string, error) {
	opts, err := s.lookup(ctx, path, level)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(opts))
	for _, o := range opts {
		labels = append(labels, o.Label)
	}
	return labels, nil
}

// lookup resolves the options at level. Navigation faults give an empty list.
func (s *Scraper) lookup(ctx context.Context, path Path, level Level) ([]browser.Option, error) {
	page, release, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	opts, err := NewNavigator(s.site, page, s.poll, s.log).Resolve(ctx, path, level)
	if err != nil {
		if fatal(ctx, err) {
			return nil, abortError(ctx, err)
		}
		s.log.Warn("Lookup failed, returning no options",
			zap.String("level", level.String()),
			zap.Error(err),
		)
		return []browser.Option{}, nil
	}
	if opts == nil {
		opts = []browser.Option{}
	}
	return opts, nil
}

// fatal reports whether err ends the request: the browser is gone or the
// caller gave up.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, browser.ErrSessionUnavailable) || ctx.Err() != nil
}

func abortError(ctx context.Context, err error) error {
	if ctx.Err() != nil && !errors.Is(err, browser.ErrSessionUnavailable) {
		return fmt.Errorf("fetch aborted: %w", ctx.Err())
	}
	return err
}
