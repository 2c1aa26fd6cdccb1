package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/storage/models"
)

var (
	// ErrNavigation marks a fault while walking the form. It is contained:
	// the affected branch yields no data.
	ErrNavigation = errors.New("navigation fault")

	// ErrNoSuchOption means a requested state, district or court complex is not offered.
	ErrNoSuchOption    = errors.New("no matching option")
	ErrUnknownSite     = errors.New("unknown site")
	ErrInvalidCaseType = errors.New("invalid case type")
)

type Level int

const (
	LevelState Level = iota
	LevelDistrict
	LevelCourtComplex
	LevelJudge
)

var Levels = []Level{LevelState, LevelDistrict, LevelCourtComplex, LevelJudge}

func (l Level) String() string {
	switch l {
	case LevelState:
		return "state"
	case LevelDistrict:
		return "district"
	case LevelCourtComplex:
		return "court_complex"
	case LevelJudge:
		return "judge"
	default:
		return "unknown"
	}
}

type CaseType string

const (
	CaseCivil    CaseType = "civil"
	CaseCriminal CaseType = "criminal"
	CaseBoth     CaseType = "both"
)

// ParseCaseType accepts civil, criminal or both; empty means both.
func ParseCaseType(s string) (CaseType, error) {
	switch CaseType(strings.ToLower(strings.TrimSpace(s))) {
	case "", CaseBoth:
		return CaseBoth, nil
	case CaseCivil:
		return CaseCivil, nil
	case CaseCriminal:
		return CaseCriminal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCaseType, s)
	}
}

// Path is the jurisdiction prefix of a request. Each level only means
// something given the levels before it.
type Path struct {
	State        string
	District     string
	CourtComplex string
}

func (p Path) value(l Level) string {
	switch l {
	case LevelState:
		return p.State
	case LevelDistrict:
		return p.District
	case LevelCourtComplex:
		return p.CourtComplex
	default:
		return ""
	}
}

// Site adapts the navigator and orchestrator to one court website.
type Site interface {
	Name() string
	FormURL() string
	// SelectorFor is the CSS selector of the level's <select>.
	SelectorFor(level Level) string
	// StaticOptions returns a fixed option list for levels the site does not render.
	StaticOptions(level Level) ([]string, bool)
	DateInput() string
	// DateValue formats the hearing date the way the date input expects.
	DateValue(date time.Time) string
	SubmitControlFor(caseType CaseType) string
	// SplitsCaseTypes reports whether civil and criminal lists are separate submissions.
	SplitsCaseTypes() bool
	// SettleDuration bounds every wait for dependent content to load.
	SettleDuration() time.Duration
	DescribeJudge(opt browser.Option) models.Judge
}

type Registry struct {
	sites map[string]Site
	names []string
}

func NewRegistry(sites ...Site) *Registry {
	r := &Registry{sites: make(map[string]Site)}
	for _, s := range sites {
		r.sites[s.Name()] = s
		r.names = append(r.names, s.Name())
	}
	return r
}

func (r *Registry) Get(name string) (Site, error) {
	s, ok := r.sites[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, name)
	}
	return s, nil
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
