package scraper

import (
	"strings"
	"time"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/storage/models"
)

// ECourts drives the national eCourts cause list form, where every level
// is a live dropdown and civil and criminal lists have separate buttons.
type ECourts struct {
	baseURL string
	settle  time.Duration
}

func NewECourts(baseURL string, settle time.Duration) *ECourts {
	if settle <= 0 {
		settle = 3 * time.Second
	}
	return &ECourts{baseURL: strings.TrimRight(baseURL, "/") + "/", settle: settle}
}

func (s *ECourts) Name() string    { return "ecourts" }
func (s *ECourts) FormURL() string { return s.baseURL + "?p=cause_list/index" }

func (s *ECourts) SelectorFor(level Level) string {
	switch level {
	case LevelState:
		return "#state_code"
	case LevelDistrict:
		return "#dist_code"
	case LevelCourtComplex:
		return "#court_code"
	case LevelJudge:
		return "#court_name"
	}
	return ""
}

func (s *ECourts) StaticOptions(Level) ([]string, bool) { return nil, false }

func (s *ECourts) DateInput() string { return "#hearing_date" }

func (s *ECourts) DateValue(date time.Time) string { return date.Format("02-01-2006") }

func (s *ECourts) SubmitControlFor(caseType CaseType) string {
	if caseType == CaseCriminal {
		return `[name="criminal_btn"]`
	}
	return `[name="civil_btn"]`
}

func (s *ECourts) SplitsCaseTypes() bool         { return true }
func (s *ECourts) SettleDuration() time.Duration { return s.settle }

func (s *ECourts) DescribeJudge(opt browser.Option) models.Judge {
	return models.Judge{Name: opt.Label, Designation: "Judge", CourtNumber: opt.Value}
}

// DelhiComplexes are the court complexes of the Delhi district courts. The
// site has no dropdown for them.
var DelhiComplexes = []string{
	"Patiala House Court Complex",
	"Karkardooma Court Complex",
	"Rohini Court Complex",
	"Saket Court Complex",
	"Dwarka Court Complex",
	"Rouse Avenue Court Complex",
}

// Delhi drives the Delhi district courts daily board. Only the judge is a
// live dropdown, and one submit button serves every case type.
type Delhi struct {
	baseURL string
	settle  time.Duration
}

func NewDelhi(baseURL string, settle time.Duration) *Delhi {
	if settle <= 0 {
		settle = 3 * time.Second
	}
	return &Delhi{baseURL: strings.TrimRight(baseURL, "/"), settle: settle}
}

func (s *Delhi) Name() string    { return "delhi" }
func (s *Delhi) FormURL() string { return s.baseURL + "/cause-list-%e2%81%84-daily-board/" }

func (s *Delhi) SelectorFor(level Level) string {
	if level == LevelJudge {
		return "select[name*='judge'], select[name*='court']"
	}
	return ""
}

func (s *Delhi) StaticOptions(level Level) ([]string, bool) {
	switch level {
	case LevelState:
		return []string{"Delhi"}, true
	case LevelDistrict:
		return []string{"Delhi"}, true
	case LevelCourtComplex:
		return append([]string(nil), DelhiComplexes...), true
	}
	return nil, false
}

func (s *Delhi) DateInput() string { return "input[type='date'], input[name*='date']" }

func (s *Delhi) DateValue(date time.Time) string { return date.Format("2006-01-02") }

func (s *Delhi) SubmitControlFor(CaseType) string {
	return "input[type='submit'], button[type='submit']"
}

func (s *Delhi) SplitsCaseTypes() bool         { return false }
func (s *Delhi) SettleDuration() time.Duration { return s.settle }

func (s *Delhi) DescribeJudge(opt browser.Option) models.Judge {
	return models.Judge{Name: opt.Label, Designation: "Judge", CourtNumber: opt.Value}
}
