package models

import "time"

type Judge struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
	CourtNumber string `json:"court_number"`
}

// HearingEntry is one row of a cause list. Empty fields mean the source row
// had fewer columns than expected.
type HearingEntry struct {
	SrNo       string `json:"sr_no"`
	CaseNumber string `json:"case_number"`
	CaseTitle  string `json:"case_title"`
	Petitioner string `json:"petitioner"`
	Respondent string `json:"respondent"`
	Advocate   string `json:"advocate"`
	CaseType   string `json:"case_type"`
	Stage      string `json:"stage"`
	Purpose    string `json:"purpose"`
}

// CauseList holds the hearings of one judge for one date and case type.
// Entries is never empty.
type CauseList struct {
	CourtName string         `json:"court_name"`
	JudgeName string         `json:"judge_name"`
	Date      string         `json:"date"`
	CaseType  string         `json:"case_type"`
	Entries   []HearingEntry `json:"entries"`
}

type Artifact struct {
	ID          string
	Filename    string
	Path        string
	ContentType string
	RunID       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

type FaultKind string

const (
	FaultSession    FaultKind = "session"
	FaultNavigation FaultKind = "navigation"
	FaultExtraction FaultKind = "extraction"
	FaultPartial    FaultKind = "partial"
)

// Fault is a failure the scraper contained instead of returning.
type Fault struct {
	Kind     FaultKind `json:"kind"`
	Scope    string    `json:"scope"`
	Judge    string    `json:"judge,omitempty"`
	CaseType string    `json:"case_type,omitempty"`
	Message  string    `json:"message"`
}

type RunStatus string

const (
	// RunSuccess means records were produced and nothing failed.
	RunSuccess  RunStatus = "success"
	// RunPartial means records were produced but some iterations failed.
	RunPartial  RunStatus = "partial"
	// RunEmpty means nothing was found and nothing failed.
	RunEmpty    RunStatus = "empty"
	// RunDegraded means nothing was found and faults were contained, so
	// the empty result may be site breakage rather than an empty list.
	RunDegraded RunStatus = "degraded"
	// RunFailed means the browser session could not be used.
	RunFailed   RunStatus = "failed"
)

type FetchRun struct {
	ID             string    `json:"id"`
	Site           string    `json:"site"`
	State          string    `json:"state"`
	District       string    `json:"district"`
	CourtComplex   string    `json:"court_complex"`
	JudgeFilter    string    `json:"judge_filter,omitempty"`
	Date           string    `json:"date"`
	CaseType       string    `json:"case_type"`
	Status         RunStatus `json:"status"`
	JudgesResolved int       `json:"judges_resolved"`
	Attempts       int       `json:"attempts"`
	Records        int       `json:"records"`
	Faults         []Fault   `json:"faults"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
