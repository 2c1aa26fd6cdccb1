package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/storage/models"
	"github.com/court-causelist/backend/pkg/logger"
)

var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The sweeper and request handlers share one file.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		filename TEXT UNIQUE NOT NULL,
		path TEXT NOT NULL,
		content_type TEXT NOT NULL,
		run_id TEXT,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_expires ON artifacts(expires_at);

	CREATE TABLE IF NOT EXISTS fetch_runs (
		id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		state TEXT NOT NULL,
		district TEXT NOT NULL,
		court_complex TEXT NOT NULL,
		judge_filter TEXT,
		date TEXT NOT NULL,
		case_type TEXT NOT NULL,
		status TEXT NOT NULL,
		judges_resolved INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		records INTEGER NOT NULL,
		faults TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_finished ON fetch_runs(finished_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON fetch_runs(status);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertArtifact(a *models.Artifact) error {
	query := `
		INSERT INTO artifacts (id, filename, path, content_type, run_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			id = excluded.id,
			path = excluded.path,
			content_type = excluded.content_type,
			run_id = excluded.run_id,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`

	_, err := c.db.Exec(
		query,
		a.ID,
		a.Filename,
		a.Path,
		a.ContentType,
		a.RunID,
		a.CreatedAt.Unix(),
		a.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}

	logger.Debug("Artifact registered",
		zap.String("filename", a.Filename),
		zap.Time("expires_at", a.ExpiresAt),
	)
	return nil
}

// GetArtifact looks an artifact up by its download name.
func (c *Client) GetArtifact(filename string) (*models.Artifact, error) {
	query := `SELECT id, filename, path, content_type, run_id, created_at, expires_at FROM artifacts WHERE filename = ?`

	a, err := scanArtifact(c.db.QueryRow(query, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %q: %w", filename, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return a, nil
}

func (c *Client) ListExpiredArtifacts(now time.Time) ([]models.Artifact, error) {
	query := `
		SELECT id, filename, path, content_type, run_id, created_at, expires_at
		FROM artifacts
		WHERE expires_at <= ?
		ORDER BY expires_at
	`

	rows, err := c.db.Query(query, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list expired artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		artifacts = append(artifacts, *a)
	}

	return artifacts, rows.Err()
}

func (c *Client) DeleteArtifact(id string) error {
	if _, err := c.db.Exec(`DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (*models.Artifact, error) {
	var a models.Artifact
	var runID sql.NullString
	var createdAt, expiresAt int64

	err := row.Scan(&a.ID, &a.Filename, &a.Path, &a.ContentType, &runID, &createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	a.RunID = runID.String
	a.CreatedAt = time.Unix(createdAt, 0)
	a.ExpiresAt = time.Unix(expiresAt, 0)
	return &a, nil
}

func (c *Client) InsertFetchRun(run *models.FetchRun) error {
	faultsJSON, err := json.Marshal(run.Faults)
	if err != nil {
		return fmt.Errorf("failed to marshal faults: %w", err)
	}

	query := `
		INSERT INTO fetch_runs (id, site, state, district, court_complex, judge_filter, date, case_type,
			status, judges_resolved, attempts, records, faults, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.Exec(
		query,
		run.ID,
		run.Site,
		run.State,
		run.District,
		run.CourtComplex,
		run.JudgeFilter,
		run.Date,
		run.CaseType,
		string(run.Status),
		run.JudgesResolved,
		run.Attempts,
		run.Records,
		string(faultsJSON),
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fetch run: %w", err)
	}

	logger.Info("Fetch run recorded",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("records", run.Records),
		zap.Int("faults", len(run.Faults)),
	)
	return nil
}

func (c *Client) GetFetchRun(id string) (*models.FetchRun, error) {
	query := `
		SELECT id, site, state, district, court_complex, judge_filter, date, case_type,
			status, judges_resolved, attempts, records, faults, started_at, finished_at
		FROM fetch_runs WHERE id = ?
	`

	var run models.FetchRun
	var judgeFilter, faultsJSON sql.NullString
	var status string
	var startedAt, finishedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Site,
		&run.State,
		&run.District,
		&run.CourtComplex,
		&judgeFilter,
		&run.Date,
		&run.CaseType,
		&status,
		&run.JudgesResolved,
		&run.Attempts,
		&run.Records,
		&faultsJSON,
		&startedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fetch run: %w", err)
	}

	run.JudgeFilter = judgeFilter.String
	run.Status = models.RunStatus(status)
	run.StartedAt = time.UnixMilli(startedAt)
	run.FinishedAt = time.UnixMilli(finishedAt)
	run.Faults = []models.Fault{}
	if faultsJSON.Valid && faultsJSON.String != "" && faultsJSON.String != "null" {
		if err := json.Unmarshal([]byte(faultsJSON.String), &run.Faults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal faults: %w", err)
		}
	}

	return &run, nil
}

// PruneFetchRuns deletes run reports that finished before cutoff.
func (c *Client) PruneFetchRuns(cutoff time.Time) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM fetch_runs WHERE finished_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune fetch runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountRunsByStatus summarises recent runs for the health endpoint.
func (c *Client) CountRunsByStatus(since time.Time) (map[models.RunStatus]int, error) {
	rows, err := c.db.Query(`SELECT status, COUNT(*) FROM fetch_runs WHERE finished_at >= ? GROUP BY status`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to count fetch runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.RunStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[models.RunStatus(status)] = n
	}

	return counts, rows.Err()
}
