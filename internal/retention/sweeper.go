// Package retention deletes generated files and old run reports.
package retention

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/metrics"
	"github.com/court-causelist/backend/internal/storage/models"
)

type Store interface {
	ListExpiredArtifacts(now time.Time) ([]models.Artifact, error)
	DeleteArtifact(id string) error
	PruneFetchRuns(cutoff time.Time) (int64, error)
}

type Config struct {
	// OutputDir holds one cause_lists_* directory per fetch.
	OutputDir    string
	Retention    time.Duration
	RunRetention time.Duration
	Interval     time.Duration
}

type Sweeper struct {
	store Store
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

func NewSweeper(store Store, cfg Config, log *zap.Logger) *Sweeper {
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	if cfg.RunRetention <= 0 {
		cfg.RunRetention = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: store, cfg: cfg, log: log, now: time.Now}
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

type Result struct {
	Files int
	Dirs  int
	Runs  int64
}

func (s *Sweeper) Sweep() Result {
	now := s.now()
	var res Result

	artifacts, err := s.store.ListExpiredArtifacts(now)
	if err != nil {
		s.log.Error("Failed to list expired artifacts", zap.Error(err))
	}
	for _, a := range artifacts {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Failed to delete artifact", zap.String("path", a.Path), zap.Error(err))
			continue
		}
		if err := s.store.DeleteArtifact(a.ID); err != nil {
			s.log.Warn("Failed to unregister artifact", zap.String("id", a.ID), zap.Error(err))
			continue
		}
		res.Files++
	}

	res.Dirs = s.removeStaleDirs(now)

	res.Runs, err = s.store.PruneFetchRuns(now.Add(-s.cfg.RunRetention))
	if err != nil {
		s.log.Error("Failed to prune fetch runs", zap.Error(err))
	}

	metrics.ArtifactsRemoved.Add(float64(res.Files))
	if res.Files > 0 || res.Dirs > 0 || res.Runs > 0 {
		s.log.Info("Retention sweep finished",
			zap.Int("files", res.Files),
			zap.Int("dirs", res.Dirs),
			zap.Int64("runs", res.Runs),
		)
	}
	return res
}

// removeStaleDirs deletes per-fetch output directories older than the
// retention window, including PDFs that were bundled into a zip.
func (s *Sweeper) removeStaleDirs(now time.Time) int {
	entries, err := os.ReadDir(s.cfg.OutputDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Failed to read output directory", zap.String("dir", s.cfg.OutputDir), zap.Error(err))
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "cause_lists_") {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < s.cfg.Retention {
			continue
		}
		dir := filepath.Join(s.cfg.OutputDir, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("Failed to delete output directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}
