// Package store persists runs, peak tables, and sweep metrics in SQLite.
// Persistence is optional: the CLI only opens a store when asked to, and
// nothing in the processing chain depends on it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/algo-raman/pipeline"
	"github.com/cwbudde/algo-raman/results"
	"github.com/cwbudde/algo-raman/sweep"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Run is one persisted invocation: a single-combination analysis or a full
// sweep. For sweep runs Combination is empty and the counters are summed
// over all attempted combinations.
type Run struct {
	ID               int64
	CreatedAt        time.Time
	Kind             string // "analyze" or "sweep"
	Combination      string
	TotalPeaks       int
	RemovedOutliers  int
	SpectraProcessed int
	SpectraSkipped   int
	FitsFailed       int
}

// Store wraps SQLite access for analysis results.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL,
			kind TEXT NOT NULL,
			combination TEXT NOT NULL,
			total_peaks INTEGER NOT NULL,
			removed_outliers INTEGER NOT NULL,
			spectra_processed INTEGER NOT NULL,
			spectra_skipped INTEGER NOT NULL,
			fits_failed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS peaks (
			run_id INTEGER NOT NULL,
			sample TEXT NOT NULL,
			grain TEXT NOT NULL,
			location TEXT NOT NULL,
			column_name TEXT NOT NULL,
			peak_index INTEGER NOT NULL,
			region TEXT NOT NULL,
			damage TEXT NOT NULL,
			dose REAL NOT NULL,
			amplitude REAL NOT NULL,
			center REAL NOT NULL,
			sigma REAL NOT NULL,
			fit_offset REAL NOT NULL,
			fwhm REAL NOT NULL,
			analytic_area REAL NOT NULL,
			numeric_area REAL NOT NULL,
			r_squared REAL NOT NULL,
			reduced_chi2 REAL NOT NULL,
			kept INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS combinations (
			run_id INTEGER NOT NULL,
			combination TEXT NOT NULL,
			baseline TEXT NOT NULL,
			normalization TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL,
			total_peaks INTEGER NOT NULL,
			removed_outliers INTEGER NOT NULL,
			r2_mean REAL NOT NULL,
			fwhm_mean REAL NOT NULL,
			fwhm_cv REAL NOT NULL,
			PRIMARY KEY (run_id, combination)
		);`,
		`CREATE TABLE IF NOT EXISTS region_metrics (
			run_id INTEGER NOT NULL,
			combination TEXT NOT NULL,
			region TEXT NOT NULL,
			count INTEGER NOT NULL,
			score REAL NOT NULL,
			r2_mean REAL NOT NULL,
			fwhm_mean REAL NOT NULL,
			fwhm_std REAL NOT NULL,
			fwhm_cv REAL NOT NULL,
			center_mean REAL NOT NULL,
			center_cv REAL NOT NULL,
			PRIMARY KEY (run_id, combination, region)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_peaks_run ON peaks(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: migrating: %w", err)
		}
	}

	return nil
}

func (s *Store) insertRun(ctx context.Context, tx *sql.Tx, run Run) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, kind, combination, total_peaks, removed_outliers,
			spectra_processed, spectra_skipped, fits_failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Kind,
		run.Combination,
		run.TotalPeaks,
		run.RemovedOutliers,
		run.SpectraProcessed,
		run.SpectraSkipped,
		run.FitsFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("store: inserting run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: reading run id: %w", err)
	}

	return id, nil
}

// SaveAnalysis persists one single-combination run: the run row plus every
// fitted peak. Rows removed by outlier cleaning are stored with kept = 0.
func (s *Store) SaveAnalysis(ctx context.Context, combination string, res pipeline.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.insertRun(ctx, tx, Run{
		CreatedAt:        time.Now(),
		Kind:             "analyze",
		Combination:      combination,
		TotalPeaks:       res.Table.Len(),
		RemovedOutliers:  res.Outliers.TotalRemoved,
		SpectraProcessed: res.SpectraProcessed,
		SpectraSkipped:   res.SpectraSkipped,
		FitsFailed:       res.FitsFailed,
	})
	if err != nil {
		return 0, err
	}

	if res.Table.Len() > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO peaks (run_id, sample, grain, location, column_name, peak_index,
				region, damage, dose, amplitude, center, sigma, fit_offset, fwhm,
				analytic_area, numeric_area, r_squared, reduced_chi2, kept)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("store: preparing peak insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		removed := results.NewIndexSet(res.Outliers.RemovedIndices...)

		for i, rec := range res.Table.Records {
			kept := 1
			if removed.Has(i) {
				kept = 0
			}

			_, err := stmt.ExecContext(ctx,
				id, rec.Sample, rec.Grain, rec.Location, rec.Column, rec.PeakIndex,
				rec.Region.String(), rec.Damage.String(), rec.Dose,
				rec.Fit.Amplitude, rec.Fit.Center, rec.Fit.Sigma, rec.Fit.Offset,
				rec.Fit.FWHM, rec.Fit.AnalyticArea, rec.Fit.NumericArea,
				rec.Fit.R2, rec.Fit.ReducedChi2, kept,
			)
			if err != nil {
				return 0, fmt.Errorf("store: inserting peak: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: committing: %w", err)
	}

	return id, nil
}

// SaveSweep persists a sweep run: the run row, one combinations row per
// grid cell (failed cells included, with their reason), and one
// region_metrics row per region of each successful cell. Per-combination
// peak tables are not stored; rerun the winner with analyze to keep its
// peaks.
func (s *Store) SaveSweep(ctx context.Context, sum sweep.Summary) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	run := Run{CreatedAt: time.Now(), Kind: "sweep"}
	for _, res := range sum.Results {
		run.TotalPeaks += res.TotalPeaks
		run.RemovedOutliers += res.RemovedOutliers
		run.SpectraProcessed += res.SpectraProcessed
		run.SpectraSkipped += res.SpectraSkipped
		run.FitsFailed += res.FitsFailed
	}

	id, err := s.insertRun(ctx, tx, run)
	if err != nil {
		return 0, err
	}

	combStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO combinations (run_id, combination, baseline, normalization, status,
			reason, total_peaks, removed_outliers, r2_mean, fwhm_mean, fwhm_cv)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: preparing combination insert: %w", err)
	}
	defer func() { _ = combStmt.Close() }()

	regionStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO region_metrics (run_id, combination, region, count, score,
			r2_mean, fwhm_mean, fwhm_std, fwhm_cv, center_mean, center_cv)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: preparing region insert: %w", err)
	}
	defer func() { _ = regionStmt.Close() }()

	for _, res := range sum.Results {
		status := "ok"
		if res.Failed {
			status = "failed"
		}

		_, err := combStmt.ExecContext(ctx,
			id, res.Combination.Name(),
			res.Combination.Baseline.String(), res.Combination.Normalization.String(),
			status, res.Reason, res.TotalPeaks, res.RemovedOutliers,
			res.R2.Mean, res.FWHM.Mean, res.FWHM.CV,
		)
		if err != nil {
			return 0, fmt.Errorf("store: inserting combination: %w", err)
		}

		if res.Failed {
			continue
		}

		for _, rm := range res.Regions {
			_, err := regionStmt.ExecContext(ctx,
				id, res.Combination.Name(), rm.Region.String(), rm.Count, rm.Score,
				rm.R2.Mean, rm.FWHM.Mean, rm.FWHM.Std, rm.FWHM.CV,
				rm.Center.Mean, rm.Center.CV,
			)
			if err != nil {
				return 0, fmt.Errorf("store: inserting region metrics: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: committing: %w", err)
	}

	return id, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, kind, combination, total_peaks, removed_outliers,
			spectra_processed, spectra_skipped, fits_failed
		 FROM runs
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run

	for rows.Next() {
		var (
			run       Run
			createdAt string
		)

		err := rows.Scan(&run.ID, &createdAt, &run.Kind, &run.Combination,
			&run.TotalPeaks, &run.RemovedOutliers,
			&run.SpectraProcessed, &run.SpectraSkipped, &run.FitsFailed)
		if err != nil {
			return nil, fmt.Errorf("store: scanning run: %w", err)
		}

		run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("store: parsing run timestamp: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listing runs: %w", err)
	}

	return runs, nil
}

// CountPeaks returns the number of stored peak rows for a run, split into
// kept and removed.
func (s *Store) CountPeaks(ctx context.Context, runID int64) (kept, removed int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN kept = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kept = 0 THEN 1 ELSE 0 END), 0)
		 FROM peaks WHERE run_id = ?`, runID).Scan(&kept, &removed)
	if err != nil {
		return 0, 0, fmt.Errorf("store: counting peaks: %w", err)
	}

	return kept, removed, nil
}
