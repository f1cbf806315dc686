package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ewhitmore/haulfit/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateRun(note string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO model_runs (started_at, note) VALUES (?, ?)`,
		time.Now().UTC(), note,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) UpdateRunCounts(runID int64, datasetRows, gridRows int) error {
	_, err := s.db.Exec(
		`UPDATE model_runs SET dataset_rows = ?, grid_rows = ? WHERE id = ?`,
		datasetRows, gridRows, runID,
	)
	return err
}

func (s *Store) GetRun(runID int64) (*models.ModelRun, error) {
	row := s.db.QueryRow(`SELECT id, started_at, dataset_rows, grid_rows, note FROM model_runs WHERE id = ?`, runID)
	var r models.ModelRun
	err := row.Scan(&r.ID, &r.StartedAt, &r.DatasetRows, &r.GridRows, &r.Note)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestRun returns the most recent pipeline run, or nil if none exist.
func (s *Store) LatestRun() (*models.ModelRun, error) {
	row := s.db.QueryRow(`SELECT id, started_at, dataset_rows, grid_rows, note FROM model_runs ORDER BY id DESC LIMIT 1`)
	var r models.ModelRun
	err := row.Scan(&r.ID, &r.StartedAt, &r.DatasetRows, &r.GridRows, &r.Note)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ReplaceObservations replaces the stored training dataset in one
// transaction, preserving row order.
func (s *Store) ReplaceObservations(obs []models.Observation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM observations`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear observations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations (subject_id, block_id, start_of_block, agesex, dry, yday, solar_hour, temp, wind, pressure, precip, windtemp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, o := range obs {
		if _, err := stmt.Exec(o.SubjectID, o.BlockID, o.StartOfBlock, string(o.AgeSex), o.Dry, o.Yday, o.SolarHour, o.Temp, o.Wind, o.Pressure, o.Precip, o.WindTemp); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

func (s *Store) GetObservations() ([]models.Observation, error) {
	rows, err := s.db.Query(`
		SELECT id, subject_id, block_id, start_of_block, agesex, dry, yday, solar_hour, temp, wind, pressure, precip, windtemp, created_at
		FROM observations
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []models.Observation
	for rows.Next() {
		var o models.Observation
		var agesex string
		if err := rows.Scan(&o.ID, &o.SubjectID, &o.BlockID, &o.StartOfBlock, &agesex, &o.Dry, &o.Yday, &o.SolarHour, &o.Temp, &o.Wind, &o.Pressure, &o.Precip, &o.WindTemp, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.AgeSex = models.AgeSex(agesex)
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// ReplaceGridRows persists the prediction grid for a run. The grid is
// append-only afterwards; prediction columns live in their own table.
func (s *Store) ReplaceGridRows(runID int64, grid []models.GridRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM grid_rows WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear grid: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO grid_rows (run_id, row_index, agesex, yday, hour, temp, wind, pressure, precip, windtemp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for i, g := range grid {
		if _, err := stmt.Exec(runID, i, string(g.AgeSex), g.Yday, g.Hour, g.Temp, g.Wind, g.Pressure, g.Precip, g.WindTemp); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("insert grid row %d: %w", i, err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

func (s *Store) GetGridRows(runID int64) ([]models.GridRow, error) {
	rows, err := s.db.Query(`
		SELECT agesex, yday, hour, temp, wind, pressure, precip, windtemp
		FROM grid_rows
		WHERE run_id = ?
		ORDER BY row_index ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grid []models.GridRow
	for rows.Next() {
		var g models.GridRow
		var agesex string
		if err := rows.Scan(&agesex, &g.Yday, &g.Hour, &g.Temp, &g.Wind, &g.Pressure, &g.Precip, &g.WindTemp); err != nil {
			return nil, err
		}
		g.AgeSex = models.AgeSex(agesex)
		g.Features = models.DeriveFeatures(g.Yday, g.Hour)
		grid = append(grid, g)
	}
	return grid, rows.Err()
}

func (s *Store) UpsertPredictions(runID int64, preds []models.Prediction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO predictions (run_id, path, row_index, logit, se, prob, lower95, upper95)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path, row_index) DO UPDATE SET
			logit = excluded.logit,
			se = excluded.se,
			prob = excluded.prob,
			lower95 = excluded.lower95,
			upper95 = excluded.upper95
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, p := range preds {
		if _, err := stmt.Exec(runID, p.Path, p.RowIndex, p.Logit, p.SE, p.Prob, p.Lower95, p.Upper95); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("upsert prediction %s/%d: %w", p.Path, p.RowIndex, err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

func (s *Store) GetPredictions(runID int64, path string) ([]models.Prediction, error) {
	rows, err := s.db.Query(`
		SELECT path, row_index, logit, se, prob, lower95, upper95
		FROM predictions
		WHERE run_id = ? AND path = ?
		ORDER BY row_index ASC
	`, runID, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.Path, &p.RowIndex, &p.Logit, &p.SE, &p.Prob, &p.Lower95, &p.Upper95); err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func (s *Store) UpsertCoefficients(runID int64, path string, coefs []models.Coefficient) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO coefficients (run_id, path, term, estimate, se)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path, term) DO UPDATE SET
			estimate = excluded.estimate,
			se = excluded.se
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, c := range coefs {
		se := sql.NullFloat64{Float64: c.SE, Valid: c.HasSE}
		if _, err := stmt.Exec(runID, path, c.Term, c.Estimate, se); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("upsert coefficient %s/%s: %w", path, c.Term, err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

func (s *Store) GetCoefficients(runID int64, path string) ([]models.Coefficient, error) {
	rows, err := s.db.Query(`
		SELECT term, estimate, se
		FROM coefficients
		WHERE run_id = ? AND path = ?
		ORDER BY term ASC
	`, runID, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coefs []models.Coefficient
	for rows.Next() {
		var c models.Coefficient
		var se sql.NullFloat64
		if err := rows.Scan(&c.Term, &c.Estimate, &se); err != nil {
			return nil, err
		}
		c.SE = se.Float64
		c.HasSE = se.Valid
		coefs = append(coefs, c)
	}
	return coefs, rows.Err()
}
