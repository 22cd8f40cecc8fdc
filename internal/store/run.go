package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// DefaultListLimit is the number of runs returned by List when no limit is given.
const DefaultListLimit = 50

// BoxKind identifies where a stored box came from.
type BoxKind string

const (
	// BoxKindCandidate is a box proposed by keypoint clustering.
	BoxKindCandidate BoxKind = "candidate"
	// BoxKindCluster is a detection accepted by the cluster pass.
	BoxKindCluster BoxKind = "cluster"
	// BoxKindWindow is a detection accepted by the sliding window pass.
	BoxKindWindow BoxKind = "window"
)

// RunBox is one box recorded for a run.
type RunBox struct {
	Kind       BoxKind `json:"kind"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	XMin       float64 `json:"x_min"`
	YMin       float64 `json:"y_min"`
	XMax       float64 `json:"x_max"`
	YMax       float64 `json:"y_max"`
}

// Run is a processed upload and its outcome.
type Run struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	PrimaryLabel      string    `json:"primary_label"`
	PrimaryConfidence float64   `json:"primary_confidence"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	Thumbnail         []byte    `json:"-"`
	Boxes             []RunBox  `json:"boxes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// BoxesOf returns the boxes of the given kind in their recorded order.
func (r *Run) BoxesOf(kind BoxKind) []RunBox {
	var boxes []RunBox
	for _, b := range r.Boxes {
		if b.Kind == kind {
			boxes = append(boxes, b)
		}
	}
	return boxes
}

// RunRepository provides operations on stored runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a run and all of its boxes in a single transaction.
func (r *RunRepository) Create(run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, filename, primary_label, primary_confidence, width, height, thumbnail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Filename, run.PrimaryLabel, run.PrimaryConfidence, run.Width, run.Height, run.Thumbnail, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_boxes (run_id, kind, label, confidence, x_min, y_min, x_max, y_max, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare box insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range run.Boxes {
		if _, err := stmt.Exec(run.ID, string(b.Kind), b.Label, b.Confidence, b.XMin, b.YMin, b.XMax, b.YMax, i); err != nil {
			return fmt.Errorf("insert box %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a run and its boxes by ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}
	err := r.db.QueryRow(
		`SELECT id, filename, primary_label, primary_confidence, width, height, created_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Filename, &run.PrimaryLabel, &run.PrimaryConfidence, &run.Width, &run.Height, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT kind, label, confidence, x_min, y_min, x_max, y_max
		 FROM run_boxes WHERE run_id = ? ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b RunBox
		var kind string
		if err := rows.Scan(&kind, &b.Label, &b.Confidence, &b.XMin, &b.YMin, &b.XMax, &b.YMax); err != nil {
			return nil, err
		}
		b.Kind = BoxKind(kind)
		run.Boxes = append(run.Boxes, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return run, nil
}

// List retrieves the most recent runs, newest first, without their boxes.
// A non-positive limit uses DefaultListLimit.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT id, filename, primary_label, primary_confidence, width, height, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Filename, &run.PrimaryLabel, &run.PrimaryConfidence, &run.Width, &run.Height, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Thumbnail returns the stored thumbnail of a run.
func (r *RunRepository) Thumbnail(id string) ([]byte, error) {
	var thumb []byte
	err := r.db.QueryRow(`SELECT thumbnail FROM runs WHERE id = ?`, id).Scan(&thumb)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(thumb) == 0 {
		return nil, ErrNotFound
	}
	return thumb, nil
}

// Delete removes a run and its boxes by ID.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
