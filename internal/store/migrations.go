package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per processed upload
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL DEFAULT '',
			primary_label TEXT NOT NULL,
			primary_confidence REAL NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			thumbnail BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Run boxes table - candidate boxes and accepted detections of a run
		`CREATE TABLE IF NOT EXISTS run_boxes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			kind TEXT NOT NULL CHECK(kind IN ('candidate', 'cluster', 'window')),
			label TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			x_min REAL NOT NULL,
			y_min REAL NOT NULL,
			x_max REAL NOT NULL,
			y_max REAL NOT NULL,
			seq INTEGER NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_run_boxes_run_id ON run_boxes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
