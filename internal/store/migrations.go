package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Violations table - one row per emitted violation event
		`CREATE TABLE IF NOT EXISTS violations (
			id TEXT PRIMARY KEY,
			track_id TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'default',
			frame_number INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			violation_type TEXT NOT NULL,
			confidence REAL NOT NULL,
			frame_path TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for dashboard queries
		`CREATE INDEX IF NOT EXISTS idx_violations_created_at ON violations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_type ON violations(violation_type)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_source ON violations(source)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
