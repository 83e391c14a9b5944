package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One registration calibration per sensor unit and resolution pairing.
		`CREATE TABLE IF NOT EXISTS calibration_profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color_width INTEGER NOT NULL CHECK(color_width > 0),
			color_height INTEGER NOT NULL CHECK(color_height > 0),
			depth_width INTEGER NOT NULL CHECK(depth_width > 0),
			depth_height INTEGER NOT NULL CHECK(depth_height > 0),
			offset_x INTEGER NOT NULL DEFAULT 0,
			offset_y INTEGER NOT NULL DEFAULT 0,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_calibration_profiles_geometry
			ON calibration_profiles(color_width, color_height, depth_width, depth_height)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
