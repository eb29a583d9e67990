package reference

import "fmt"

// migrate создает таблицы справочников, если их еще нет.
func (b *Books) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scac_codes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			company_name TEXT NOT NULL,
			country TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL UNIQUE,
			state TEXT,
			pins TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cities_name_key ON cities(name_key)`,
		`CREATE TABLE IF NOT EXISTS hs_codes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := b.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply reference schema: %w", err)
		}
	}
	return nil
}
