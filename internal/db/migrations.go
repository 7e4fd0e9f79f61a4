package db

import (
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *DB) error {
	if err := db.AutoMigrate(&Book{}, &User{}, &Account{}, &Session{}); err != nil {
		return err
	}

	if db.Dialector.Name() == "postgres" {
		if err := createIndexes(db.DB); err != nil {
			return err
		}
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// List orders by creation time with id as tie breaker
		`CREATE INDEX IF NOT EXISTS idx_books_created_at_id ON books(created_at, id)`,

		// Session lookups always filter on expiry
		`CREATE INDEX IF NOT EXISTS idx_sessions_live ON sessions(id, expires_at)`,
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}
