package db

import (
	"fmt"

	"jobtrack/internal/auth"
	"jobtrack/internal/catalog"
	"jobtrack/internal/jobs"
	"jobtrack/internal/tracking"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError: unique violations must surface as
	// gorm.ErrDuplicatedKey for the first-touch conflict recovery.
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&catalog.Job{},
		&tracking.TrackedApplication{},
		&tracking.StatusHistoryEntry{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	// One tracked application per (user, job). This index is the sole
	// serialization point for concurrent first-touch creation.
	if err := gdb.Exec(`create unique index if not exists uq_tracked_apps_user_job on tracked_applications(user_id, job_id);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_tracked_apps_user_status on tracked_applications(user_id, status);`,
		`create index if not exists idx_tracked_apps_user_updated on tracked_applications(user_id, updated_at desc);`,
		`create index if not exists idx_history_app_created on status_history_entries(tracked_application_id, created_at, id);`,
		`create index if not exists idx_tracked_apps_tags on tracked_applications using gin (custom_tags);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
