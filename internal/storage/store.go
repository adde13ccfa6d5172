// Package storage persists users and render jobs in SQLite through gorm.
package storage

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voiceforge/voiceforge/internal/platform/errors"
)

// Store wraps the job database.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at path and migrates the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "opening database", err)
	}

	if err := db.AutoMigrate(&User{}, &RenderJob{}); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.migrate", "migrating schema", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateRenderJob inserts a job row and fills its generated fields.
func (s *Store) CreateRenderJob(job *RenderJob) error {
	if job.Status == "" {
		job.Status = StatusCompleted
	}
	if err := s.db.Create(job).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "job.create", "inserting render job", err)
	}
	return nil
}

// CreateUser inserts a user row.
func (s *Store) CreateUser(user *User) error {
	if user.Plan == "" {
		user.Plan = "free"
	}
	if err := s.db.Create(user).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "user.create", "inserting user", err)
	}
	return nil
}

// RecentJobs returns up to limit jobs, newest first.
func (s *Store) RecentJobs(limit int) ([]RenderJob, error) {
	var jobs []RenderJob
	err := s.db.Order("id DESC").Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "job.list", "listing render jobs", err)
	}
	return jobs, nil
}
