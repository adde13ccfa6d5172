package storage

import "time"

// User is a registered account. Conversion requests do not require one;
// RenderJob.UserID stays nil for anonymous renders.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"`
	Plan      string    `gorm:"size:40;default:free"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string { return "users" }

// RenderJob records one conversion request and its outcome.
type RenderJob struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           *uint  `gorm:"index"`
	Filename         string `gorm:"size:255;not null"`
	Status           string `gorm:"size:40;default:completed"`
	ConsentConfirmed bool
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (RenderJob) TableName() string { return "render_jobs" }

// Render job status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
