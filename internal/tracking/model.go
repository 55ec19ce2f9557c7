package tracking

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"jobtrack/internal/catalog"

	"github.com/lib/pq"
)

// TrackedApplication links one user to one job posting and carries its
// pipeline state. Exactly one row may exist per (user_id, job_id); the
// unique index created in db.AutoMigrateAndIndexes is the only guard.
type TrackedApplication struct {
	ID     uint64 `gorm:"primaryKey" json:"id"`
	UserID uint64 `gorm:"index;not null" json:"user_id"`
	JobID  uint64 `gorm:"index;not null" json:"job_id"`

	Job *catalog.Job `gorm:"foreignKey:JobID" json:"job,omitempty"`

	Status     Status `gorm:"type:text;not null;default:'new'" json:"status"`
	IsFavorite bool   `gorm:"not null;default:false" json:"is_favorite"`

	CustomTags pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"custom_tags"`
	Notes      string         `gorm:"type:text;not null;default:''" json:"notes"`

	// NextSteps holds pending task descriptions; a task is done once removed.
	NextSteps pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"next_steps"`

	// InterviewDates is ordered; round number = position + 1.
	InterviewDates TimeList `gorm:"type:jsonb;not null;default:'[]'::jsonb" json:"interview_dates"`

	ReminderDate *time.Time `gorm:"type:timestamptz" json:"reminder_date"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// StatusHistoryEntry is append-only. PreviousStatus is the empty string on
// the first-touch entry only.
type StatusHistoryEntry struct {
	ID                   uint64    `gorm:"primaryKey" json:"id"`
	TrackedApplicationID uint64    `gorm:"index;not null" json:"tracked_application_id"`
	PreviousStatus       Status    `gorm:"type:text;not null;default:''" json:"previous_status"`
	NewStatus            Status    `gorm:"type:text;not null" json:"new_status"`
	Notes                string    `gorm:"type:text;not null;default:''" json:"notes"`
	UpdatedBy            uint64    `gorm:"not null" json:"updated_by"`
	CreatedAt            time.Time `gorm:"not null;default:now()" json:"created_at"`
}

// TimeList stores an ordered timestamp sequence as a jsonb array.
type TimeList []time.Time

func (l TimeList) Value() (driver.Value, error) {
	if l == nil {
		l = TimeList{}
	}
	return json.Marshal(l)
}

func (l *TimeList) Scan(src any) error {
	if src == nil {
		*l = TimeList{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported interview_dates type %T", src)
	}
	return json.Unmarshal(b, l)
}
