package catalog

import "time"

// Job describes a posting. Rows are owned by the ingestion path; the
// tracking core only references them by id.
type Job struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	Title    string `gorm:"not null" json:"title"`
	Company  string `gorm:"not null" json:"company"`
	Location string `gorm:"not null;default:''" json:"location"`
	JobType  string `gorm:"not null;default:''" json:"job_type"`

	// Same posting from the same platform must not be duplicated.
	SourceID string `gorm:"not null;uniqueIndex:uq_jobs_source_platform" json:"source_id"`
	Platform string `gorm:"not null;uniqueIndex:uq_jobs_source_platform" json:"platform"`

	Deadline    *time.Time `gorm:"type:timestamptz" json:"deadline"`
	Salary      string     `gorm:"not null;default:''" json:"salary"`
	Description string     `gorm:"type:text;not null;default:''" json:"description"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// TableName keeps postings clear of the worker queue's jobs table.
func (Job) TableName() string { return "job_postings" }
