package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("job not found")

type Service struct {
	DB *gorm.DB
}

type UpsertInput struct {
	Title       string
	Company     string
	Location    string
	JobType     string
	SourceID    string
	Platform    string
	Deadline    *time.Time
	Salary      string
	Description string
}

// Upsert creates a job or refreshes the existing (source_id, platform) row.
// Ingestion may deliver the same posting more than once; the composite
// unique index plus the conflict fallback keeps it a single row.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*Job, error) {
	j := Job{
		Title:       in.Title,
		Company:     in.Company,
		Location:    in.Location,
		JobType:     in.JobType,
		SourceID:    in.SourceID,
		Platform:    in.Platform,
		Deadline:    in.Deadline,
		Salary:      in.Salary,
		Description: in.Description,
	}

	err := s.DB.WithContext(ctx).Create(&j).Error
	if err == nil {
		return &j, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	var existing Job
	if err := s.DB.WithContext(ctx).
		Where("source_id = ? AND platform = ?", in.SourceID, in.Platform).
		First(&existing).Error; err != nil {
		return nil, err
	}

	existing.Title = in.Title
	existing.Company = in.Company
	existing.Location = in.Location
	existing.JobType = in.JobType
	existing.Deadline = in.Deadline
	existing.Salary = in.Salary
	existing.Description = in.Description

	if err := s.DB.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (*Job, error) {
	var j Job
	if err := s.DB.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}
