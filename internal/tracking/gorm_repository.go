package tracking

import (
	"context"
	"errors"

	"jobtrack/internal/catalog"

	"gorm.io/gorm"
)

// GormRepository is the postgres-backed Repository. Requires the connection
// to be opened with TranslateError so unique violations arrive as
// gorm.ErrDuplicatedKey.
type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

func (r *GormRepository) Create(ctx context.Context, app *TrackedApplication) error {
	if err := r.DB.WithContext(ctx).Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *GormRepository) GetByUserAndJob(ctx context.Context, userID, jobID uint64) (*TrackedApplication, error) {
	var app TrackedApplication
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *GormRepository) GetByID(ctx context.Context, userID, id uint64) (*TrackedApplication, error) {
	var app TrackedApplication
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *GormRepository) GetResolved(ctx context.Context, userID, jobID uint64) (*TrackedApplication, error) {
	var app TrackedApplication
	err := r.DB.WithContext(ctx).
		Preload("Job").
		Where("user_id = ? AND job_id = ?", userID, jobID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id uint64, status Status) error {
	return r.DB.WithContext(ctx).
		Model(&TrackedApplication{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": gorm.Expr("now()")}).Error
}

func (r *GormRepository) Save(ctx context.Context, app *TrackedApplication) error {
	return r.DB.WithContext(ctx).Save(app).Error
}

// Delete cascades to history in the same transaction (cascade, not tombstone).
func (r *GormRepository) Delete(ctx context.Context, userID, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&TrackedApplication{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("tracked_application_id = ?", id).Delete(&StatusHistoryEntry{}).Error
	})
}

func (r *GormRepository) AppendHistory(ctx context.Context, entry *StatusHistoryEntry) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

func (r *GormRepository) History(ctx context.Context, trackedApplicationID uint64) ([]StatusHistoryEntry, error) {
	var entries []StatusHistoryEntry
	err := r.DB.WithContext(ctx).
		Where("tracked_application_id = ?", trackedApplicationID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}

func (r *GormRepository) CountByStatus(ctx context.Context, userID uint64) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	err := r.DB.WithContext(ctx).
		Model(&TrackedApplication{}).
		Select("status, count(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[Status]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *GormRepository) JobExists(ctx context.Context, jobID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&catalog.Job{}).Where("id = ?", jobID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
