package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"trading-analytics-go/internal/models"
)

// ErrJobFinished is returned when a terminal job is asked to transition again.
var ErrJobFinished = errors.New("export job already finished")

// JobStore is the export job ledger.
type JobStore struct {
	db *gorm.DB
	mu sync.Mutex // serializes writers
}

// NewJobStore wraps a migrated database.
func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// Create appends a job to the ledger and fills in its row id.
func (s *JobStore) Create(ctx context.Context, job *models.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create export job %s: %w", job.JobID, err)
	}
	return nil
}

// Finish moves a job to a terminal status exactly once. The download URL is
// only written when the job does not have one yet.
func (s *JobStore) Finish(ctx context.Context, rowID uint, status models.JobStatus, message, downloadURL string) (*models.ExportJob, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("status %q is not terminal", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var job models.ExportJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&job, rowID).Error; err != nil {
			return err
		}
		if job.Status.Terminal() {
			return ErrJobFinished
		}

		updates := map[string]any{"status": status, "message": message}
		if job.DownloadURL == "" && downloadURL != "" {
			updates["download_url"] = downloadURL
		}
		if err := tx.Model(&job).Updates(updates).Error; err != nil {
			return err
		}
		job.Status = status
		job.Message = message
		if url, ok := updates["download_url"].(string); ok {
			job.DownloadURL = url
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finish export job %d: %w", rowID, err)
	}
	return &job, nil
}

// Get loads one job by row id.
func (s *JobStore) Get(ctx context.Context, rowID uint) (*models.ExportJob, error) {
	var job models.ExportJob
	if err := s.db.WithContext(ctx).First(&job, rowID).Error; err != nil {
		return nil, fmt.Errorf("failed to load export job %d: %w", rowID, err)
	}
	return &job, nil
}

// Recent lists the newest jobs first. A limit <= 0 returns all of them.
func (s *JobStore) Recent(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var jobs []models.ExportJob
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("row_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	return jobs, nil
}

// LastSuccess returns the newest successful job for a platform, or nil.
func (s *JobStore) LastSuccess(ctx context.Context, platform string) (*models.ExportJob, error) {
	var job models.ExportJob
	err := s.db.WithContext(ctx).
		Where("platform = ? AND status = ?", platform, models.JobSuccess).
		Order("created_at DESC").Order("row_id DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last %s export: %w", platform, err)
	}
	return &job, nil
}
