package services

import (
	"errors"
	"fmt"
	"strings"

	"pixelmuse/models"

	"gorm.io/gorm"
)

const (
	// DefaultJobLimit applies when the client sends no limit.
	DefaultJobLimit = 20
	// MaxJobLimit caps any client-supplied limit.
	MaxJobLimit = 50
)

// StatusAll is the sentinel status filter meaning "no status filter".
const StatusAll = "all"

// JobQueryOptions is the closed set of filters the job list supports.
// Handlers build this struct from query parameters; nothing else is ever
// passed through to the query.
type JobQueryOptions struct {
	Limit  int
	Offset int
	Search string // case-insensitive substring match on prompt
	Status string // exact status, or "all"/"" for no filter
}

// Normalized returns the options with the limit defaulted and clamped and
// the offset floored. Handlers echo the normalized values in pagination
// metadata so the response never claims a page size the query didn't use.
func (o JobQueryOptions) Normalized() JobQueryOptions {
	if o.Limit < 1 {
		o.Limit = DefaultJobLimit
	}
	if o.Limit > MaxJobLimit {
		o.Limit = MaxJobLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	o.Search = strings.TrimSpace(o.Search)
	o.Status = strings.TrimSpace(o.Status)
	return o
}

// ListJobs returns the caller's generation jobs, newest first, with the
// total row count for pagination. Ownership scoping is unconditional: the
// user id comes from the session, never from the client.
func ListJobs(db *gorm.DB, userID uint, opts JobQueryOptions) ([]models.GenerationJob, int64, error) {
	opts = opts.Normalized()

	query := db.Model(&models.GenerationJob{}).Where("user_id = ?", userID)
	if opts.Search != "" {
		query = query.Where("LOWER(prompt) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}
	if opts.Status != "" && opts.Status != StatusAll {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	var jobs []models.GenerationJob
	if err := query.Order("created_at DESC, id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	return jobs, total, nil
}

// GetJob returns a single job only when it belongs to the caller. Missing
// and not-owned both come back as ErrNotFound so the existence of other
// users' jobs never leaks.
func GetJob(db *gorm.DB, userID, jobID uint) (*models.GenerationJob, error) {
	var job models.GenerationJob
	if err := db.Where("id = ? AND user_id = ?", jobID, userID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	return &job, nil
}
