package models

import "time"

// Job statuses are written by the generation worker; the API only reads them.
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

type GenerationJob struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Status       string    `gorm:"type:enum('queued','processing','completed','failed');not null;default:'queued'" json:"status"`
	Prompt       string    `gorm:"type:text;not null" json:"prompt"`
	Model        string    `gorm:"size:100" json:"model"`
	Params       *string   `gorm:"type:text" json:"params,omitempty"`
	ResultURL    *string   `gorm:"type:text" json:"result_url,omitempty"`
	ThumbnailURL *string   `gorm:"type:text" json:"thumbnail_url,omitempty"`
	Metadata     *string   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
