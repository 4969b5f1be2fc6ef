package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus 异步任务状态
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal 是否为终止状态
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// TranscriptionSegment 转写片段
type TranscriptionSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription 音视频转写任务及结果
// 不变量：Text/Segments 仅在 completed 时存在，Error 仅在 failed 时存在
type Transcription struct {
	ID        string                 `json:"id" gorm:"primaryKey;size:36"`
	ContentID string                 `json:"content_id" gorm:"uniqueIndex;not null"`
	Status    JobStatus              `json:"status" gorm:"default:'pending';index"`
	Text      string                 `json:"text,omitempty"`
	Segments  []TranscriptionSegment `json:"segments" gorm:"serializer:json"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// TableName 指定表名
func (Transcription) TableName() string {
	return "transcriptions"
}

// BeforeCreate 创建前生成 UUID
func (t *Transcription) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
