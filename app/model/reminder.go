package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 提醒优先级
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority 校验优先级
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Reminder 学习提醒
type Reminder struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	UserID      string     `json:"-" gorm:"index;not null"`
	ContentID   *string    `json:"content_id,omitempty"`
	Description string     `json:"description" gorm:"not null"`
	DueDate     time.Time  `json:"due_date" gorm:"index"`
	Priority    string     `json:"priority" gorm:"default:'medium'"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	NotifiedAt  *time.Time `json:"notified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Reminder) TableName() string {
	return "reminders"
}

// BeforeCreate 创建前生成 UUID
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
