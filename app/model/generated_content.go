package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 生成类型
const (
	GenerationSummary    = "summary"
	GenerationFlashcards = "flashcards"
	GenerationQuiz       = "quiz"
	GenerationMindmap    = "mindmap"
)

// ValidGenerationType 校验生成类型
func ValidGenerationType(t string) bool {
	switch t {
	case GenerationSummary, GenerationFlashcards, GenerationQuiz, GenerationMindmap:
		return true
	}
	return false
}

// Flashcard 闪卡
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizQuestion 测验题
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation,omitempty"`
}

// MindMapNode 思维导图节点
type MindMapNode struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Children []string `json:"children"`
}

// GeneratedContent AI 生成任务及结果，按 (content_id, type) 唯一
// 不变量：结果字段仅在 completed 时存在，Error 仅在 failed 时存在
type GeneratedContent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ContentID string    `json:"content_id" gorm:"index:idx_generated_content_type,unique;not null"`
	Type      string    `json:"type" gorm:"index:idx_generated_content_type,unique;not null"`
	Status    JobStatus `json:"status" gorm:"default:'pending';index"`

	Summary    string                 `json:"summary,omitempty"`
	Flashcards []Flashcard            `json:"flashcards,omitempty" gorm:"serializer:json"`
	Quiz       []QuizQuestion         `json:"quiz,omitempty" gorm:"serializer:json"`
	Mindmap    map[string]MindMapNode `json:"mindmap,omitempty" gorm:"serializer:json"`

	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (GeneratedContent) TableName() string {
	return "generated_contents"
}

// BeforeCreate 创建前生成 UUID
func (g *GeneratedContent) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}
