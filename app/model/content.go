package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content 用户上传的学习内容（文档、音频等）
type Content struct {
	ID               string     `json:"id" gorm:"primaryKey;size:36"`
	UserID           string     `json:"-" gorm:"index;not null"`
	Title            string     `json:"title" gorm:"not null"`
	Description      string     `json:"description"`
	ContentType      string     `json:"content_type"` // audio, video, pdf, document, image, text
	OriginalFilename string     `json:"original_filename"`
	Bucket           string     `json:"-"`
	ObjectKey        string     `json:"-"`
	ThumbnailKey     string     `json:"-"`
	MimeType         string     `json:"-"`
	SizeBytes        int64      `json:"size_bytes"`
	Processed        bool       `json:"processed" gorm:"default:false"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Content) TableName() string {
	return "contents"
}

// BeforeCreate 创建前生成 UUID
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// IsAudioVisual 是否为需要转写的音视频内容
func (c *Content) IsAudioVisual() bool {
	return c.ContentType == "audio" || c.ContentType == "video"
}

// ContentDetail 内容详情，附带转写和生成结果
type ContentDetail struct {
	Content
	Transcription     *Transcription     `json:"transcription,omitempty"`
	GeneratedContents []GeneratedContent `json:"generated_contents"`
}

// DetectFileType 根据文件扩展名推断内容类型
func DetectFileType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return "pdf"
	case ".doc", ".docx", ".rtf":
		return "document"
	case ".txt", ".md":
		return "text"
	case ".jpg", ".jpeg", ".png", ".gif":
		return "image"
	case ".mp4", ".avi", ".mov", ".mkv":
		return "video"
	case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
		return "audio"
	default:
		return "other"
	}
}
