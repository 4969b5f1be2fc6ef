package service

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"strings"

	"edusloth/app/logger"
	"edusloth/app/model"
	"edusloth/app/storage"

	"github.com/disintegration/imaging"
	"gorm.io/gorm"
)

// thumbnailMaxSize 缩略图最长边像素
const thumbnailMaxSize = 320

// ContentService 学习内容服务
type ContentService struct {
	db      *gorm.DB
	storage *storage.Storage
	log     *logger.Logger
}

// NewContentService 创建内容服务
func NewContentService(db *gorm.DB, st *storage.Storage, log *logger.Logger) *ContentService {
	return &ContentService{db: db, storage: st, log: log}
}

// Create 上传内容：写入对象存储并创建记录
func (s *ContentService) Create(ctx context.Context, userID, title, description, contentType, filename, mimeType string, data []byte) (*model.Content, error) {
	fileType := contentType
	if fileType == "" {
		fileType = model.DetectFileType(filename)
	}

	bucket := s.storage.BucketFor(fileType)
	key := storage.ObjectKey(userID, fileType, filename)

	if err := s.storage.Upload(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return nil, err
	}

	content := &model.Content{
		UserID:           userID,
		Title:            title,
		Description:      description,
		ContentType:      fileType,
		OriginalFilename: filename,
		Bucket:           bucket,
		ObjectKey:        key,
		MimeType:         mimeType,
		SizeBytes:        int64(len(data)),
	}

	// 图片内容生成缩略图
	if fileType == "image" {
		thumbKey, err := s.uploadThumbnail(ctx, bucket, key, data)
		if err != nil {
			s.log.Warnf("生成缩略图失败: %v", err)
		} else {
			content.ThumbnailKey = thumbKey
		}
	}

	if err := s.db.Create(content).Error; err != nil {
		// 记录写入失败时回收已上传对象
		if rmErr := s.storage.Remove(ctx, bucket, key); rmErr != nil {
			s.log.Warnf("回收对象失败: %v", rmErr)
		}
		return nil, fmt.Errorf("创建内容记录失败: %w", err)
	}

	s.log.Infof("内容上传成功: id=%s type=%s size=%d", content.ID, fileType, len(data))
	return content, nil
}

// uploadThumbnail 生成并上传缩略图
func (s *ContentService) uploadThumbnail(ctx context.Context, bucket, key string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("解码图片失败: %w", err)
	}

	thumb := imaging.Fit(img, thumbnailMaxSize, thumbnailMaxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("编码缩略图失败: %w", err)
	}

	thumbKey := strings.TrimSuffix(key, "."+lastExt(key)) + "_thumb.jpg"
	if err := s.storage.Upload(ctx, bucket, thumbKey, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbKey, nil
}

func lastExt(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return ""
}

// Get 按 ID 获取内容（校验归属）
func (s *ContentService) Get(id, userID string) (*model.Content, error) {
	var content model.Content
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&content).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

// List 列出用户内容
func (s *ContentService) List(userID string, skip, limit int) ([]model.Content, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var contents []model.Content
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&contents).Error
	return contents, err
}

// Detail 获取内容详情（附带转写与生成结果）
func (s *ContentService) Detail(id, userID string) (*model.ContentDetail, error) {
	content, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	detail := &model.ContentDetail{
		Content:           *content,
		GeneratedContents: []model.GeneratedContent{},
	}

	var transcription model.Transcription
	if err := s.db.Where("content_id = ?", id).First(&transcription).Error; err == nil {
		detail.Transcription = &transcription
	}

	if err := s.db.Where("content_id = ?", id).Find(&detail.GeneratedContents).Error; err != nil {
		return nil, err
	}

	return detail, nil
}

// DownloadURL 生成内容的预签名下载链接
func (s *ContentService) DownloadURL(ctx context.Context, content *model.Content) (string, error) {
	return s.storage.PresignedURL(ctx, content.Bucket, content.ObjectKey)
}

// Delete 删除内容及其关联的转写、生成结果和对象
func (s *ContentService) Delete(ctx context.Context, id, userID string) error {
	content, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	if err := s.storage.Remove(ctx, content.Bucket, content.ObjectKey); err != nil {
		s.log.Warnf("删除对象失败: %v", err)
	}
	if content.ThumbnailKey != "" {
		if err := s.storage.Remove(ctx, content.Bucket, content.ThumbnailKey); err != nil {
			s.log.Warnf("删除缩略图失败: %v", err)
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", id).Delete(&model.Transcription{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", id).Delete(&model.GeneratedContent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Content{}, "id = ?", id).Error
	})
}
