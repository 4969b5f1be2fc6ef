package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
	"edusloth/app/metrics"
	"edusloth/app/model"
	"edusloth/app/storage"

	"github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
)

// TranscriptionService 音视频转写服务
type TranscriptionService struct {
	db      *gorm.DB
	storage *storage.Storage
	client  *openai.Client
	cfg     *config.OpenAIConfig
	log     *logger.Logger
}

// NewTranscriptionService 创建转写服务
func NewTranscriptionService(db *gorm.DB, st *storage.Storage, cfg *config.OpenAIConfig, log *logger.Logger) *TranscriptionService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &TranscriptionService{
		db:      db,
		storage: st,
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		log:     log,
	}
}

// GetByContent 按内容 ID 获取转写记录
func (s *TranscriptionService) GetByContent(contentID string) (*model.Transcription, error) {
	var t model.Transcription
	if err := s.db.Where("content_id = ?", contentID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteByContent 删除内容的转写记录
func (s *TranscriptionService) DeleteByContent(contentID string) error {
	return s.db.Where("content_id = ?", contentID).Delete(&model.Transcription{}).Error
}

// Start 创建转写任务并在后台执行
func (s *TranscriptionService) Start(content *model.Content) (*model.Transcription, error) {
	t := &model.Transcription{
		ContentID: content.ID,
		Status:    model.JobStatusPending,
	}
	if err := s.db.Create(t).Error; err != nil {
		return nil, fmt.Errorf("创建转写记录失败: %w", err)
	}

	go s.process(content, t)

	return t, nil
}

// process 执行转写任务（后台协程）
func (s *TranscriptionService) process(content *model.Content, t *model.Transcription) {
	start := time.Now()
	s.log.Infof("🔄 开始转写任务: content=%s", content.ID)

	s.db.Model(t).Update("status", model.JobStatusProcessing)

	text, segments, err := s.transcribe(context.Background(), content)
	if err != nil {
		s.fail(t, err)
		metrics.RecordJob("transcription", string(model.JobStatusFailed), time.Since(start))
		return
	}

	updates := map[string]interface{}{
		"status":   model.JobStatusCompleted,
		"text":     text,
		"segments": segments,
	}
	if err := s.db.Model(t).Updates(updates).Error; err != nil {
		s.log.Errorf("更新转写记录失败: %v", err)
		return
	}

	// 标记内容已处理
	s.db.Model(&model.Content{}).Where("id = ?", content.ID).Update("processed", true)

	// 转写文本存档到转写桶
	key := fmt.Sprintf("%s/%s.txt", content.UserID, content.ID)
	reader := strings.NewReader(text)
	if err := s.storage.Upload(context.Background(), s.storage.TranscriptionBucket(), key, reader, int64(len(text)), "text/plain"); err != nil {
		s.log.Warnf("转写结果存档失败: %v", err)
	}

	metrics.RecordJob("transcription", string(model.JobStatusCompleted), time.Since(start))
	s.log.Infof("✅ 转写完成: content=%s 片段数=%d 耗时=%v", content.ID, len(segments), time.Since(start))
}

// transcribe 下载音频并调用 Whisper
func (s *TranscriptionService) transcribe(ctx context.Context, content *model.Content) (string, []model.TranscriptionSegment, error) {
	obj, err := s.storage.Download(ctx, content.Bucket, content.ObjectKey)
	if err != nil {
		return "", nil, err
	}
	defer obj.Close()

	// Whisper 需要文件路径，先落到临时文件
	tmp, err := os.CreateTemp("", "edusloth-audio-*"+filepath.Ext(content.ObjectKey))
	if err != nil {
		return "", nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		return "", nil, fmt.Errorf("写入临时文件失败: %w", err)
	}
	tmp.Close()

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.WhisperModel,
		FilePath: tmp.Name(),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", nil, fmt.Errorf("Whisper 转写失败: %w", err)
	}

	segments := make([]model.TranscriptionSegment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, model.TranscriptionSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	return resp.Text, segments, nil
}

// fail 标记任务失败
func (s *TranscriptionService) fail(t *model.Transcription, err error) {
	s.log.Errorf("❌ 转写失败: content=%s 错误: %v", t.ContentID, err)
	s.db.Model(t).Updates(map[string]interface{}{
		"status": model.JobStatusFailed,
		"error":  err.Error(),
	})
}
