package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
	"edusloth/app/metrics"
	"edusloth/app/model"
	"edusloth/app/storage"

	"github.com/ledongthuc/pdf"
	"github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
)

// maxChunkSize 单次请求的最大字符数（约 7000 token）
const maxChunkSize = 28000

const systemPrompt = "You are a helpful educational assistant."

// AIService AI 内容生成服务
type AIService struct {
	db      *gorm.DB
	storage *storage.Storage
	client  *openai.Client
	cfg     *config.OpenAIConfig
	log     *logger.Logger
}

// NewAIService 创建 AI 生成服务
func NewAIService(db *gorm.DB, st *storage.Storage, cfg *config.OpenAIConfig, log *logger.Logger) *AIService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &AIService{
		db:      db,
		storage: st,
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		log:     log,
	}
}

// GetAll 获取内容的全部生成结果
func (s *AIService) GetAll(contentID string) ([]model.GeneratedContent, error) {
	var list []model.GeneratedContent
	err := s.db.Where("content_id = ?", contentID).Find(&list).Error
	return list, err
}

// GetByType 获取内容的指定类型生成结果
func (s *AIService) GetByType(contentID, generationType string) (*model.GeneratedContent, error) {
	var g model.GeneratedContent
	if err := s.db.Where("content_id = ? AND type = ?", contentID, generationType).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// Start 创建生成任务并在后台执行；同类型已有记录时会重新生成
func (s *AIService) Start(content *model.Content, generationType string) (*model.GeneratedContent, error) {
	// 移除同类型旧记录（重新生成）
	if err := s.db.Where("content_id = ? AND type = ?", content.ID, generationType).
		Delete(&model.GeneratedContent{}).Error; err != nil {
		return nil, fmt.Errorf("清理旧生成记录失败: %w", err)
	}

	g := &model.GeneratedContent{
		ContentID: content.ID,
		Type:      generationType,
		Status:    model.JobStatusPending,
	}
	if err := s.db.Create(g).Error; err != nil {
		return nil, fmt.Errorf("创建生成记录失败: %w", err)
	}

	go s.process(content, g)

	return g, nil
}

// process 执行生成任务（后台协程）
func (s *AIService) process(content *model.Content, g *model.GeneratedContent) {
	start := time.Now()
	s.log.Infof("🔄 开始生成任务: content=%s type=%s", content.ID, g.Type)

	s.db.Model(g).Update("status", model.JobStatusProcessing)

	ctx := context.Background()

	text, err := s.sourceText(ctx, content)
	if err != nil {
		s.fail(g, err)
		metrics.RecordJob("generation", string(model.JobStatusFailed), time.Since(start))
		return
	}

	updates := map[string]interface{}{"status": model.JobStatusCompleted}

	switch g.Type {
	case model.GenerationSummary:
		summary, genErr := s.generateSummary(ctx, text)
		if genErr != nil {
			err = genErr
		} else {
			updates["summary"] = summary
		}
	case model.GenerationFlashcards:
		cards, genErr := s.generateFlashcards(ctx, text)
		if genErr != nil {
			err = genErr
		} else {
			updates["flashcards"] = cards
		}
	case model.GenerationQuiz:
		quiz, genErr := s.generateQuiz(ctx, text)
		if genErr != nil {
			err = genErr
		} else {
			updates["quiz"] = quiz
		}
	case model.GenerationMindmap:
		mindmap, genErr := s.generateMindmap(ctx, text)
		if genErr != nil {
			err = genErr
		} else {
			updates["mindmap"] = mindmap
		}
	default:
		err = fmt.Errorf("无效的生成类型: %s", g.Type)
	}

	if err != nil {
		s.fail(g, err)
		metrics.RecordJob("generation", string(model.JobStatusFailed), time.Since(start))
		return
	}

	if err := s.db.Model(g).Updates(updates).Error; err != nil {
		s.log.Errorf("更新生成记录失败: %v", err)
		return
	}

	// 标记内容已处理
	s.db.Model(&model.Content{}).Where("id = ?", content.ID).Update("processed", true)

	// 生成结果存档到 AI 桶
	s.archive(ctx, content, g)

	metrics.RecordJob("generation", string(model.JobStatusCompleted), time.Since(start))
	s.log.Infof("✅ 生成完成: content=%s type=%s 耗时=%v", content.ID, g.Type, time.Since(start))
}

// archive 生成结果以 JSON 形式存档
func (s *AIService) archive(ctx context.Context, content *model.Content, g *model.GeneratedContent) {
	var fresh model.GeneratedContent
	if err := s.db.First(&fresh, "id = ?", g.ID).Error; err != nil {
		return
	}
	data, err := json.Marshal(&fresh)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s/%s/%s.json", content.UserID, content.ID, g.Type)
	if err := s.storage.Upload(ctx, s.storage.AIBucket(), key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		s.log.Warnf("生成结果存档失败: %v", err)
	}
}

// sourceText 获取生成所需的源文本
func (s *AIService) sourceText(ctx context.Context, content *model.Content) (string, error) {
	if content.IsAudioVisual() {
		// 音视频使用转写文本
		var t model.Transcription
		if err := s.db.Where("content_id = ?", content.ID).First(&t).Error; err != nil || t.Status != model.JobStatusCompleted || t.Text == "" {
			return "", fmt.Errorf("该内容尚无可用转写文本")
		}
		return t.Text, nil
	}

	obj, err := s.storage.Download(ctx, content.Bucket, content.ObjectKey)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	switch content.ContentType {
	case "pdf":
		return extractPDFText(obj)
	case "text", "document":
		data, err := io.ReadAll(obj)
		if err != nil {
			return "", fmt.Errorf("读取文本内容失败: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("不支持的内容类型: %s", content.ContentType)
	}
}

// extractPDFText 提取 PDF 纯文本
func extractPDFText(r io.Reader) (string, error) {
	// pdf 库需要 ReaderAt，先落到临时文件
	tmp, err := os.CreateTemp("", "edusloth-*.pdf")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return "", fmt.Errorf("写入临时文件失败: %w", err)
	}

	reader, err := pdf.NewReader(tmp, size)
	if err != nil {
		return "", fmt.Errorf("解析 PDF 失败: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("提取 PDF 文本失败: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("读取 PDF 文本失败: %w", err)
	}

	text := buf.String()
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return "", fmt.Errorf("PDF 内容为空或无法提取文本")
	}
	return text, nil
}

// fail 标记任务失败
func (s *AIService) fail(g *model.GeneratedContent, err error) {
	s.log.Errorf("❌ 生成失败: content=%s type=%s 错误: %v", g.ContentID, g.Type, err)
	s.db.Model(g).Updates(map[string]interface{}{
		"status": model.JobStatusFailed,
		"error":  err.Error(),
	})
}
