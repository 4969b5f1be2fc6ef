package handler

import (
	"errors"
	"fmt"
	"net/http"

	"edusloth/app/middleware"
	"edusloth/app/model"
	"edusloth/app/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AIGenerationHandler AI 生成处理器
type AIGenerationHandler struct {
	contents       *service.ContentService
	transcriptions *service.TranscriptionService
	ai             *service.AIService
}

// NewAIGenerationHandler 创建 AI 生成处理器
func NewAIGenerationHandler(contents *service.ContentService, transcriptions *service.TranscriptionService, ai *service.AIService) *AIGenerationHandler {
	return &AIGenerationHandler{contents: contents, transcriptions: transcriptions, ai: ai}
}

// Start 启动生成任务（type ∈ summary|flashcards|quiz|mindmap）
func (h *AIGenerationHandler) Start(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")
	generationType := c.Param("type")

	content, err := h.contents.Get(contentID, userID)
	if err != nil {
		fail(c, http.StatusNotFound, 404, "内容不存在")
		return
	}

	if !model.ValidGenerationType(generationType) {
		fail(c, http.StatusBadRequest, 400, "无效的生成类型，可选: summary, flashcards, quiz, mindmap")
		return
	}

	// 音视频内容需要先完成转写
	if content.IsAudioVisual() {
		t, err := h.transcriptions.GetByContent(contentID)
		if err != nil || t.Status != model.JobStatusCompleted {
			fail(c, http.StatusBadRequest, 400, "生成前需要先完成转写")
			return
		}
	}

	if _, err := h.ai.Start(content, generationType); err != nil {
		fail(c, http.StatusInternalServerError, 500, "启动生成失败")
		return
	}

	success(c, nil, fmt.Sprintf("%s 生成已启动", generationType))
}

// GetAll 获取内容的全部生成结果
func (h *AIGenerationHandler) GetAll(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")

	if _, err := h.contents.Get(contentID, userID); err != nil {
		fail(c, http.StatusNotFound, 404, "内容不存在")
		return
	}

	list, err := h.ai.GetAll(contentID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询生成结果失败")
		return
	}

	success(c, list, "success")
}

// GetByType 获取指定类型的生成结果
func (h *AIGenerationHandler) GetByType(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")
	generationType := c.Param("type")

	if _, err := h.contents.Get(contentID, userID); err != nil {
		fail(c, http.StatusNotFound, 404, "内容不存在")
		return
	}

	if !model.ValidGenerationType(generationType) {
		fail(c, http.StatusBadRequest, 400, "无效的生成类型，可选: summary, flashcards, quiz, mindmap")
		return
	}

	g, err := h.ai.GetByType(contentID, generationType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, fmt.Sprintf("该内容没有 %s 生成结果", generationType))
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询生成结果失败")
		return
	}

	success(c, g, "success")
}

// MindmapImage 把思维导图渲染为 PNG 返回
func (h *AIGenerationHandler) MindmapImage(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")

	if _, err := h.contents.Get(contentID, userID); err != nil {
		fail(c, http.StatusNotFound, 404, "内容不存在")
		return
	}

	g, err := h.ai.GetByType(contentID, model.GenerationMindmap)
	if err != nil || g.Status != model.JobStatusCompleted || len(g.Mindmap) == 0 {
		fail(c, http.StatusNotFound, 404, "该内容没有完成的思维导图")
		return
	}

	img, err := service.RenderMindmapPNG(g.Mindmap)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "渲染思维导图失败")
		return
	}

	c.Data(http.StatusOK, "image/png", img)
}
