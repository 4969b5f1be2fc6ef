package handler

import (
	"errors"
	"net/http"

	"edusloth/app/middleware"
	"edusloth/app/model"
	"edusloth/app/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TranscriptionHandler 转写处理器
type TranscriptionHandler struct {
	contents       *service.ContentService
	transcriptions *service.TranscriptionService
}

// NewTranscriptionHandler 创建转写处理器
func NewTranscriptionHandler(contents *service.ContentService, transcriptions *service.TranscriptionService) *TranscriptionHandler {
	return &TranscriptionHandler{contents: contents, transcriptions: transcriptions}
}

// Start 启动转写任务
func (h *TranscriptionHandler) Start(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")

	content, err := h.contents.Get(contentID, userID)
	if err != nil {
		fail(c, http.StatusNotFound, 404, "内容不存在")
		return
	}

	if !content.IsAudioVisual() {
		fail(c, http.StatusBadRequest, 400, "只有音频或视频内容可以转写")
		return
	}

	// 已完成的转写不允许重复发起
	if existing, err := h.transcriptions.GetByContent(contentID); err == nil && existing.Status == model.JobStatusCompleted {
		fail(c, http.StatusBadRequest, 400, "该内容已有完成的转写")
		return
	} else if err == nil {
		// 存在未完成的旧记录，先删除再重新发起
		if existing.Status == model.JobStatusFailed {
			h.transcriptions.DeleteByContent(contentID)
		} else {
			fail(c, http.StatusConflict, 409, "转写任务正在进行中")
			return
		}
	}

	if _, err := h.transcriptions.Start(content); err != nil {
		fail(c, http.StatusInternalServerError, 500, "启动转写失败")
		return
	}

	success(c, nil, "转写已启动")
}

// Get 获取转写状态与结果
func (h *TranscriptionHandler) Get(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")

	if _, err := h.contents.Get(contentID, userID); err != nil {
		fail(c, http.StatusNotFound, 404, "内容不存在")
		return
	}

	t, err := h.transcriptions.GetByContent(contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "转写不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询转写失败")
		return
	}

	success(c, t, "success")
}
