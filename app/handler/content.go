package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"edusloth/app/config"
	"edusloth/app/middleware"
	"edusloth/app/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ContentHandler 学习内容处理器
type ContentHandler struct {
	cfg      *config.Config
	contents *service.ContentService
}

// NewContentHandler 创建内容处理器
func NewContentHandler(cfg *config.Config, contents *service.ContentService) *ContentHandler {
	return &ContentHandler{cfg: cfg, contents: contents}
}

// Upload 上传内容文件（multipart：title、description、content_type、file）
func (h *ContentHandler) Upload(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	title := c.PostForm("title")
	if title == "" {
		fail(c, http.StatusBadRequest, 400, "title 不能为空")
		return
	}
	description := c.PostForm("description")
	contentType := c.PostForm("content_type")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "缺少上传文件: "+err.Error())
		return
	}

	if fileHeader.Size > h.cfg.Server.MaxUploadSize {
		fail(c, http.StatusRequestEntityTooLarge, 413, "文件过大（上限 100MB）")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "打开上传文件失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "读取上传文件失败")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")

	content, err := h.contents.Create(c.Request.Context(), userID, title, description, contentType, fileHeader.Filename, mimeType, data)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "上传内容失败")
		return
	}

	success(c, content, "上传成功")
}

// List 列出当前用户内容
func (h *ContentHandler) List(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	contents, err := h.contents.List(userID, skip, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询内容失败")
		return
	}

	success(c, contents, "success")
}

// Get 获取内容详情
func (h *ContentHandler) Get(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")

	detail, err := h.contents.Detail(contentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "内容不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询内容失败")
		return
	}

	success(c, detail, "success")
}

// DownloadURL 获取内容的临时下载链接
func (h *ContentHandler) DownloadURL(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")

	content, err := h.contents.Get(contentID, userID)
	if err != nil {
		fail(c, http.StatusNotFound, 404, "内容不存在")
		return
	}

	url, err := h.contents.DownloadURL(c.Request.Context(), content)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "生成下载链接失败")
		return
	}

	success(c, gin.H{"url": url}, "success")
}

// Delete 删除内容
func (h *ContentHandler) Delete(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	contentID := c.Param("id")

	if err := h.contents.Delete(c.Request.Context(), contentID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "内容不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "删除内容失败")
		return
	}

	success(c, nil, "内容已删除")
}
