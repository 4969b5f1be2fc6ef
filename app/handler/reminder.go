package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"edusloth/app/middleware"
	"edusloth/app/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReminderHandler 学习提醒处理器
type ReminderHandler struct {
	reminders *service.ReminderService
	contents  *service.ContentService
}

// NewReminderHandler 创建提醒处理器
func NewReminderHandler(reminders *service.ReminderService, contents *service.ContentService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, contents: contents}
}

// CreateReminderRequest 创建提醒请求
type CreateReminderRequest struct {
	Description string    `json:"description" binding:"required"`
	DueDate     time.Time `json:"due_date" binding:"required"`
	Priority    string    `json:"priority"`
	ContentID   *string   `json:"content_id"`
}

// UpdateReminderRequest 更新提醒请求，空字段不修改
type UpdateReminderRequest struct {
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    *string    `json:"priority"`
	IsCompleted *bool      `json:"is_completed"`
}

// Create 创建提醒
func (h *ReminderHandler) Create(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	// 关联内容需要校验归属
	if req.ContentID != nil {
		if _, err := h.contents.Get(*req.ContentID, userID); err != nil {
			fail(c, http.StatusNotFound, 404, "关联内容不存在")
			return
		}
	}

	r, err := h.reminders.Create(userID, req.ContentID, req.Description, req.DueDate, req.Priority)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	success(c, r, "创建成功")
}

// List 列出提醒
func (h *ReminderHandler) List(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	includeCompleted := c.DefaultQuery("include_completed", "false") == "true"

	reminders, err := h.reminders.List(userID, includeCompleted, skip, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询提醒失败")
		return
	}

	success(c, reminders, "success")
}

// Upcoming 列出未来 N 天内到期的提醒
func (h *ReminderHandler) Upcoming(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 30 {
		fail(c, http.StatusBadRequest, 400, "days 必须在 1 到 30 之间")
		return
	}

	reminders, err := h.reminders.Upcoming(userID, days)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询提醒失败")
		return
	}

	success(c, reminders, "success")
}

// Get 获取单条提醒
func (h *ReminderHandler) Get(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	r, err := h.reminders.Get(c.Param("id"), userID)
	if err != nil {
		fail(c, http.StatusNotFound, 404, "提醒不存在")
		return
	}

	success(c, r, "success")
}

// Update 更新提醒
func (h *ReminderHandler) Update(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	r, err := h.reminders.Update(c.Param("id"), userID, service.ReminderUpdate{
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "提醒不存在")
			return
		}
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	success(c, r, "更新成功")
}

// Delete 删除提醒
func (h *ReminderHandler) Delete(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	if err := h.reminders.Delete(c.Param("id"), userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "提醒不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "删除提醒失败")
		return
	}

	success(c, nil, "提醒已删除")
}
