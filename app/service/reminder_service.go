package service

import (
	"fmt"
	"time"

	"edusloth/app/logger"
	"edusloth/app/model"

	"gorm.io/gorm"
)

// ReminderService 学习提醒服务
type ReminderService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewReminderService 创建提醒服务
func NewReminderService(db *gorm.DB, log *logger.Logger) *ReminderService {
	return &ReminderService{db: db, log: log}
}

// Create 创建提醒
func (s *ReminderService) Create(userID string, contentID *string, description string, dueDate time.Time, priority string) (*model.Reminder, error) {
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("无效的优先级: %s", priority)
	}

	r := &model.Reminder{
		UserID:      userID,
		ContentID:   contentID,
		Description: description,
		DueDate:     dueDate,
		Priority:    priority,
	}
	if err := s.db.Create(r).Error; err != nil {
		return nil, fmt.Errorf("创建提醒失败: %w", err)
	}
	return r, nil
}

// Get 获取提醒（校验归属）
func (s *ReminderService) Get(id, userID string) (*model.Reminder, error) {
	var r model.Reminder
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// List 列出用户提醒，按到期时间升序
func (s *ReminderService) List(userID string, includeCompleted bool, skip, limit int) ([]model.Reminder, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	q := s.db.Where("user_id = ?", userID)
	if !includeCompleted {
		q = q.Where("is_completed = ?", false)
	}

	var reminders []model.Reminder
	err := q.Order("due_date ASC").Offset(skip).Limit(limit).Find(&reminders).Error
	return reminders, err
}

// Upcoming 获取未来 N 天内到期的未完成提醒
func (s *ReminderService) Upcoming(userID string, days int) ([]model.Reminder, error) {
	now := time.Now()
	end := now.AddDate(0, 0, days)

	var reminders []model.Reminder
	err := s.db.Where("user_id = ? AND is_completed = ? AND due_date >= ? AND due_date <= ?",
		userID, false, now, end).
		Order("due_date ASC").
		Find(&reminders).Error
	return reminders, err
}

// ReminderUpdate 提醒更新字段，nil 表示不修改
type ReminderUpdate struct {
	Description *string
	DueDate     *time.Time
	Priority    *string
	IsCompleted *bool
}

// Update 部分更新提醒
func (s *ReminderService) Update(id, userID string, in ReminderUpdate) (*model.Reminder, error) {
	r, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.DueDate != nil {
		updates["due_date"] = *in.DueDate
		// 改期后重置通知标记
		updates["notified_at"] = nil
	}
	if in.Priority != nil {
		if !model.ValidPriority(*in.Priority) {
			return nil, fmt.Errorf("无效的优先级: %s", *in.Priority)
		}
		updates["priority"] = *in.Priority
	}
	if in.IsCompleted != nil {
		updates["is_completed"] = *in.IsCompleted
	}

	if len(updates) > 0 {
		if err := s.db.Model(r).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("更新提醒失败: %w", err)
		}
	}

	return s.Get(id, userID)
}

// Delete 删除提醒
func (s *ReminderService) Delete(id, userID string) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Reminder{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
