package service

import (
	"fmt"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
	"edusloth/app/model"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ReminderScheduler 定时扫描即将到期的提醒
type ReminderScheduler struct {
	db   *gorm.DB
	cfg  *config.ReminderConfig
	log  *logger.Logger
	cron *cron.Cron
}

// NewReminderScheduler 创建提醒扫描器
func NewReminderScheduler(db *gorm.DB, cfg *config.ReminderConfig, log *logger.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		db:   db,
		cfg:  cfg,
		log:  log,
		cron: cron.New(),
	}
}

// Start 启动定时扫描
func (s *ReminderScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ScanSpec, s.scan); err != nil {
		return fmt.Errorf("注册提醒扫描任务失败: %w", err)
	}
	s.cron.Start()
	s.log.Infof("提醒扫描器已启动: spec=%s", s.cfg.ScanSpec)
	return nil
}

// Stop 停止定时扫描，等待进行中的扫描结束
func (s *ReminderScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("提醒扫描器已停止")
}

// scan 扫描窗口内到期且未通知的提醒并标记
func (s *ReminderScheduler) scan() {
	now := time.Now()
	end := now.Add(time.Duration(s.cfg.ScanWindowHours) * time.Hour)

	var due []model.Reminder
	err := s.db.Where("is_completed = ? AND notified_at IS NULL AND due_date <= ?", false, end).
		Order("due_date ASC").
		Limit(200).
		Find(&due).Error
	if err != nil {
		s.log.Errorf("提醒扫描失败: %v", err)
		return
	}

	for _, r := range due {
		s.log.Infof("⏰ 提醒到期: id=%s user=%s due=%s priority=%s 描述=%s",
			r.ID, r.UserID, r.DueDate.Format("2006-01-02 15:04"), r.Priority, r.Description)

		if err := s.db.Model(&model.Reminder{}).Where("id = ?", r.ID).
			Update("notified_at", now).Error; err != nil {
			s.log.Errorf("标记提醒通知失败: %v", err)
		}
	}

	if len(due) > 0 {
		s.log.Infof("本轮扫描处理了 %d 条到期提醒", len(due))
	}
}
