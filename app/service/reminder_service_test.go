package service

import (
	"testing"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
	"edusloth/app/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Reminder{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestReminderService(t *testing.T) *ReminderService {
	t.Helper()
	return NewReminderService(newTestDB(t), logger.New(config.LogConfig{Level: "error"}))
}

// TestReminderCreateAndList verifies due-date ordering and the
// completed filter.
func TestReminderCreateAndList(t *testing.T) {
	s := newTestReminderService(t)
	userID := "u1"

	later, err := s.Create(userID, nil, "周五交作业", time.Now().Add(72*time.Hour), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sooner, err := s.Create(userID, nil, "明天小测", time.Now().Add(24*time.Hour), model.PriorityHigh)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if later.Priority != model.PriorityMedium {
		t.Fatalf("default priority = %s, want medium", later.Priority)
	}

	reminders, err := s.List(userID, false, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reminders) != 2 {
		t.Fatalf("reminders = %d, want 2", len(reminders))
	}
	if reminders[0].ID != sooner.ID {
		t.Fatal("reminders should be ordered by due date ascending")
	}

	// complete one and list without completed
	done := true
	if _, err := s.Update(later.ID, userID, ReminderUpdate{IsCompleted: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}
	reminders, err = s.List(userID, false, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reminders) != 1 || reminders[0].ID != sooner.ID {
		t.Fatal("completed reminders should be filtered out")
	}
}

// TestReminderInvalidPriority verifies priority validation.
func TestReminderInvalidPriority(t *testing.T) {
	s := newTestReminderService(t)

	if _, err := s.Create("u1", nil, "测试", time.Now(), "urgent"); err == nil {
		t.Fatal("expected error for invalid priority")
	}
}

// TestReminderUpcoming verifies the window query excludes overdue,
// far-future and completed reminders.
func TestReminderUpcoming(t *testing.T) {
	s := newTestReminderService(t)
	userID := "u1"

	inWindow, err := s.Create(userID, nil, "三天后", time.Now().Add(3*24*time.Hour), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(userID, nil, "一个月后", time.Now().Add(30*24*time.Hour), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(userID, nil, "已过期", time.Now().Add(-24*time.Hour), ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	upcoming, err := s.Upcoming(userID, 7)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != inWindow.ID {
		t.Fatalf("upcoming = %d, want only the 3-day reminder", len(upcoming))
	}
}

// TestReminderUpdateDueDateResetsNotified verifies rescheduling clears
// the notification marker so the scanner fires again.
func TestReminderUpdateDueDateResetsNotified(t *testing.T) {
	s := newTestReminderService(t)
	userID := "u1"

	r, err := s.Create(userID, nil, "复习", time.Now().Add(time.Hour), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now()
	if err := s.db.Model(&model.Reminder{}).Where("id = ?", r.ID).Update("notified_at", &now).Error; err != nil {
		t.Fatalf("mark notified: %v", err)
	}

	newDue := time.Now().Add(48 * time.Hour)
	updated, err := s.Update(r.ID, userID, ReminderUpdate{DueDate: &newDue})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.NotifiedAt != nil {
		t.Fatal("notified_at should reset when due date changes")
	}
}

// TestReminderOwnershipAndDelete verifies cross-user isolation.
func TestReminderOwnershipAndDelete(t *testing.T) {
	s := newTestReminderService(t)

	r, err := s.Create("u1", nil, "复习", time.Now().Add(time.Hour), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Get(r.ID, "u2"); err != gorm.ErrRecordNotFound {
		t.Fatalf("get as other user = %v, want record not found", err)
	}
	if err := s.Delete(r.ID, "u2"); err != gorm.ErrRecordNotFound {
		t.Fatalf("delete as other user = %v, want record not found", err)
	}
	if err := s.Delete(r.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(r.ID, "u1"); err != gorm.ErrRecordNotFound {
		t.Fatalf("second delete = %v, want record not found", err)
	}
}
