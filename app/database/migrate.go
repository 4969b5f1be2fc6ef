package database

import "edusloth/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.User{},
		&model.Content{},
		&model.Transcription{},
		&model.GeneratedContent{},
		&model.Reminder{},
	)
}
