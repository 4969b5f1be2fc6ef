package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Import   ImportConfig   `mapstructure:"import"`
}

type ServerConfig struct {
	Port          string `mapstructure:"port"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"` // 字节
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite 或 postgres
	DSN    string `mapstructure:"dsn"`    // postgres 连接串；sqlite 为文件路径
}

// StorageConfig 对象存储配置（MinIO / S3 兼容）
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`

	DocumentBucket      string `mapstructure:"document_bucket"`
	AudioBucket         string `mapstructure:"audio_bucket"`
	TranscriptionBucket string `mapstructure:"transcription_bucket"`
	AIBucket            string `mapstructure:"ai_bucket"`

	// 对象转为低频存储前的天数
	IATransitionDays int `mapstructure:"ia_transition_days"`
}

type OpenAIConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ChatModel    string `mapstructure:"chat_model"`
	WhisperModel string `mapstructure:"whisper_model"`
}

type ReminderConfig struct {
	// 提醒扫描的 cron 表达式
	ScanSpec string `mapstructure:"scan_spec"`
	// 扫描窗口内即将到期提醒（小时）
	ScanWindowHours int `mapstructure:"scan_window_hours"`
}

// ImportConfig 本地导入目录监控配置
type ImportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	// 导入内容归属的用户邮箱
	OwnerEmail string `mapstructure:"owner_email"`
}

func Load() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.max_upload_size", 100*1024*1024) // 100MB

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24*8) // 8天
	viper.SetDefault("jwt.issuer", "edusloth")

	// 数据库默认配置
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "data/edusloth.db")

	// 对象存储默认配置
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.use_ssl", false)
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.document_bucket", "edusloth-documents")
	viper.SetDefault("storage.audio_bucket", "edusloth-audio")
	viper.SetDefault("storage.transcription_bucket", "edusloth-transcriptions")
	viper.SetDefault("storage.ai_bucket", "edusloth-ai-generation")
	viper.SetDefault("storage.ia_transition_days", 90)

	// OpenAI默认配置
	viper.SetDefault("openai.chat_model", "gpt-4")
	viper.SetDefault("openai.whisper_model", "whisper-1")

	// 提醒扫描默认配置
	viper.SetDefault("reminder.scan_spec", "@every 10m")
	viper.SetDefault("reminder.scan_window_hours", 24)

	// 导入目录默认配置
	viper.SetDefault("import.enabled", false)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", config.Database.Driver)
	}
	if config.Import.Enabled && config.Import.Dir == "" {
		return fmt.Errorf("导入监控已启用但未设置目录")
	}
	return nil
}
