package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
	"edusloth/app/metrics"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/patrickmn/go-cache"
)

// presignedURLTTL 预签名链接有效期
const presignedURLTTL = time.Hour

// Storage 对象存储服务，管理四个业务桶
type Storage struct {
	client   *minio.Client
	cfg      *config.StorageConfig
	log      *logger.Logger
	urlCache *cache.Cache
}

// New 创建对象存储服务并确保桶存在
func New(cfg *config.StorageConfig, log *logger.Logger) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("创建对象存储客户端失败: %w", err)
	}

	s := &Storage{
		client: client,
		cfg:    cfg,
		log:    log,
		// 缓存有效期略短于链接有效期，避免下发已过期链接
		urlCache: cache.New(presignedURLTTL-5*time.Minute, 10*time.Minute),
	}

	if err := s.ensureBuckets(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Buckets 返回全部业务桶名
func (s *Storage) Buckets() []string {
	return []string{
		s.cfg.DocumentBucket,
		s.cfg.AudioBucket,
		s.cfg.TranscriptionBucket,
		s.cfg.AIBucket,
	}
}

// ensureBuckets 确保桶存在并设置生命周期规则
func (s *Storage) ensureBuckets(ctx context.Context) error {
	for _, bucket := range s.Buckets() {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("检查桶 %s 失败: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
				return fmt.Errorf("创建桶 %s 失败: %w", bucket, err)
			}
			s.log.Infof("已创建存储桶: %s", bucket)
		}

		if err := s.applyLifecycle(ctx, bucket); err != nil {
			// 生命周期规则失败不阻塞启动（MinIO 单机版可能不支持转换）
			s.log.Warnf("设置桶 %s 生命周期规则失败: %v", bucket, err)
		}
	}
	return nil
}

// applyLifecycle 应用低频访问转换规则
func (s *Storage) applyLifecycle(ctx context.Context, bucket string) error {
	if s.cfg.IATransitionDays <= 0 {
		return nil
	}
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     "transition-to-ia",
			Status: "Enabled",
			Transition: lifecycle.Transition{
				Days:         lifecycle.ExpirationDays(s.cfg.IATransitionDays),
				StorageClass: "STANDARD_IA",
			},
		},
	}
	return s.client.SetBucketLifecycle(ctx, bucket, lc)
}

// BucketFor 根据内容类型选择桶
func (s *Storage) BucketFor(fileType string) string {
	switch fileType {
	case "audio", "video":
		return s.cfg.AudioBucket
	default:
		return s.cfg.DocumentBucket
	}
}

// TranscriptionBucket 转写结果桶
func (s *Storage) TranscriptionBucket() string {
	return s.cfg.TranscriptionBucket
}

// AIBucket AI 生成结果桶
func (s *Storage) AIBucket() string {
	return s.cfg.AIBucket
}

// ObjectKey 生成对象键：userID/fileType/uuid+扩展名
func ObjectKey(userID, fileType, filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("%s/%s/%s%s", userID, fileType, uuid.New().String(), ext)
}

// Upload 上传对象
func (s *Storage) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象失败: %w", err)
	}
	metrics.ObjectsUploaded.WithLabelValues(bucket).Inc()
	return nil
}

// Download 下载对象
func (s *Storage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("下载对象失败: %w", err)
	}
	return obj, nil
}

// Remove 删除对象
func (s *Storage) Remove(ctx context.Context, bucket, key string) error {
	return s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

// PresignedURL 生成带缓存的预签名下载链接
func (s *Storage) PresignedURL(ctx context.Context, bucket, key string) (string, error) {
	cacheKey := bucket + "/" + key
	if cached, ok := s.urlCache.Get(cacheKey); ok {
		return cached.(string), nil
	}

	u, err := s.client.PresignedGetObject(ctx, bucket, key, presignedURLTTL, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名链接失败: %w", err)
	}

	s.urlCache.Set(cacheKey, u.String(), cache.DefaultExpiration)
	return u.String(), nil
}
