package filewatcher

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
	"edusloth/app/model"
	"edusloth/app/service"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"
)

// ImportWatcher 监控本地导入目录，把放入的文件自动上传为学习内容
type ImportWatcher struct {
	cfg      *config.ImportConfig
	db       *gorm.DB
	contents *service.ContentService
	watcher  *fsnotify.Watcher
	logger   *logger.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex
}

// New 创建导入监控器；未启用时返回 nil
func New(cfg *config.ImportConfig, db *gorm.DB, contents *service.ContentService, log *logger.Logger) (*ImportWatcher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &ImportWatcher{
		cfg:      cfg,
		db:       db,
		contents: contents,
		watcher:  watcher,
		logger:   log,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start 启动导入目录监控
func (w *ImportWatcher) Start() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return fmt.Errorf("导入监控器已经在运行")
	}

	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("创建导入目录失败: %w", err)
	}

	if err := w.watcher.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("添加监控目录失败: %w", err)
	}

	w.watching = true
	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Infof("导入监控器已启动，监控目录: %s", w.cfg.Dir)
	return nil
}

// Stop 停止监控
func (w *ImportWatcher) Stop() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return nil
	}

	close(w.stopCh)
	w.watcher.Close()
	w.wg.Wait()
	w.watching = false

	w.logger.Info("导入监控器已停止")
	return nil
}

// watchLoop 监控事件循环
func (w *ImportWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				go w.handleNewFile(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("导入监控器错误: %v", err)

		case <-w.stopCh:
			return
		}
	}
}

// handleNewFile 等待文件写入完成后导入
func (w *ImportWatcher) handleNewFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	if !w.waitUntilStable(path) {
		w.logger.Warnf("文件长时间未写入完成，跳过导入: %s", path)
		return
	}

	owner, err := w.ownerID()
	if err != nil {
		w.logger.Errorf("查找导入归属用户失败: %v", err)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Errorf("读取导入文件失败: %v", err)
		return
	}

	filename := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	content, err := w.contents.Create(context.Background(), owner,
		filename, "从导入目录自动上传", model.DetectFileType(filename), filename, mimeType, data)
	if err != nil {
		w.logger.Errorf("导入文件失败: %s, 错误: %v", path, err)
		return
	}

	// 导入成功后移除源文件
	if err := os.Remove(path); err != nil {
		w.logger.Warnf("删除已导入文件失败: %v", err)
	}

	w.logger.Infof("📥 文件导入成功: %s -> content=%s", filename, content.ID)
}

// waitUntilStable 轮询文件大小直到两次一致，最多等待30秒
func (w *ImportWatcher) waitUntilStable(path string) bool {
	var lastSize int64 = -1
	for i := 0; i < 30; i++ {
		select {
		case <-w.stopCh:
			return false
		case <-time.After(time.Second):
		}

		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize && info.Size() > 0 {
			return true
		}
		lastSize = info.Size()
	}
	return false
}

// ownerID 查找导入内容归属的用户
func (w *ImportWatcher) ownerID() (string, error) {
	var user model.User
	if err := w.db.Where("email = ?", w.cfg.OwnerEmail).First(&user).Error; err != nil {
		return "", fmt.Errorf("用户 %s 不存在: %w", w.cfg.OwnerEmail, err)
	}
	return user.ID, nil
}
