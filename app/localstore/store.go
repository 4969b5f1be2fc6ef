package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"edusloth/app/logger"
)

// Store 本地命名存储槽，每个槽是一个 JSON 文件。
// 同一实例内通过互斥锁保证单写者。
type Store struct {
	dir    string
	logger *logger.Logger
	mu     sync.Mutex
}

// NewStore 创建本地存储，dir 不存在时自动创建
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}

	return &Store{
		dir:    dir,
		logger: log,
	}, nil
}

func (s *Store) slotPath(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}

// Load 读取存储槽到 v。
// 槽不存在时 v 保持零值；内容损坏时记录警告并重置为空，不返回错误。
func (s *Store) Load(slot string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(slot, v)
}

func (s *Store) load(slot string, v any) {
	data, err := os.ReadFile(s.slotPath(slot))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnf("读取存储槽 %s 失败: %v", slot, err)
		}
		return
	}

	// 先解析到临时值，类型不匹配时不让 v 残留半解析内容
	tmp := reflect.New(reflect.TypeOf(v).Elem())
	if err := json.Unmarshal(data, tmp.Interface()); err != nil {
		s.logger.Warnf("存储槽 %s 内容损坏，已重置为空: %v", slot, err)
		if err := os.Remove(s.slotPath(slot)); err != nil && !os.IsNotExist(err) {
			s.logger.Warnf("删除损坏的存储槽 %s 失败: %v", slot, err)
		}
		return
	}
	reflect.ValueOf(v).Elem().Set(tmp.Elem())
}

// Save 将 v 序列化后整体写入存储槽（先写临时文件再改名）
func (s *Store) Save(slot string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(slot, v)
}

func (s *Store) save(slot string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化存储槽 %s 失败: %w", slot, err)
	}

	path := s.slotPath(slot)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入存储槽 %s 失败: %w", slot, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("写入存储槽 %s 失败: %w", slot, err)
	}
	return nil
}

// Remove 删除存储槽
func (s *Store) Remove(slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.slotPath(slot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除存储槽 %s 失败: %w", slot, err)
	}
	return nil
}
