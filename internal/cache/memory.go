package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore 进程内缓存，Redis 未启用时使用，也用于测试
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore 创建进程内缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// WithClock 替换时钟（测试用）
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

// GetJSON 获取 JSON 缓存，过期条目视为未命中
func (s *MemoryStore) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存，ttl<=0 表示不过期
func (s *MemoryStore) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Del 删除缓存
func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

// Len 当前条目数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
