// Package application 实现会话管理：持有当前身份并向订阅方广播变更
package application

import (
	"context"
	"sync"

	"github.com/wyfcoding/farmhub/internal/auth/domain"
	"github.com/wyfcoding/farmhub/pkg/logger"
)

// SessionManager 会话管理器，实现 domain.Provider。
// 登录/登出由外部认证系统驱动，这里只负责保存身份与分发变更。
type SessionManager struct {
	mu        sync.Mutex
	current   *domain.Identity
	nextID    int
	listeners map[int]func(*domain.Identity)
}

// NewSessionManager 创建会话管理器
func NewSessionManager() *SessionManager {
	return &SessionManager{
		listeners: make(map[int]func(*domain.Identity)),
	}
}

// Current 返回当前身份；未登录时返回 nil
func (s *SessionManager) Current() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

// CurrentUID 返回当前用户 ID；未登录时返回空串
func (s *SessionManager) CurrentUID() string {
	if id := s.Current(); id != nil {
		return id.UID
	}
	return ""
}

// OnChange 注册身份变更监听，返回幂等的注销函数
func (s *SessionManager) OnChange(fn func(*domain.Identity)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SetIdentity 设置当前身份（登录或切换用户）并广播变更
func (s *SessionManager) SetIdentity(identity *domain.Identity) {
	s.mu.Lock()
	s.current = identity
	listeners := make([]func(*domain.Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	uid := ""
	if identity != nil {
		uid = identity.UID
	}
	logger.Info(context.Background(), "session identity changed", "uid", uid)

	for _, fn := range listeners {
		fn(identity)
	}
}

// SignOut 清空当前身份并广播
func (s *SessionManager) SignOut() {
	s.SetIdentity(nil)
}
