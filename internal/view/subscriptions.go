package view

import (
	"sync"

	"socialverse-backend/internal/realtime"
)

// Subscriptions 持有一个界面的全部订阅句柄，生命周期与界面相同
type Subscriptions struct {
	listener realtime.Listener

	mu      sync.Mutex
	handles []realtime.Handle
	closed  bool
}

func NewSubscriptions(listener realtime.Listener) *Subscriptions {
	return &Subscriptions{listener: listener}
}

// Add 订阅并记录句柄；已释放后再订阅会立即释放新句柄并返回 ErrClosed
func (s *Subscriptions) Add(sub realtime.Subscription) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	h, err := s.listener.Subscribe(sub)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.Release()
		return ErrClosed
	}
	s.handles = append(s.handles, h)
	s.mu.Unlock()
	return nil
}

// ReleaseAll 同步释放所有句柄
func (s *Subscriptions) ReleaseAll() {
	s.mu.Lock()
	s.closed = true
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
}

func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
