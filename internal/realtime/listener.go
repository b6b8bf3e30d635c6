package realtime

import (
	"context"
	"sync"
)

// Handler 处理一条变更
type Handler func(Event)

// Subscription 订阅某张表上满足 Filter 的变更；未设置的回调对应的事件被忽略
type Subscription struct {
	Table    string
	Filter   Filter
	OnInsert Handler
	OnUpdate Handler
	OnDelete Handler
}

func (s Subscription) handler(kind Kind) Handler {
	switch kind {
	case Insert:
		return s.OnInsert
	case Update:
		return s.OnUpdate
	case Delete:
		return s.OnDelete
	}
	return nil
}

// Handle 订阅句柄；Release 返回后该订阅不会再有回调在执行，可重复调用
type Handle interface {
	Release()
}

// Listener 变更订阅
type Listener interface {
	Subscribe(sub Subscription) (Handle, error)
}

// Publisher 变更发布
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// ReleaseFunc 把函数包装成 Handle，保证只执行一次
func ReleaseFunc(fn func()) Handle {
	return &funcHandle{fn: fn}
}

type funcHandle struct {
	once sync.Once
	fn   func()
}

func (h *funcHandle) Release() {
	h.once.Do(h.fn)
}
