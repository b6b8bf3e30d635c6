package realtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

// Hub 进程内的变更分发。投递在 Publish 的调用方 goroutine 中串行进行，
// 因此所有订阅者看到的事件顺序一致；回调不能阻塞，也不能再调用 Publish
// 或释放自己所属的订阅。Release 返回时该订阅没有进行中的回调。
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*hubSub
	nextID uint64

	deliverMu sync.Mutex
}

type hubSub struct {
	id  uint64
	sub Subscription

	// mu 在回调期间持有，Release 借此等待进行中的投递
	mu       sync.Mutex
	released atomic.Bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*hubSub)}
}

func (h *Hub) Subscribe(sub Subscription) (Handle, error) {
	if !KnownTable(sub.Table) {
		return nil, fmt.Errorf("unknown table %q", sub.Table)
	}
	if err := sub.Filter.Validate(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.nextID++
	s := &hubSub{id: h.nextID, sub: sub}
	h.subs[s.id] = s
	h.mu.Unlock()
	activeSubscriptions.Inc()

	return ReleaseFunc(func() {
		s.released.Store(true)
		s.mu.Lock()
		s.mu.Unlock()
		h.mu.Lock()
		delete(h.subs, s.id)
		h.mu.Unlock()
		activeSubscriptions.Dec()
	}), nil
}

// Publish 把事件投递给所有匹配的订阅
func (h *Hub) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eventsPublished.WithLabelValues(e.Table, string(e.Kind)).Inc()

	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	for _, s := range h.matching(e) {
		handler := s.sub.handler(e.Kind)
		if handler == nil {
			continue
		}
		h.deliver(s, handler, e)
	}
	return nil
}

func (h *Hub) deliver(s *hubSub, handler Handler, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released.Load() {
		return
	}
	h.invoke(s, handler, e)
}

// matching 按注册顺序返回匹配的订阅快照
func (h *Hub) matching(e Event) []*hubSub {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*hubSub
	for _, s := range h.subs {
		if s.sub.Table == e.Table && s.sub.Filter.Match(e.Fields) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// invoke 单个事件的回调 panic 不影响订阅本身
func (h *Hub) invoke(s *hubSub, handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanics.WithLabelValues(e.Table).Inc()
			util.Logger.Error("订阅回调发生panic",
				zap.Any("error", r),
				zap.String("table", e.Table),
				zap.String("kind", string(e.Kind)),
				zap.String("key", e.Key),
				zap.String("stack", string(debug.Stack())))
		}
	}()
	eventsDelivered.WithLabelValues(e.Table).Inc()
	handler(e)
}

// Len 当前订阅数
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
