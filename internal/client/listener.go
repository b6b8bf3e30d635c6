package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/util"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	ackTimeout = 10 * time.Second
)

// ErrClosed 连接已关闭
var ErrClosed = stderrors.New("realtime connection closed")

// Listener 通过 websocket 订阅服务端变更。
// 所有事件由唯一的读 goroutine 按到达顺序投递，回调不能阻塞。
type Listener struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	subs    map[string]*remoteSub
	pending map[string]chan error
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

var _ realtime.Listener = (*Listener)(nil)

type remoteSub struct {
	sub realtime.Subscription

	// mu 在回调期间持有
	mu       sync.Mutex
	released atomic.Bool
}

// Dial 建立到 /api/realtime 的连接；baseURL 可以是 http(s) 或 ws(s) 地址
func Dial(ctx context.Context, baseURL, token string) (*Listener, error) {
	u := websocketURL(baseURL) + "/api/realtime"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	l := &Listener{
		ws:      ws,
		subs:    make(map[string]*remoteSub),
		pending: make(map[string]chan error),
		done:    make(chan struct{}),
	}
	go l.readLoop()
	return l, nil
}

func websocketURL(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// Subscribe 发送订阅帧并等待服务端确认
func (l *Listener) Subscribe(sub realtime.Subscription) (realtime.Handle, error) {
	if !realtime.KnownTable(sub.Table) {
		return nil, fmt.Errorf("unknown table %q", sub.Table)
	}
	if err := sub.Filter.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	rs := &remoteSub{sub: sub}
	ack := make(chan error, 1)

	l.mu.Lock()
	if l.err != nil {
		err := l.err
		l.mu.Unlock()
		return nil, err
	}
	l.subs[id] = rs
	l.pending[id] = ack
	l.mu.Unlock()

	forget := func() {
		rs.released.Store(true)
		rs.mu.Lock()
		rs.mu.Unlock()
		l.mu.Lock()
		delete(l.subs, id)
		delete(l.pending, id)
		l.mu.Unlock()
	}

	if err := l.write(realtime.Frame{Op: realtime.OpSubscribe, ID: id, Table: sub.Table, Filter: sub.Filter}); err != nil {
		forget()
		return nil, err
	}

	timer := time.NewTimer(ackTimeout)
	defer timer.Stop()
	select {
	case err := <-ack:
		if err != nil {
			forget()
			return nil, err
		}
	case <-timer.C:
		forget()
		return nil, fmt.Errorf("subscribe %s: no acknowledgement", sub.Table)
	case <-l.done:
		forget()
		return nil, l.Err()
	}

	return realtime.ReleaseFunc(func() {
		forget()
		if err := l.write(realtime.Frame{Op: realtime.OpUnsubscribe, ID: id}); err != nil && !stderrors.Is(err, ErrClosed) {
			util.Logger.Warn("取消订阅失败", zap.String("sub_id", id), zap.Error(err))
		}
	}), nil
}

func (l *Listener) write(f realtime.Frame) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return l.ws.WriteMessage(websocket.TextMessage, data)
}

func (l *Listener) readLoop() {
	defer l.shutdown(ErrClosed)

	for {
		_, data, err := l.ws.ReadMessage()
		if err != nil {
			l.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		var f realtime.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			util.Logger.Warn("无法解析实时帧", zap.Error(err))
			continue
		}

		switch f.Op {
		case realtime.OpSubscribed:
			l.resolve(f.ID, nil)
		case realtime.OpError:
			if !l.resolve(f.ID, fmt.Errorf("subscribe rejected: %s", f.Error)) {
				util.Logger.Warn("实时服务返回错误", zap.String("sub_id", f.ID), zap.String("error", f.Error))
			}
		case realtime.OpEvent:
			if f.Event != nil {
				l.dispatch(f.ID, *f.Event)
			}
		}
	}
}

func (l *Listener) resolve(id string, err error) bool {
	l.mu.Lock()
	ack, ok := l.pending[id]
	delete(l.pending, id)
	l.mu.Unlock()
	if ok {
		ack <- err
	}
	return ok
}

func (l *Listener) dispatch(id string, e realtime.Event) {
	l.mu.Lock()
	rs, ok := l.subs[id]
	l.mu.Unlock()
	if !ok {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.released.Load() {
		return
	}

	var handler realtime.Handler
	switch e.Kind {
	case realtime.Insert:
		handler = rs.sub.OnInsert
	case realtime.Update:
		handler = rs.sub.OnUpdate
	case realtime.Delete:
		handler = rs.sub.OnDelete
	}
	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("实时回调 panic",
				zap.Any("panic", r),
				zap.String("table", e.Table),
				zap.String("stack", string(debug.Stack())))
		}
	}()
	handler(e)
}

func (l *Listener) shutdown(cause error) {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.err = cause
		pending := l.pending
		l.pending = make(map[string]chan error)
		l.mu.Unlock()

		close(l.done)
		_ = l.ws.Close()
		for _, ack := range pending {
			ack <- cause
		}
	})
}

// Done 连接断开后关闭
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Err 返回连接断开的原因
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close 主动关闭连接，所有订阅随之失效
func (l *Listener) Close() error {
	l.writeMu.Lock()
	_ = l.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = l.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	l.writeMu.Unlock()
	l.shutdown(ErrClosed)
	return nil
}
