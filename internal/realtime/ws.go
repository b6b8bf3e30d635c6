package realtime

import (
	"net/http"
	"sync"
	"time"

	"socialverse-backend/internal/util"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Server 通过 websocket 暴露 Listener
type Server struct {
	listener  Listener
	authorize Authorizer
	upgrader  websocket.Upgrader
	rate      rate.Limit
	burst     int
}

type ServerOption func(*Server)

// WithAuthorizer 替换默认的订阅授权
func WithAuthorizer(a Authorizer) ServerOption {
	return func(s *Server) { s.authorize = a }
}

// WithRateLimit 限制每个连接的控制帧速率
func WithRateLimit(r rate.Limit, burst int) ServerOption {
	return func(s *Server) {
		s.rate = r
		s.burst = burst
	}
}

// WithCheckOrigin 设置跨域校验
func WithCheckOrigin(fn func(r *http.Request) bool) ServerOption {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

func NewServer(listener Listener, opts ...ServerOption) *Server {
	s := &Server{
		listener:  listener,
		authorize: AuthorizeViewer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		rate:  rate.Limit(20),
		burst: 40,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve 升级连接并阻塞直到连接关闭；viewerID 来自已验证的身份令牌
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, viewerID string) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Logger.Warn("websocket 升级失败", zap.Error(err))
		return
	}

	c := &conn{
		id:       uuid.NewString(),
		server:   s,
		ws:       ws,
		viewerID: viewerID,
		send:     make(chan Frame, sendBuffer),
		done:     make(chan struct{}),
		handles:  make(map[string]Handle),
		limiter:  rate.NewLimiter(s.rate, s.burst),
	}
	wsConnections.Inc()
	util.Logger.Info("realtime 连接建立", zap.String("conn_id", c.id), zap.String("user_id", viewerID))

	go c.writePump()
	c.readPump()
}

type conn struct {
	id       string
	server   *Server
	ws       *websocket.Conn
	viewerID string
	send     chan Frame
	done     chan struct{}
	once     sync.Once

	mu      sync.Mutex
	handles map[string]Handle
	limiter *rate.Limiter
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump 处理客户端的控制帧，退出时释放该连接上的所有订阅
func (c *conn) readPump() {
	defer func() {
		c.releaseAll()
		c.close()
		wsConnections.Dec()
		util.Logger.Info("realtime 连接关闭", zap.String("conn_id", c.id))
	}()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				util.Logger.Warn("websocket 异常关闭", zap.Error(err), zap.String("conn_id", c.id))
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.reply(Frame{Op: OpError, Error: "malformed frame"})
			continue
		}
		if !c.limiter.Allow() {
			c.reply(Frame{Op: OpError, ID: f.ID, Error: "rate limit exceeded"})
			continue
		}

		switch f.Op {
		case OpSubscribe:
			c.subscribe(f)
		case OpUnsubscribe:
			c.unsubscribe(f.ID)
		case OpPing:
			c.reply(Frame{Op: OpPong, ID: f.ID})
		default:
			c.reply(Frame{Op: OpError, ID: f.ID, Error: "unknown op " + f.Op})
		}
	}
}

func (c *conn) subscribe(f Frame) {
	if f.ID == "" {
		c.reply(Frame{Op: OpError, Error: "subscription id required"})
		return
	}
	if err := c.server.authorize(c.viewerID, f.Table, f.Filter); err != nil {
		c.reply(Frame{Op: OpError, ID: f.ID, Error: err.Error()})
		return
	}

	c.mu.Lock()
	_, exists := c.handles[f.ID]
	c.mu.Unlock()
	if exists {
		c.reply(Frame{Op: OpError, ID: f.ID, Error: "duplicate subscription id"})
		return
	}

	forward := func(e Event) {
		c.reply(Frame{Op: OpEvent, ID: f.ID, Event: &e})
	}
	h, err := c.server.listener.Subscribe(Subscription{
		Table:    f.Table,
		Filter:   f.Filter,
		OnInsert: forward,
		OnUpdate: forward,
		OnDelete: forward,
	})
	if err != nil {
		c.reply(Frame{Op: OpError, ID: f.ID, Error: err.Error()})
		return
	}

	c.mu.Lock()
	c.handles[f.ID] = h
	c.mu.Unlock()
	c.reply(Frame{Op: OpSubscribed, ID: f.ID})
}

func (c *conn) unsubscribe(id string) {
	c.mu.Lock()
	h, ok := c.handles[id]
	delete(c.handles, id)
	c.mu.Unlock()
	if ok {
		h.Release()
	}
}

func (c *conn) releaseAll() {
	c.mu.Lock()
	handles := c.handles
	c.handles = make(map[string]Handle)
	c.mu.Unlock()
	for _, h := range handles {
		h.Release()
	}
}

// reply 不阻塞；发送缓冲满说明客户端跟不上，直接断开让客户端重新加载
func (c *conn) reply(f Frame) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- f:
	case <-c.done:
	default:
		wsDropped.Inc()
		util.Logger.Warn("realtime 客户端过慢，断开连接", zap.String("conn_id", c.id))
		c.close()
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return

		case f := <-c.send:
			data, err := json.Marshal(f)
			if err != nil {
				util.Logger.Error("序列化帧失败", zap.Error(err))
				continue
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
