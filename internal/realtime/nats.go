package realtime

import (
	"context"
	"fmt"
	"time"

	"socialverse-backend/internal/util"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ConnectNATS 连接 NATS，断线后自动重连
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("socialverse-backend"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				util.Logger.Warn("NATS 连接断开", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			util.Logger.Info("NATS 已重连", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSBridge 多实例部署时的变更分发：写入方把事件发布到 <subject>.<table>，
// 每个实例订阅 <subject>.> 并投递给本地 Hub。本实例发布的事件同样经由 NATS 回到本地，
// 投递路径只有一条。
type NATSBridge struct {
	nc      *nats.Conn
	subject string
	hub     *Hub
	sub     *nats.Subscription
}

func NewNATSBridge(nc *nats.Conn, subject string, hub *Hub) *NATSBridge {
	return &NATSBridge{nc: nc, subject: subject, hub: hub}
}

// Start 开始接收其他实例（以及本实例）发布的事件
func (b *NATSBridge) Start() error {
	sub, err := b.nc.Subscribe(b.subject+".>", func(m *nats.Msg) {
		var e Event
		if err := json.Unmarshal(m.Data, &e); err != nil {
			util.Logger.Warn("无法解析变更事件", zap.Error(err), zap.String("subject", m.Subject))
			return
		}
		if err := b.hub.Publish(context.Background(), e); err != nil {
			util.Logger.Warn("投递变更事件失败", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	b.sub = sub
	// 保证订阅在服务端生效后才返回
	return b.nc.Flush()
}

func (b *NATSBridge) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject+"."+e.Table, data)
}

func (b *NATSBridge) Subscribe(sub Subscription) (Handle, error) {
	return b.hub.Subscribe(sub)
}

func (b *NATSBridge) Close() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}
