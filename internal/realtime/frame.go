package realtime

// websocket 帧的操作类型
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpPing        = "ping"

	OpSubscribed = "subscribed"
	OpEvent      = "event"
	OpError      = "error"
	OpPong       = "pong"
)

// Frame 客户端与服务端之间交换的消息；ID 是客户端生成的订阅ID
type Frame struct {
	Op     string `json:"op"`
	ID     string `json:"id,omitempty"`
	Table  string `json:"table,omitempty"`
	Filter Filter `json:"filter,omitempty"`
	Event  *Event `json:"event,omitempty"`
	Error  string `json:"error,omitempty"`
}
