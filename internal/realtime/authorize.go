package realtime

import "fmt"

// Authorizer 判断查看者能否订阅某个范围
type Authorizer func(viewerID, table string, filter Filter) error

// AuthorizeViewer 私信只能订阅与自己相关的消息：每个条件都必须把
// sender_id 或 recipient_id 固定为查看者。其余表是公开的。
func AuthorizeViewer(viewerID, table string, filter Filter) error {
	if table != TableMessages {
		return nil
	}
	if len(filter) == 0 {
		return fmt.Errorf("messages subscriptions must be scoped to the viewer")
	}
	for i, c := range filter {
		if c["sender_id"] != viewerID && c["recipient_id"] != viewerID {
			return fmt.Errorf("clause %d is not scoped to the viewer", i)
		}
	}
	return nil
}
