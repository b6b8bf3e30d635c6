package view

import (
	"context"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

var conversationRules = Rules[model.Conversation, model.MessagePatch]{
	ID:        func(c model.Conversation) string { return c.ID },
	Less:      func(a, b model.Conversation) bool { return a.CreatedAt.After(b.CreatedAt) },
	Merge:     model.Conversation.Apply,
	Placement: Prepend,
	// 同一对方只保留最新的一条摘要
	Supersedes: func(existing, incoming model.Conversation) bool {
		return existing.CounterpartID == incoming.CounterpartID && !incoming.CreatedAt.Before(existing.CreatedAt)
	},
	Obsolete: func(existing, incoming model.Conversation) bool {
		return existing.CounterpartID == incoming.CounterpartID && incoming.CreatedAt.Before(existing.CreatedAt)
	},
}

// Conversations 会话列表，每个对方一条摘要，按时间降序
type Conversations struct {
	*Runtime
	gw       gateway.Gateway
	viewerID string
	list     *list[model.Conversation, model.MessagePatch]
}

func OpenConversations(gw gateway.Gateway, listener realtime.Listener, viewerID string, opts Options) (*Conversations, error) {
	if err := gateway.RequireIDs(viewerID); err != nil {
		return nil, err
	}
	c := &Conversations{
		Runtime:  newRuntime(listener, opts),
		gw:       gw,
		viewerID: viewerID,
	}
	c.list = newList(c.Runtime, "load conversations", conversationRules, c.fetch)

	err := c.subs.Add(realtime.Subscription{
		Table: realtime.TableMessages,
		Filter: realtime.AnyOf(
			realtime.Where("sender_id", viewerID),
			realtime.Where("recipient_id", viewerID),
		),
		OnInsert: c.handler(c.onInsert),
		OnUpdate: c.handler(c.onUpdate),
		OnDelete: c.handler(func(e realtime.Event) { c.list.invalidate(e.Key) }),
	})
	if err != nil {
		c.Close()
		return nil, errors.OperationFailed("subscribe conversations", err)
	}
	c.list.reload()
	return c, nil
}

func (c *Conversations) fetch(ctx context.Context) ([]model.Conversation, func(), error) {
	convs, err := c.gw.ListConversations(ctx, c.viewerID)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.Conversation, 0, len(convs))
	for _, conv := range convs {
		if conv != nil {
			out = append(out, *conv)
		}
	}
	return out, nil, nil
}

func (c *Conversations) onInsert(e realtime.Event) {
	var m model.Message
	if err := e.DecodeNew(&m); err != nil {
		util.Logger.Debug("无法解析消息事件", zap.Error(err))
		return
	}
	conv := model.ConversationFromMessage(c.viewerID, m)
	c.list.apply(InsertOf[model.Conversation, model.MessagePatch](conv.ID, conv))
}

func (c *Conversations) onUpdate(e realtime.Event) {
	var patch model.MessagePatch
	if err := e.DecodeNew(&patch); err != nil {
		util.Logger.Debug("无法解析消息更新", zap.Error(err))
		return
	}
	c.list.apply(UpdateOf[model.Conversation](e.Key, patch))
}

// Delete 删除与对方的整个会话，不可恢复；成功后重新加载列表
func (c *Conversations) Delete(counterpartID string) error {
	if err := gateway.RequireIDs(counterpartID); err != nil {
		return err
	}
	ok := c.Go(func(ctx context.Context) func() {
		err := c.gw.DeleteConversation(ctx, c.viewerID, counterpartID)
		return func() {
			if err != nil {
				c.notice("delete conversation", errors.OperationFailed("delete conversation", err))
				return
			}
			c.list.invalidate(counterpartID)
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

// Unread 发给查看者且未读的会话数
func (c *Conversations) Unread() int {
	n := 0
	for _, conv := range c.Snapshot().Items {
		if conv.Unread(c.viewerID) {
			n++
		}
	}
	return n
}

func (c *Conversations) Snapshot() Snapshot[model.Conversation] {
	return c.list.snapshot()
}

func (c *Conversations) Reload() bool {
	return c.list.reload()
}
