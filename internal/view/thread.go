package view

import (
	"context"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

var messageRules = Rules[model.Message, model.MessagePatch]{
	ID:        func(m model.Message) string { return m.ID },
	Less:      func(a, b model.Message) bool { return a.CreatedAt.Before(b.CreatedAt) },
	Merge:     model.Message.Apply,
	Placement: Append,
}

// Thread 与某个用户之间的私信，按时间升序
type Thread struct {
	*Runtime
	gw            gateway.Gateway
	viewerID      string
	counterpartID string
	list          *list[model.Message, model.MessagePatch]

	marking   bool
	markAgain bool
}

// OpenThread 先订阅再加载，加载期间到达的变更在加载完成后重放
func OpenThread(gw gateway.Gateway, listener realtime.Listener, viewerID, counterpartID string, opts Options) (*Thread, error) {
	if err := gateway.RequireIDs(viewerID, counterpartID); err != nil {
		return nil, err
	}
	t := &Thread{
		Runtime:       newRuntime(listener, opts),
		gw:            gw,
		viewerID:      viewerID,
		counterpartID: counterpartID,
	}
	t.list = newList(t.Runtime, "load messages", messageRules, t.fetch)
	t.list.onLoaded = t.markIfUnread

	scope := realtime.AnyOf(
		realtime.Where("sender_id", viewerID, "recipient_id", counterpartID),
		realtime.Where("sender_id", counterpartID, "recipient_id", viewerID),
	)
	err := t.subs.Add(realtime.Subscription{
		Table:    realtime.TableMessages,
		Filter:   scope,
		OnInsert: t.handler(t.onInsert),
		OnUpdate: t.handler(t.onUpdate),
		OnDelete: t.handler(func(e realtime.Event) { t.list.invalidate(e.Key) }),
	})
	if err != nil {
		t.Close()
		return nil, errors.OperationFailed("subscribe messages", err)
	}
	t.list.reload()
	return t, nil
}

func (t *Thread) fetch(ctx context.Context) ([]model.Message, func(), error) {
	msgs, err := t.gw.ListMessages(ctx, t.viewerID, t.counterpartID)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil, nil
}

func (t *Thread) onInsert(e realtime.Event) {
	var m model.Message
	if err := e.DecodeNew(&m); err != nil {
		util.Logger.Debug("无法解析消息事件", zap.Error(err))
		return
	}
	t.list.apply(InsertOf[model.Message, model.MessagePatch](m.ID, m))
	if m.SenderID == t.counterpartID && !m.Read {
		t.markRead()
	}
}

func (t *Thread) onUpdate(e realtime.Event) {
	var patch model.MessagePatch
	if err := e.DecodeNew(&patch); err != nil {
		util.Logger.Debug("无法解析消息更新", zap.Error(err))
		return
	}
	t.list.apply(UpdateOf[model.Message](e.Key, patch))
}

func (t *Thread) markIfUnread() {
	for _, m := range t.list.rec.items {
		if m.SenderID == t.counterpartID && !m.Read {
			t.markRead()
			return
		}
	}
}

// markRead 同一时刻只有一个请求；请求期间又有新消息时结束后再标记一次
func (t *Thread) markRead() {
	if t.marking {
		t.markAgain = true
		return
	}
	t.marking = true
	t.Go(func(ctx context.Context) func() {
		err := t.gw.MarkRead(ctx, t.viewerID, t.counterpartID)
		return func() {
			t.marking = false
			if err != nil {
				t.notice("mark read", errors.OperationFailed("mark read", err))
				t.markAgain = false
				return
			}
			if t.markAgain {
				t.markAgain = false
				t.markRead()
			}
		}
	})
}

// Send 校验失败时立即返回 ValidationFailure，不发起任何调用；发送失败通过 OnNotice 报告
func (t *Thread) Send(text string, image *storage.File) error {
	text, err := gateway.ValidateMessage(text, image, t.opts.MaxImageBytes)
	if err != nil {
		return err
	}
	ok := t.Go(func(ctx context.Context) func() {
		msg, err := t.gw.SendMessage(ctx, t.viewerID, t.counterpartID, text, image)
		return func() {
			if err != nil {
				t.notice("send message", errors.OperationFailed("send message", err))
				return
			}
			t.list.apply(InsertOf[model.Message, model.MessagePatch](msg.ID, *msg))
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

func (t *Thread) Snapshot() Snapshot[model.Message] {
	return t.list.snapshot()
}

// Reload 重新加载，失败后重试也用它
func (t *Thread) Reload() bool {
	return t.list.reload()
}
