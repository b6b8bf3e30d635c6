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

// likePatch 点赞边没有可更新的字段
type likePatch struct{}

var likeRules = Rules[model.Like, likePatch]{
	ID:        model.Like.Key,
	Less:      func(a, b model.Like) bool { return a.CreatedAt.After(b.CreatedAt) },
	Merge:     func(l model.Like, _ likePatch) model.Like { return l },
	Placement: Prepend,
}

// PostLikes 某个帖子的点赞用户，数量随变更实时更新
type PostLikes struct {
	*Runtime
	gw     gateway.Gateway
	postID string
	list   *list[model.Like, likePatch]
}

func OpenPostLikes(gw gateway.Gateway, listener realtime.Listener, postID string, opts Options) (*PostLikes, error) {
	if err := gateway.RequireIDs(postID); err != nil {
		return nil, err
	}
	p := &PostLikes{
		Runtime: newRuntime(listener, opts),
		gw:      gw,
		postID:  postID,
	}
	p.list = newList(p.Runtime, "load likes", likeRules, p.fetch)

	err := p.subs.Add(realtime.Subscription{
		Table:    realtime.TableLikes,
		Filter:   realtime.AnyOf(realtime.Where("post_id", postID)),
		OnInsert: p.handler(p.onInsert),
		OnDelete: p.handler(func(e realtime.Event) { p.list.invalidate(e.Key) }),
	})
	if err != nil {
		p.Close()
		return nil, errors.OperationFailed("subscribe likes", err)
	}
	p.list.reload()
	return p, nil
}

func (p *PostLikes) fetch(ctx context.Context) ([]model.Like, func(), error) {
	likes, err := p.gw.ListPostLikes(ctx, p.postID)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.Like, 0, len(likes))
	for _, l := range likes {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out, nil, nil
}

func (p *PostLikes) onInsert(e realtime.Event) {
	var l model.Like
	if err := e.DecodeNew(&l); err != nil {
		util.Logger.Debug("无法解析点赞事件", zap.Error(err))
		return
	}
	p.list.apply(InsertOf[model.Like, likePatch](l.Key(), l))
}

// Count 当前点赞数
func (p *PostLikes) Count() int {
	return len(p.Snapshot().Items)
}

func (p *PostLikes) Snapshot() Snapshot[model.Like] {
	return p.list.snapshot()
}

func (p *PostLikes) Reload() bool {
	return p.list.reload()
}
