package interfaces

import (
	"context"

	"socialverse-backend/internal/model"
)

// MessageRepository 私信
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	// ListBetween 双方向的消息，按 created_at 升序
	ListBetween(ctx context.Context, a, b string) ([]*model.Message, error)
	// ListLatestPerCounterpart 每个对方最新的一条消息，按 created_at 降序
	ListLatestPerCounterpart(ctx context.Context, viewerID string) ([]*model.Message, error)
	// MarkRead 返回本次由未读变为已读的消息
	MarkRead(ctx context.Context, viewerID, counterpartID string) ([]*model.Message, error)
	// DeleteBetween 返回被删除的消息
	DeleteBetween(ctx context.Context, a, b string) ([]*model.Message, error)
}
