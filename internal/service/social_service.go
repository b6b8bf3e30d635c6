package service

import (
	"context"
	stderrors "errors"
	"time"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/repository/interfaces"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// SocialService 进程内的 Gateway 实现：写入存储后发布变更事件
type SocialService struct {
	posts     interfaces.PostRepository
	follows   interfaces.FollowRepository
	profiles  interfaces.ProfileRepository
	messages  interfaces.MessageRepository
	storage   storage.Storage
	publisher realtime.Publisher

	maxImageBytes int64
	now           func() time.Time
	newID         func() string
}

var _ gateway.Gateway = (*SocialService)(nil)

type Repositories struct {
	Posts    interfaces.PostRepository
	Follows  interfaces.FollowRepository
	Profiles interfaces.ProfileRepository
	Messages interfaces.MessageRepository
}

func NewSocialService(repos Repositories, store storage.Storage, publisher realtime.Publisher, maxImageBytes int64) *SocialService {
	if maxImageBytes <= 0 {
		maxImageBytes = storage.MaxImageBytes
	}
	return &SocialService{
		posts:         repos.Posts,
		follows:       repos.Follows,
		profiles:      repos.Profiles,
		messages:      repos.Messages,
		storage:       store,
		publisher:     publisher,
		maxImageBytes: maxImageBytes,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:         func() string { return ulid.Make().String() },
	}
}

// fail 记录日志并统一包装为 OperationFailure；notFound 不为零时把 ErrNotFound 映射为该错误码
func fail(op string, err error, notFound errors.ErrorCode) error {
	if notFound != 0 && stderrors.Is(err, interfaces.ErrNotFound) {
		return errors.Wrap(notFound, op+": not found", err)
	}
	if errors.IsValidation(err) {
		return err
	}
	util.Logger.Error("网关操作失败", zap.String("op", op), zap.Error(err))
	return errors.OperationFailed(op, err)
}

// publish 写入已经成功，发布失败只记录日志
func (s *SocialService) publish(ctx context.Context, table string, kind realtime.Kind, key string, newRow, oldRow interface{}, fields map[string]string) {
	if s.publisher == nil {
		return
	}
	e, err := realtime.NewEvent(table, kind, key, newRow, oldRow, fields)
	if err == nil {
		err = s.publisher.Publish(context.WithoutCancel(ctx), e)
	}
	if err != nil {
		util.Logger.Warn("发布变更事件失败",
			zap.String("table", table),
			zap.String("kind", string(kind)),
			zap.String("key", key),
			zap.Error(err))
	}
}
