package service

import (
	"context"
	"fmt"

	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

// readRow messages 更新事件只携带已读标记
type readRow struct {
	ID   string `json:"id"`
	Read bool   `json:"read"`
}

func messageFields(m *model.Message) map[string]string {
	return map[string]string{"id": m.ID, "sender_id": m.SenderID, "recipient_id": m.RecipientID}
}

func (s *SocialService) ListMessages(ctx context.Context, viewerID, counterpartID string) ([]*model.Message, error) {
	if err := gateway.RequireIDs(viewerID, counterpartID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBetween(ctx, viewerID, counterpartID)
	if err != nil {
		return nil, fail("list messages", err, 0)
	}
	return msgs, nil
}

func (s *SocialService) ListConversations(ctx context.Context, viewerID string) ([]*model.Conversation, error) {
	if err := gateway.RequireIDs(viewerID); err != nil {
		return nil, err
	}
	latest, err := s.messages.ListLatestPerCounterpart(ctx, viewerID)
	if err != nil {
		return nil, fail("list conversations", err, 0)
	}
	convs := make([]*model.Conversation, 0, len(latest))
	for _, m := range latest {
		conv := model.ConversationFromMessage(viewerID, *m)
		convs = append(convs, &conv)
	}
	return convs, nil
}

// SendMessage 先校验再上传图片；校验失败时不会有任何上传
func (s *SocialService) SendMessage(ctx context.Context, senderID, recipientID, text string, image *storage.File) (*model.Message, error) {
	if err := gateway.RequireIDs(senderID, recipientID); err != nil {
		return nil, err
	}
	text, err := gateway.ValidateMessage(text, image, s.maxImageBytes)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:          s.newID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     text,
		CreatedAt:   s.now(),
	}
	if image != nil {
		path := fmt.Sprintf("messages/%s/%s", senderID, util.GenerateUniqueFilename(image.Name))
		if msg.ImageURL, err = s.storage.UploadFile(ctx, image, path); err != nil {
			return nil, fail("upload attachment", err, 0)
		}
	}

	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fail("send message", err, 0)
	}

	summaries, err := s.profiles.FindSummaries(ctx, []string{senderID, recipientID})
	if err != nil {
		util.Logger.Warn("查询消息双方资料失败", zap.Error(err))
	}
	msg.Sender = summaryOrID(summaries, senderID)
	msg.Recipient = summaryOrID(summaries, recipientID)

	s.publish(ctx, realtime.TableMessages, realtime.Insert, msg.ID, msg, nil, messageFields(msg))
	return msg, nil
}

// MarkRead 对方发给查看者的未读消息全部标记为已读；已读的消息不会再产生事件
func (s *SocialService) MarkRead(ctx context.Context, viewerID, counterpartID string) error {
	if err := gateway.RequireIDs(viewerID, counterpartID); err != nil {
		return err
	}
	changed, err := s.messages.MarkRead(ctx, viewerID, counterpartID)
	if err != nil {
		return fail("mark read", err, 0)
	}
	for _, m := range changed {
		s.publish(ctx, realtime.TableMessages, realtime.Update, m.ID,
			readRow{ID: m.ID, Read: true}, readRow{ID: m.ID, Read: false}, messageFields(m))
	}
	return nil
}

// DeleteConversation 对双方都生效；每条被删除的消息各发布一个删除事件
func (s *SocialService) DeleteConversation(ctx context.Context, ownerID, counterpartID string) error {
	if err := gateway.RequireIDs(ownerID, counterpartID); err != nil {
		return err
	}
	deleted, err := s.messages.DeleteBetween(ctx, ownerID, counterpartID)
	if err != nil {
		return fail("delete conversation", err, 0)
	}
	for _, m := range deleted {
		s.publish(ctx, realtime.TableMessages, realtime.Delete, m.ID, nil, m, messageFields(m))
	}
	return nil
}

func (s *SocialService) UploadImage(ctx context.Context, ownerID string, file *storage.File) (string, error) {
	if err := gateway.RequireIDs(ownerID); err != nil {
		return "", err
	}
	if err := storage.ValidateImage(file, s.maxImageBytes); err != nil {
		return "", err
	}
	path := fmt.Sprintf("images/%s/%s", ownerID, util.GenerateUniqueFilename(file.Name))
	url, err := s.storage.UploadFile(ctx, file, path)
	if err != nil {
		return "", fail("upload image", err, 0)
	}
	return url, nil
}

func summaryOrID(summaries map[string]*model.ProfileSummary, id string) *model.ProfileSummary {
	if p, ok := summaries[id]; ok && p != nil {
		return p
	}
	return &model.ProfileSummary{ID: id}
}
