package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

type messageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *messageRepository {
	return &messageRepository{db: db}
}

const messageSelect = `
        SELECT m.id, m.sender_id, m.recipient_id, m.content, m.image_url, m.is_read, m.created_at,
               s.username, s.display_name, s.avatar_url,
               r.username, r.display_name, r.avatar_url
        FROM messages m
        LEFT JOIN profiles s ON s.id = m.sender_id
        LEFT JOIN profiles r ON r.id = m.recipient_id`

const betweenClause = ` WHERE ((m.sender_id = ? AND m.recipient_id = ?) OR (m.sender_id = ? AND m.recipient_id = ?))`

func (r *messageRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	query := `INSERT INTO messages (id, sender_id, recipient_id, content, image_url, is_read, created_at)
              VALUES (?, ?, ?, ?, ?, FALSE, ?)`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.SenderID, msg.RecipientID, msg.Content, msg.ImageURL, msg.CreatedAt)
	if err != nil {
		util.Logger.Error("发送消息失败", zap.Error(err),
			zap.String("sender_id", msg.SenderID),
			zap.String("recipient_id", msg.RecipientID))
		return err
	}
	return nil
}

func (r *messageRepository) ListBetween(ctx context.Context, a, b string) ([]*model.Message, error) {
	return queryMessages(ctx, r.db, messageSelect+betweenClause+` ORDER BY m.created_at ASC, m.id ASC`, a, b, b, a)
}

func (r *messageRepository) ListLatestPerCounterpart(ctx context.Context, viewerID string) ([]*model.Message, error) {
	msgs, err := queryMessages(ctx, r.db,
		messageSelect+` WHERE m.sender_id = ? OR m.recipient_id = ? ORDER BY m.created_at DESC, m.id DESC`,
		viewerID, viewerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	latest := []*model.Message{}
	for _, m := range msgs {
		counterpart := m.Counterpart(viewerID)
		if seen[counterpart] {
			continue
		}
		seen[counterpart] = true
		latest = append(latest, m)
	}
	return latest, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, viewerID, counterpartID string) ([]*model.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	unread, err := queryMessages(ctx, tx,
		messageSelect+` WHERE m.sender_id = ? AND m.recipient_id = ? AND m.is_read = FALSE ORDER BY m.created_at ASC FOR UPDATE`,
		counterpartID, viewerID)
	if err != nil {
		return nil, err
	}
	if len(unread) == 0 {
		return unread, nil
	}

	ids := make([]string, len(unread))
	for i, m := range unread {
		ids[i] = m.ID
	}
	query := fmt.Sprintf(`UPDATE messages SET is_read = TRUE WHERE id IN (%s)`, placeholders(len(ids)))
	if _, err := tx.ExecContext(ctx, query, stringArgs(ids)...); err != nil {
		util.Logger.Error("标记已读失败", zap.Error(err), zap.String("user_id", viewerID))
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, m := range unread {
		m.Read = true
	}
	return unread, nil
}

// DeleteBetween 删除双方之间的全部消息，对双方都生效
func (r *messageRepository) DeleteBetween(ctx context.Context, a, b string) ([]*model.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	msgs, err := queryMessages(ctx, tx, messageSelect+betweenClause+` ORDER BY m.created_at ASC FOR UPDATE`, a, b, b, a)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	del := `DELETE FROM messages WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)`
	if _, err := tx.ExecContext(ctx, del, a, b, b, a); err != nil {
		util.Logger.Error("删除会话失败", zap.Error(err), zap.String("user_id", a), zap.String("counterpart_id", b))
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	util.Logger.Info("会话已删除", zap.String("user_id", a), zap.String("counterpart_id", b), zap.Int("count", len(msgs)))
	return msgs, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func queryMessages(ctx context.Context, q querier, query string, args ...interface{}) ([]*model.Message, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		util.Logger.Error("查询消息失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	msgs := []*model.Message{}
	for rows.Next() {
		var m model.Message
		var sender, recipient profileCols
		dest := []interface{}{&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.ImageURL, &m.Read, &m.CreatedAt}
		dest = append(dest, sender.dest()...)
		dest = append(dest, recipient.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		m.Sender = sender.summary(m.SenderID)
		m.Recipient = recipient.summary(m.RecipientID)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
