package model

import "time"

// Message 私信；read 只会由 false 变为 true
type Message struct {
	ID          string          `json:"id"`
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Content     string          `json:"content"`
	ImageURL    string          `json:"image_url,omitempty"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"created_at"`
	Sender      *ProfileSummary `json:"sender,omitempty"`
	Recipient   *ProfileSummary `json:"recipient,omitempty"`
}

// MessagePatch 消息的可合并字段
type MessagePatch struct {
	Read *bool `json:"read,omitempty"`
}

func (m Message) Apply(patch MessagePatch) Message {
	if patch.Read != nil {
		m.Read = *patch.Read
	}
	return m
}

// Counterpart 返回对话中另一方的ID
func (m Message) Counterpart(viewerID string) string {
	if m.SenderID == viewerID {
		return m.RecipientID
	}
	return m.SenderID
}

// Conversation 会话摘要：与某个对方之间最新的一条消息
type Conversation struct {
	ID            string          `json:"id"` // 最新消息的ID
	SenderID      string          `json:"sender_id"`
	RecipientID   string          `json:"recipient_id"`
	CounterpartID string          `json:"counterpart_id"`
	Content       string          `json:"content"`
	HasImage      bool            `json:"has_image"`
	Read          bool            `json:"read"`
	CreatedAt     time.Time       `json:"created_at"`
	Counterpart   *ProfileSummary `json:"counterpart,omitempty"`
}

// Unread 只有发给自己的未读消息才算未读
func (c Conversation) Unread(viewerID string) bool {
	return !c.Read && c.RecipientID == viewerID
}

func (c Conversation) Apply(patch MessagePatch) Conversation {
	if patch.Read != nil {
		c.Read = *patch.Read
	}
	return c
}

// ConversationFromMessage 以一条消息投影出会话摘要
func ConversationFromMessage(viewerID string, m Message) Conversation {
	conv := Conversation{
		ID:            m.ID,
		SenderID:      m.SenderID,
		RecipientID:   m.RecipientID,
		CounterpartID: m.Counterpart(viewerID),
		Content:       m.Content,
		HasImage:      m.ImageURL != "",
		Read:          m.Read,
		CreatedAt:     m.CreatedAt,
	}
	if m.SenderID == viewerID {
		conv.Counterpart = m.Recipient
	} else {
		conv.Counterpart = m.Sender
	}
	return conv
}
