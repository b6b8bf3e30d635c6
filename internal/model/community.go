package model

import "time"

// MaxPostLength 帖子内容的最大字符数
const MaxPostLength = 280

type Post struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Author    *ProfileSummary `json:"author,omitempty"`
	LikeCount int             `json:"like_count"`
	IsLiked   bool            `json:"is_liked"`
}

// PostPatch 帖子的可合并字段，nil 表示该字段未出现在变更中
type PostPatch struct {
	LikeCount *int  `json:"like_count,omitempty"`
	IsLiked   *bool `json:"is_liked,omitempty"`
}

// Apply 浅合并，只覆盖 patch 中出现的字段
func (p Post) Apply(patch PostPatch) Post {
	if patch.LikeCount != nil {
		p.LikeCount = *patch.LikeCount
		if p.LikeCount < 0 {
			p.LikeCount = 0
		}
	}
	if patch.IsLiked != nil {
		p.IsLiked = *patch.IsLiked
	}
	return p
}

type Like struct {
	PostID    string          `json:"post_id"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
	User      *ProfileSummary `json:"user,omitempty"`
}

// Key 点赞边没有独立ID，以 post_id:user_id 作为键
func (l Like) Key() string {
	return LikeKey(l.PostID, l.UserID)
}

func LikeKey(postID, userID string) string {
	return postID + ":" + userID
}

type Follow struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Key 关注边的键
func (f Follow) Key() string {
	return f.FollowerID + ":" + f.FollowingID
}

func BoolPtr(b bool) *bool { return &b }

func IntPtr(i int) *int { return &i }
