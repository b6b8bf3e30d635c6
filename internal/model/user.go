package model

import "time"

// UserProfile 用户资料；关注数与粉丝数由关注边实时统计
type UserProfile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url"`
	Bio            string    `json:"bio"`
	FollowerCount  int       `json:"follower_count"`
	FollowingCount int       `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProfileSummary 随帖子、消息一起返回的作者信息
type ProfileSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Summary 返回资料的简要信息
func (p *UserProfile) Summary() *ProfileSummary {
	if p == nil {
		return nil
	}
	return &ProfileSummary{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}

// Name 优先显示昵称
func (p *ProfileSummary) Name() string {
	if p == nil {
		return "User"
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return "User"
}

// ProfileUpdate 资料编辑；空字符串表示该字段保持不变
type ProfileUpdate struct {
	Username    string `json:"username" binding:"omitempty,handle"`
	DisplayName string `json:"display_name" binding:"omitempty,max=50"`
	AvatarURL   string `json:"avatar_url" binding:"omitempty,url"`
	Bio         string `json:"bio" binding:"omitempty,max=160"`
}

// Empty 没有任何需要修改的字段
func (u ProfileUpdate) Empty() bool {
	return u.Username == "" && u.DisplayName == "" && u.AvatarURL == "" && u.Bio == ""
}
