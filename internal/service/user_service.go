package service

import (
	"context"
	stderrors "errors"
	"strings"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/repository/interfaces"
)

// SearchUsers 用户名或昵称部分匹配；空白查询直接返回空结果
func (s *SocialService) SearchUsers(ctx context.Context, query string) ([]*model.UserProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.UserProfile{}, nil
	}
	profiles, err := s.profiles.Search(ctx, query, gateway.SearchLimit)
	if err != nil {
		return nil, fail("search users", err, 0)
	}
	return profiles, nil
}

func (s *SocialService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if err := gateway.RequireIDs(userID); err != nil {
		return nil, err
	}
	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, fail("get profile", err, errors.ErrProfileNotFound)
	}
	return p, nil
}

func (s *SocialService) GetProfileByUsername(ctx context.Context, username string) (*model.UserProfile, error) {
	if err := gateway.RequireIDs(username); err != nil {
		return nil, err
	}
	p, err := s.profiles.FindByUsername(ctx, strings.TrimPrefix(username, "@"))
	if err != nil {
		return nil, fail("get profile", err, errors.ErrProfileNotFound)
	}
	return p, nil
}

// UpdateProfile 第一次调用时创建资料行；空字段保持不变
func (s *SocialService) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.UserProfile, error) {
	if err := gateway.RequireIDs(userID); err != nil {
		return nil, err
	}
	update.Username = strings.TrimSpace(update.Username)
	update.DisplayName = strings.TrimSpace(update.DisplayName)
	update.Bio = strings.TrimSpace(update.Bio)

	if err := s.profiles.Upsert(ctx, userID, update); err != nil {
		if stderrors.Is(err, interfaces.ErrDuplicate) {
			return nil, errors.Wrap(errors.ErrResourceExists, "username is already taken", err)
		}
		return nil, fail("update profile", err, 0)
	}

	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, fail("update profile", err, errors.ErrProfileNotFound)
	}
	s.publish(ctx, realtime.TableProfiles, realtime.Update, p.ID, p, nil, map[string]string{"id": p.ID})
	return p, nil
}
