package service

import (
	"context"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

// likeCountRow posts 更新事件只携带发生变化的列
type likeCountRow struct {
	ID        string `json:"id"`
	LikeCount int    `json:"like_count"`
}

func postFields(p *model.Post) map[string]string {
	return map[string]string{"id": p.ID, "user_id": p.UserID}
}

func likeFields(postID, userID string) map[string]string {
	return map[string]string{"post_id": postID, "user_id": userID}
}

func followFields(followerID, followingID string) map[string]string {
	return map[string]string{"follower_id": followerID, "following_id": followingID}
}

func (s *SocialService) ListPosts(ctx context.Context, viewerID, authorID string) ([]*model.Post, error) {
	posts, err := s.posts.ListPosts(ctx, viewerID, authorID)
	if err != nil {
		return nil, fail("list posts", err, 0)
	}
	return posts, nil
}

func (s *SocialService) ListFeedPosts(ctx context.Context, viewerID string) ([]*model.Post, error) {
	if err := gateway.RequireIDs(viewerID); err != nil {
		return nil, err
	}
	following, err := s.follows.ListFollowing(ctx, viewerID)
	if err != nil {
		return nil, fail("list feed", err, 0)
	}
	posts, err := s.posts.ListPostsByAuthors(ctx, viewerID, following)
	if err != nil {
		return nil, fail("list feed", err, 0)
	}
	return posts, nil
}

func (s *SocialService) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.follows.ListFollowing(ctx, userID)
	if err != nil {
		return nil, fail("list following", err, 0)
	}
	return ids, nil
}

func (s *SocialService) ListPostLikes(ctx context.Context, postID string) ([]*model.Like, error) {
	likes, err := s.posts.ListPostLikes(ctx, postID)
	if err != nil {
		return nil, fail("list likes", err, 0)
	}
	return likes, nil
}

func (s *SocialService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	ok, err := s.follows.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return false, fail("follow status", err, 0)
	}
	return ok, nil
}

func (s *SocialService) IsPostLiked(ctx context.Context, postID, userID string) (bool, error) {
	ok, err := s.posts.IsPostLiked(ctx, postID, userID)
	if err != nil {
		return false, fail("like status", err, 0)
	}
	return ok, nil
}

func (s *SocialService) CreatePost(ctx context.Context, authorID, content string) (*model.Post, error) {
	if err := gateway.RequireIDs(authorID); err != nil {
		return nil, err
	}
	content, err := gateway.ValidatePost(content)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		ID:        s.newID(),
		UserID:    authorID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fail("create post", err, 0)
	}

	summaries, err := s.profiles.FindSummaries(ctx, []string{authorID})
	if err != nil {
		util.Logger.Warn("查询作者资料失败", zap.Error(err))
	}
	post.Author = summaries[authorID]
	if post.Author == nil {
		post.Author = &model.ProfileSummary{ID: authorID}
	}

	s.publish(ctx, realtime.TablePosts, realtime.Insert, post.ID, post, nil, postFields(post))
	return post, nil
}

// LikePost 点赞边与计数在同一事务内写入；重复点赞不改变计数也不发布事件
func (s *SocialService) LikePost(ctx context.Context, postID, userID string) (int, error) {
	if err := gateway.RequireIDs(postID, userID); err != nil {
		return 0, err
	}
	post, err := s.posts.GetPostByID(ctx, postID, userID)
	if err != nil {
		return 0, fail("like post", err, errors.ErrPostNotFound)
	}

	like := &model.Like{PostID: postID, UserID: userID, CreatedAt: s.now()}
	count, changed, err := s.posts.LikePost(ctx, like)
	if err != nil {
		return 0, fail("like post", err, errors.ErrPostNotFound)
	}
	if !changed {
		return count, nil
	}

	summaries, err := s.profiles.FindSummaries(ctx, []string{userID})
	if err != nil {
		util.Logger.Warn("查询点赞用户资料失败", zap.Error(err))
	}
	like.User = summaries[userID]
	if like.User == nil {
		like.User = &model.ProfileSummary{ID: userID}
	}

	s.publish(ctx, realtime.TableLikes, realtime.Insert, like.Key(), like, nil, likeFields(postID, userID))
	s.publish(ctx, realtime.TablePosts, realtime.Update, postID,
		likeCountRow{ID: postID, LikeCount: count},
		likeCountRow{ID: postID, LikeCount: count - 1},
		postFields(post))
	return count, nil
}

func (s *SocialService) UnlikePost(ctx context.Context, postID, userID string) (int, error) {
	if err := gateway.RequireIDs(postID, userID); err != nil {
		return 0, err
	}
	post, err := s.posts.GetPostByID(ctx, postID, userID)
	if err != nil {
		return 0, fail("unlike post", err, errors.ErrPostNotFound)
	}

	count, changed, err := s.posts.UnlikePost(ctx, postID, userID)
	if err != nil {
		return 0, fail("unlike post", err, errors.ErrPostNotFound)
	}
	if !changed {
		return count, nil
	}

	old := &model.Like{PostID: postID, UserID: userID}
	s.publish(ctx, realtime.TableLikes, realtime.Delete, old.Key(), nil, old, likeFields(postID, userID))
	s.publish(ctx, realtime.TablePosts, realtime.Update, postID,
		likeCountRow{ID: postID, LikeCount: count},
		likeCountRow{ID: postID, LikeCount: count + 1},
		postFields(post))
	return count, nil
}

func (s *SocialService) Follow(ctx context.Context, followerID, followingID string) error {
	if err := gateway.ValidateFollow(followerID, followingID); err != nil {
		return err
	}
	follow := &model.Follow{FollowerID: followerID, FollowingID: followingID, CreatedAt: s.now()}
	changed, err := s.follows.CreateFollow(ctx, follow)
	if err != nil {
		return fail("follow", err, 0)
	}
	if changed {
		s.publish(ctx, realtime.TableFollows, realtime.Insert, follow.Key(), follow, nil,
			followFields(followerID, followingID))
	}
	return nil
}

func (s *SocialService) Unfollow(ctx context.Context, followerID, followingID string) error {
	if err := gateway.ValidateFollow(followerID, followingID); err != nil {
		return err
	}
	changed, err := s.follows.DeleteFollow(ctx, followerID, followingID)
	if err != nil {
		return fail("unfollow", err, 0)
	}
	if changed {
		old := &model.Follow{FollowerID: followerID, FollowingID: followingID}
		s.publish(ctx, realtime.TableFollows, realtime.Delete, old.Key(), nil, old,
			followFields(followerID, followingID))
	}
	return nil
}
