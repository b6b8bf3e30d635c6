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

var postRules = Rules[model.Post, model.PostPatch]{
	ID:        func(p model.Post) string { return p.ID },
	Less:      func(a, b model.Post) bool { return a.CreatedAt.After(b.CreatedAt) },
	Merge:     model.Post.Apply,
	Placement: Prepend,
}

type FeedMode int

const (
	// FeedAll 全部帖子（发现页）
	FeedAll FeedMode = iota
	// FeedFollowing 关注的用户的帖子
	FeedFollowing
	// FeedAuthor 某个用户的帖子（个人主页）
	FeedAuthor
)

type FeedScope struct {
	Mode     FeedMode
	AuthorID string
}

func AllPosts() FeedScope { return FeedScope{Mode: FeedAll} }

func FollowingPosts() FeedScope { return FeedScope{Mode: FeedFollowing} }

func PostsBy(authorID string) FeedScope { return FeedScope{Mode: FeedAuthor, AuthorID: authorID} }

// Feed 帖子列表，按时间降序；点赞先在本地生效，失败时回滚
type Feed struct {
	*Runtime
	gw       gateway.Gateway
	viewerID string // 可以为空（匿名浏览）
	scope    FeedScope
	list     *list[model.Post, model.PostPatch]

	following map[string]bool
}

func OpenFeed(gw gateway.Gateway, listener realtime.Listener, viewerID string, scope FeedScope, opts Options) (*Feed, error) {
	switch scope.Mode {
	case FeedAuthor:
		if err := gateway.RequireIDs(scope.AuthorID); err != nil {
			return nil, err
		}
	case FeedFollowing:
		if err := gateway.RequireIDs(viewerID); err != nil {
			return nil, err
		}
	}

	f := &Feed{
		Runtime:   newRuntime(listener, opts),
		gw:        gw,
		viewerID:  viewerID,
		scope:     scope,
		following: make(map[string]bool),
	}
	f.list = newList(f.Runtime, "load posts", postRules, f.fetch)

	if err := f.subscribe(); err != nil {
		f.Close()
		return nil, errors.OperationFailed("subscribe posts", err)
	}
	f.list.reload()
	return f, nil
}

func (f *Feed) subscribe() error {
	var posts realtime.Filter
	if f.scope.Mode == FeedAuthor {
		posts = realtime.AnyOf(realtime.Where("user_id", f.scope.AuthorID))
	}
	err := f.subs.Add(realtime.Subscription{
		Table:    realtime.TablePosts,
		Filter:   posts,
		OnInsert: f.handler(f.onInsert),
		OnUpdate: f.handler(f.onUpdate),
		OnDelete: f.handler(func(e realtime.Event) { f.list.invalidate(e.Key) }),
	})
	if err != nil {
		return err
	}
	if f.viewerID == "" {
		return nil
	}

	// 查看者自己的点赞决定 is_liked
	mine := realtime.AnyOf(realtime.Where("user_id", f.viewerID))
	err = f.subs.Add(realtime.Subscription{
		Table:    realtime.TableLikes,
		Filter:   mine,
		OnInsert: f.handler(func(e realtime.Event) { f.onLike(e, true) }),
		OnDelete: f.handler(func(e realtime.Event) { f.onLike(e, false) }),
	})
	if err != nil || f.scope.Mode != FeedFollowing {
		return err
	}

	// 关注关系变化时帖子范围随之变化
	refresh := f.handler(func(e realtime.Event) { f.list.invalidate(e.Key) })
	return f.subs.Add(realtime.Subscription{
		Table:    realtime.TableFollows,
		Filter:   realtime.AnyOf(realtime.Where("follower_id", f.viewerID)),
		OnInsert: refresh,
		OnDelete: refresh,
	})
}

func (f *Feed) fetch(ctx context.Context) ([]model.Post, func(), error) {
	var (
		posts     []*model.Post
		following []string
		err       error
	)
	switch f.scope.Mode {
	case FeedFollowing:
		if following, err = f.gw.ListFollowing(ctx, f.viewerID); err != nil {
			return nil, nil, err
		}
		posts, err = f.gw.ListFeedPosts(ctx, f.viewerID)
	case FeedAuthor:
		posts, err = f.gw.ListPosts(ctx, f.viewerID, f.scope.AuthorID)
	default:
		posts, err = f.gw.ListPosts(ctx, f.viewerID, "")
	}
	if err != nil {
		return nil, nil, err
	}

	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if p != nil {
			out = append(out, *p)
		}
	}
	commit := func() {
		f.following = make(map[string]bool, len(following))
		for _, id := range following {
			f.following[id] = true
		}
	}
	return out, commit, nil
}

func (f *Feed) inScope(p model.Post) bool {
	switch f.scope.Mode {
	case FeedAuthor:
		return p.UserID == f.scope.AuthorID
	case FeedFollowing:
		return f.following[p.UserID]
	}
	return true
}

func (f *Feed) onInsert(e realtime.Event) {
	var p model.Post
	if err := e.DecodeNew(&p); err != nil {
		util.Logger.Debug("无法解析帖子事件", zap.Error(err))
		return
	}
	if !f.inScope(p) {
		return
	}
	f.list.apply(InsertOf[model.Post, model.PostPatch](p.ID, p))
}

func (f *Feed) onUpdate(e realtime.Event) {
	var patch model.PostPatch
	if err := e.DecodeNew(&patch); err != nil {
		util.Logger.Debug("无法解析帖子更新", zap.Error(err))
		return
	}
	// 其他用户的更新不携带 is_liked
	patch.IsLiked = nil
	f.list.apply(UpdateOf[model.Post](e.Key, patch))
}

func (f *Feed) onLike(e realtime.Event, liked bool) {
	postID := e.Fields["post_id"]
	if postID == "" {
		return
	}
	f.list.apply(UpdateOf[model.Post](postID, model.PostPatch{IsLiked: model.BoolPtr(liked)}))
}

// ToggleLike 立即在本地切换点赞状态，调用失败时恢复原状态。
// 同一帖子上一次切换尚未确认时忽略新的切换。
func (f *Feed) ToggleLike(postID string) error {
	if err := gateway.RequireIDs(postID); err != nil {
		return err
	}
	if f.viewerID == "" {
		return errors.New(errors.ErrValidation, "sign in to like posts")
	}
	ok := f.Post(func() {
		post, found := f.list.rec.Get(postID)
		if !found || f.list.rec.Pending(postID) {
			return
		}
		liked := !post.IsLiked
		count := post.LikeCount + 1
		if !liked {
			count = post.LikeCount - 1
		}
		tok, _ := f.list.rec.Tentative(postID, model.PostPatch{LikeCount: model.IntPtr(count), IsLiked: model.BoolPtr(liked)})
		f.changed()

		f.Go(func(ctx context.Context) func() {
			var (
				n   int
				err error
			)
			if liked {
				n, err = f.gw.LikePost(ctx, postID, f.viewerID)
			} else {
				n, err = f.gw.UnlikePost(ctx, postID, f.viewerID)
			}
			return func() {
				if err != nil {
					f.list.rec.Rollback(tok)
					f.changed()
					f.notice("toggle like", errors.OperationFailed("toggle like", err))
					return
				}
				f.list.rec.Confirm(tok, &model.PostPatch{LikeCount: model.IntPtr(n)})
				f.changed()
			}
		})
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

// Compose 发布帖子；内容校验失败时立即返回，不发起调用
func (f *Feed) Compose(content string) error {
	if f.viewerID == "" {
		return errors.New(errors.ErrValidation, "sign in to post")
	}
	content, err := gateway.ValidatePost(content)
	if err != nil {
		return err
	}
	ok := f.Go(func(ctx context.Context) func() {
		post, err := f.gw.CreatePost(ctx, f.viewerID, content)
		return func() {
			if err != nil {
				f.notice("create post", errors.OperationFailed("create post", err))
				return
			}
			if f.inScope(*post) {
				f.list.apply(InsertOf[model.Post, model.PostPatch](post.ID, *post))
			}
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

func (f *Feed) Snapshot() Snapshot[model.Post] {
	return f.list.snapshot()
}

func (f *Feed) Reload() bool {
	return f.list.reload()
}
