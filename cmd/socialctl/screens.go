package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/view"

	"github.com/docopt/docopt-go"
)

// screen 四种界面共有的部分
type screen interface {
	Flush()
	Close()
}

// mount 等待首次加载完成后打印；--watch 时每次变化都重新打印，直到中断
func mount(ctx context.Context, opts docopt.Opts, sc screen, render func(io.Writer), ev screenEvents) error {
	defer sc.Close()
	sc.Flush()
	render(os.Stdout)

	watch, _ := opts.Bool("--watch")
	if !watch {
		select {
		case n := <-ev.notices:
			return n.Err
		default:
			return nil
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ev.changes:
			fmt.Fprintln(os.Stdout, strings.Repeat("-", 40))
			render(os.Stdout)
		case n := <-ev.notices:
			fmt.Fprintf(os.Stderr, "! %s: %v\n", n.Op, n.Err)
		}
	}
}

// screenEvents 界面回调转成通道，打印只在命令的 goroutine 中进行
type screenEvents struct {
	changes chan struct{}
	notices chan view.Notice
}

func screenOptions() (view.Options, screenEvents) {
	ev := screenEvents{
		changes: make(chan struct{}, 1),
		notices: make(chan view.Notice, 16),
	}
	o := view.Options{
		OnChange: func() {
			select {
			case ev.changes <- struct{}{}:
			default:
			}
		},
		OnNotice: func(n view.Notice) {
			select {
			case ev.notices <- n:
			default:
			}
		},
	}
	return o, ev
}

func stamp(t time.Time) string {
	return t.Local().Format("01-02 15:04")
}

func showFeed(ctx context.Context, s *session, opts docopt.Opts) error {
	scope := view.AllPosts()
	if author, _ := opts.String("--author"); author != "" {
		scope = view.PostsBy(author)
	} else if following, _ := opts.Bool("--following"); following {
		scope = view.FollowingPosts()
	}
	listener, err := s.realtime(ctx)
	if err != nil {
		return err
	}

	var feed *view.Feed
	render := func(w io.Writer) { renderPosts(w, feed.Snapshot()) }
	o, ev := screenOptions()
	feed, err = view.OpenFeed(s.gw, listener, s.viewerID, scope, o)
	if err != nil {
		return err
	}
	return mount(ctx, opts, feed, render, ev)
}

func renderPosts(w io.Writer, snap view.Snapshot[model.Post]) {
	if snap.State == view.Failed {
		fmt.Fprintf(w, "failed to load posts: %v\n", snap.Err)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range snap.Items {
		author := p.UserID
		if p.Author != nil && p.Author.Username != "" {
			author = "@" + p.Author.Username
		}
		heart := " "
		if p.IsLiked {
			heart = "♥"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %d\t%s\t%s\n", p.ID, author, heart, p.LikeCount, stamp(p.CreatedAt), p.Content)
	}
	tw.Flush()
}

func createPost(ctx context.Context, s *session, opts docopt.Opts) error {
	content, _ := opts.String("<content>")
	post, err := s.gw.CreatePost(ctx, s.viewerID, content)
	if err != nil {
		return err
	}
	fmt.Println(post.ID)
	return nil
}

// toggleLike 点赞状态取反并打印新的计数
func toggleLike(ctx context.Context, s *session, opts docopt.Opts) error {
	postID, _ := opts.String("<post_id>")
	liked, err := s.gw.IsPostLiked(ctx, postID, s.viewerID)
	if err != nil {
		return err
	}
	var count int
	if liked {
		count, err = s.gw.UnlikePost(ctx, postID, s.viewerID)
	} else {
		count, err = s.gw.LikePost(ctx, postID, s.viewerID)
	}
	if err != nil {
		return err
	}
	fmt.Printf("liked=%t likes=%d\n", !liked, count)
	return nil
}

func showLikes(ctx context.Context, s *session, opts docopt.Opts) error {
	postID, _ := opts.String("<post_id>")
	listener, err := s.realtime(ctx)
	if err != nil {
		return err
	}

	var likes *view.PostLikes
	render := func(w io.Writer) {
		snap := likes.Snapshot()
		fmt.Fprintf(w, "%d likes\n", len(snap.Items))
		for _, l := range snap.Items {
			name := l.UserID
			if l.User != nil && l.User.Username != "" {
				name = "@" + l.User.Username
			}
			fmt.Fprintf(w, "  %s  %s\n", name, stamp(l.CreatedAt))
		}
	}
	o, ev := screenOptions()
	likes, err = view.OpenPostLikes(s.gw, listener, postID, o)
	if err != nil {
		return err
	}
	return mount(ctx, opts, likes, render, ev)
}

func showThread(ctx context.Context, s *session, opts docopt.Opts) error {
	counterpartID, _ := opts.String("<user_id>")
	listener, err := s.realtime(ctx)
	if err != nil {
		return err
	}

	var thread *view.Thread
	render := func(w io.Writer) {
		snap := thread.Snapshot()
		if snap.State == view.Failed {
			fmt.Fprintf(w, "failed to load messages: %v\n", snap.Err)
			return
		}
		for _, m := range snap.Items {
			who := "them"
			if m.SenderID == s.viewerID {
				who = "you "
			}
			read := ""
			if m.SenderID == s.viewerID && m.Read {
				read = " ✓"
			}
			body := m.Content
			if m.ImageURL != "" {
				body = strings.TrimSpace(body + " [image " + m.ImageURL + "]")
			}
			fmt.Fprintf(w, "%s %s: %s%s\n", stamp(m.CreatedAt), who, body, read)
		}
	}
	o, ev := screenOptions()
	thread, err = view.OpenThread(s.gw, listener, s.viewerID, counterpartID, o)
	if err != nil {
		return err
	}

	text, _ := opts.String("--send")
	imagePath, _ := opts.String("--image")
	if text != "" || imagePath != "" {
		image, closeImage, err := openImage(imagePath)
		if err != nil {
			thread.Close()
			return err
		}
		defer closeImage()
		if err := thread.Send(text, image); err != nil {
			thread.Close()
			return err
		}
	}
	return mount(ctx, opts, thread, render, ev)
}

func openImage(path string) (*storage.File, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return &storage.File{Name: info.Name(), Size: info.Size(), Body: f}, func() { f.Close() }, nil
}

func showConversations(ctx context.Context, s *session, opts docopt.Opts) error {
	listener, err := s.realtime(ctx)
	if err != nil {
		return err
	}

	var convs *view.Conversations
	render := func(w io.Writer) {
		snap := convs.Snapshot()
		if snap.State == view.Failed {
			fmt.Fprintf(w, "failed to load conversations: %v\n", snap.Err)
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, c := range snap.Items {
			name := c.CounterpartID
			if c.Counterpart != nil && c.Counterpart.Username != "" {
				name = "@" + c.Counterpart.Username
			}
			mark := " "
			if c.Unread(s.viewerID) {
				mark = "*"
			}
			snippet := c.Content
			if snippet == "" && c.HasImage {
				snippet = "[image]"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, name, stamp(c.CreatedAt), snippet)
		}
		tw.Flush()
	}
	o, ev := screenOptions()
	convs, err = view.OpenConversations(s.gw, listener, s.viewerID, o)
	if err != nil {
		return err
	}
	if target, _ := opts.String("--delete"); target != "" {
		if err := convs.Delete(target); err != nil {
			convs.Close()
			return err
		}
	}
	return mount(ctx, opts, convs, render, ev)
}

func searchUsers(ctx context.Context, s *session, opts docopt.Opts) error {
	query, _ := opts.String("<query>")
	profiles, err := s.gw.SearchUsers(ctx, query)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t@%s\t%s\t%d followers\n", p.ID, p.Username, p.DisplayName, p.FollowerCount)
	}
	return tw.Flush()
}

// follow 关注或取消关注后打印对方最新的粉丝数
func follow(ctx context.Context, s *session, opts docopt.Opts) error {
	userID, _ := opts.String("<user_id>")
	undo, _ := opts.Bool("--undo")
	var err error
	if undo {
		err = s.gw.Unfollow(ctx, s.viewerID, userID)
	} else {
		err = s.gw.Follow(ctx, s.viewerID, userID)
	}
	if err != nil {
		return err
	}
	p, err := s.gw.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("following=%t followers=%d\n", !undo, p.FollowerCount)
	return nil
}
