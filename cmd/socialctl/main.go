package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialverse-backend/internal/client"
	"socialverse-backend/internal/util"

	"github.com/docopt/docopt-go"
	"go.uber.org/zap"
)

const SocialCtlVersion = "0.1.0"

const usage = `Socialverse terminal client.

The default api url is http://localhost:8080.

Usage:
    socialctl token --secret=<secret> --user=<user_id> [--ttl=<ttl>]
    socialctl feed [options] [--following | --author=<user_id>] [--watch]
    socialctl post [options] <content>
    socialctl like [options] <post_id>
    socialctl likes [options] <post_id> [--watch]
    socialctl thread [options] <user_id> [--send=<text>] [--image=<path>] [--watch]
    socialctl conversations [options] [--delete=<user_id>] [--watch]
    socialctl search [options] <query>
    socialctl follow [options] <user_id> [--undo]
    socialctl -h | --help
    socialctl --version

Options:
    -h --help              Show this screen.
    --version              Show version.
    --api_url=<api_url>    Server base url [default: http://localhost:8080].
    --token=<token>        Identity token; defaults to $SOCIALVERSE_TOKEN.
    --log_level=<level>    Log level [default: warn].
    --secret=<secret>      Token signing secret (development only).
    --user=<user_id>       User id to put in the token.
    --ttl=<ttl>            Token lifetime [default: 24h].
    --author=<user_id>     Only posts by this user.
    --following            Only posts by users you follow.
    --send=<text>          Send a message before showing the thread.
    --image=<path>         Attach an image to the message.
    --delete=<user_id>     Delete the conversation with this user.
    --undo                 Unfollow instead of follow.
    --watch                Keep the screen open and print every change.`

type commandFunc func(ctx context.Context, s *session, opts docopt.Opts) error

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], SocialCtlVersion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := opts.String("--log_level")
	util.InitLogger(level)
	defer util.Logger.Sync()

	if isToken, _ := opts.Bool("token"); isToken {
		if err := printToken(opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	commands := []struct {
		name string
		run  commandFunc
	}{
		{"feed", showFeed},
		{"post", createPost},
		{"like", toggleLike},
		{"likes", showLikes},
		{"thread", showThread},
		{"conversations", showConversations},
		{"search", searchUsers},
		{"follow", follow},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, cmd := range commands {
		if selected, _ := opts.Bool(cmd.name); !selected {
			continue
		}
		s, err := newSession(opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		err = cmd.run(ctx, s, opts)
		s.close()
		if err != nil {
			util.Logger.Debug("命令失败", zap.String("command", cmd.name), zap.Error(err))
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}
}

func printToken(opts docopt.Opts) error {
	secret, _ := opts.String("--secret")
	userID, _ := opts.String("--user")
	ttlStr, _ := opts.String("--ttl")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return fmt.Errorf("invalid --ttl: %w", err)
	}
	token, err := util.GenerateToken(secret, userID, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// session 一次命令使用的远程网关与实时连接
type session struct {
	apiURL   string
	token    string
	viewerID string
	gw       *client.Client
	listener *client.Listener
}

func newSession(opts docopt.Opts) (*session, error) {
	apiURL, _ := opts.String("--api_url")
	token, _ := opts.String("--token")
	if token == "" {
		token = os.Getenv("SOCIALVERSE_TOKEN")
	}
	s := &session{apiURL: apiURL, token: token, gw: client.New(apiURL, token)}
	if token != "" {
		viewerID, err := util.TokenSubject(token)
		if err != nil {
			return nil, fmt.Errorf("cannot read token: %w", err)
		}
		s.viewerID = viewerID
	}
	return s, nil
}

// realtime 屏幕需要实时连接；匿名时无法建立
func (s *session) realtime(ctx context.Context) (*client.Listener, error) {
	if s.listener != nil {
		return s.listener, nil
	}
	if s.token == "" {
		return nil, fmt.Errorf("a token is required for live screens")
	}
	l, err := client.Dial(ctx, s.apiURL, s.token)
	if err != nil {
		return nil, err
	}
	s.listener = l
	return l, nil
}

func (s *session) close() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
}
