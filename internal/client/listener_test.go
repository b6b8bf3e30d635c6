package client

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialListener(t *testing.T, h *harness, userID string) *Listener {
	t.Helper()
	l, err := Dial(context.Background(), h.url, tokenFor(t, userID))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

type collector struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (c *collector) add(e realtime.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *collector) snapshot() []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.Event(nil), c.events...)
}

func publish(t *testing.T, hub *realtime.Hub, table string, kind realtime.Kind, key string, row interface{}, fields map[string]string) {
	t.Helper()
	e, err := realtime.NewEvent(table, kind, key, row, nil, fields)
	require.NoError(t, err)
	require.NoError(t, hub.Publish(context.Background(), e))
}

func TestListener_DeliversMatchingEventsInOrder(t *testing.T) {
	h := newHarness(t)
	l := dialListener(t, h, "alice")

	var got collector
	_, err := l.Subscribe(realtime.Subscription{
		Table:    realtime.TablePosts,
		Filter:   realtime.AnyOf(realtime.Where("user_id", "bob")),
		OnInsert: got.add,
		OnUpdate: got.add,
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	publish(t, h.hub, realtime.TablePosts, realtime.Insert, "p1", model.Post{ID: "p1", UserID: "bob"}, map[string]string{"user_id": "bob"})
	publish(t, h.hub, realtime.TablePosts, realtime.Insert, "p2", model.Post{ID: "p2", UserID: "carol"}, map[string]string{"user_id": "carol"})
	publish(t, h.hub, realtime.TablePosts, realtime.Update, "p1", map[string]interface{}{"id": "p1", "like_count": 1}, map[string]string{"user_id": "bob"})

	require.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	events := got.snapshot()
	assert.Equal(t, realtime.Insert, events[0].Kind)
	assert.Equal(t, "p1", events[0].Key)
	assert.Equal(t, realtime.Update, events[1].Kind)

	var post model.Post
	require.NoError(t, events[0].DecodeNew(&post))
	assert.Equal(t, "bob", post.UserID)
}

func TestListener_RejectedSubscription(t *testing.T) {
	h := newHarness(t)
	l := dialListener(t, h, "alice")

	_, err := l.Subscribe(realtime.Subscription{
		Table:    realtime.TableMessages,
		Filter:   realtime.AnyOf(realtime.Where("sender_id", "bob")),
		OnInsert: func(realtime.Event) {},
	})
	require.Error(t, err)
	assert.Equal(t, 0, h.hub.Len())
}

func TestListener_ReleaseStopsDelivery(t *testing.T) {
	h := newHarness(t)
	l := dialListener(t, h, "alice")

	var got collector
	handle, err := l.Subscribe(realtime.Subscription{Table: realtime.TableFollows, OnInsert: got.add})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	handle.Release()
	handle.Release()
	publish(t, h.hub, realtime.TableFollows, realtime.Insert, "alice:bob", model.Follow{FollowerID: "alice", FollowingID: "bob"}, nil)

	require.Eventually(t, func() bool { return h.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, got.snapshot())
}

func TestListener_ReleaseWaitsForRunningHandler(t *testing.T) {
	h := newHarness(t)
	l := dialListener(t, h, "alice")

	entered := make(chan struct{})
	unblock := make(chan struct{})
	var finished atomic.Bool
	handle, err := l.Subscribe(realtime.Subscription{Table: realtime.TableFollows, OnInsert: func(realtime.Event) {
		close(entered)
		<-unblock
		finished.Store(true)
	}})
	require.NoError(t, err)

	publish(t, h.hub, realtime.TableFollows, realtime.Insert, "alice:bob", model.Follow{FollowerID: "alice", FollowingID: "bob"}, nil)
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	var released atomic.Bool
	go func() {
		handle.Release()
		released.Store(true)
	}()
	assert.Never(t, released.Load, 50*time.Millisecond, 5*time.Millisecond)

	close(unblock)
	require.Eventually(t, released.Load, 2*time.Second, 5*time.Millisecond)
	assert.True(t, finished.Load())
}

func TestListener_HandlerPanicDoesNotStopLoop(t *testing.T) {
	h := newHarness(t)
	l := dialListener(t, h, "alice")

	var got collector
	_, err := l.Subscribe(realtime.Subscription{Table: realtime.TablePosts, OnInsert: func(realtime.Event) { panic("boom") }})
	require.NoError(t, err)
	_, err = l.Subscribe(realtime.Subscription{Table: realtime.TablePosts, OnInsert: got.add})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.hub.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	publish(t, h.hub, realtime.TablePosts, realtime.Insert, "p1", model.Post{ID: "p1"}, nil)
	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestListener_CloseFailsSubscribe(t *testing.T) {
	h := newHarness(t)
	l := dialListener(t, h, "alice")
	require.NoError(t, l.Close())

	<-l.Done()
	_, err := l.Subscribe(realtime.Subscription{Table: realtime.TablePosts})
	assert.ErrorIs(t, err, ErrClosed)
	require.Eventually(t, func() bool { return h.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDial_RequiresToken(t *testing.T) {
	h := newHarness(t)
	_, err := Dial(context.Background(), h.url, "")
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080", websocketURL("http://localhost:8080/"))
	assert.Equal(t, "wss://example.com", websocketURL("https://example.com"))
	assert.Equal(t, "ws://x", websocketURL("ws://x"))
}
