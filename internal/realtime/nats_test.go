package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestNATSBridge_FansOutAcrossInstances(t *testing.T) {
	url := runNATS(t)

	newInstance := func() (*NATSBridge, *Hub) {
		nc, err := ConnectNATS(url)
		require.NoError(t, err)
		t.Cleanup(nc.Close)
		hub := NewHub()
		b := NewNATSBridge(nc, "test.changes", hub)
		require.NoError(t, b.Start())
		t.Cleanup(func() { _ = b.Close() })
		return b, hub
	}
	writer, _ := newInstance()
	reader, _ := newInstance()

	got := make(chan Event, 1)
	h, err := reader.Subscribe(Subscription{
		Table:    TablePosts,
		OnInsert: func(e Event) { got <- e },
	})
	require.NoError(t, err)
	defer h.Release()

	e, err := NewEvent(TablePosts, Insert, "p1", row{ID: "p1"}, nil, map[string]string{"id": "p1"})
	require.NoError(t, err)
	require.NoError(t, writer.Publish(context.Background(), e))

	select {
	case delivered := <-got:
		assert.Equal(t, "p1", delivered.Key)
		assert.Equal(t, "p1", delivered.Fields["id"])
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered through NATS")
	}
}
