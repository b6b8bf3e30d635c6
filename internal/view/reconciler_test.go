package view

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"socialverse-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, minute int) model.Message {
	return model.Message{ID: id, SenderID: "a", RecipientID: "b", Content: "m" + id, CreatedAt: t0.Add(time.Duration(minute) * time.Minute)}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func msgIDs(items []model.Message) []string {
	return ids(items, func(m model.Message) string { return m.ID })
}

func readyThread(t *testing.T, items ...model.Message) *Reconciler[model.Message, model.MessagePatch] {
	t.Helper()
	r := NewReconciler(messageRules)
	gen, ok := r.StartLoad()
	require.True(t, ok)
	require.True(t, r.Loaded(gen, items))
	return r
}

func TestReconciler_InitialLoadOrdersAndDedups(t *testing.T) {
	r := readyThread(t, msg("3", 3), msg("1", 1), msg("2", 2), msg("1", 1))

	assert.Equal(t, Ready, r.State())
	assert.Equal(t, []string{"1", "2", "3"}, msgIDs(r.Items()))
}

func TestReconciler_InsertIsIdempotent(t *testing.T) {
	r := readyThread(t, msg("1", 1))
	ins := InsertOf[model.Message, model.MessagePatch]("2", msg("2", 2))

	r.Apply(ins)
	once := r.Items()
	r.Apply(ins)

	assert.Equal(t, once, r.Items())
	assert.Equal(t, []string{"1", "2"}, msgIDs(r.Items()))
}

func TestReconciler_InsertsStayAscending(t *testing.T) {
	r := readyThread(t)
	for i := 1; i <= 20; i++ {
		id := fmt.Sprintf("%02d", i)
		r.Apply(InsertOf[model.Message, model.MessagePatch](id, msg(id, i)))
	}

	items := r.Items()
	require.Len(t, items, 20)
	for i := 1; i < len(items); i++ {
		assert.True(t, items[i-1].CreatedAt.Before(items[i].CreatedAt))
	}
}

func TestReconciler_PrependForNewestFirst(t *testing.T) {
	r := NewReconciler(postRules)
	gen, _ := r.StartLoad()
	r.Loaded(gen, []model.Post{
		{ID: "old", CreatedAt: t0},
		{ID: "mid", CreatedAt: t0.Add(time.Minute)},
	})
	r.Apply(InsertOf[model.Post, model.PostPatch]("new", model.Post{ID: "new", CreatedAt: t0.Add(time.Hour)}))

	assert.Equal(t, []string{"new", "mid", "old"}, ids(r.Items(), func(p model.Post) string { return p.ID }))
}

func TestReconciler_UpdateMergesOnlyChangedFields(t *testing.T) {
	orig := msg("1", 1)
	orig.ImageURL = "/uploads/x.png"
	orig.Sender = &model.ProfileSummary{ID: "a", Username: "alice"}
	r := readyThread(t, orig)

	r.Apply(UpdateOf[model.Message]("1", model.MessagePatch{Read: model.BoolPtr(true)}))

	got, ok := r.Get("1")
	require.True(t, ok)
	want := orig
	want.Read = true
	assert.Equal(t, want, got)
}

func TestReconciler_UpdateForAbsentIDIsDiscarded(t *testing.T) {
	r := readyThread(t, msg("1", 1))
	before := r.Items()

	r.Apply(UpdateOf[model.Message]("missing", model.MessagePatch{Read: model.BoolPtr(true)}))

	assert.Equal(t, before, r.Items())
	assert.False(t, r.WantsReload())
}

func TestReconciler_DeleteOfAbsentIDStillReloads(t *testing.T) {
	r := readyThread(t, msg("1", 1))

	r.Apply(DeleteOf[model.Message, model.MessagePatch]("not-here"))

	assert.True(t, r.WantsReload())
	assert.Equal(t, []string{"1"}, msgIDs(r.Items()))
}

func TestReconciler_ReloadsAreCoalesced(t *testing.T) {
	r := readyThread(t, msg("1", 1))

	r.Apply(DeleteOf[model.Message, model.MessagePatch]("1"))
	gen, ok := r.StartLoad()
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		r.Apply(DeleteOf[model.Message, model.MessagePatch](fmt.Sprint(i)))
		_, again := r.StartLoad()
		assert.False(t, again)
	}
	assert.False(t, r.WantsReload())

	r.Loaded(gen, nil)
	assert.True(t, r.WantsReload())

	gen, ok = r.StartLoad()
	require.True(t, ok)
	r.Loaded(gen, nil)
	assert.False(t, r.WantsReload())
}

func TestReconciler_OptimisticRollback(t *testing.T) {
	r := NewReconciler(postRules)
	gen, _ := r.StartLoad()
	r.Loaded(gen, []model.Post{{ID: "p", LikeCount: 4, CreatedAt: t0}})

	tok, ok := r.Tentative("p", model.PostPatch{LikeCount: model.IntPtr(5), IsLiked: model.BoolPtr(true)})
	require.True(t, ok)
	p, _ := r.Get("p")
	assert.Equal(t, 5, p.LikeCount)
	assert.True(t, p.IsLiked)
	assert.True(t, r.Pending("p"))

	assert.True(t, r.Rollback(tok))
	p, _ = r.Get("p")
	assert.Equal(t, 4, p.LikeCount)
	assert.False(t, p.IsLiked)
	assert.False(t, r.Pending("p"))
}

func TestReconciler_AuthoritativeUpdateRebasesTentative(t *testing.T) {
	r := NewReconciler(postRules)
	gen, _ := r.StartLoad()
	r.Loaded(gen, []model.Post{{ID: "p", LikeCount: 4, CreatedAt: t0}})

	tok, _ := r.Tentative("p", model.PostPatch{LikeCount: model.IntPtr(5), IsLiked: model.BoolPtr(true)})
	r.Apply(UpdateOf[model.Post]("p", model.PostPatch{LikeCount: model.IntPtr(7)}))

	p, _ := r.Get("p")
	assert.Equal(t, 7, p.LikeCount)
	assert.True(t, p.IsLiked)
	assert.True(t, r.Pending("p"))

	// 回滚保留更新带来的计数，只撤销本地的点赞
	assert.True(t, r.Rollback(tok))
	p, _ = r.Get("p")
	assert.Equal(t, 7, p.LikeCount)
	assert.False(t, p.IsLiked)
	assert.False(t, r.Pending("p"))
}

func TestReconciler_ConfirmMergesServerCount(t *testing.T) {
	r := NewReconciler(postRules)
	gen, _ := r.StartLoad()
	r.Loaded(gen, []model.Post{{ID: "p", LikeCount: 4, CreatedAt: t0}})

	tok, _ := r.Tentative("p", model.PostPatch{LikeCount: model.IntPtr(5), IsLiked: model.BoolPtr(true)})
	r.Confirm(tok, &model.PostPatch{LikeCount: model.IntPtr(9)})

	p, _ := r.Get("p")
	assert.Equal(t, 9, p.LikeCount)
	assert.True(t, p.IsLiked)
	assert.False(t, r.Rollback(tok))
}

func TestReconciler_InsertOverwritesTentativeItem(t *testing.T) {
	r := readyThread(t, msg("1", 1))
	r.Tentative("1", model.MessagePatch{Read: model.BoolPtr(true)})

	authoritative := msg("1", 1)
	authoritative.Content = "server copy"
	r.Apply(InsertOf[model.Message, model.MessagePatch]("1", authoritative))

	got, _ := r.Get("1")
	assert.Equal(t, authoritative, got)
	assert.False(t, r.Pending("1"))
}

func TestReconciler_BuffersWhileLoading(t *testing.T) {
	r := NewReconciler(messageRules)
	r.Apply(InsertOf[model.Message, model.MessagePatch]("early", msg("early", 0)))
	gen, _ := r.StartLoad()
	assert.Equal(t, Loading, r.State())

	r.Apply(InsertOf[model.Message, model.MessagePatch]("3", msg("3", 3)))
	r.Apply(UpdateOf[model.Message]("1", model.MessagePatch{Read: model.BoolPtr(true)}))
	assert.Empty(t, r.Items())

	r.Loaded(gen, []model.Message{msg("1", 1), msg("2", 2)})

	assert.Equal(t, []string{"1", "2", "early", "3"}, msgIDs(r.Items()))
	first, _ := r.Get("1")
	assert.True(t, first.Read)
}

func TestReconciler_BufferOverflowForcesReload(t *testing.T) {
	r := NewReconciler(messageRules)
	gen, _ := r.StartLoad()
	for i := 0; i <= MaxBuffered; i++ {
		id := fmt.Sprint(i)
		r.Apply(InsertOf[model.Message, model.MessagePatch](id, msg(id, i)))
	}
	r.Loaded(gen, nil)

	assert.True(t, r.WantsReload())
}

func TestReconciler_StaleLoadIgnored(t *testing.T) {
	r := readyThread(t, msg("1", 1))
	gen, _ := r.StartLoad()

	assert.False(t, r.Loaded(gen+1, []model.Message{msg("x", 9)}))
	assert.False(t, r.LoadFailed(gen-1, stderrors.New("old")))
	assert.True(t, r.Loaded(gen, []model.Message{msg("2", 2)}))
	assert.False(t, r.Loaded(gen, []model.Message{msg("x", 9)}))
	assert.Equal(t, []string{"2"}, msgIDs(r.Items()))
}

func TestReconciler_FailureKeepsEventsForRetry(t *testing.T) {
	r := NewReconciler(messageRules)
	gen, _ := r.StartLoad()
	boom := stderrors.New("boom")
	require.True(t, r.LoadFailed(gen, boom))
	assert.Equal(t, Failed, r.State())
	assert.Equal(t, boom, r.Err())

	r.Apply(InsertOf[model.Message, model.MessagePatch]("5", msg("5", 5)))
	r.Apply(DeleteOf[model.Message, model.MessagePatch]("x"))
	assert.False(t, r.WantsReload())

	gen, ok := r.StartLoad()
	require.True(t, ok)
	assert.Equal(t, Loading, r.State())
	r.Loaded(gen, []model.Message{msg("1", 1)})

	assert.Equal(t, Ready, r.State())
	assert.NoError(t, r.Err())
	assert.Equal(t, []string{"1", "5"}, msgIDs(r.Items()))
	assert.False(t, r.WantsReload())
}

func TestReconciler_ConversationSupersededByCounterpart(t *testing.T) {
	r := NewReconciler(conversationRules)
	gen, _ := r.StartLoad()
	r.Loaded(gen, []model.Conversation{
		{ID: "m1", CounterpartID: "bob", CreatedAt: t0},
		{ID: "m2", CounterpartID: "carol", CreatedAt: t0.Add(time.Minute)},
	})

	r.Apply(InsertOf[model.Conversation, model.MessagePatch]("m3", model.Conversation{ID: "m3", CounterpartID: "bob", CreatedAt: t0.Add(time.Hour)}))

	items := r.Items()
	assert.Equal(t, []string{"m3", "m2"}, ids(items, func(c model.Conversation) string { return c.ID }))
}

func TestReconciler_OlderConversationMessageIsDropped(t *testing.T) {
	r := NewReconciler(conversationRules)
	r.Apply(InsertOf[model.Conversation, model.MessagePatch]("m1", model.Conversation{ID: "m1", CounterpartID: "bob", CreatedAt: t0}))
	gen, _ := r.StartLoad()
	r.Loaded(gen, []model.Conversation{
		{ID: "m2", CounterpartID: "bob", CreatedAt: t0.Add(time.Hour)},
		{ID: "m3", CounterpartID: "carol", CreatedAt: t0.Add(time.Minute)},
	})

	assert.Equal(t, []string{"m2", "m3"}, ids(r.Items(), func(c model.Conversation) string { return c.ID }))

	// 同一时刻的消息仍然取代旧摘要
	r.Apply(InsertOf[model.Conversation, model.MessagePatch]("m4", model.Conversation{ID: "m4", CounterpartID: "carol", CreatedAt: t0.Add(time.Minute)}))
	assert.Equal(t, []string{"m4", "m2"}, ids(r.Items(), func(c model.Conversation) string { return c.ID }))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
}
