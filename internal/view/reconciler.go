// Package view 把一次性加载的结果与实时变更合并成每个界面的有序列表。
//
// Reconciler 本身不加锁也不启动 goroutine，所有方法都由界面的任务队列串行调用。
package view

import (
	"sort"

	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

// State 界面状态
type State int

const (
	Empty State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Placement 新插入条目的位置
type Placement int

const (
	// Append 追加到末尾，用于按时间升序的会话消息
	Append Placement = iota
	// Prepend 插入到开头，用于按时间降序的列表
	Prepend
)

// MaxBuffered 加载期间最多缓存的变更数，溢出后丢弃缓存并在加载完成后重新加载
const MaxBuffered = 512

// Rules 描述一种条目如何标识、排序与合并
type Rules[T any, P any] struct {
	ID        func(T) string
	Less      func(a, b T) bool // 初始加载的顺序
	Merge     func(T, P) T      // 浅合并，只覆盖 patch 中出现的字段
	Placement Placement
	// Supersedes 可选；插入 incoming 时移除所有被它取代的条目
	Supersedes func(existing, incoming T) bool
	// Obsolete 可选；已有条目使 incoming 过时时丢弃这次插入
	Obsolete func(existing, incoming T) bool
}

// Change 一条带标签的变更
type Change[T any, P any] struct {
	Kind  realtime.Kind
	ID    string
	Item  T // Insert
	Patch P // Update
}

func InsertOf[T any, P any](id string, item T) Change[T, P] {
	return Change[T, P]{Kind: realtime.Insert, ID: id, Item: item}
}

func UpdateOf[T any, P any](id string, patch P) Change[T, P] {
	return Change[T, P]{Kind: realtime.Update, ID: id, Patch: patch}
}

func DeleteOf[T any, P any](id string) Change[T, P] {
	return Change[T, P]{Kind: realtime.Delete, ID: id}
}

// Token 标识一次本地的暂定修改
type Token struct {
	ID  string
	seq uint64
}

type tentative[T any] struct {
	original T
	seq      uint64
}

type Reconciler[T any, P any] struct {
	rules Rules[T, P]

	state State
	items []T
	err   error

	gen      uint64
	inflight bool
	reload   bool
	buffer   []Change[T, P]

	tentative map[string]tentative[T]
	seq       uint64
}

func NewReconciler[T any, P any](rules Rules[T, P]) *Reconciler[T, P] {
	return &Reconciler[T, P]{
		rules:     rules,
		tentative: make(map[string]tentative[T]),
	}
}

func (r *Reconciler[T, P]) State() State { return r.state }

func (r *Reconciler[T, P]) Err() error { return r.err }

// Items 返回当前列表的副本
func (r *Reconciler[T, P]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Reconciler[T, P]) Get(id string) (T, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.items[i], true
	}
	var zero T
	return zero, false
}

// StartLoad 开始一次加载。已有加载进行中时只记录需要重新加载，返回 false。
func (r *Reconciler[T, P]) StartLoad() (uint64, bool) {
	if r.inflight {
		r.reload = true
		return 0, false
	}
	r.gen++
	r.inflight = true
	r.reload = false
	// 之前缓存的删除已由本次加载覆盖
	kept := r.buffer[:0]
	for _, ch := range r.buffer {
		if ch.Kind != realtime.Delete {
			kept = append(kept, ch)
		}
	}
	r.buffer = kept
	if r.state != Ready {
		r.state = Loading
	}
	return r.gen, true
}

// Loading 是否有加载在进行
func (r *Reconciler[T, P]) Loading() bool { return r.inflight }

// WantsReload 是否应该立即发起一次重新加载；失败状态下等待用户重试
func (r *Reconciler[T, P]) WantsReload() bool {
	return r.reload && !r.inflight && r.state == Ready
}

// Current gen 是否为进行中的那次加载
func (r *Reconciler[T, P]) Current(gen uint64) bool {
	return r.inflight && gen == r.gen
}

// Loaded 用加载结果整体替换列表，然后重放加载期间缓存的变更。过期的结果被忽略。
func (r *Reconciler[T, P]) Loaded(gen uint64, items []T) bool {
	if !r.Current(gen) {
		return false
	}
	r.inflight = false
	r.err = nil
	r.state = Ready

	r.items = r.items[:0]
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		id := r.rules.ID(it)
		if seen[id] {
			continue
		}
		seen[id] = true
		r.items = append(r.items, it)
	}
	if r.rules.Less != nil {
		sort.SliceStable(r.items, func(i, j int) bool { return r.rules.Less(r.items[i], r.items[j]) })
	}
	r.tentative = make(map[string]tentative[T])

	buffered := r.buffer
	r.buffer = nil
	for _, ch := range buffered {
		r.apply(ch)
	}
	return true
}

// LoadFailed 进入失败状态，保留已有条目与缓存的变更
func (r *Reconciler[T, P]) LoadFailed(gen uint64, err error) bool {
	if !r.Current(gen) {
		return false
	}
	r.inflight = false
	r.state = Failed
	r.err = err
	return true
}

// Apply 合并一条变更；未就绪或正在加载时先缓存
func (r *Reconciler[T, P]) Apply(ch Change[T, P]) {
	if r.state != Ready || r.inflight {
		if ch.Kind == realtime.Delete {
			r.reload = true
		}
		if len(r.buffer) >= MaxBuffered {
			r.buffer = nil
			r.reload = true
			return
		}
		r.buffer = append(r.buffer, ch)
		return
	}
	r.apply(ch)
}

func (r *Reconciler[T, P]) apply(ch Change[T, P]) {
	switch ch.Kind {
	case realtime.Insert:
		r.insert(ch.ID, ch.Item)
	case realtime.Update:
		i := r.indexOf(ch.ID)
		if i < 0 {
			util.Logger.Debug("忽略不在视图中的更新", zap.String("id", ch.ID))
			return
		}
		r.items[i] = r.rules.Merge(r.items[i], ch.Patch)
		// 暂定修改保留，回滚时恢复到合并了本次更新的原值
		if t, ok := r.tentative[ch.ID]; ok {
			t.original = r.rules.Merge(t.original, ch.Patch)
			r.tentative[ch.ID] = t
		}
	case realtime.Delete:
		// 删除可能影响投影（例如会话的最新消息），重新加载整个范围
		r.reload = true
	}
}

func (r *Reconciler[T, P]) insert(id string, item T) {
	if i := r.indexOf(id); i >= 0 {
		if _, ok := r.tentative[id]; ok {
			r.items[i] = item
			delete(r.tentative, id)
		}
		return
	}

	if r.rules.Obsolete != nil {
		for _, existing := range r.items {
			if r.rules.Obsolete(existing, item) {
				util.Logger.Debug("忽略过时的插入", zap.String("id", id))
				return
			}
		}
	}

	if r.rules.Supersedes != nil {
		kept := r.items[:0]
		for _, existing := range r.items {
			if r.rules.Supersedes(existing, item) {
				delete(r.tentative, r.rules.ID(existing))
				continue
			}
			kept = append(kept, existing)
		}
		r.items = kept
	}

	if r.rules.Placement == Prepend {
		r.items = append(r.items, item)
		copy(r.items[1:], r.items[:len(r.items)-1])
		r.items[0] = item
		return
	}
	r.items = append(r.items, item)
}

// Tentative 在本地暂时应用 patch；条目不存在时返回 false
func (r *Reconciler[T, P]) Tentative(id string, patch P) (Token, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return Token{}, false
	}
	r.seq++
	t, ok := r.tentative[id]
	if !ok {
		t.original = r.items[i]
	}
	t.seq = r.seq
	r.tentative[id] = t
	r.items[i] = r.rules.Merge(r.items[i], patch)
	return Token{ID: id, seq: r.seq}, true
}

// Rollback 撤销暂定修改，恢复的值包含其间到达的更新；条目已被重新插入或重新加载时不做任何事
func (r *Reconciler[T, P]) Rollback(tok Token) bool {
	t, ok := r.tentative[tok.ID]
	if !ok || t.seq != tok.seq {
		return false
	}
	delete(r.tentative, tok.ID)
	if i := r.indexOf(tok.ID); i >= 0 {
		r.items[i] = t.original
	}
	return true
}

// Confirm 接受暂定修改，可同时合并服务端返回的字段
func (r *Reconciler[T, P]) Confirm(tok Token, patch *P) {
	t, ok := r.tentative[tok.ID]
	if !ok || t.seq != tok.seq {
		return
	}
	delete(r.tentative, tok.ID)
	if patch == nil {
		return
	}
	if i := r.indexOf(tok.ID); i >= 0 {
		r.items[i] = r.rules.Merge(r.items[i], *patch)
	}
}

// Pending 条目是否存在未确认的暂定修改
func (r *Reconciler[T, P]) Pending(id string) bool {
	_, ok := r.tentative[id]
	return ok
}

func (r *Reconciler[T, P]) indexOf(id string) int {
	for i, it := range r.items {
		if r.rules.ID(it) == id {
			return i
		}
	}
	return -1
}
