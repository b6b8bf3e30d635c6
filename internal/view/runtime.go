package view

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

// ErrClosed 界面已卸载
var ErrClosed = errors.New(errors.ErrOperationFailed, "screen is closed")

// Notice 需要展示给用户的提示
type Notice struct {
	Op  string
	Err error
}

// Validation 是否为前置校验失败
func (n Notice) Validation() bool {
	return errors.IsValidation(n.Err)
}

type Options struct {
	// OnChange 在状态变化后于界面的 goroutine 上调用，可以在其中调用 Snapshot
	OnChange func()
	// OnNotice 操作失败时调用
	OnNotice      func(Notice)
	MaxImageBytes int64
}

// Snapshot 某一时刻的界面状态
type Snapshot[T any] struct {
	State State
	Items []T
	Err   error
}

// Runtime 每个界面一个任务队列和一个 goroutine。
// 实时回调与网关调用的结果都作为任务串行执行；卸载后排队的任务不再执行。
type Runtime struct {
	opts Options
	subs *Subscriptions

	ctx    context.Context
	cancel context.CancelFunc
	alive  atomic.Bool

	// viewMu 在任务执行期间持有，Snapshot 读取时持有读锁
	viewMu sync.RWMutex

	mu    sync.Mutex
	cond  *sync.Cond
	queue []func()
	busy  int
	wake  chan struct{}
	done  chan struct{}

	// 仅在任务中访问
	dirty   bool
	notices []Notice
}

func newRuntime(listener realtime.Listener, opts Options) *Runtime {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = storage.MaxImageBytes
	}
	ctx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		opts:   opts,
		subs:   NewSubscriptions(listener),
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	rt.cond = sync.NewCond(&rt.mu)
	rt.alive.Store(true)
	go rt.loop()
	return rt
}

// Post 把任务放入队列；界面已卸载时返回 false
func (rt *Runtime) Post(task func()) bool {
	if !rt.alive.Load() {
		return false
	}
	rt.mu.Lock()
	rt.queue = append(rt.queue, task)
	rt.busy++
	rt.mu.Unlock()

	select {
	case rt.wake <- struct{}{}:
	default:
	}
	return true
}

// Go 在队列之外执行阻塞调用，返回的后续任务回到队列中执行
func (rt *Runtime) Go(call func(ctx context.Context) func()) bool {
	if !rt.alive.Load() {
		return false
	}
	rt.mu.Lock()
	rt.busy++
	rt.mu.Unlock()

	go func() {
		defer rt.finish()
		var next func()
		func() {
			defer rt.recover("call")
			next = call(rt.ctx)
		}()
		if next != nil {
			rt.Post(next)
		}
	}()
	return true
}

// handler 把实时回调转成任务
func (rt *Runtime) handler(fn func(realtime.Event)) realtime.Handler {
	return func(e realtime.Event) {
		rt.Post(func() { fn(e) })
	}
}

func (rt *Runtime) loop() {
	for {
		select {
		case <-rt.wake:
		case <-rt.done:
			return
		}
		for {
			rt.mu.Lock()
			if len(rt.queue) == 0 {
				rt.mu.Unlock()
				break
			}
			task := rt.queue[0]
			rt.queue[0] = nil
			rt.queue = rt.queue[1:]
			rt.mu.Unlock()

			rt.run(task)
			rt.finish()
		}
	}
}

func (rt *Runtime) run(task func()) {
	rt.viewMu.Lock()
	if !rt.alive.Load() {
		rt.viewMu.Unlock()
		return
	}
	func() {
		defer rt.recover("task")
		task()
	}()
	dirty, notices := rt.dirty, rt.notices
	rt.dirty, rt.notices = false, nil
	rt.viewMu.Unlock()

	if !rt.alive.Load() {
		return
	}
	for _, n := range notices {
		if rt.opts.OnNotice != nil {
			rt.opts.OnNotice(n)
		}
	}
	if dirty && rt.opts.OnChange != nil {
		rt.opts.OnChange()
	}
}

func (rt *Runtime) recover(where string) {
	if r := recover(); r != nil {
		util.Logger.Error("界面任务 panic",
			zap.String("where", where),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
	}
}

func (rt *Runtime) finish() {
	rt.mu.Lock()
	rt.busy--
	if rt.busy <= 0 {
		rt.cond.Broadcast()
	}
	rt.mu.Unlock()
}

// changed 标记状态已变化，任务结束后通知 OnChange
func (rt *Runtime) changed() {
	rt.dirty = true
}

// notice 记录一次操作失败，任务结束后通知 OnNotice
func (rt *Runtime) notice(op string, err error) {
	if errors.IsValidation(err) {
		util.Logger.Info("操作未通过校验", zap.String("op", op), zap.Error(err))
	} else {
		util.Logger.Error("操作失败", zap.String("op", op), zap.Error(err))
	}
	rt.notices = append(rt.notices, Notice{Op: op, Err: err})
}

// read 在读锁下访问界面状态
func (rt *Runtime) read(fn func()) {
	rt.viewMu.RLock()
	defer rt.viewMu.RUnlock()
	fn()
}

// Flush 等待队列清空且没有进行中的调用，不能在 OnChange 中调用
func (rt *Runtime) Flush() {
	rt.mu.Lock()
	for rt.busy > 0 && rt.alive.Load() {
		rt.cond.Wait()
	}
	rt.mu.Unlock()
}

// Alive 界面是否仍挂载
func (rt *Runtime) Alive() bool {
	return rt.alive.Load()
}

// Close 卸载界面：释放全部订阅，之后不会再有任务修改状态。
// 正在执行的任务结束后才返回，因此不能在 OnChange 或 OnNotice 中调用。
func (rt *Runtime) Close() {
	if !rt.alive.CompareAndSwap(true, false) {
		return
	}
	rt.subs.ReleaseAll()
	rt.cancel()
	close(rt.done)

	// 等待正在执行的任务结束
	rt.viewMu.Lock()
	rt.mu.Lock()
	rt.queue = nil
	rt.cond.Broadcast()
	rt.mu.Unlock()
	rt.viewMu.Unlock()
}
