package view

import (
	"context"

	"socialverse-backend/internal/errors"
)

// fetchFunc 在任务队列之外执行；commit 可选，在结果被接受后于队列中执行
type fetchFunc[T any] func(ctx context.Context) (items []T, commit func(), err error)

// list 把 Reconciler 接到界面的运行时上
type list[T any, P any] struct {
	rt       *Runtime
	rec      *Reconciler[T, P]
	op       string
	fetch    fetchFunc[T]
	onLoaded func()
}

func newList[T any, P any](rt *Runtime, op string, rules Rules[T, P], fetch fetchFunc[T]) *list[T, P] {
	return &list[T, P]{
		rt:    rt,
		rec:   NewReconciler(rules),
		op:    op,
		fetch: fetch,
	}
}

// load 必须在任务中调用；已有加载进行中时合并为一次后续加载
func (l *list[T, P]) load() {
	gen, ok := l.rec.StartLoad()
	if !ok {
		return
	}
	l.rt.changed()
	l.rt.Go(func(ctx context.Context) func() {
		items, commit, err := l.fetch(ctx)
		return func() {
			if err != nil {
				if l.rec.LoadFailed(gen, err) {
					l.rt.notice(l.op, errors.OperationFailed(l.op, err))
					l.rt.changed()
				}
				return
			}
			if !l.rec.Current(gen) {
				return
			}
			if commit != nil {
				commit()
			}
			l.rec.Loaded(gen, items)
			l.rt.changed()
			if l.onLoaded != nil {
				l.onLoaded()
			}
			l.settle()
		}
	})
}

func (l *list[T, P]) apply(ch Change[T, P]) {
	l.rec.Apply(ch)
	l.rt.changed()
	l.settle()
}

// invalidate 要求重新加载整个范围
func (l *list[T, P]) invalidate(key string) {
	l.apply(DeleteOf[T, P](key))
}

func (l *list[T, P]) settle() {
	if l.rec.WantsReload() {
		l.load()
	}
}

func (l *list[T, P]) snapshot() Snapshot[T] {
	var s Snapshot[T]
	l.rt.read(func() {
		s = Snapshot[T]{State: l.rec.State(), Items: l.rec.Items(), Err: l.rec.Err()}
	})
	return s
}

// Reload 重新加载，也用于失败后的重试
func (l *list[T, P]) reload() bool {
	return l.rt.Post(l.load)
}
