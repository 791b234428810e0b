package keylock

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// Table hands out one mutex per key. Entries are reference counted and
// dropped when the last holder or waiter leaves, so idle keys cost nothing.
type Table struct {
	m *xsync.MapOf[string, *entry]
}

func New() *Table {
	return &Table{m: xsync.NewMapOf[string, *entry]()}
}

func (t *Table) acquire(key string) *entry {
	e, _ := t.m.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			old = &entry{ch: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})
	return e
}

func (t *Table) release(key string) {
	t.m.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			return nil, true
		}
		old.refs--
		return old, old.refs == 0
	})
}

// Lock takes the locks for keys in the order given. Callers sort keys
// first. On context cancellation every lock already taken is released.
func (t *Table) Lock(ctx context.Context, keys ...string) (func(), error) {
	held := make([]string, 0, len(keys))
	unlock := func() {
		for i := len(held) - 1; i >= 0; i-- {
			e, ok := t.m.Load(held[i])
			if ok {
				<-e.ch
			}
			t.release(held[i])
		}
	}

	for _, k := range keys {
		e := t.acquire(k)
		select {
		case e.ch <- struct{}{}:
			held = append(held, k)
		case <-ctx.Done():
			t.release(k)
			unlock()
			return nil, ctx.Err()
		}
	}
	return unlock, nil
}

// Len reports how many keys are currently held or waited on.
func (t *Table) Len() int {
	return t.m.Size()
}
