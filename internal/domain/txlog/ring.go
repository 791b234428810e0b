package txlog

import "github.com/ledgerbot/ledgerbot/internal/domain/ledger"

// DefaultCap is how many entries the log keeps before evicting the oldest.
const DefaultCap = 1000

// Ring is an append-only log that keeps the most recent entries. It is not
// safe for concurrent use; stores guard it with their own lock.
type Ring struct {
	buf   []ledger.Transaction
	start int
	size  int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Ring{buf: make([]ledger.Transaction, capacity)}
}

func (r *Ring) Cap() int { return len(r.buf) }

func (r *Ring) Len() int { return r.size }

// Append adds t, evicting the oldest entry when full.
func (r *Ring) Append(t ledger.Transaction) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = t
		r.size++
		return
	}
	r.buf[r.start] = t
	r.start = (r.start + 1) % len(r.buf)
}

// All returns entries oldest first.
func (r *Ring) All() []ledger.Transaction {
	out := make([]ledger.Transaction, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

// Recent returns entries matching q, newest first.
func (r *Ring) Recent(q ledger.TxQuery) []ledger.Transaction {
	var out []ledger.Transaction
	for i := r.size - 1; i >= 0; i-- {
		t := r.buf[(r.start+i)%len(r.buf)]
		if !Matches(t, q) {
			continue
		}
		out = append(out, t)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

func Matches(t ledger.Transaction, q ledger.TxQuery) bool {
	if q.UserID != "" && t.UserID != q.UserID {
		return false
	}
	if q.GuildID != "" && t.GuildID != q.GuildID {
		return false
	}
	return true
}
