package txlog

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
)

// Summary aggregates a user's logged transactions. Only entries still
// retained by the capped log are counted.
type Summary struct {
	TotalCredits int64
	TotalDebits  int64
	Count        int
	LastActivity time.Time
}

func (s Summary) Net() int64 {
	return s.TotalCredits - s.TotalDebits
}

func Summarize(txs []ledger.Transaction) Summary {
	var s Summary
	for _, t := range txs {
		if t.Kind.Inbound() {
			s.TotalCredits += t.Amount
		} else {
			s.TotalDebits += t.Amount
		}
		if t.Timestamp.After(s.LastActivity) {
			s.LastActivity = t.Timestamp
		}
		s.Count++
	}
	return s
}

// New builds a log record with a fresh id.
func New(key ledger.Key, kind ledger.TxKind, amount int64, reason string, now time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:        uuid.NewString(),
		UserID:    key.UserID,
		GuildID:   key.GuildID,
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		Timestamp: now,
	}
}
