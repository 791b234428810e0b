package txlog

import (
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
)

func tx(user string, kind ledger.TxKind, amount int64) ledger.Transaction {
	return ledger.Transaction{UserID: user, GuildID: "g", Kind: kind, Amount: amount, Reason: "test"}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := int64(1); i <= 5; i++ {
		r.Append(tx("u", ledger.TxCredit, i))
	}

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	all := r.All()
	want := []int64{3, 4, 5}
	for i, w := range want {
		if all[i].Amount != w {
			t.Errorf("All()[%d].Amount = %d, want %d", i, all[i].Amount, w)
		}
	}
}

func TestRingRecent(t *testing.T) {
	r := NewRing(10)
	r.Append(tx("a", ledger.TxCredit, 1))
	r.Append(tx("b", ledger.TxCredit, 2))
	r.Append(tx("a", ledger.TxDebit, 3))
	r.Append(tx("a", ledger.TxDaily, 4))

	tests := []struct {
		name string
		q    ledger.TxQuery
		want []int64
	}{
		{"all newest first", ledger.TxQuery{}, []int64{4, 3, 2, 1}},
		{"by user", ledger.TxQuery{UserID: "a"}, []int64{4, 3, 1}},
		{"limited", ledger.TxQuery{UserID: "a", Limit: 2}, []int64{4, 3}},
		{"other guild", ledger.TxQuery{GuildID: "x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Recent(tt.q)
			if len(got) != len(tt.want) {
				t.Fatalf("Recent() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Amount != tt.want[i] {
					t.Errorf("Recent()[%d].Amount = %d, want %d", i, got[i].Amount, tt.want[i])
				}
			}
		})
	}
}

func TestDefaultCap(t *testing.T) {
	if got := NewRing(0).Cap(); got != DefaultCap {
		t.Errorf("Cap() = %d, want %d", got, DefaultCap)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	txs := []ledger.Transaction{
		tx("a", ledger.TxCredit, 100),
		tx("a", ledger.TxDaily, 600),
		tx("a", ledger.TxTransferIn, 50),
		tx("a", ledger.TxTransferOut, 30),
		tx("a", ledger.TxPurchase, 500),
	}
	txs[2].Timestamp = now

	s := Summarize(txs)
	if s.TotalCredits != 750 {
		t.Errorf("TotalCredits = %d, want 750", s.TotalCredits)
	}
	if s.TotalDebits != 530 {
		t.Errorf("TotalDebits = %d, want 530", s.TotalDebits)
	}
	if s.Net() != 220 {
		t.Errorf("Net() = %d, want 220", s.Net())
	}
	if s.Count != 5 || !s.LastActivity.Equal(now) {
		t.Errorf("Count = %d, LastActivity = %v", s.Count, s.LastActivity)
	}
}

func TestNewAssignsID(t *testing.T) {
	key := ledger.Key{UserID: "u", GuildID: "g"}
	a := New(key, ledger.TxCredit, 1, "x", time.Now())
	b := New(key, ledger.TxCredit, 1, "x", time.Now())
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("New() ids = %q, %q; want unique non-empty", a.ID, b.ID)
	}
}
