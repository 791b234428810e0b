package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/storetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

var dbSeq atomic.Int64

// TestStore needs a replica set, e.g.
// LEDGERBOT_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestStore(t *testing.T) {
	uri := os.Getenv("LEDGERBOT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LEDGERBOT_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) ledger.Store {
		ctx := context.Background()
		name := fmt.Sprintf("ledgerbot_test_%d_%d", time.Now().UnixNano(), dbSeq.Add(1))

		s, err := Connect(ctx, Config{URI: uri, Database: name, Timeout: 5}, storetest.LogCap)
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		t.Cleanup(func() {
			_ = s.db.Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}

func TestProgressionDocRoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := ledger.Progression{
		Key:            ledger.Key{UserID: "1", GuildID: "g"},
		CumulativeXP:   700,
		Level:          2,
		LastXPGrantAt:  &at,
		MessageCount:   12,
		LevelUpHistory: []ledger.LevelUpEvent{{Level: 2, Timestamp: at, XPAtEvent: 510}},
		Version:        3,
	}

	d := toProgressionDoc(p)
	assert.Equal(t, "g/1", d.ID)
	assert.Equal(t, p, fromProgressionDoc(d))
}

func TestAccountDocKeepsMultiplier(t *testing.T) {
	a := ledger.NewAccount(ledger.Key{UserID: "1", GuildID: "g"})
	a.Balance, a.Bank = 40, 60
	a.Multiplier = decimal.RequireFromString("1.25")

	d := toAccountDoc(a)
	assert.Equal(t, int64(100), d.Total)
	assert.Equal(t, "1.25", d.Multiplier)

	back := fromAccountDoc(d)
	assert.True(t, back.Multiplier.Equal(a.Multiplier))

	d.Multiplier = ""
	assert.True(t, fromAccountDoc(d).Multiplier.Equal(decimal.NewFromInt(1)))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"WriteConflict", mongo.CommandError{Code: writeConflictCode, Message: "WriteConflict"}, ledger.ErrInvariantViolation},
		{"TransientLabel", mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}, ledger.ErrInvariantViolation},
		{"Network", errors.New("connection refused"), ledger.ErrStorageUnavailable},
		{"Domain", ledger.ErrSameUser, ledger.ErrSameUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError("op", "entity", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError() got = %v, want %v", got, tt.want)
			}
		})
	}
	assert.NoError(t, mapError("op", "entity", nil))
}
