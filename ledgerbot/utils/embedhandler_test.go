package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
)

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantText string
	}{
		{
			name:     "Cooldown",
			err:      &ledger.CooldownError{Remaining: 23*time.Hour + 59*time.Minute + 50*time.Second},
			wantType: BusinessLogicError,
			wantText: "Try again in 24h0m0s",
		},
		{
			name:     "ShortCooldown",
			err:      &ledger.CooldownError{Remaining: 4200 * time.Millisecond},
			wantType: BusinessLogicError,
			wantText: "Try again in 4s",
		},
		{
			name:     "InsufficientBalance",
			err:      &ledger.InsufficientFundsError{Side: ledger.SideBalance, Have: 100, Need: 2500},
			wantType: BusinessLogicError,
			wantText: "you have 100 🪙 in your wallet, 2,500 🪙 needed",
		},
		{
			name:     "InsufficientBank",
			err:      &ledger.InsufficientFundsError{Side: ledger.SideBank, Have: 0, Need: 10},
			wantType: BusinessLogicError,
			wantText: "in your bank",
		},
		{name: "SameUser", err: ledger.ErrSameUser, wantType: UserError, wantText: "yourself"},
		{name: "InvalidAmount", err: ledger.ErrInvalidAmount, wantType: UserError, wantText: "positive"},
		{name: "InvalidTarget", err: ledger.ErrInvalidTarget, wantType: UserError, wantText: "member of this server"},
		{name: "ItemNotFound", err: ledger.ErrItemNotFound, wantType: NotFoundError, wantText: "doesn't exist"},
		{name: "Transient", err: ledger.ErrTransient, wantType: SystemError, wantText: "try again"},
		{
			name:     "Storage",
			err:      ledger.NewStorageError("select", "account", errors.New("conn refused")),
			wantType: SystemError,
			wantText: "Storage is unavailable",
		},
		{name: "Unknown", err: errors.New("boom"), wantType: SystemError, wantText: "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotText := DescribeFailure(engine.Fail(tt.err))
			if gotType != tt.wantType {
				t.Errorf("DescribeFailure() type = %v, want %v", gotType, tt.wantType)
			}
			if !strings.Contains(gotText, tt.wantText) {
				t.Errorf("DescribeFailure() text = %q, want substring %q", gotText, tt.wantText)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-15000, "-15,000"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) got = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "1s"},
		{1500 * time.Millisecond, "2s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 30*time.Second, "2h1m0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) got = %v, want %v", tt.in, got, tt.want)
		}
	}
}
