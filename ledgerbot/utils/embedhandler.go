package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
)

// ResponseHandler provides the standard embeds every command replies with.
type ResponseHandler struct{}

var EH = &ResponseHandler{}

// ErrorType groups failures by who has to act on them.
type ErrorType int

const (
	// UserError covers bad input such as a non-positive amount.
	UserError ErrorType = iota
	// SystemError covers storage outages and internal faults.
	SystemError
	NotFoundError
	PermissionError
	// BusinessLogicError covers rule violations: cooldowns, insufficient funds.
	BusinessLogicError
)

func errorPrefix(t ErrorType) string {
	switch t {
	case UserError:
		return "⚠️"
	case SystemError:
		return "🔧"
	case NotFoundError:
		return "🔍"
	case PermissionError:
		return "🚫"
	case BusinessLogicError:
		return "⏰"
	default:
		return "❌"
	}
}

func errorColor(t ErrorType) int {
	switch t {
	case UserError, BusinessLogicError:
		return config.WarningColor
	case NotFoundError:
		return config.InfoColor
	default:
		return config.ErrorColor
	}
}

func (h *ResponseHandler) CreateErrorEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       config.ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func (h *ResponseHandler) CreateSuccessEmbed(event *handler.CommandEvent, title, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       title,
			Description: message,
			Color:       config.SuccessColor,
		}},
	})
}

func (h *ResponseHandler) CreateInfoEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       config.InfoColor,
		}},
	})
}

// CreateClassifiedError replies ephemerally with a prefix and color chosen
// by errorType.
func (h *ResponseHandler) CreateClassifiedError(event *handler.CommandEvent, errorType ErrorType, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: errorPrefix(errorType) + " " + message,
			Color:       errorColor(errorType),
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func (h *ResponseHandler) CreateUserError(event *handler.CommandEvent, message string) error {
	return h.CreateClassifiedError(event, UserError, message)
}

func (h *ResponseHandler) CreateSystemError(event *handler.CommandEvent, message string) error {
	return h.CreateClassifiedError(event, SystemError, message)
}

func (h *ResponseHandler) CreatePermissionError(event *handler.CommandEvent, action string) error {
	return h.CreateClassifiedError(event, PermissionError, fmt.Sprintf("You don't have permission to %s", action))
}

// CreateFailure replies to an engine failure.
func (h *ResponseHandler) CreateFailure(event *handler.CommandEvent, f engine.Failure) error {
	t, msg := DescribeFailure(f)
	return h.CreateClassifiedError(event, t, msg)
}

// CreateErrorFor classifies a raw service error and replies to it.
func (h *ResponseHandler) CreateErrorFor(event *handler.CommandEvent, err error) error {
	return h.CreateFailure(event, engine.Fail(err))
}

// DescribeFailure turns a failure into the text shown to the user.
func DescribeFailure(f engine.Failure) (ErrorType, string) {
	switch f.Kind {
	case engine.FailCooldown:
		return BusinessLogicError, fmt.Sprintf("You're on cooldown. Try again in %s.", FormatDuration(f.RetryAfter))
	case engine.FailInsufficientFunds:
		return BusinessLogicError, insufficientMessage(f.Err)
	case engine.FailSameUser:
		return UserError, "You can't transfer coins to yourself."
	case engine.FailInvalidAmount:
		return UserError, "The amount must be a positive number within range."
	case engine.FailInvalidTarget:
		return UserError, "Pick another member of this server to send coins to."
	case engine.FailItemNotFound:
		return NotFoundError, "That item doesn't exist."
	case engine.FailItemExists:
		return UserError, "An item with that id already exists."
	case engine.FailTransient:
		return SystemError, "The ledger is busy right now, please try again."
	case engine.FailStorageUnavailable:
		return SystemError, "Storage is unavailable at the moment. The problem has been logged."
	default:
		return SystemError, "Something went wrong. The problem has been logged."
	}
}

func insufficientMessage(err error) string {
	var ife *ledger.InsufficientFundsError
	if errors.As(err, &ife) {
		where := "wallet"
		if ife.Side == ledger.SideBank {
			where = "bank"
		}
		return fmt.Sprintf("Insufficient funds: you have %s in your %s, %s needed.",
			FormatCoins(ife.Have), where, FormatCoins(ife.Need))
	}
	return "Insufficient funds."
}

// FormatDuration rounds to the second, or to the minute past an hour.
func FormatDuration(d time.Duration) string {
	if d >= time.Hour {
		d = d.Round(time.Minute)
	} else {
		d = d.Round(time.Second)
	}
	if d <= 0 {
		d = time.Second
	}
	return d.String()
}

func FormatCoins(n int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(n), config.CoinSymbol)
}

// FormatNumber inserts thousands separators.
func FormatNumber(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}
