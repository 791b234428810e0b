package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
)

// WrapWithLogging logs start, completion, slowness and timeouts of a
// command handler.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		base := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		}
		if guildID := e.GuildID(); guildID != nil {
			base = append(base, slog.String("guild_id", guildID.String()))
		}

		slog.Debug("Command started", base...)

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("command panicked: %v", r)
				}
			}()
			done <- h(e)
		}()

		select {
		case err := <-done:
			attrs := append(base, slog.Duration("took", time.Since(start)))
			switch {
			case err != nil:
				slog.Error("Command failed", append(attrs, slog.Any("error", err), slog.String("status", "failed"))...)
			case time.Since(start) > config.SlowCommandThreshold:
				slog.Warn("Command executed slowly", append(attrs, slog.String("status", "slow"))...)
			default:
				slog.Info("Command completed", append(attrs, slog.String("status", "success"))...)
			}
			return err

		case <-time.After(config.CommandExecutionTimeout):
			slog.Error("Command timed out", append(base,
				slog.String("status", "timeout"),
				slog.Duration("timeout", config.CommandExecutionTimeout),
			)...)
			return fmt.Errorf("command %s timed out after %s", name, config.CommandExecutionTimeout)
		}
	}
}

// WrapAutocompleteWithLogging only logs failures; autocomplete fires on
// every keystroke.
func WrapAutocompleteWithLogging(name string, h handler.AutocompleteHandler) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		start := time.Now()
		err := h(e)
		if err != nil {
			slog.Error("Autocomplete failed",
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.Duration("took", time.Since(start)),
				slog.Any("error", err),
			)
		}
		return err
	}
}
