package mongostore

import (
	"errors"
	"fmt"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"go.mongodb.org/mongo-driver/mongo"
)

// writeConflictCode is the server code for a transaction write conflict.
const writeConflictCode = 112

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// isConflict reports driver errors that mean another writer won the race.
func isConflict(err error) bool {
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel("TransientTransactionError") {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == writeConflictCode {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}

// mapError leaves domain errors untouched, turns lost races into
// ErrInvariantViolation and everything else into a StorageError.
func mapError(operation, entity string, err error) error {
	if err == nil {
		return nil
	}
	if classified(err) {
		return err
	}
	if isConflict(err) {
		return fmt.Errorf("%w: %s %s: %w", ledger.ErrInvariantViolation, operation, entity, err)
	}
	return ledger.NewStorageError(operation, entity, err)
}

func classified(err error) bool {
	return ledger.IsUserError(err) ||
		errors.Is(err, ledger.ErrInvariantViolation) ||
		errors.Is(err, ledger.ErrTransient) ||
		errors.Is(err, ledger.ErrStorageUnavailable) ||
		errors.Is(err, ledger.ErrUndeclaredKey)
}
