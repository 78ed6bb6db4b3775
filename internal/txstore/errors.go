package txstore

import (
	"errors"
	"fmt"

	"github.com/roach88/propstore/internal/property"
)

// ErrorCode categorizes transaction lifecycle errors.
type ErrorCode string

const (
	// ErrCodeTransactionClosed indicates a write through a completed transaction.
	ErrCodeTransactionClosed ErrorCode = "TRANSACTION_CLOSED"

	// ErrCodeTransactionAlreadyClosed indicates Commit or Rollback on a
	// completed transaction.
	ErrCodeTransactionAlreadyClosed ErrorCode = "TRANSACTION_ALREADY_CLOSED"

	// ErrCodeForeignTransaction indicates a handle passed to a store that did
	// not create it.
	ErrCodeForeignTransaction ErrorCode = "FOREIGN_TRANSACTION"
)

// Sentinels for errors.Is. Any *TxError with the same Code matches.
var (
	ErrTransactionClosed        = &TxError{Code: ErrCodeTransactionClosed}
	ErrTransactionAlreadyClosed = &TxError{Code: ErrCodeTransactionAlreadyClosed}
	ErrForeignTransaction       = &TxError{Code: ErrCodeForeignTransaction}

	// Value errors come from the property package; re-exported so callers of
	// this package can match every store error without a second import.
	ErrTypeMismatch = property.ErrTypeMismatch
	ErrKeyNotFound  = property.ErrKeyNotFound
)

// TxError is a transaction lifecycle violation. It always indicates a caller
// logic error and is never retried by the store.
type TxError struct {
	Code    ErrorCode
	TxID    string
	Message string
}

// Error implements the error interface.
func (e *TxError) Error() string {
	if e.TxID != "" {
		return fmt.Sprintf("%s: %s (tx=%s)", e.Code, e.Message, e.TxID)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

// Is matches any *TxError carrying the same code.
func (e *TxError) Is(target error) bool {
	t, ok := target.(*TxError)
	return ok && t.Code == e.Code
}

// IsClosed reports whether err is either closed-transaction error.
func IsClosed(err error) bool {
	return errors.Is(err, ErrTransactionClosed) || errors.Is(err, ErrTransactionAlreadyClosed)
}

// Code returns the code of a store error (lifecycle or property), or "" for
// anything else.
func Code(err error) string {
	var te *TxError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	return string(property.Code(err))
}

func closedError(st *txState) error {
	return &TxError{
		Code:    ErrCodeTransactionClosed,
		TxID:    st.id,
		Message: "transaction already completed; writes are not accepted",
	}
}

func alreadyClosedError(st *txState) error {
	return &TxError{
		Code:    ErrCodeTransactionAlreadyClosed,
		TxID:    st.id,
		Message: "transaction already " + st.outcome(),
	}
}

func foreignError(tx *Transaction) error {
	id := ""
	if tx != nil && tx.state != nil {
		id = tx.state.id
	}
	return &TxError{
		Code:    ErrCodeForeignTransaction,
		TxID:    id,
		Message: "transaction was not created by this store",
	}
}
