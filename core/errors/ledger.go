package errors

import stderrors "errors"

var (
	ErrInsufficientBalance = stderrors.New("ledger: insufficient balance")
	ErrExistentialDeposit  = stderrors.New("ledger: existential deposit requirement violated")
	ErrInvalidAmount       = stderrors.New("ledger: amount must not be negative")
)
