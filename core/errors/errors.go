// Package errors declares the error taxonomy shared by the farm and bond
// modules. Engines wrap these values with operation context; callers match
// them with errors.Is.
package errors

import stderrors "errors"

var (
	ErrUnauthorized        = stderrors.New("unauthorized")
	ErrInvalidParameter    = stderrors.New("invalid parameter")
	ErrCapacityExceeded    = stderrors.New("capacity exceeded")
	ErrInsufficientBalance = stderrors.New("insufficient balance")
	ErrInsufficientFunds   = stderrors.New("insufficient funds")
	ErrMathOverflow        = stderrors.New("math overflow")
	ErrMathUnderflow       = stderrors.New("math underflow")
	ErrNothingToClaim      = stderrors.New("nothing to claim")
	ErrClosed              = stderrors.New("closed")
	ErrNegativeElapsed     = stderrors.New("clock moved backwards")
	ErrAlreadyExists       = stderrors.New("already exists")
	ErrNotFound            = stderrors.New("not found")
	// ErrPoolWorking rejects closing a pool that still holds deposits.
	ErrPoolWorking = stderrors.New("pool is working")
)
