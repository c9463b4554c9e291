package server

import (
	"errors"
	"net/http"

	"bondfarm/core"
	coreerrors "bondfarm/core/errors"
	"bondfarm/core/types"
	nativecommon "bondfarm/native/common"
)

type errorClass struct {
	target error
	status int
	code   string
}

// errorClasses is matched in order; the first errors.Is hit wins.
var errorClasses = []errorClass{
	{core.ErrUnknownOperation, http.StatusBadRequest, "unknown_operation"},
	{core.ErrEnvelopeExpired, http.StatusBadRequest, "expired"},
	{core.ErrNonceUsed, http.StatusConflict, "nonce_used"},
	{core.ErrGenesisApplied, http.StatusConflict, "genesis_applied"},
	{types.ErrUnsigned, http.StatusUnauthorized, "unsigned"},
	{coreerrors.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{nativecommon.ErrModulePaused, http.StatusServiceUnavailable, "paused"},
	{coreerrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{coreerrors.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{coreerrors.ErrPoolWorking, http.StatusConflict, "pool_working"},
	{coreerrors.ErrInvalidParameter, http.StatusBadRequest, "invalid_parameter"},
	{coreerrors.ErrClosed, http.StatusUnprocessableEntity, "closed"},
	{coreerrors.ErrCapacityExceeded, http.StatusUnprocessableEntity, "capacity_exceeded"},
	{coreerrors.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{coreerrors.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{coreerrors.ErrNothingToClaim, http.StatusUnprocessableEntity, "nothing_to_claim"},
	{coreerrors.ErrMathOverflow, http.StatusUnprocessableEntity, "math_overflow"},
	{coreerrors.ErrMathUnderflow, http.StatusUnprocessableEntity, "math_underflow"},
	{coreerrors.ErrNegativeElapsed, http.StatusInternalServerError, "clock"},
}

func classify(err error) (int, string) {
	for _, class := range errorClasses {
		if errors.Is(err, class.target) {
			return class.status, class.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func statusFor(err error) int {
	status, _ := classify(err)
	return status
}

func codeFor(err error) string {
	_, code := classify(err)
	return code
}
