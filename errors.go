package permitc

import (
	"fmt"

	"github.com/limitbreak/permitc-go/sigverify"
)

// PermitError is a validation, authorization, or cryptographic failure.
// These hard-abort the current operation with no state mutated; only
// transfer-level failures are recovered inline (reported through
// TransferResult/FillResult instead).
type PermitError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *PermitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes
const (
	ErrCodeInvalidTokenType          = "invalid_token_type"
	ErrCodeNonceAlreadyUsed          = "nonce_already_used_or_revoked"
	ErrCodeNonceNotUsed              = "nonce_not_used_or_revoked"
	ErrCodeOrderCancelledOrFilled    = "order_cancelled_or_filled"
	ErrCodeAmountExceedsStorageMax   = "amount_exceeds_storage_maximum"
	ErrCodeExpirationExceedsMax      = "expiration_exceeds_storage_maximum"
	ErrCodeExceededPermittedAmount   = "exceeded_permitted_amount"
	ErrCodeZeroOrderStartAmount      = "order_start_amount_zero"
	ErrCodeMinimumFillNotMet         = "unable_to_fill_minimum_requested_quantity"
	ErrCodePermitExpiredOrUnset      = "approval_transfer_permit_expired_or_unset"
	ErrCodeSignatureDeadlineExpired  = "signature_deadline_expired"
	ErrCodeCallerNotOwnerOrOperator  = "caller_not_owner_or_operator"
	ErrCodeNotAuthorizedToPause      = "not_authorized_to_pause"
	ErrCodeTypehashNotRegistered     = "typehash_not_registered"
	ErrCodePaused                    = "paused"
	ErrCodeWithdrawExceedsCollateral = "withdraw_exceeds_collateral"
)

var (
	ErrInvalidTokenType               = &PermitError{Code: ErrCodeInvalidTokenType, Message: "token type must be ERC20, ERC721 or ERC1155"}
	ErrNonceAlreadyUsedOrRevoked      = &PermitError{Code: ErrCodeNonceAlreadyUsed, Message: "nonce already used or revoked"}
	ErrNonceNotUsedOrRevoked          = &PermitError{Code: ErrCodeNonceNotUsed, Message: "nonce not used or revoked"}
	ErrOrderIsEitherCancelledOrFilled = &PermitError{Code: ErrCodeOrderCancelledOrFilled, Message: "order is either cancelled or filled"}
	ErrAmountExceedsStorageMaximum    = &PermitError{Code: ErrCodeAmountExceedsStorageMax, Message: "amount exceeds the 200-bit storage maximum"}
	ErrExpirationExceedsStorageMax    = &PermitError{Code: ErrCodeExpirationExceedsMax, Message: "expiration exceeds the 48-bit storage maximum"}
	ErrExceededPermittedAmount        = &PermitError{Code: ErrCodeExceededPermittedAmount, Message: "requested amount exceeds the approved or permitted amount"}
	ErrZeroOrderStartAmount           = &PermitError{Code: ErrCodeZeroOrderStartAmount, Message: "order start amount must be greater than zero"}
	ErrUnableToFillMinimumRequested   = &PermitError{Code: ErrCodeMinimumFillNotMet, Message: "unable to fill minimum requested quantity"}
	ErrPermitExpiredOrUnset           = &PermitError{Code: ErrCodePermitExpiredOrUnset, Message: "approval or permit is expired or was never set"}
	ErrSignatureDeadlineExpired       = &PermitError{Code: ErrCodeSignatureDeadlineExpired, Message: "signature submission deadline has passed"}
	ErrCallerNotOwnerOrOperator       = &PermitError{Code: ErrCodeCallerNotOwnerOrOperator, Message: "caller is neither the order owner nor the operator"}
	ErrNotAuthorizedToPause           = &PermitError{Code: ErrCodeNotAuthorizedToPause, Message: "caller is not authorized to pause or unpause"}
	ErrTypehashNotRegistered          = &PermitError{Code: ErrCodeTypehashNotRegistered, Message: "advanced permit typehash is not registered"}
	ErrPaused                         = &PermitError{Code: ErrCodePaused, Message: "operation is paused"}
	ErrWithdrawExceedsCollateral      = &PermitError{Code: ErrCodeWithdrawExceedsCollateral, Message: "withdraw amount exceeds held collateral"}
)

// ErrInvalidSignature is the cryptographic failure sentinel, shared with the
// sigverify package so errors.Is works across both.
var ErrInvalidSignature = sigverify.ErrInvalidSignature
