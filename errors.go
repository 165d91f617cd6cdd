package chainpay

import (
	"errors"

	"github.com/chainpayid/chainpay/types"
)

// Sentinel errors for common failure scenarios. They are *types.Error values
// carrying a Code and a Reason; compare with errors.Is.
var (
	// Validation errors
	ErrInvalidAmount       = types.ErrInvalidAmount
	ErrInvalidAddress      = types.ErrInvalidAddress
	ErrInvalidBusinessName = types.ErrInvalidBusinessName
	ErrInvalidCategory     = types.ErrInvalidCategory
	ErrInvalidDescription  = types.ErrInvalidDescription
	ErrInvalidFeeConfig    = types.ErrInvalidFeeConfig

	// Authorization errors
	ErrAlreadyRegistered = types.ErrAlreadyRegistered
	ErrNotRegistered     = types.ErrNotRegistered
	ErrFaucetDisabled    = types.ErrFaucetDisabled

	// State errors
	ErrInvoiceAlreadyPaid = types.ErrInvoiceAlreadyPaid
	ErrInvoiceExpired     = types.ErrInvoiceExpired
	ErrMerchantNotActive  = types.ErrMerchantNotActive

	// Funds errors
	ErrInsufficientBalance   = types.ErrInsufficientBalance
	ErrInsufficientAllowance = types.ErrInsufficientAllowance
	ErrBalanceOverflow       = types.ErrBalanceOverflow

	// Lookup errors
	ErrInvoiceNotFound  = types.ErrInvoiceNotFound
	ErrMerchantNotFound = types.ErrMerchantNotFound

	// Store errors
	ErrTransactionFailed = types.ErrTransactionFailed
	ErrStoreClosed       = types.ErrStoreClosed
)

// Code classifies an error, see types.Code.
type Code = types.Code

// Error codes.
const (
	CodeValidation    = types.CodeValidation
	CodeAuthorization = types.CodeAuthorization
	CodeStateConflict = types.CodeStateConflict
	CodeFunds         = types.CodeFunds
	CodeNotFound      = types.CodeNotFound
	CodeInternal      = types.CodeInternal
)

// CodeOf returns the code of err, CodeInternal if unclassified.
func CodeOf(err error) Code { return types.CodeOf(err) }

// ReasonOf returns the stable reason string of err, e.g. "InvoiceExpired".
func ReasonOf(err error) string { return types.ReasonOf(err) }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrMerchantNotFound)
}

// IsValidation returns true if the error rejects malformed input.
func IsValidation(err error) bool {
	return err != nil && CodeOf(err) == CodeValidation
}

// IsFundsError returns true if the payer lacks balance or allowance.
func IsFundsError(err error) bool {
	return err != nil && CodeOf(err) == CodeFunds
}

// IsStateConflict returns true if the target is in the wrong state.
func IsStateConflict(err error) bool {
	return err != nil && CodeOf(err) == CodeStateConflict
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrStoreClosed)
}
