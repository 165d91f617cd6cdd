package types

import "errors"

// Code classifies a failure.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeAuthorization Code = "AUTHORIZATION_ERROR"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeFunds         Code = "FUNDS_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// Metadata describes how callers should treat a code.
type Metadata struct {
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {PublicMessage: "validation failed"},
	CodeAuthorization: {PublicMessage: "caller not permitted"},
	CodeStateConflict: {PublicMessage: "state transition disallowed"},
	CodeFunds:         {PublicMessage: "insufficient funds"},
	CodeNotFound:      {PublicMessage: "resource not found"},
	CodeInternal:      {Retryable: true, PublicMessage: "internal error"},
}

// MetadataFor returns the metadata registered for a code.
func MetadataFor(code Code) Metadata {
	if md, ok := metadataByCode[code]; ok {
		return md
	}
	return metadataByCode[CodeInternal]
}

// Error is a classified ChainPay failure. Sentinels are compared with
// errors.Is; context is added by wrapping with fmt.Errorf("%w: ...").
type Error struct {
	code   Code
	reason string
	msg    string
}

// NewError creates a classified error.
func NewError(code Code, reason, msg string) *Error {
	return &Error{code: code, reason: reason, msg: msg}
}

func (e *Error) Error() string { return "chainpay: " + e.msg }

// Code returns the error class.
func (e *Error) Code() Code { return e.code }

// Reason returns the stable reason name, e.g. "InvoiceAlreadyPaid".
func (e *Error) Reason() string { return e.reason }

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return nil
}

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	if te := As(err); te != nil {
		return te.code
	}
	return CodeInternal
}

// ReasonOf returns the reason of err, or "" for unclassified errors.
func ReasonOf(err error) string {
	if te := As(err); te != nil {
		return te.reason
	}
	return ""
}

// Sentinel errors.
var (
	// Validation
	ErrInvalidAmount       = NewError(CodeValidation, "InvalidAmount", "invalid amount")
	ErrInvalidAddress      = NewError(CodeValidation, "InvalidAddress", "invalid address")
	ErrInvalidBusinessName = NewError(CodeValidation, "InvalidBusinessName", "invalid business name")
	ErrInvalidCategory     = NewError(CodeValidation, "InvalidCategory", "invalid category")
	ErrInvalidDescription  = NewError(CodeValidation, "InvalidDescription", "invalid description")
	ErrInvalidFeeConfig    = NewError(CodeValidation, "InvalidFeeConfig", "invalid fee configuration")

	// Authorization
	ErrAlreadyRegistered = NewError(CodeAuthorization, "AlreadyRegistered", "already registered")
	ErrNotRegistered     = NewError(CodeAuthorization, "NotRegistered", "not registered")
	ErrFaucetDisabled    = NewError(CodeAuthorization, "FaucetDisabled", "faucet disabled")

	// State
	ErrInvoiceAlreadyPaid = NewError(CodeStateConflict, "InvoiceAlreadyPaid", "invoice already paid")
	ErrInvoiceExpired     = NewError(CodeStateConflict, "InvoiceExpired", "invoice expired")
	ErrMerchantNotActive  = NewError(CodeStateConflict, "MerchantNotActive", "merchant not active")

	// Funds
	ErrInsufficientBalance   = NewError(CodeFunds, "InsufficientBalance", "insufficient balance")
	ErrInsufficientAllowance = NewError(CodeFunds, "InsufficientAllowance", "insufficient allowance")
	ErrBalanceOverflow       = NewError(CodeFunds, "BalanceOverflow", "balance overflow")

	// Lookup
	ErrInvoiceNotFound  = NewError(CodeNotFound, "InvoiceNotFound", "invoice not found")
	ErrMerchantNotFound = NewError(CodeNotFound, "MerchantNotFound", "merchant not found")

	// Internal
	ErrTransactionFailed = NewError(CodeInternal, "TransactionFailed", "transaction failed")
	ErrStoreClosed       = NewError(CodeInternal, "StoreClosed", "store is closed")
)
