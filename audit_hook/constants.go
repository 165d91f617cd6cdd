package audithook

// Action constants for audit events.
const (
	// Merchant actions
	ActionMerchantRegistered = "merchant.registered"
	ActionMerchantUpdated    = "merchant.updated"

	// Invoice actions
	ActionInvoiceCreated = "invoice.created"
	ActionInvoicePaid    = "invoice.paid"

	// Payment actions
	ActionPaymentProcessed = "payment.processed"

	// Token actions
	ActionAllowanceChanged = "allowance.changed"

	// Operation actions
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceMerchant  = "merchant"
	ResourceInvoice   = "invoice"
	ResourcePayment   = "payment"
	ResourceAllowance = "allowance"
	ResourceOperation = "operation"
)

// Category constants for audit events.
const (
	CategoryMerchant   = "merchant"
	CategorySettlement = "settlement"
	CategoryAccess     = "access"
	CategorySystem     = "system"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
