package chainpay

import (
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// ID is the 32-byte settlement identifier of payments and invoices.
type ID = id.ID

// MaxAmount grants an unlimited allowance.
const MaxAmount = types.MaxAmount

// Re-export constructors
var (
	IDRX             = types.IDRX
	ParseAmount      = types.ParseAmount
	MustParseAmount  = types.MustParseAmount
	ParseAddress     = types.ParseAddress
	MustParseAddress = types.MustParseAddress
	ParseID          = id.Parse
)
