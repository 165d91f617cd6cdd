package merchant

import (
	"time"

	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/types"
)

// MaxBusinessNameLength is the business name limit in characters.
const MaxBusinessNameLength = 100

type Merchant struct {
	Address           types.Address `json:"walletAddress"`
	BusinessName      string        `json:"businessName"`
	Category          string        `json:"category"`
	LogoURI           string        `json:"logoURI,omitempty"`
	RegisteredAt      time.Time     `json:"registeredAt"`
	IsActive          bool          `json:"isActive"`
	TotalTransactions uint64        `json:"totalTransactions"`
	TotalVolume       types.Amount  `json:"totalVolume"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// Profile is the merchant-editable part of a Merchant.
type Profile struct {
	BusinessName string `json:"businessName"`
	Category     string `json:"category"`
	LogoURI      string `json:"logoURI,omitempty"`
}

// Key is the journal key of a merchant record.
func Key(addr types.Address) journal.Key {
	return journal.Key{Kind: journal.KindMerchant, ID: addr.Hex()}
}
