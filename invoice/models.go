package invoice

import (
	"time"

	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/types"
)

// MaxDescriptionLength is the description limit in characters.
const MaxDescriptionLength = 200

type Status string

const (
	StatusOpen    Status = "open"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
)

type Invoice struct {
	ID          id.ID         `json:"invoiceId"`
	Merchant    types.Address `json:"merchant"`
	Amount      types.Amount  `json:"amount"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiresAt   time.Time     `json:"expiresAt,omitzero"`
	IsPaid      bool          `json:"isPaid"`
	PaidBy      types.Address `json:"paidBy,omitzero"`
	PaidAt      time.Time     `json:"paidAt,omitzero"`
	PaymentID   id.ID         `json:"paymentId,omitzero"`
}

// Expires reports whether the invoice has an expiry.
func (inv *Invoice) Expires() bool { return !inv.ExpiresAt.IsZero() }

// ExpiredAt reports whether the invoice is past its expiry at now.
// An invoice is still payable at exactly ExpiresAt.
func (inv *Invoice) ExpiredAt(now time.Time) bool {
	return inv.Expires() && now.After(inv.ExpiresAt)
}

// Status derives the invoice state at now. Expiry is never stored.
func (inv *Invoice) Status(now time.Time) Status {
	switch {
	case inv.IsPaid:
		return StatusPaid
	case inv.ExpiredAt(now):
		return StatusExpired
	default:
		return StatusOpen
	}
}

// ExpiresAtUnix returns ExpiresAt in unix seconds, 0 for never.
func (inv *Invoice) ExpiresAtUnix() uint64 {
	if !inv.Expires() {
		return 0
	}
	return uint64(inv.ExpiresAt.Unix())
}

// Key is the journal key of an invoice record.
func Key(invID id.ID) journal.Key {
	return journal.Key{Kind: journal.KindInvoice, ID: invID.String()}
}
