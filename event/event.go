// Package event defines the notifications emitted by ChainPay operations.
//
// Field order of MerchantRegistered, InvoiceCreated and PaymentProcessed
// mirrors the settlement contracts' event signatures. Timestamps are unix
// seconds; an ExpiresAt of zero means the invoice never expires.
package event

import (
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/types"
)

// Name identifies an event type.
type Name string

// Event names.
const (
	NameMerchantRegistered Name = "MerchantRegistered"
	NameMerchantUpdated    Name = "MerchantUpdated"
	NameInvoiceCreated     Name = "InvoiceCreated"
	NameInvoicePaid        Name = "InvoicePaid"
	NamePaymentProcessed   Name = "PaymentProcessed"
	NameTransfer           Name = "Transfer"
	NameApproval           Name = "Approval"
)

// Event is implemented by every event struct.
type Event interface {
	EventName() Name
}

// MerchantRegistered is emitted when a merchant registers.
type MerchantRegistered struct {
	Address      types.Address `json:"address"`
	BusinessName string        `json:"businessName"`
	Timestamp    uint64        `json:"timestamp"`
}

// MerchantUpdated is emitted when a merchant changes its profile.
type MerchantUpdated struct {
	Address      types.Address `json:"address"`
	BusinessName string        `json:"businessName"`
	Category     string        `json:"category"`
	LogoURI      string        `json:"logoURI"`
	Timestamp    uint64        `json:"timestamp"`
}

// InvoiceCreated is emitted when a merchant issues an invoice.
type InvoiceCreated struct {
	InvoiceID   id.ID         `json:"invoiceId"`
	Merchant    types.Address `json:"merchant"`
	Amount      types.Amount  `json:"amount"`
	Description string        `json:"description"`
	ExpiresAt   uint64        `json:"expiresAt"`
}

// InvoicePaid is emitted after the PaymentProcessed event of an invoice
// settlement.
type InvoicePaid struct {
	InvoiceID id.ID         `json:"invoiceId"`
	Merchant  types.Address `json:"merchant"`
	Payer     types.Address `json:"payer"`
	PaymentID id.ID         `json:"paymentId"`
	Timestamp uint64        `json:"timestamp"`
}

// PaymentProcessed is emitted for every settled payment.
type PaymentProcessed struct {
	Payer     types.Address `json:"payer"`
	Merchant  types.Address `json:"merchant"`
	Amount    types.Amount  `json:"amount"`
	Fee       types.Amount  `json:"fee"`
	NetAmount types.Amount  `json:"netAmount"`
	Timestamp uint64        `json:"timestamp"`
	PaymentID id.ID         `json:"paymentId"`
}

// Transfer is emitted for every token movement. Mints use the zero address
// as From.
type Transfer struct {
	From  types.Address `json:"from"`
	To    types.Address `json:"to"`
	Value types.Amount  `json:"value"`
}

// Approval is emitted when an owner sets an allowance.
type Approval struct {
	Owner   types.Address `json:"owner"`
	Spender types.Address `json:"spender"`
	Value   types.Amount  `json:"value"`
}

func (MerchantRegistered) EventName() Name { return NameMerchantRegistered }
func (MerchantUpdated) EventName() Name    { return NameMerchantUpdated }
func (InvoiceCreated) EventName() Name     { return NameInvoiceCreated }
func (InvoicePaid) EventName() Name        { return NameInvoicePaid }
func (PaymentProcessed) EventName() Name   { return NamePaymentProcessed }
func (Transfer) EventName() Name           { return NameTransfer }
func (Approval) EventName() Name           { return NameApproval }
