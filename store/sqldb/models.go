package sqldb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/types"
)

// amount holds an exact uint64 micro-unit value. PostgreSQL stores it as
// numeric(20,0); other dialects as text, since SQLite turns integer literals
// beyond int64 into REAL.
type amount struct {
	decimal.Decimal
}

// GormDataType implements schema.GormDataTypeInterface.
func (amount) GormDataType() string { return "numeric" }

// GormDBDataType implements migrator.GormDBDataTypeInterface.
func (amount) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric(20,0)"
	}
	return "text"
}

func toAmount(a types.Amount) amount { return amount{a.Decimal()} }

func (a amount) value() (types.Amount, error) { return types.AmountFromDecimal(a.Decimal) }

// ==================== Ledger models ====================

type accountModel struct {
	Address   string    `gorm:"primaryKey;size:42"`
	Balance   amount    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (accountModel) TableName() string { return "chainpay_accounts" }

func toAccountModel(a ledger.Account, at time.Time) accountModel {
	return accountModel{
		Address:   a.Address.Hex(),
		Balance:   toAmount(a.Balance),
		UpdatedAt: at,
	}
}

func fromAccountModel(m *accountModel) (ledger.Account, error) {
	addr, err := types.ParseAddress(m.Address)
	if err != nil {
		return ledger.Account{}, err
	}
	bal, err := m.Balance.value()
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{Address: addr, Balance: bal}, nil
}

type allowanceModel struct {
	Owner     string    `gorm:"primaryKey;size:42"`
	Spender   string    `gorm:"primaryKey;size:42"`
	Amount    amount    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (allowanceModel) TableName() string { return "chainpay_allowances" }

func toAllowanceModel(a ledger.Allowance, at time.Time) allowanceModel {
	return allowanceModel{
		Owner:     a.Owner.Hex(),
		Spender:   a.Spender.Hex(),
		Amount:    toAmount(a.Amount),
		UpdatedAt: at,
	}
}

func fromAllowanceModel(m *allowanceModel) (ledger.Allowance, error) {
	owner, err := types.ParseAddress(m.Owner)
	if err != nil {
		return ledger.Allowance{}, err
	}
	spender, err := types.ParseAddress(m.Spender)
	if err != nil {
		return ledger.Allowance{}, err
	}
	amt, err := m.Amount.value()
	if err != nil {
		return ledger.Allowance{}, err
	}
	return ledger.Allowance{Owner: owner, Spender: spender, Amount: amt}, nil
}

// ==================== Merchant models ====================

type merchantModel struct {
	Address           string    `gorm:"primaryKey;size:42"`
	BusinessName      string    `gorm:"size:400;not null"`
	Category          string    `gorm:"not null"`
	LogoURI           string    `gorm:"column:logo_uri"`
	RegisteredAt      time.Time `gorm:"not null"`
	IsActive          bool      `gorm:"not null;index"`
	TotalTransactions int64     `gorm:"not null"`
	TotalVolume       amount    `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (merchantModel) TableName() string { return "chainpay_merchants" }

func toMerchantModel(m *merchant.Merchant) merchantModel {
	return merchantModel{
		Address:           m.Address.Hex(),
		BusinessName:      m.BusinessName,
		Category:          m.Category,
		LogoURI:           m.LogoURI,
		RegisteredAt:      m.RegisteredAt,
		IsActive:          m.IsActive,
		TotalTransactions: int64(m.TotalTransactions),
		TotalVolume:       toAmount(m.TotalVolume),
		UpdatedAt:         m.UpdatedAt,
	}
}

func fromMerchantModel(m *merchantModel) (*merchant.Merchant, error) {
	addr, err := types.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}
	volume, err := m.TotalVolume.value()
	if err != nil {
		return nil, err
	}
	return &merchant.Merchant{
		Address:           addr,
		BusinessName:      m.BusinessName,
		Category:          m.Category,
		LogoURI:           m.LogoURI,
		RegisteredAt:      m.RegisteredAt.UTC(),
		IsActive:          m.IsActive,
		TotalTransactions: uint64(m.TotalTransactions),
		TotalVolume:       volume,
		UpdatedAt:         m.UpdatedAt.UTC(),
	}, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	ID          string     `gorm:"primaryKey;size:66"`
	Merchant    string     `gorm:"size:42;not null;index"`
	Amount      amount     `gorm:"not null"`
	Description string     `gorm:"size:800;not null"`
	CreatedAt   time.Time  `gorm:"not null"`
	ExpiresAt   *time.Time `gorm:""`
	IsPaid      bool       `gorm:"not null"`
	PaidBy      string     `gorm:"size:42"`
	PaidAt      *time.Time `gorm:""`
	PaymentID   string     `gorm:"size:66"`
}

func (invoiceModel) TableName() string { return "chainpay_invoices" }

func toInvoiceModel(inv *invoice.Invoice) invoiceModel {
	m := invoiceModel{
		ID:          inv.ID.String(),
		Merchant:    inv.Merchant.Hex(),
		Amount:      toAmount(inv.Amount),
		Description: inv.Description,
		CreatedAt:   inv.CreatedAt,
		IsPaid:      inv.IsPaid,
	}
	if inv.Expires() {
		t := inv.ExpiresAt
		m.ExpiresAt = &t
	}
	if inv.IsPaid {
		t := inv.PaidAt
		m.PaidAt = &t
		m.PaidBy = inv.PaidBy.Hex()
		m.PaymentID = inv.PaymentID.String()
	}
	return m
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	merchantAddr, err := types.ParseAddress(m.Merchant)
	if err != nil {
		return nil, err
	}
	amt, err := m.Amount.value()
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		ID:          invID,
		Merchant:    merchantAddr,
		Amount:      amt,
		Description: m.Description,
		CreatedAt:   m.CreatedAt.UTC(),
		IsPaid:      m.IsPaid,
	}
	if m.ExpiresAt != nil {
		inv.ExpiresAt = m.ExpiresAt.UTC()
	}
	if m.PaidAt != nil {
		inv.PaidAt = m.PaidAt.UTC()
	}
	if m.PaidBy != "" {
		if inv.PaidBy, err = types.ParseAddress(m.PaidBy); err != nil {
			return nil, err
		}
	}
	if m.PaymentID != "" {
		if inv.PaymentID, err = id.Parse(m.PaymentID); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// ==================== Event models ====================

type eventModel struct {
	Seq        int64     `gorm:"primaryKey;autoIncrement:false"`
	ID         string    `gorm:"size:64;not null;uniqueIndex"`
	Name       string    `gorm:"size:64;not null;index"`
	Subject    string    `gorm:"size:42;not null;index"`
	Payload    string    `gorm:"type:text;not null"`
	OccurredAt time.Time `gorm:"not null"`
}

func (eventModel) TableName() string { return "chainpay_events" }

func toEventModel(rec event.Record) eventModel {
	return eventModel{
		Seq:        int64(rec.Seq),
		ID:         rec.ID.String(),
		Name:       string(rec.Name),
		Subject:    rec.Subject.Hex(),
		Payload:    string(rec.Payload),
		OccurredAt: rec.OccurredAt,
	}
}

func fromEventModel(m *eventModel) (event.Record, error) {
	recID, err := id.ParseEventID(m.ID)
	if err != nil {
		return event.Record{}, err
	}
	subject, err := types.ParseAddress(m.Subject)
	if err != nil {
		return event.Record{}, err
	}
	if !json.Valid([]byte(m.Payload)) {
		return event.Record{}, fmt.Errorf("event %d: invalid payload", m.Seq)
	}
	return event.Record{
		ID:         recID,
		Seq:        uint64(m.Seq),
		Name:       event.Name(m.Name),
		Subject:    subject,
		Payload:    json.RawMessage(m.Payload),
		OccurredAt: m.OccurredAt.UTC(),
	}, nil
}

// ==================== Counter models ====================

const (
	counterNonce    = "nonce"
	counterEventSeq = "event_seq"
)

type counterModel struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value int64  `gorm:"not null"`
}

func (counterModel) TableName() string { return "chainpay_counters" }
