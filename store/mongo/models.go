package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/types"
)

// Amounts are stored as Decimal128; BSON has no unsigned 64-bit integer.

func toDecimal128(a types.Amount) bson.Decimal128 {
	d, err := bson.ParseDecimal128(a.Decimal().String())
	if err != nil {
		// Every uint64 fits in 34 significant digits.
		panic(fmt.Sprintf("chainpay/mongo: encode amount %d: %v", uint64(a), err))
	}
	return d
}

func fromDecimal128(d bson.Decimal128) (types.Amount, error) {
	dec, err := decimal.NewFromString(d.String())
	if err != nil {
		return 0, fmt.Errorf("decode amount %s: %w", d.String(), err)
	}
	return types.AmountFromDecimal(dec)
}

// ==================== Ledger models ====================

type accountModel struct {
	ID        string          `bson:"_id"`
	Balance   bson.Decimal128 `bson:"balance"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

func toAccountModel(a ledger.Account, at time.Time) *accountModel {
	return &accountModel{
		ID:        a.Address.Hex(),
		Balance:   toDecimal128(a.Balance),
		UpdatedAt: at,
	}
}

func fromAccountModel(m *accountModel) (ledger.Account, error) {
	addr, err := types.ParseAddress(m.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	bal, err := fromDecimal128(m.Balance)
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{Address: addr, Balance: bal}, nil
}

type allowanceModel struct {
	ID        string          `bson:"_id"`
	Owner     string          `bson:"owner"`
	Spender   string          `bson:"spender"`
	Amount    bson.Decimal128 `bson:"amount"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

func toAllowanceModel(a ledger.Allowance, at time.Time) *allowanceModel {
	return &allowanceModel{
		ID:        a.Owner.Hex() + ":" + a.Spender.Hex(),
		Owner:     a.Owner.Hex(),
		Spender:   a.Spender.Hex(),
		Amount:    toDecimal128(a.Amount),
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
	amt, err := fromDecimal128(m.Amount)
	if err != nil {
		return ledger.Allowance{}, err
	}
	return ledger.Allowance{Owner: owner, Spender: spender, Amount: amt}, nil
}

// ==================== Merchant models ====================

type merchantModel struct {
	ID                string          `bson:"_id"`
	BusinessName      string          `bson:"business_name"`
	Category          string          `bson:"category"`
	LogoURI           string          `bson:"logo_uri,omitempty"`
	RegisteredAt      time.Time       `bson:"registered_at"`
	IsActive          bool            `bson:"is_active"`
	TotalTransactions int64           `bson:"total_transactions"`
	TotalVolume       bson.Decimal128 `bson:"total_volume"`
	UpdatedAt         time.Time       `bson:"updated_at"`
}

func toMerchantModel(m *merchant.Merchant) *merchantModel {
	return &merchantModel{
		ID:                m.Address.Hex(),
		BusinessName:      m.BusinessName,
		Category:          m.Category,
		LogoURI:           m.LogoURI,
		RegisteredAt:      m.RegisteredAt,
		IsActive:          m.IsActive,
		TotalTransactions: int64(m.TotalTransactions),
		TotalVolume:       toDecimal128(m.TotalVolume),
		UpdatedAt:         m.UpdatedAt,
	}
}

func fromMerchantModel(m *merchantModel) (*merchant.Merchant, error) {
	addr, err := types.ParseAddress(m.ID)
	if err != nil {
		return nil, err
	}
	volume, err := fromDecimal128(m.TotalVolume)
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
	ID          string          `bson:"_id"`
	Merchant    string          `bson:"merchant"`
	Amount      bson.Decimal128 `bson:"amount"`
	Description string          `bson:"description"`
	CreatedAt   time.Time       `bson:"created_at"`
	ExpiresAt   *time.Time      `bson:"expires_at,omitempty"`
	IsPaid      bool            `bson:"is_paid"`
	PaidBy      string          `bson:"paid_by,omitempty"`
	PaidAt      *time.Time      `bson:"paid_at,omitempty"`
	PaymentID   string          `bson:"payment_id,omitempty"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	m := &invoiceModel{
		ID:          inv.ID.String(),
		Merchant:    inv.Merchant.Hex(),
		Amount:      toDecimal128(inv.Amount),
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
	amt, err := fromDecimal128(m.Amount)
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
	Seq        int64     `bson:"_id"`
	RecordID   string    `bson:"record_id"`
	Name       string    `bson:"name"`
	Subject    string    `bson:"subject"`
	Payload    string    `bson:"payload"`
	OccurredAt time.Time `bson:"occurred_at"`
}

func toEventModel(rec event.Record) *eventModel {
	return &eventModel{
		Seq:        int64(rec.Seq),
		RecordID:   rec.ID.String(),
		Name:       string(rec.Name),
		Subject:    rec.Subject.Hex(),
		Payload:    string(rec.Payload),
		OccurredAt: rec.OccurredAt,
	}
}

func fromEventModel(m *eventModel) (event.Record, error) {
	recID, err := id.ParseEventID(m.RecordID)
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

const countersID = "counters"

type countersModel struct {
	ID       string `bson:"_id"`
	Nonce    int64  `bson:"nonce"`
	EventSeq int64  `bson:"event_seq"`
}
