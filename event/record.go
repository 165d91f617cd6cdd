package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/types"
)

// Record is a committed event as persisted in the event log.
type Record struct {
	ID         id.RecordID     `json:"id"`
	Seq        uint64          `json:"seq"`
	Name       Name            `json:"name"`
	Subject    types.Address   `json:"subject"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewRecord encodes evt into a Record with the given sequence number.
func NewRecord(seq uint64, evt Event, at time.Time) (Record, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return Record{}, fmt.Errorf("event: encode %s: %w", evt.EventName(), err)
	}

	return Record{
		ID:         id.NewEventID(),
		Seq:        seq,
		Name:       evt.EventName(),
		Subject:    Subject(evt),
		Payload:    payload,
		OccurredAt: at,
	}, nil
}

// Decode restores the typed event held by the record.
func (r Record) Decode() (Event, error) {
	var evt Event
	switch r.Name {
	case NameMerchantRegistered:
		evt = &MerchantRegistered{}
	case NameMerchantUpdated:
		evt = &MerchantUpdated{}
	case NameInvoiceCreated:
		evt = &InvoiceCreated{}
	case NameInvoicePaid:
		evt = &InvoicePaid{}
	case NamePaymentProcessed:
		evt = &PaymentProcessed{}
	case NameTransfer:
		evt = &Transfer{}
	case NameApproval:
		evt = &Approval{}
	default:
		return nil, fmt.Errorf("event: unknown event %q", r.Name)
	}

	if err := json.Unmarshal(r.Payload, evt); err != nil {
		return nil, fmt.Errorf("event: decode %s: %w", r.Name, err)
	}
	return deref(evt), nil
}

func deref(evt Event) Event {
	switch e := evt.(type) {
	case *MerchantRegistered:
		return *e
	case *MerchantUpdated:
		return *e
	case *InvoiceCreated:
		return *e
	case *InvoicePaid:
		return *e
	case *PaymentProcessed:
		return *e
	case *Transfer:
		return *e
	case *Approval:
		return *e
	default:
		return evt
	}
}

// Subject returns the address an event is primarily about: the merchant for
// merchant, invoice and payment events, the sender for transfers and the
// owner for approvals. It is used as a partition and filter key.
func Subject(evt Event) types.Address {
	switch e := evt.(type) {
	case MerchantRegistered:
		return e.Address
	case MerchantUpdated:
		return e.Address
	case InvoiceCreated:
		return e.Merchant
	case InvoicePaid:
		return e.Merchant
	case PaymentProcessed:
		return e.Merchant
	case Transfer:
		return e.From
	case Approval:
		return e.Owner
	default:
		return types.ZeroAddress
	}
}

// Query filters the event log. Zero fields match everything.
type Query struct {
	Name     Name
	Subject  types.Address
	AfterSeq uint64
	Limit    int
}

// Matches reports whether r satisfies the query filters (Limit excluded).
func (q Query) Matches(r Record) bool {
	if q.Name != "" && r.Name != q.Name {
		return false
	}
	if !q.Subject.IsZero() && r.Subject != q.Subject {
		return false
	}
	return r.Seq > q.AfterSeq
}
