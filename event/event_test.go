package event_test

import (
	"testing"
	"time"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/types"
)

var (
	merchantAddr = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	payerAddr    = types.MustParseAddress("0x00000000000000000000000000000000000000b2")
)

func TestRecordRoundTrip(t *testing.T) {
	paymentID := id.Derive(id.DomainPayment, []byte("p"))

	tests := []struct {
		name    string
		evt     event.Event
		subject types.Address
	}{
		{"MerchantRegistered", event.MerchantRegistered{Address: merchantAddr, BusinessName: "Kopi", Timestamp: 1}, merchantAddr},
		{"MerchantUpdated", event.MerchantUpdated{Address: merchantAddr, BusinessName: "Kopi 2", Category: "F&B", Timestamp: 2}, merchantAddr},
		{"InvoiceCreated", event.InvoiceCreated{InvoiceID: id.Derive(id.DomainInvoice), Merchant: merchantAddr, Amount: types.IDRX(5), Description: "latte"}, merchantAddr},
		{"InvoicePaid", event.InvoicePaid{Merchant: merchantAddr, Payer: payerAddr, PaymentID: paymentID, Timestamp: 3}, merchantAddr},
		{"PaymentProcessed", event.PaymentProcessed{Payer: payerAddr, Merchant: merchantAddr, Amount: types.IDRX(100), Fee: 500000, NetAmount: 99_500000, Timestamp: 4, PaymentID: paymentID}, merchantAddr},
		{"Transfer", event.Transfer{From: payerAddr, To: merchantAddr, Value: types.IDRX(1)}, payerAddr},
		{"Approval", event.Approval{Owner: payerAddr, Spender: merchantAddr, Value: types.MaxAmount}, payerAddr},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := event.NewRecord(uint64(i+1), tt.evt, time.Unix(100, 0))
			if err != nil {
				t.Fatalf("NewRecord: %v", err)
			}
			if rec.ID.Prefix() != id.PrefixEvent {
				t.Errorf("ID prefix: got %q", rec.ID.Prefix())
			}
			if rec.Name != tt.evt.EventName() {
				t.Errorf("Name: got %s, want %s", rec.Name, tt.evt.EventName())
			}
			if rec.Subject != tt.subject {
				t.Errorf("Subject: got %s, want %s", rec.Subject, tt.subject)
			}

			decoded, err := rec.Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if decoded != tt.evt {
				t.Errorf("Decode: got %#v, want %#v", decoded, tt.evt)
			}
		})
	}
}

func TestDecodeUnknown(t *testing.T) {
	rec := event.Record{Name: "Bogus", Payload: []byte(`{}`)}
	if _, err := rec.Decode(); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestQueryMatches(t *testing.T) {
	rec := event.Record{Seq: 5, Name: event.NameTransfer, Subject: payerAddr}

	tests := []struct {
		name  string
		query event.Query
		want  bool
	}{
		{"empty", event.Query{}, true},
		{"name match", event.Query{Name: event.NameTransfer}, true},
		{"name mismatch", event.Query{Name: event.NameApproval}, false},
		{"subject match", event.Query{Subject: payerAddr}, true},
		{"subject mismatch", event.Query{Subject: merchantAddr}, false},
		{"after earlier seq", event.Query{AfterSeq: 4}, true},
		{"after same seq", event.Query{AfterSeq: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(rec); got != tt.want {
				t.Errorf("Matches: got %v, want %v", got, tt.want)
			}
		})
	}
}
