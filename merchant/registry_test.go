package merchant_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/types"
)

var (
	shop  = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	other = types.MustParseAddress("0x00000000000000000000000000000000000000b2")
	epoch = time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
)

func newRegistry() *merchant.Registry {
	return merchant.NewRegistry(func() time.Time { return epoch })
}

func kopi() merchant.Profile {
	return merchant.Profile{BusinessName: "Kopi Kenangan", Category: "F&B", LogoURI: "ipfs://logo"}
}

func TestRegister(t *testing.T) {
	r := newRegistry()
	ctx, j := journal.Begin(context.Background())

	m, err := r.Register(ctx, shop, kopi())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !m.IsActive || m.TotalTransactions != 0 || m.TotalVolume != 0 {
		t.Errorf("unexpected initial state: %+v", m)
	}
	if !m.RegisteredAt.Equal(epoch.Truncate(time.Second)) {
		t.Errorf("RegisteredAt: got %v", m.RegisteredAt)
	}
	if !r.IsRegistered(shop) || !r.IsActiveMerchant(shop) {
		t.Error("merchant should be registered and active")
	}

	evts := j.Events()
	if len(evts) != 1 {
		t.Fatalf("events: got %d", len(evts))
	}
	want := event.MerchantRegistered{Address: shop, BusinessName: "Kopi Kenangan", Timestamp: uint64(epoch.Unix())}
	if evts[0] != want {
		t.Errorf("event: got %#v, want %#v", evts[0], want)
	}

	if _, err := r.Register(ctx, shop, kopi()); !errors.Is(err, types.ErrAlreadyRegistered) {
		t.Errorf("second Register: got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		profile merchant.Profile
		wantErr error
	}{
		{"empty name", merchant.Profile{Category: "F&B"}, types.ErrInvalidBusinessName},
		{"name too long", merchant.Profile{BusinessName: strings.Repeat("a", 101), Category: "F&B"}, types.ErrInvalidBusinessName},
		{"name at limit in runes", merchant.Profile{BusinessName: strings.Repeat("é", 100), Category: "F&B"}, nil},
		{"empty category", merchant.Profile{BusinessName: "Kopi"}, types.ErrInvalidCategory},
		{"no logo", merchant.Profile{BusinessName: "Kopi", Category: "F&B"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry()
			_, err := r.Register(context.Background(), shop, tt.profile)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Register: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if r.IsRegistered(shop) {
				t.Error("failed registration left a record")
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	if _, err := r.UpdateProfile(ctx, shop, kopi()); !errors.Is(err, types.ErrNotRegistered) {
		t.Fatalf("update before register: got %v", err)
	}
	if _, err := r.Register(ctx, shop, kopi()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.RecordSettlement(ctx, shop, types.IDRX(100)); err != nil {
		t.Fatalf("RecordSettlement: %v", err)
	}

	m, err := r.UpdateProfile(ctx, shop, merchant.Profile{BusinessName: "Kopi 2", Category: "Cafe"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if m.BusinessName != "Kopi 2" || m.Category != "Cafe" || m.LogoURI != "" {
		t.Errorf("profile not replaced: %+v", m)
	}
	if m.TotalTransactions != 1 || m.TotalVolume != types.IDRX(100) {
		t.Errorf("counters changed: %+v", m)
	}
}

func TestRecordSettlementRollback(t *testing.T) {
	r := newRegistry()
	if _, err := r.Register(context.Background(), shop, kopi()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx, j := journal.Begin(context.Background())
	if err := r.RecordSettlement(ctx, shop, types.IDRX(5)); err != nil {
		t.Fatalf("RecordSettlement: %v", err)
	}
	collected, err := r.Collect(j.Dirty())
	if err != nil || len(collected) != 1 || collected[0].TotalVolume != types.IDRX(5) {
		t.Fatalf("Collect: %v %v", collected, err)
	}
	j.Rollback()

	m, err := r.Get(shop)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.TotalTransactions != 0 || m.TotalVolume != 0 {
		t.Errorf("rollback left counters: %+v", m)
	}
	if err := r.RecordSettlement(ctx, other, 1); !errors.Is(err, types.ErrMerchantNotFound) {
		t.Errorf("unknown merchant: got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := newRegistry()
	if _, err := r.Register(context.Background(), shop, kopi()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	m, _ := r.Get(shop)
	m.BusinessName = "mutated"

	again, _ := r.Get(shop)
	if again.BusinessName != "Kopi Kenangan" {
		t.Error("Get exposed internal state")
	}
	if _, err := r.Get(other); !errors.Is(err, types.ErrMerchantNotFound) {
		t.Errorf("Get unknown: got %v", err)
	}
}

func TestRestoreAndList(t *testing.T) {
	r := newRegistry()
	r.Restore([]*merchant.Merchant{
		{Address: other, BusinessName: "B", Category: "x", IsActive: true},
		{Address: shop, BusinessName: "A", Category: "x", IsActive: false},
	})

	list := r.List()
	if len(list) != 2 || list[0].Address != shop {
		t.Fatalf("List: got %v", list)
	}
	if r.IsActiveMerchant(shop) {
		t.Error("inactive merchant reported active")
	}
	if !r.IsActiveMerchant(other) {
		t.Error("active merchant reported inactive")
	}
}
