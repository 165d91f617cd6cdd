// Package merchant implements the merchant Registry: self-registration,
// profile updates and the settlement counters the Processor maintains.
package merchant

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/types"
)

// Registry stores merchants keyed by wallet address. It is not safe for
// concurrent use; the Engine serializes access.
type Registry struct {
	merchants map[types.Address]*Merchant
	now       func() time.Time
}

// NewRegistry creates an empty registry using now as its clock.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		merchants: make(map[types.Address]*Merchant),
		now:       now,
	}
}

// Register creates an active merchant for caller.
func (r *Registry) Register(ctx context.Context, caller types.Address, p Profile) (*Merchant, error) {
	if caller.IsZero() {
		return nil, fmt.Errorf("%w: caller", types.ErrInvalidAddress)
	}
	if _, ok := r.merchants[caller]; ok {
		return nil, fmt.Errorf("%w: %s", types.ErrAlreadyRegistered, caller)
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	now := r.timestamp()
	m := &Merchant{
		Address:      caller,
		BusinessName: p.BusinessName,
		Category:     p.Category,
		LogoURI:      p.LogoURI,
		RegisteredAt: now,
		IsActive:     true,
		UpdatedAt:    now,
	}
	r.put(ctx, m)

	journal.Emit(ctx, event.MerchantRegistered{
		Address:      caller,
		BusinessName: p.BusinessName,
		Timestamp:    uint64(now.Unix()),
	})
	return clone(m), nil
}

// UpdateProfile replaces the profile fields of caller's merchant record.
// Counters, registration time and the active flag are untouched.
func (r *Registry) UpdateProfile(ctx context.Context, caller types.Address, p Profile) (*Merchant, error) {
	cur, ok := r.merchants[caller]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotRegistered, caller)
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	now := r.timestamp()
	m := clone(cur)
	m.BusinessName = p.BusinessName
	m.Category = p.Category
	m.LogoURI = p.LogoURI
	m.UpdatedAt = now
	r.put(ctx, m)

	journal.Emit(ctx, event.MerchantUpdated{
		Address:      caller,
		BusinessName: p.BusinessName,
		Category:     p.Category,
		LogoURI:      p.LogoURI,
		Timestamp:    uint64(now.Unix()),
	})
	return clone(m), nil
}

// Get returns a copy of the merchant registered at addr.
func (r *Registry) Get(addr types.Address) (*Merchant, error) {
	m, ok := r.merchants[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrMerchantNotFound, addr)
	}
	return clone(m), nil
}

// IsRegistered reports whether addr has registered.
func (r *Registry) IsRegistered(addr types.Address) bool {
	_, ok := r.merchants[addr]
	return ok
}

// IsActiveMerchant reports whether addr is registered and active.
func (r *Registry) IsActiveMerchant(addr types.Address) bool {
	m, ok := r.merchants[addr]
	return ok && m.IsActive
}

// RecordSettlement adds one transaction of gross amount to the merchant's
// counters.
func (r *Registry) RecordSettlement(ctx context.Context, addr types.Address, gross types.Amount) error {
	cur, ok := r.merchants[addr]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrMerchantNotFound, addr)
	}

	volume, ok := cur.TotalVolume.Add(gross)
	if !ok {
		return fmt.Errorf("%w: volume of %s", types.ErrBalanceOverflow, addr)
	}

	m := clone(cur)
	m.TotalTransactions++
	m.TotalVolume = volume
	r.put(ctx, m)
	return nil
}

// List returns all merchants ordered by address.
func (r *Registry) List() []*Merchant {
	out := make([]*Merchant, 0, len(r.merchants))
	for _, m := range r.merchants {
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Restore replaces the registry contents with persisted merchants.
func (r *Registry) Restore(merchants []*Merchant) {
	r.merchants = make(map[types.Address]*Merchant, len(merchants))
	for _, m := range merchants {
		r.merchants[m.Address] = clone(m)
	}
}

// Collect returns the current records for the dirty merchant keys.
func (r *Registry) Collect(keys []journal.Key) ([]*Merchant, error) {
	var out []*Merchant
	for _, k := range keys {
		if k.Kind != journal.KindMerchant {
			continue
		}
		addr, err := types.ParseAddress(k.ID)
		if err != nil {
			return nil, fmt.Errorf("merchant: collect: %w", err)
		}
		if m, ok := r.merchants[addr]; ok {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (r *Registry) put(ctx context.Context, m *Merchant) {
	prev, had := r.merchants[m.Address]
	journal.Record(ctx, Key(m.Address), func() {
		if had {
			r.merchants[m.Address] = prev
		} else {
			delete(r.merchants, m.Address)
		}
	})
	r.merchants[m.Address] = m
}

func (r *Registry) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Second)
}

func validate(p Profile) error {
	if p.BusinessName == "" {
		return fmt.Errorf("%w: must not be empty", types.ErrInvalidBusinessName)
	}
	if utf8.RuneCountInString(p.BusinessName) > MaxBusinessNameLength {
		return fmt.Errorf("%w: longer than %d characters", types.ErrInvalidBusinessName, MaxBusinessNameLength)
	}
	if p.Category == "" {
		return fmt.Errorf("%w: must not be empty", types.ErrInvalidCategory)
	}
	return nil
}

func clone(m *Merchant) *Merchant {
	c := *m
	return &c
}
