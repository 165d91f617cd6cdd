// Package ledger implements the single-asset IDRX token: balances,
// allowances and the transfers the Processor settles through.
//
// A Ledger is not safe for concurrent use. The Engine serializes every call
// and supplies a journal through the context so each mutation can be undone.
package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/types"
)

// DefaultFaucetAmount is what Faucet mints per call: 10,000 IDRX.
var DefaultFaucetAmount = types.IDRX(10_000)

// TransferHook runs after every completed balance move. It receives the
// operation's context and may call back into the Engine with it. A non-nil
// error aborts the enclosing operation.
type TransferHook func(ctx context.Context, from, to types.Address, amount types.Amount) error

// Option configures a Ledger.
type Option func(*Ledger)

// WithTransferHook installs a hook invoked after each transfer.
func WithTransferHook(h TransferHook) Option {
	return func(l *Ledger) { l.hook = h }
}

// WithFaucet enables the faucet with the given per-call amount. A zero amount
// selects DefaultFaucetAmount.
func WithFaucet(amount types.Amount) Option {
	return func(l *Ledger) {
		if amount.IsZero() {
			amount = DefaultFaucetAmount
		}
		l.faucet = amount
	}
}

// Ledger holds balances and allowances.
type Ledger struct {
	balances   map[types.Address]types.Amount
	allowances map[allowanceKey]types.Amount
	supply     types.Amount
	hook       TransferHook
	faucet     types.Amount
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		balances:   make(map[types.Address]types.Amount),
		allowances: make(map[allowanceKey]types.Amount),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BalanceOf returns the balance of addr, zero for unknown accounts.
func (l *Ledger) BalanceOf(addr types.Address) types.Amount {
	return l.balances[addr]
}

// Allowance returns how much spender may move from owner.
func (l *Ledger) Allowance(owner, spender types.Address) types.Amount {
	return l.allowances[allowanceKey{owner: owner, spender: spender}]
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() types.Amount {
	return l.supply
}

// FaucetEnabled reports whether Faucet may be called.
func (l *Ledger) FaucetEnabled() bool {
	return !l.faucet.IsZero()
}

// Approve sets the allowance of spender over owner's balance to amount,
// replacing any previous value. MaxAmount grants an unlimited allowance.
func (l *Ledger) Approve(ctx context.Context, owner, spender types.Address, amount types.Amount) error {
	if owner.IsZero() || spender.IsZero() {
		return fmt.Errorf("%w: approve requires owner and spender", types.ErrInvalidAddress)
	}

	l.setAllowance(ctx, owner, spender, amount)
	journal.Emit(ctx, event.Approval{Owner: owner, Spender: spender, Value: amount})
	return nil
}

// TransferFrom moves amount from owner to to on behalf of spender. The
// allowance is checked before the balance. An unlimited allowance is not
// decremented. The transfer hook runs once debit, credit and allowance
// update have all been applied.
func (l *Ledger) TransferFrom(ctx context.Context, spender, owner, to types.Address, amount types.Amount) error {
	if spender.IsZero() || owner.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: transferFrom requires spender, owner and recipient", types.ErrInvalidAddress)
	}

	allowed := l.Allowance(owner, spender)
	if allowed < amount {
		return fmt.Errorf("%w: spender %s has %s of %s from %s",
			types.ErrInsufficientAllowance, spender, allowed, amount, owner)
	}
	if err := l.checkMove(owner, to, amount); err != nil {
		return err
	}

	l.move(ctx, owner, to, amount)
	if !allowed.IsUnlimited() {
		l.setAllowance(ctx, owner, spender, allowed-amount)
	}
	journal.Emit(ctx, event.Transfer{From: owner, To: to, Value: amount})

	return l.runHook(ctx, owner, to, amount)
}

// Transfer moves amount from the caller's own balance.
func (l *Ledger) Transfer(ctx context.Context, from, to types.Address, amount types.Amount) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: transfer requires sender and recipient", types.ErrInvalidAddress)
	}
	if err := l.checkMove(from, to, amount); err != nil {
		return err
	}

	l.move(ctx, from, to, amount)
	journal.Emit(ctx, event.Transfer{From: from, To: to, Value: amount})

	return l.runHook(ctx, from, to, amount)
}

// Mint credits new units to to. It is meant for bootstrap and test setup.
func (l *Ledger) Mint(ctx context.Context, to types.Address, amount types.Amount) error {
	if to.IsZero() {
		return fmt.Errorf("%w: mint requires a recipient", types.ErrInvalidAddress)
	}

	supply, ok := l.supply.Add(amount)
	if !ok {
		return fmt.Errorf("%w: total supply", types.ErrBalanceOverflow)
	}
	balance, ok := l.balances[to].Add(amount)
	if !ok {
		return fmt.Errorf("%w: balance of %s", types.ErrBalanceOverflow, to)
	}

	prevSupply := l.supply
	journal.Record(ctx, journal.Key{Kind: journal.KindCounter, ID: "supply"}, func() { l.supply = prevSupply })
	l.supply = supply
	l.setBalance(ctx, to, balance)
	journal.Emit(ctx, event.Transfer{From: types.ZeroAddress, To: to, Value: amount})
	return nil
}

// Faucet mints the configured faucet amount to to.
func (l *Ledger) Faucet(ctx context.Context, to types.Address) (types.Amount, error) {
	if !l.FaucetEnabled() {
		return 0, types.ErrFaucetDisabled
	}
	if err := l.Mint(ctx, to, l.faucet); err != nil {
		return 0, err
	}
	return l.faucet, nil
}

func (l *Ledger) checkMove(from, to types.Address, amount types.Amount) error {
	if l.balances[from] < amount {
		return fmt.Errorf("%w: %s holds %s, needs %s",
			types.ErrInsufficientBalance, from, l.balances[from], amount)
	}
	if from != to {
		if _, ok := l.balances[to].Add(amount); !ok {
			return fmt.Errorf("%w: balance of %s", types.ErrBalanceOverflow, to)
		}
	}
	return nil
}

func (l *Ledger) move(ctx context.Context, from, to types.Address, amount types.Amount) {
	if from == to {
		// Touch the account so it is persisted, balance unchanged.
		l.setBalance(ctx, from, l.balances[from])
		return
	}
	l.setBalance(ctx, from, l.balances[from]-amount)
	l.setBalance(ctx, to, l.balances[to]+amount)
}

func (l *Ledger) runHook(ctx context.Context, from, to types.Address, amount types.Amount) error {
	if l.hook == nil {
		return nil
	}
	return l.hook(ctx, from, to, amount)
}

func (l *Ledger) setBalance(ctx context.Context, addr types.Address, v types.Amount) {
	prev, had := l.balances[addr]
	journal.Record(ctx, AccountKey(addr), func() {
		if had {
			l.balances[addr] = prev
		} else {
			delete(l.balances, addr)
		}
	})
	l.balances[addr] = v
}

func (l *Ledger) setAllowance(ctx context.Context, owner, spender types.Address, v types.Amount) {
	k := allowanceKey{owner: owner, spender: spender}
	prev, had := l.allowances[k]
	journal.Record(ctx, AllowanceKey(owner, spender), func() {
		if had {
			l.allowances[k] = prev
		} else {
			delete(l.allowances, k)
		}
	})
	l.allowances[k] = v
}

// ──────────────────────────────────────────────────
// Persistence
// ──────────────────────────────────────────────────

// Accounts returns every known account ordered by address.
func (l *Ledger) Accounts() []Account {
	out := make([]Account, 0, len(l.balances))
	for addr, bal := range l.balances {
		out = append(out, Account{Address: addr, Balance: bal})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Allowances returns every allowance ordered by owner, then spender.
func (l *Ledger) Allowances() []Allowance {
	out := make([]Allowance, 0, len(l.allowances))
	for k, amt := range l.allowances {
		out = append(out, Allowance{Owner: k.owner, Spender: k.spender, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Owner[:], out[j].Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Spender[:], out[j].Spender[:]) < 0
	})
	return out
}

// Restore replaces the ledger state with persisted records.
func (l *Ledger) Restore(accounts []Account, allowances []Allowance) error {
	balances := make(map[types.Address]types.Amount, len(accounts))
	var supply types.Amount
	for _, a := range accounts {
		var ok bool
		if supply, ok = supply.Add(a.Balance); !ok {
			return fmt.Errorf("%w: restored supply", types.ErrBalanceOverflow)
		}
		balances[a.Address] = a.Balance
	}

	allowed := make(map[allowanceKey]types.Amount, len(allowances))
	for _, a := range allowances {
		allowed[allowanceKey{owner: a.Owner, spender: a.Spender}] = a.Amount
	}

	l.balances = balances
	l.allowances = allowed
	l.supply = supply
	return nil
}

// Collect returns the current records for the dirty account and allowance
// keys. Keys of other kinds are ignored.
func (l *Ledger) Collect(keys []journal.Key) ([]Account, []Allowance, error) {
	var (
		accounts   []Account
		allowances []Allowance
	)
	for _, k := range keys {
		switch k.Kind {
		case journal.KindAccount:
			addr, err := types.ParseAddress(k.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("ledger: collect: %w", err)
			}
			accounts = append(accounts, Account{Address: addr, Balance: l.balances[addr]})
		case journal.KindAllowance:
			ak, err := parseAllowanceKey(k)
			if err != nil {
				return nil, nil, fmt.Errorf("ledger: collect: %w", err)
			}
			allowances = append(allowances, Allowance{Owner: ak.owner, Spender: ak.spender, Amount: l.allowances[ak]})
		}
	}
	return accounts, allowances, nil
}
