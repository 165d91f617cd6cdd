package ledger

import (
	"fmt"
	"strings"

	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/types"
)

type Account struct {
	Address types.Address `json:"address"`
	Balance types.Amount  `json:"balance"`
}

type Allowance struct {
	Owner   types.Address `json:"owner"`
	Spender types.Address `json:"spender"`
	Amount  types.Amount  `json:"amount"`
}

type allowanceKey struct {
	owner   types.Address
	spender types.Address
}

// AccountKey is the journal key of an account balance.
func AccountKey(addr types.Address) journal.Key {
	return journal.Key{Kind: journal.KindAccount, ID: addr.Hex()}
}

// AllowanceKey is the journal key of an (owner, spender) allowance.
func AllowanceKey(owner, spender types.Address) journal.Key {
	return journal.Key{Kind: journal.KindAllowance, ID: owner.Hex() + ":" + spender.Hex()}
}

func parseAllowanceKey(k journal.Key) (allowanceKey, error) {
	o, s, ok := strings.Cut(k.ID, ":")
	if !ok {
		return allowanceKey{}, fmt.Errorf("ledger: malformed allowance key %q", k.ID)
	}
	owner, err := types.ParseAddress(o)
	if err != nil {
		return allowanceKey{}, err
	}
	spender, err := types.ParseAddress(s)
	if err != nil {
		return allowanceKey{}, err
	}
	return allowanceKey{owner: owner, spender: spender}, nil
}
