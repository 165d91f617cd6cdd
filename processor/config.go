package processor

import (
	"fmt"

	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/types"
)

const (
	// BasisPointsDenominator is 100% expressed in basis points.
	BasisPointsDenominator = 10_000

	// DefaultFeeBasisPoints is the platform fee, 0.5%.
	DefaultFeeBasisPoints = 50
)

// Config is fixed at construction.
type Config struct {
	// FeeBasisPoints is the fee rate. Zero means no fee.
	FeeBasisPoints uint64

	// FeeCollector receives the fee part of every payment. Required.
	FeeCollector types.Address

	// Address is the spender identity payers approve. Zero selects
	// DefaultAddress().
	Address types.Address
}

// DefaultAddress is the spender identity used when Config.Address is unset.
func DefaultAddress() types.Address {
	h := id.Derive("chainpay.processor.v1")
	return types.BytesToAddress(h[:])
}

func (c Config) validate() error {
	if c.FeeBasisPoints > BasisPointsDenominator {
		return fmt.Errorf("%w: fee of %d basis points exceeds %d",
			types.ErrInvalidFeeConfig, c.FeeBasisPoints, BasisPointsDenominator)
	}
	if c.FeeCollector.IsZero() {
		return fmt.Errorf("%w: fee collector is required", types.ErrInvalidFeeConfig)
	}
	return nil
}
