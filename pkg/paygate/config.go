package paygate

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Network identifies the target chain environment.
type Network string

const (
	// NetworkMainnet targets Cronos mainnet (chain id 25).
	NetworkMainnet Network = "mainnet"
	// NetworkTestnet targets Cronos testnet (chain id 338).
	NetworkTestnet Network = "testnet"
)

// ChainID returns the numeric chain id for the network. Unknown networks
// are rejected by GateConfig.Validate, so callers holding a validated
// config can use the returned id unconditionally.
func (n Network) ChainID() (int, bool) {
	switch n {
	case NetworkMainnet:
		return 25, true
	case NetworkTestnet:
		return 338, true
	default:
		return 0, false
	}
}

// GateConfig holds the configuration for the payment gate. It is
// immutable once passed to NewGate; every required field is checked at
// construction so misconfiguration never surfaces at request time.
type GateConfig struct {
	// MerchantID identifies the merchant on the pricing gateway and the
	// facilitator.
	MerchantID string `validate:"required"`

	// GatewayURL is the base URL of the pricing service.
	GatewayURL string `validate:"required,url"`

	// FacilitatorURL is the base URL of the payment verification service.
	FacilitatorURL string `validate:"required,url"`

	// Network selects the target chain environment.
	Network Network `validate:"required,oneof=mainnet testnet"`

	// Enabled toggles the whole gate. When false every request passes
	// through untouched and no receipt is attached.
	Enabled bool
}

var validate = validator.New()

// Validate checks that every required field is present and well formed.
func (c GateConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if _, ok := c.Network.ChainID(); !ok {
		return fmt.Errorf("%w: unknown network %q", ErrConfigInvalid, c.Network)
	}
	return nil
}
