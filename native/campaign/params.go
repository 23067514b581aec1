package campaign

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// PermillDenominator is the scale of DepositRatio.
	PermillDenominator = 1_000_000
	// DefaultModuleID seeds the derivation of the module's sovereign accounts.
	DefaultModuleID = "plt/task"
	// DefaultDepositRatio is 2% expressed in parts per million.
	DefaultDepositRatio = 20_000
	// DefaultClaimDuration is the number of blocks a reward stays locked.
	DefaultClaimDuration = 10
)

var (
	// DefaultMinimumBond is the floor applied to every bond.
	DefaultMinimumBond = big.NewInt(1000)
	// MaxBalance is the largest amount representable by the ledger (u128).
	MaxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// IDStrategy selects how campaign identifiers are assigned.
type IDStrategy uint8

const (
	// IDStrategySequence assigns the next value of a monotonic counter.
	IDStrategySequence IDStrategy = iota
	// IDStrategyClient uses the identifier supplied by the creating client.
	IDStrategyClient
)

func (s IDStrategy) String() string {
	switch s {
	case IDStrategySequence:
		return "sequence"
	case IDStrategyClient:
		return "client"
	default:
		return "unknown"
	}
}

// ParseIDStrategy converts a configuration value into an IDStrategy.
func ParseIDStrategy(raw string) (IDStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "sequence":
		return IDStrategySequence, nil
	case "client":
		return IDStrategyClient, nil
	default:
		return 0, fmt.Errorf("campaign: unknown id strategy %q", raw)
	}
}

// Topology selects where escrowed campaign funds live.
type Topology uint8

const (
	// TopologyPerCampaign escrows each campaign in its own sovereign account
	// and scopes pending rewards to the campaign.
	TopologyPerCampaign Topology = iota
	// TopologySharedPool escrows every campaign in the module pool account
	// and keeps a single global pending-reward scope.
	TopologySharedPool
)

func (t Topology) String() string {
	switch t {
	case TopologyPerCampaign:
		return "per-campaign"
	case TopologySharedPool:
		return "shared-pool"
	default:
		return "unknown"
	}
}

// ParseTopology converts a configuration value into a Topology.
func ParseTopology(raw string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "per-campaign":
		return TopologyPerCampaign, nil
	case "shared-pool":
		return TopologySharedPool, nil
	default:
		return 0, fmt.Errorf("campaign: unknown topology %q", raw)
	}
}

// Params holds the construction-time configuration of the engine.
type Params struct {
	ModuleID        string
	IDStrategy      IDStrategy
	Topology        Topology
	RequireApproval bool
	MinimumBond     *big.Int
	// DepositRatio is the bond rate in parts per million of the value.
	DepositRatio  uint32
	ClaimDuration uint64
	// RefundOnSettle drains the unused budget of a per-campaign account back to
	// the client once its last outstanding reward is claimed. When false the
	// remainder stays in the campaign account.
	RefundOnSettle bool
}

// DefaultParams mirrors the reference runtime configuration.
func DefaultParams() Params {
	return Params{
		ModuleID:      DefaultModuleID,
		IDStrategy:    IDStrategySequence,
		Topology:      TopologyPerCampaign,
		MinimumBond:   new(big.Int).Set(DefaultMinimumBond),
		DepositRatio:  DefaultDepositRatio,
		ClaimDuration: DefaultClaimDuration,
	}
}

// Normalize fills unset fields with defaults and returns the receiver. The
// shared pool only ever pays out approved campaigns, so it forces approval on.
func (p *Params) Normalize() *Params {
	if p == nil {
		return nil
	}
	if strings.TrimSpace(p.ModuleID) == "" {
		p.ModuleID = DefaultModuleID
	}
	if p.MinimumBond == nil {
		p.MinimumBond = big.NewInt(0)
	}
	if p.Topology == TopologySharedPool {
		p.RequireApproval = true
	}
	return p
}

// Validate performs static validation of the parameters.
func (p Params) Validate() error {
	if strings.TrimSpace(p.ModuleID) == "" {
		return fmt.Errorf("campaign: module id must not be empty")
	}
	if p.IDStrategy != IDStrategySequence && p.IDStrategy != IDStrategyClient {
		return fmt.Errorf("campaign: invalid id strategy %d", p.IDStrategy)
	}
	if p.Topology != TopologyPerCampaign && p.Topology != TopologySharedPool {
		return fmt.Errorf("campaign: invalid topology %d", p.Topology)
	}
	if p.MinimumBond != nil && p.MinimumBond.Sign() < 0 {
		return fmt.Errorf("campaign: minimum bond must not be negative")
	}
	if p.DepositRatio > PermillDenominator {
		return fmt.Errorf("campaign: deposit ratio must not exceed %d", PermillDenominator)
	}
	return nil
}

// BondFor computes max(MinimumBond, DepositRatio * value). The ratio product
// rounds down.
func (p Params) BondFor(value *big.Int) *big.Int {
	bond := new(big.Int).Mul(cloneBigInt(value), new(big.Int).SetUint64(uint64(p.DepositRatio)))
	bond.Quo(bond, big.NewInt(PermillDenominator))
	if p.MinimumBond != nil && bond.Cmp(p.MinimumBond) < 0 {
		return new(big.Int).Set(p.MinimumBond)
	}
	return bond
}
