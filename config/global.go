package config

import (
	"fmt"
	"math/big"
	"strings"

	"taskchain/crypto"
	"taskchain/native/campaign"
)

// Params converts the campaign section into engine parameters.
func (c CampaignConfig) Params() (campaign.Params, error) {
	params := campaign.DefaultParams()
	params.ModuleID = strings.TrimSpace(c.ModuleID)
	strategy, err := campaign.ParseIDStrategy(c.IDStrategy)
	if err != nil {
		return params, err
	}
	params.IDStrategy = strategy
	topology, err := campaign.ParseTopology(c.Topology)
	if err != nil {
		return params, err
	}
	params.Topology = topology
	params.RequireApproval = c.RequireApproval
	bond, err := parseUintAmount(c.MinimumBond)
	if err != nil {
		return params, fmt.Errorf("invalid campaign.MinimumBond: %w", err)
	}
	params.MinimumBond = bond
	params.DepositRatio = c.DepositRatio
	params.ClaimDuration = c.ClaimDuration
	params.RefundOnSettle = c.RefundOnSettle
	params.Normalize()
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

// Authorities parses the configured role holders.
func (c CampaignConfig) Authorities() (Authorities, error) {
	var out Authorities
	var err error
	if out.Rejecters, err = parseAccounts("Rejecters", c.Rejecters); err != nil {
		return out, err
	}
	if out.Approvers, err = parseAccounts("Approvers", c.Approvers); err != nil {
		return out, err
	}
	if out.Rewarders, err = parseAccounts("Rewarders", c.Rewarders); err != nil {
		return out, err
	}
	return out, nil
}

func parseAccounts(field string, raw []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(raw))
	for i, entry := range raw {
		account, err := crypto.ParseAccount(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid campaign.%s[%d]: %w", field, i, err)
		}
		out = append(out, account)
	}
	return out, nil
}

// ExistentialDepositAmount parses the configured existential deposit.
func (c *Config) ExistentialDepositAmount() (*big.Int, error) {
	amount, err := parseUintAmount(c.ExistentialDeposit)
	if err != nil {
		return nil, fmt.Errorf("invalid ExistentialDeposit: %w", err)
	}
	return amount, nil
}

// parseUintAmount parses a non-negative decimal amount. Underscores are
// accepted as digit separators and an empty value means zero.
func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal amount", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	if amount.Cmp(campaign.MaxBalance) > 0 {
		return nil, fmt.Errorf("amount exceeds 128 bits")
	}
	return amount, nil
}
