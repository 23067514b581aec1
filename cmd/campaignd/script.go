package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"taskchain/core/runtime"
	"taskchain/crypto"
	"taskchain/native/campaign"
)

// Scenario is a scripted sequence of runtime calls.
type Scenario struct {
	Steps []Step `yaml:"steps"`
}

// Step is one call. Which fields apply depends on Op.
//
// Accounts may be bech32, 0x-hex or a bare name; names map to a stable
// derived account so scripts can say "bob" instead of an address.
type Step struct {
	Op            string   `yaml:"op"`
	Origin        string   `yaml:"origin"`
	ID            string   `yaml:"id"`
	IDs           []string `yaml:"ids"`
	Account       string   `yaml:"account"`
	Beneficiaries []string `yaml:"beneficiaries"`
	Amount        string   `yaml:"amount"`
	PerHead       string   `yaml:"per_head"`
	Role          string   `yaml:"role"`
	Height        *uint64  `yaml:"height"`
	Blocks        uint64   `yaml:"blocks"`
	// ExpectError makes the step pass only when the call fails with an error
	// containing this text.
	ExpectError string `yaml:"expect_error"`
}

// StepResult reports the outcome of a replayed step.
type StepResult struct {
	Index int
	Op    string
	IDs   []campaign.ID
	Err   error
}

var errUnexpectedSuccess = errors.New("step succeeded but an error was expected")

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML, rejecting unknown fields.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	sc := new(Scenario)
	if err := dec.Decode(sc); err != nil {
		if errors.Is(err, io.EOF) {
			return sc, nil
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return sc, nil
}

// Replay applies every step in order. It stops at the first step whose
// outcome differs from its expectation and returns that mismatch.
func Replay(ctx context.Context, rt *runtime.Runtime, sc *Scenario, report func(StepResult)) error {
	for i, step := range sc.Steps {
		ids, err := applyStep(ctx, rt, step)
		result := StepResult{Index: i, Op: step.Op, IDs: ids, Err: err}
		if report != nil {
			report(result)
		}
		if mismatch := checkExpectation(step, err); mismatch != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, mismatch)
		}
	}
	return nil
}

func checkExpectation(step Step, err error) error {
	want := strings.TrimSpace(step.ExpectError)
	switch {
	case want == "" && err != nil:
		return err
	case want != "" && err == nil:
		return errUnexpectedSuccess
	case want != "" && !strings.Contains(err.Error(), want):
		return fmt.Errorf("expected error containing %q, got %w", want, err)
	}
	return nil
}

func applyStep(ctx context.Context, rt *runtime.Runtime, step Step) ([]campaign.ID, error) {
	strategy := rt.Params().IDStrategy
	switch strings.ToLower(strings.TrimSpace(step.Op)) {
	case "endow":
		who, amount, err := accountAndAmount(step.Account, step.Amount)
		if err != nil {
			return nil, err
		}
		return nil, rt.Endow(ctx, campaign.RootOrigin(), who, amount)
	case "create":
		origin, err := parseOrigin(step.Origin)
		if err != nil {
			return nil, err
		}
		value, err := parseAmount(step.Amount)
		if err != nil {
			return nil, err
		}
		var id campaign.ID
		if step.ID != "" {
			if id, err = parseID(step.ID, strategy); err != nil {
				return nil, err
			}
		}
		created, err := rt.Create(ctx, origin, id, value)
		if err != nil {
			return nil, err
		}
		return []campaign.ID{created}, nil
	case "reject", "approve":
		origin, err := parseOrigin(step.Origin)
		if err != nil {
			return nil, err
		}
		id, err := parseID(step.ID, strategy)
		if err != nil {
			return nil, err
		}
		if step.Op == "reject" {
			return nil, rt.Reject(ctx, origin, id)
		}
		return nil, rt.Approve(ctx, origin, id)
	case "allocate":
		origin, err := parseOrigin(step.Origin)
		if err != nil {
			return nil, err
		}
		raw := step.IDs
		if len(raw) == 0 && step.ID != "" {
			raw = []string{step.ID}
		}
		ids := make([]campaign.ID, 0, len(raw))
		for _, entry := range raw {
			id, err := parseID(entry, strategy)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		beneficiaries := make([][20]byte, 0, len(step.Beneficiaries))
		for _, entry := range step.Beneficiaries {
			who, err := resolveAccount(entry)
			if err != nil {
				return nil, err
			}
			beneficiaries = append(beneficiaries, who)
		}
		perHead, err := parseAmount(step.PerHead)
		if err != nil {
			return nil, err
		}
		return rt.Allocate(ctx, origin, ids, beneficiaries, perHead)
	case "claim":
		origin, err := parseOrigin(step.Origin)
		if err != nil {
			return nil, err
		}
		var id campaign.ID
		if step.ID != "" {
			if id, err = parseID(step.ID, strategy); err != nil {
				return nil, err
			}
		}
		who, amount, err := accountAndAmount(step.Account, step.Amount)
		if err != nil {
			return nil, err
		}
		return nil, rt.Claim(ctx, origin, id, who, amount)
	case "grant", "revoke":
		role, err := parseRole(step.Role)
		if err != nil {
			return nil, err
		}
		who, err := resolveAccount(step.Account)
		if err != nil {
			return nil, err
		}
		if step.Op == "grant" {
			return nil, rt.GrantRole(ctx, campaign.RootOrigin(), role, who)
		}
		return nil, rt.RevokeRole(ctx, campaign.RootOrigin(), role, who)
	case "height":
		if step.Height != nil {
			return nil, rt.SetHeight(ctx, *step.Height)
		}
		_, err := rt.AdvanceHeight(ctx, step.Blocks)
		return nil, err
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func accountAndAmount(rawAccount, rawAmount string) ([20]byte, *big.Int, error) {
	who, err := resolveAccount(rawAccount)
	if err != nil {
		return who, nil, err
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return who, nil, err
	}
	return who, amount, nil
}

// resolveAccount parses an address or derives one from a bare name.
func resolveAccount(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("account must not be empty")
	}
	account, err := crypto.ParseAccount(trimmed)
	if err == nil {
		return account, nil
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "0x") || strings.HasPrefix(trimmed, string(crypto.TaskPrefix)+"1") {
		return [20]byte{}, err
	}
	return crypto.DeriveAccount([]byte("scenario"), []byte(trimmed)), nil
}

func parseOrigin(raw string) (campaign.Origin, error) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "root":
		return campaign.RootOrigin(), nil
	case "", "none", "unsigned":
		return campaign.Origin{}, nil
	}
	who, err := resolveAccount(trimmed)
	if err != nil {
		return campaign.Origin{}, err
	}
	return campaign.Signed(who), nil
}

// parseID reads 0x-hex for any strategy, a decimal counter value for the
// sequence strategy, or raw text for client ids.
func parseID(raw string, strategy campaign.IDStrategy) (campaign.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("campaign id must not be empty")
	}
	if strings.HasPrefix(trimmed, "0x") {
		decoded, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return nil, fmt.Errorf("decode campaign id: %w", err)
		}
		return campaign.ID(decoded), nil
	}
	if strategy == campaign.IDStrategySequence {
		seq, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sequence campaign id %q: %w", raw, err)
		}
		return campaign.SequenceID(seq), nil
	}
	return campaign.ID(trimmed), nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func parseRole(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "rejecter", campaign.RoleRejecter:
		return campaign.RoleRejecter, nil
	case "approver", campaign.RoleApprover:
		return campaign.RoleApprover, nil
	case "rewarder", campaign.RoleRewarder:
		return campaign.RoleRewarder, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}
