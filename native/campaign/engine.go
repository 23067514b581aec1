package campaign

import (
	"math/big"

	"taskchain/core/events"
	"taskchain/core/types"
	"taskchain/crypto"
)

type engineState interface {
	CampaignGet(id ID) (*Campaign, bool, error)
	CampaignPut(c *Campaign) error
	CampaignDelete(id ID) error
	CampaignSequence() (uint64, error)
	SetCampaignSequence(next uint64) error
	CampaignApprovedList() ([]ID, error)
	SetCampaignApprovedList(ids []ID) error
	CampaignPayoutIndex() ([]ID, error)
	SetCampaignPayoutIndex(ids []ID) error
	CampaignPendingReward(scope ID, beneficiary [20]byte) (*PendingReward, bool, error)
	SetCampaignPendingReward(scope ID, beneficiary [20]byte, reward *PendingReward) error
	CampaignOutstanding(scope ID) ([][20]byte, error)
	SetCampaignOutstanding(scope ID, accounts [][20]byte) error
}

// Ledger is the native-currency collaborator. The engine calls these
// operations and never touches balances directly.
type Ledger interface {
	Reserve(who [20]byte, amount *big.Int) error
	Unreserve(who [20]byte, amount *big.Int) (*big.Int, error)
	SlashReserved(who [20]byte, amount *big.Int) (slashed *big.Int, shortfall *big.Int, err error)
	Withdraw(who [20]byte, amount *big.Int, keepAlive bool) (*types.Imbalance, error)
	ResolveCreating(who [20]byte, imbalance *types.Imbalance) error
	DepositCreating(who [20]byte, amount *big.Int) error
	Transfer(from, to [20]byte, amount *big.Int, keepAlive bool) error
	FreeBalance(who [20]byte) (*big.Int, error)
	ReservedBalance(who [20]byte) (*big.Int, error)
	MinimumBalance() *big.Int
}

// Engine implements campaign escrow, approval, reward allocation and
// time-locked claims on top of the configured state and ledger.
type Engine struct {
	params   Params
	state    engineState
	ledger   Ledger
	auth     Authority
	emitter  events.Emitter
	heightFn func() uint64
}

// NewEngine creates an engine with a no-op emitter and a root-only authority.
func NewEngine(params Params) *Engine {
	params.Normalize()
	return &Engine{
		params:   params,
		auth:     RootAuthority{},
		emitter:  events.NoopEmitter{},
		heightFn: func() uint64 { return 0 },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the native-currency ledger.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetAuthority configures the origin classifier. Passing nil restores the
// root-only default.
func (e *Engine) SetAuthority(auth Authority) {
	if auth == nil {
		e.auth = RootAuthority{}
		return
	}
	e.auth = auth
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetHeightFunc overrides the block height source used for time locks.
func (e *Engine) SetHeightFunc(height func() uint64) {
	if height == nil {
		e.heightFn = func() uint64 { return 0 }
		return
	}
	e.heightFn = height
}

// Params returns the engine configuration.
func (e *Engine) Params() Params {
	return e.params
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) height() uint64 {
	if e == nil || e.heightFn == nil {
		return 0
	}
	return e.heightFn()
}

func (e *Engine) store() campaignStore {
	return campaignStore{state: e.state, strategy: e.params.IDStrategy}
}

func (e *Engine) escrow() escrowController {
	return escrowController{ledger: e.ledger, params: e.params}
}

// PoolAccount returns the module's shared sovereign account. Slashed bonds are
// redeposited here in every topology.
func (e *Engine) PoolAccount() [20]byte {
	return crypto.DeriveAccount([]byte("modl"), []byte(e.params.ModuleID))
}

// CampaignAccount returns the sovereign account that escrows the campaign's
// value.
func (e *Engine) CampaignAccount(id ID) [20]byte {
	if e.params.Topology == TopologySharedPool {
		return e.PoolAccount()
	}
	return crypto.DeriveAccount([]byte("modl"), []byte(e.params.ModuleID), id)
}

// Campaign returns the stored campaign.
func (e *Engine) Campaign(id ID) (*Campaign, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.store().get(id)
}

// ApprovedCampaigns lists approved, not yet settled campaigns in approval
// order.
func (e *Engine) ApprovedCampaigns() ([]ID, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.CampaignApprovedList()
}

// PayoutIndex lists campaigns with unclaimed rewards outstanding.
func (e *Engine) PayoutIndex() ([]ID, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.CampaignPayoutIndex()
}

// Beneficiaries lists the accounts still owed a reward under the campaign, in
// the order they were first credited. In the shared-pool topology the id is
// ignored and the pool's list is returned.
func (e *Engine) Beneficiaries(id ID) ([][20]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.CampaignOutstanding(e.scope(id))
}

// PendingReward returns the beneficiary's pending reward. In the shared-pool
// topology the id is ignored. A beneficiary that never received an allocation
// yields a zero reward.
func (e *Engine) PendingReward(id ID, beneficiary [20]byte) (*PendingReward, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reward, ok, err := e.state.CampaignPendingReward(e.scope(id), beneficiary)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &PendingReward{Amount: big.NewInt(0)}, nil
	}
	return reward, nil
}

// RemainingBudget reports what the account can pay out while staying alive.
func (e *Engine) RemainingBudget(account [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.escrow().remainingBudget(account)
}

// BondFor returns the bond a campaign of the given value reserves.
func (e *Engine) BondFor(value *big.Int) *big.Int {
	return e.params.BondFor(value)
}

func (e *Engine) scope(id ID) ID {
	if e.params.Topology == TopologySharedPool {
		return PoolScope
	}
	return id
}

func containsID(ids []ID, id ID) bool {
	for _, existing := range ids {
		if existing.Equal(id) {
			return true
		}
	}
	return false
}

func appendUniqueID(ids []ID, id ID) []ID {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id.Clone())
}

func removeID(ids []ID, id ID) []ID {
	out := ids[:0]
	for _, existing := range ids {
		if !existing.Equal(id) {
			out = append(out, existing)
		}
	}
	return out
}
