package campaign

import (
	"errors"
	"math/big"
	"testing"

	"taskchain/core/events"
)

var (
	bob   = newTestAddress(0x0B)
	user1 = newTestAddress(0x01)
	user2 = newTestAddress(0x02)
)

type testEnv struct {
	engine *Engine
	state  *mockState
	ledger *mockLedger
	events *events.Buffer
	height uint64
}

func newTestEnv(t *testing.T, params Params) *testEnv {
	t.Helper()
	env := &testEnv{
		state:  newMockState(),
		ledger: newMockLedger(1),
		events: events.NewBuffer(),
	}
	env.engine = NewEngine(params)
	env.engine.SetState(env.state)
	env.engine.SetLedger(env.ledger)
	env.engine.SetEmitter(env.events)
	env.engine.SetHeightFunc(func() uint64 { return env.height })
	env.ledger.fund(bob, 100000)
	return env
}

func (env *testEnv) create(t *testing.T, value int64) ID {
	t.Helper()
	id, err := env.engine.Create(Signed(bob), nil, big.NewInt(value))
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return id
}

func eventTypes(buf *events.Buffer) []string {
	var out []string
	for _, evt := range buf.Events() {
		out = append(out, evt.EventType())
	}
	return out
}

func hasEvent(buf *events.Buffer, typ string) bool {
	for _, evt := range buf.Events() {
		if evt.EventType() == typ {
			return true
		}
	}
	return false
}

func requireBalance(t *testing.T, label string, got *big.Int, want int64) {
	t.Helper()
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s: expected %d, got %s", label, want, got)
	}
}

func TestBondFor(t *testing.T) {
	params := DefaultParams()
	cases := []struct {
		value int64
		bond  int64
	}{
		{value: 1, bond: 1000},
		{value: 1000, bond: 1000},
		{value: 5000, bond: 1000},
		{value: 50000, bond: 1000},
		{value: 50049, bond: 1000},
		{value: 100000, bond: 2000},
		{value: 1000000, bond: 20000},
	}
	for _, tc := range cases {
		if got := params.BondFor(big.NewInt(tc.value)); got.Cmp(big.NewInt(tc.bond)) != 0 {
			t.Fatalf("value %d: expected bond %d, got %s", tc.value, tc.bond, got)
		}
	}

	params.MinimumBond = big.NewInt(0)
	if got := params.BondFor(big.NewInt(49)); got.Sign() != 0 {
		t.Fatalf("expected rounded-down zero bond, got %s", got)
	}
}

func TestCreateReservesBondAndFundsAccount(t *testing.T) {
	env := newTestEnv(t, DefaultParams())

	first := env.create(t, 1000)
	if !first.Equal(SequenceID(0)) {
		t.Fatalf("expected first id 0, got %s", first)
	}
	c, err := env.engine.Campaign(first)
	if err != nil {
		t.Fatalf("campaign: %v", err)
	}
	if c.Client != bob {
		t.Fatalf("unexpected client %x", c.Client)
	}
	requireBalance(t, "value", c.Value, 1000)
	requireBalance(t, "bond", c.Bond, 1000)
	requireBalance(t, "bob reserved", env.ledger.reserved(bob), 1000)
	requireBalance(t, "campaign account", env.ledger.free(env.engine.CampaignAccount(first)), 1000)

	second := env.create(t, 5000)
	if !second.Equal(SequenceID(1)) {
		t.Fatalf("expected second id 1, got %s", second)
	}
	requireBalance(t, "bob reserved", env.ledger.reserved(bob), 2000)
	requireBalance(t, "bob free", env.ledger.free(bob), 100000-2000-6000)

	want := []string{events.TypeCampaignCreated, events.TypeCampaignDeposited, events.TypeCampaignCreated, events.TypeCampaignDeposited}
	got := eventTypes(env.events)
	if len(got) != len(want) {
		t.Fatalf("unexpected events %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t, DefaultParams())

	if _, err := env.engine.Create(Origin{}, nil, big.NewInt(10)); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("expected bad origin, got %v", err)
	}
	if _, err := env.engine.Create(RootOrigin(), nil, big.NewInt(10)); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("expected bad origin for root, got %v", err)
	}
	if _, err := env.engine.Create(Signed(bob), nil, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := env.engine.Create(Signed(bob), ID("custom"), big.NewInt(10)); !errors.Is(err, ErrInvalidCampaignID) {
		t.Fatalf("expected invalid id for sequence strategy, got %v", err)
	}
	poor := newTestAddress(0x0C)
	env.ledger.fund(poor, 500)
	if _, err := env.engine.Create(Signed(poor), nil, big.NewInt(10)); err == nil {
		t.Fatalf("expected bond reservation failure")
	}
	requireBalance(t, "poor reserved", env.ledger.reserved(poor), 0)
	if len(env.state.campaigns) != 0 {
		t.Fatalf("expected no stored campaign after failed reservation")
	}
}

func TestClientIDStrategy(t *testing.T) {
	params := DefaultParams()
	params.IDStrategy = IDStrategyClient
	env := newTestEnv(t, params)

	id, err := env.engine.Create(Signed(bob), ID("alpha"), big.NewInt(2000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if string(id) != "alpha" {
		t.Fatalf("unexpected id %q", id)
	}
	if _, err := env.engine.Create(Signed(bob), ID("alpha"), big.NewInt(2000)); !errors.Is(err, ErrDuplicateCampaign) {
		t.Fatalf("expected duplicate campaign, got %v", err)
	}
	if _, err := env.engine.Create(Signed(bob), nil, big.NewInt(2000)); !errors.Is(err, ErrInvalidCampaignID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	long := make(ID, MaxIDLength+1)
	if _, err := env.engine.Create(Signed(bob), long, big.NewInt(2000)); !errors.Is(err, ErrInvalidCampaignID) {
		t.Fatalf("expected invalid id for long id, got %v", err)
	}
	if env.engine.CampaignAccount(ID("alpha")) == env.engine.CampaignAccount(ID("beta")) {
		t.Fatalf("expected distinct campaign accounts")
	}
}

func TestPaymentAndClaimEndToEnd(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	account := env.engine.CampaignAccount(id)

	env.height = 10
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1, user2}, big.NewInt(1000)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	requireBalance(t, "bob reserved", env.ledger.reserved(bob), 0)
	for _, who := range [][20]byte{user1, user2} {
		reward, err := env.engine.PendingReward(id, who)
		if err != nil {
			t.Fatalf("pending reward: %v", err)
		}
		requireBalance(t, "pending", reward.Amount, 1000)
		if reward.AllocatedAt != 10 {
			t.Fatalf("expected allocation height 10, got %d", reward.AllocatedAt)
		}
	}
	outstanding := env.state.outstanding[string(id)]
	if len(outstanding) != 2 || outstanding[0] != user1 || outstanding[1] != user2 {
		t.Fatalf("unexpected outstanding list %x", outstanding)
	}
	index, _ := env.engine.PayoutIndex()
	if len(index) != 1 || !index[0].Equal(id) {
		t.Fatalf("expected payout index [%s], got %v", id, index)
	}

	env.height = 25
	requireBalance(t, "user1 free", env.ledger.free(user1), 0)
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(1000)); err != nil {
		t.Fatalf("claim user1: %v", err)
	}
	requireBalance(t, "user1 free", env.ledger.free(user1), 1000)
	requireBalance(t, "campaign account", env.ledger.free(account), 4000)

	if err := env.engine.Claim(RootOrigin(), id, user2, big.NewInt(1000)); err != nil {
		t.Fatalf("claim user2: %v", err)
	}
	requireBalance(t, "campaign account", env.ledger.free(account), 3000)

	for _, who := range [][20]byte{user1, user2} {
		reward, err := env.engine.PendingReward(id, who)
		if err != nil {
			t.Fatalf("pending reward: %v", err)
		}
		requireBalance(t, "pending after claim", reward.Amount, 0)
	}
	index, _ = env.engine.PayoutIndex()
	if len(index) != 0 {
		t.Fatalf("expected empty payout index, got %v", index)
	}
	if _, err := env.engine.Campaign(id); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected settled campaign removed, got %v", err)
	}
	if !hasEvent(env.events, events.TypeCampaignSettled) {
		t.Fatalf("expected settled event, got %v", eventTypes(env.events))
	}
}

func TestPayoutIndexKeepsCampaignUntilLastClaim(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1, user2}, big.NewInt(1000)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	owed, err := env.engine.Beneficiaries(id)
	if err != nil {
		t.Fatalf("beneficiaries: %v", err)
	}
	if len(owed) != 2 || owed[0] != user1 || owed[1] != user2 {
		t.Fatalf("expected beneficiaries [user1 user2], got %x", owed)
	}

	env.height = 10
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(1000)); err != nil {
		t.Fatalf("claim user1: %v", err)
	}
	index, _ := env.engine.PayoutIndex()
	if !containsID(index, id) {
		t.Fatalf("expected %s to stay in payout index while user2 is owed, got %v", id, index)
	}
	owed, _ = env.engine.Beneficiaries(id)
	if len(owed) != 1 || owed[0] != user2 {
		t.Fatalf("expected beneficiaries [user2], got %x", owed)
	}
	if _, err := env.engine.Campaign(id); err != nil {
		t.Fatalf("expected campaign kept until settled, got %v", err)
	}

	if err := env.engine.Claim(RootOrigin(), id, user2, big.NewInt(1000)); err != nil {
		t.Fatalf("claim user2: %v", err)
	}
	index, _ = env.engine.PayoutIndex()
	if containsID(index, id) {
		t.Fatalf("expected %s removed from payout index, got %v", id, index)
	}
	owed, _ = env.engine.Beneficiaries(id)
	if len(owed) != 0 {
		t.Fatalf("expected no beneficiaries left, got %x", owed)
	}
}

func TestClaimsKeepEscrowAboveMinimumBalance(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	env.ledger.ed = big.NewInt(10)
	id := env.create(t, 100)
	account := env.engine.CampaignAccount(id)

	err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1, user2}, big.NewInt(49))
	if !errors.Is(err, ErrNotEnoughBalanceForUsers) {
		t.Fatalf("expected allocation into the minimum balance to fail, got %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1, user2}, big.NewInt(45)); err != nil {
		t.Fatalf("payment: %v", err)
	}

	env.height = 10
	if err := env.engine.Claim(Signed(user1), id, user1, big.NewInt(45)); err != nil {
		t.Fatalf("claim user1: %v", err)
	}
	requireBalance(t, "campaign account", env.ledger.free(account), 55)
	if err := env.engine.Claim(Signed(user2), id, user2, big.NewInt(45)); err != nil {
		t.Fatalf("claim user2: %v", err)
	}
	requireBalance(t, "user2 free", env.ledger.free(user2), 45)
	requireBalance(t, "campaign account", env.ledger.free(account), 10)
	requireBalance(t, "issuance", env.ledger.issuance, 100000)
}

func TestClientIDReuseBlockedWhileEscrowHoldsFunds(t *testing.T) {
	params := DefaultParams()
	params.IDStrategy = IDStrategyClient
	env := newTestEnv(t, params)
	carol := newTestAddress(0x0C)
	env.ledger.fund(carol, 100000)

	id, err := env.engine.Create(Signed(bob), ID("x"), big.NewInt(5000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(1000)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	env.height = 10
	if err := env.engine.Claim(Signed(user1), id, user1, big.NewInt(1000)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := env.engine.Campaign(id); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected settled campaign removed, got %v", err)
	}
	requireBalance(t, "leftover", env.ledger.free(env.engine.CampaignAccount(id)), 4000)

	if _, err := env.engine.Create(Signed(carol), ID("x"), big.NewInt(5000)); !errors.Is(err, ErrDuplicateCampaign) {
		t.Fatalf("expected reuse of a funded id to fail, got %v", err)
	}
	requireBalance(t, "carol free", env.ledger.free(carol), 100000)
	requireBalance(t, "carol reserved", env.ledger.reserved(carol), 0)
	requireBalance(t, "leftover", env.ledger.free(env.engine.CampaignAccount(id)), 4000)
}

func TestRejectRefundsOnlyCampaignValue(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	account := env.engine.CampaignAccount(id)
	env.ledger.fund(account, 700)

	if err := env.engine.Reject(RootOrigin(), id); err != nil {
		t.Fatalf("reject: %v", err)
	}
	requireBalance(t, "bob free", env.ledger.free(bob), 100000)
	requireBalance(t, "campaign account", env.ledger.free(account), 700)
}

func TestSettlementRefundsUnusedBudget(t *testing.T) {
	params := DefaultParams()
	params.RefundOnSettle = true
	env := newTestEnv(t, params)
	id := env.create(t, 5000)
	account := env.engine.CampaignAccount(id)

	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1, user2}, big.NewInt(1000)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	env.height = params.ClaimDuration
	for _, who := range [][20]byte{user1, user2} {
		if err := env.engine.Claim(Signed(who), id, who, big.NewInt(1000)); err != nil {
			t.Fatalf("claim: %v", err)
		}
	}
	requireBalance(t, "campaign account", env.ledger.free(account), 0)
	requireBalance(t, "bob free", env.ledger.free(bob), 100000-2000)
}

func TestClaimTimeLock(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)

	env.height = 10
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(1000)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	env.height = 19
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(500)); !errors.Is(err, ErrCanNotClaim) {
		t.Fatalf("expected time lock, got %v", err)
	}
	env.height = 20
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(500)); err != nil {
		t.Fatalf("claim at unlock height: %v", err)
	}
	reward, _ := env.engine.PendingReward(id, user1)
	requireBalance(t, "pending", reward.Amount, 500)
}

func TestNewAllocationResetsTimeLock(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)

	env.height = 10
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(1000)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	env.height = 18
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(1000)); err != nil {
		t.Fatalf("second payment: %v", err)
	}
	env.height = 20
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(1000)); !errors.Is(err, ErrCanNotClaim) {
		t.Fatalf("expected reset lock to block claim, got %v", err)
	}
	env.height = 28
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(2000)); err != nil {
		t.Fatalf("claim after reset lock: %v", err)
	}
}

func TestNoDoubleClaim(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1, user2}, big.NewInt(1000)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	env.height = 10
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(1001)); !errors.Is(err, ErrRemainingBalanceTooLow) {
		t.Fatalf("expected remaining balance too low, got %v", err)
	}
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(1000)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := env.engine.Claim(RootOrigin(), id, user1, big.NewInt(1000)); !errors.Is(err, ErrRemainingBalanceTooLow) {
		t.Fatalf("expected remaining balance too low on second claim, got %v", err)
	}
	if err := env.engine.Claim(RootOrigin(), id, newTestAddress(0x09), big.NewInt(1)); !errors.Is(err, ErrUserNotReward) {
		t.Fatalf("expected user not rewarded, got %v", err)
	}
	if err := env.engine.Claim(RootOrigin(), id, user2, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestBudgetConservation(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	beneficiaries := [][20]byte{user1, user2}

	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(5000)); !errors.Is(err, ErrNotEnoughBalanceForUsers) {
		t.Fatalf("expected strict budget check at equality, got %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, beneficiaries, big.NewInt(1000)); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, beneficiaries, big.NewInt(1000)); err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, beneficiaries, big.NewInt(500)); !errors.Is(err, ErrNotEnoughBalanceForUsers) {
		t.Fatalf("expected cumulative budget check, got %v", err)
	}

	total := big.NewInt(0)
	for _, who := range beneficiaries {
		reward, _ := env.engine.PendingReward(id, who)
		total.Add(total, reward.Amount)
	}
	c, _ := env.engine.Campaign(id)
	if total.Cmp(c.Value) >= 0 {
		t.Fatalf("allocated %s exceeds value %s", total, c.Value)
	}
	requireBalance(t, "allocated", c.Allocated, 4000)
}

func TestPaymentOverflow(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1, user2}, new(big.Int).Set(MaxBalance))
	if !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, nil, big.NewInt(1)); !errors.Is(err, ErrNoBeneficiaries) {
		t.Fatalf("expected no beneficiaries, got %v", err)
	}
}

func TestRejectReleasesFunds(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	requireBalance(t, "bob reserved", env.ledger.reserved(bob), 1000)

	if err := env.engine.Reject(RootOrigin(), id); err != nil {
		t.Fatalf("reject: %v", err)
	}
	requireBalance(t, "bob reserved", env.ledger.reserved(bob), 0)
	requireBalance(t, "bob free", env.ledger.free(bob), 100000)
	requireBalance(t, "campaign account", env.ledger.free(env.engine.CampaignAccount(id)), 0)
	if _, err := env.engine.Campaign(id); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected campaign removed, got %v", err)
	}
	if !hasEvent(env.events, events.TypeCampaignRejected) {
		t.Fatalf("expected rejected event")
	}
	if err := env.engine.Reject(RootOrigin(), id); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected not found on second reject, got %v", err)
	}
}

func TestRejectUnknownCampaign(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	if err := env.engine.Reject(RootOrigin(), SequenceID(42)); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := env.engine.Approve(RootOrigin(), SequenceID(42)); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectAfterPaymentFails(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(10)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if err := env.engine.Reject(RootOrigin(), id); !errors.Is(err, ErrCampaignNotPending) {
		t.Fatalf("expected not pending, got %v", err)
	}
}

func TestApproveSlashesBond(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	totalBefore := new(big.Int).Add(env.ledger.free(bob), env.ledger.reserved(bob))

	if err := env.engine.Approve(RootOrigin(), id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	requireBalance(t, "bob reserved", env.ledger.reserved(bob), 0)
	totalAfter := new(big.Int).Add(env.ledger.free(bob), env.ledger.reserved(bob))
	requireBalance(t, "bob total decrease", new(big.Int).Sub(totalBefore, totalAfter), 1000)
	requireBalance(t, "pool account", env.ledger.free(env.engine.PoolAccount()), 1000)
	requireBalance(t, "issuance", env.ledger.issuance, 100000)

	c, _ := env.engine.Campaign(id)
	if c.Status != StatusApproved || c.BondState != BondSlashed {
		t.Fatalf("unexpected campaign state %s/%s", c.Status, c.BondState)
	}
	approved, _ := env.engine.ApprovedCampaigns()
	if len(approved) != 1 || !approved[0].Equal(id) {
		t.Fatalf("unexpected approved list %v", approved)
	}
	if !hasEvent(env.events, events.TypeCampaignApproved) || !hasEvent(env.events, events.TypeCampaignBondSlashed) {
		t.Fatalf("expected approve and slash events, got %v", eventTypes(env.events))
	}
	if err := env.engine.Approve(RootOrigin(), id); !errors.Is(err, ErrCampaignNotPending) {
		t.Fatalf("expected re-approval to fail, got %v", err)
	}
	if err := env.engine.Reject(RootOrigin(), id); !errors.Is(err, ErrCampaignNotPending) {
		t.Fatalf("expected reject of approved campaign to fail, got %v", err)
	}
}

func TestPaymentRequiresApproval(t *testing.T) {
	params := DefaultParams()
	params.RequireApproval = true
	env := newTestEnv(t, params)
	id := env.create(t, 5000)

	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(100)); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected not approved, got %v", err)
	}
	if err := env.engine.Approve(RootOrigin(), id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(100)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	c, _ := env.engine.Campaign(id)
	if c.BondState != BondSlashed {
		t.Fatalf("expected slashed bond to stay slashed, got %s", c.BondState)
	}
}

func TestBadOrigin(t *testing.T) {
	env := newTestEnv(t, DefaultParams())
	id := env.create(t, 5000)
	stranger := Signed(newTestAddress(0x0F))

	if err := env.engine.Reject(stranger, id); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("expected bad origin on reject, got %v", err)
	}
	if err := env.engine.Approve(stranger, id); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("expected bad origin on approve, got %v", err)
	}
	if err := env.engine.Payment(stranger, id, [][20]byte{user1}, big.NewInt(10)); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("expected bad origin on payment, got %v", err)
	}
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(10)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	env.height = 10
	if err := env.engine.Claim(stranger, id, user1, big.NewInt(10)); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("expected bad origin on claim, got %v", err)
	}
	if err := env.engine.Claim(Signed(user1), id, user1, big.NewInt(10)); err != nil {
		t.Fatalf("self claim: %v", err)
	}
}

func TestRoleAuthority(t *testing.T) {
	roles := fakeRoles{RoleApprover: {string(user1[:]): true}}
	auth := NewRoleAuthority(roles)
	if !auth.IsApprovalAuthority(Signed(user1)) {
		t.Fatalf("expected approver role to pass")
	}
	if auth.IsRejectAuthority(Signed(user1)) || auth.IsRewardAuthority(Signed(user1)) {
		t.Fatalf("expected other roles to fail")
	}
	if !auth.IsRewardAuthority(RootOrigin()) {
		t.Fatalf("expected root to pass")
	}
	if auth.IsApprovalAuthority(Origin{}) {
		t.Fatalf("expected unsigned origin to fail")
	}

	env := newTestEnv(t, DefaultParams())
	env.engine.SetAuthority(auth)
	id := env.create(t, 5000)
	if err := env.engine.Approve(Signed(user1), id); err != nil {
		t.Fatalf("approve with role: %v", err)
	}
}

type fakeRoles map[string]map[string]bool

func (f fakeRoles) HasRole(role string, addr []byte) bool {
	return f[role][string(addr)]
}

func sharedPoolParams() Params {
	params := DefaultParams()
	params.Topology = TopologySharedPool
	params.MinimumBond = big.NewInt(0)
	params.DepositRatio = 0
	return params
}

func TestSharedPoolRewardSkipsCampaignsOverBudget(t *testing.T) {
	env := newTestEnv(t, sharedPoolParams())
	if !env.engine.Params().RequireApproval {
		t.Fatalf("expected shared pool to require approval")
	}
	a := env.create(t, 5000)
	b := env.create(t, 3000)
	pool := env.engine.PoolAccount()
	if env.engine.CampaignAccount(a) != pool {
		t.Fatalf("expected campaigns to escrow into the pool")
	}
	requireBalance(t, "pool", env.ledger.free(pool), 8000)

	if _, err := env.engine.Reward(RootOrigin(), nil, [][20]byte{user1, user2}, big.NewInt(1000)); err != nil {
		t.Fatalf("reward with nothing approved: %v", err)
	}
	if _, err := env.engine.Reward(RootOrigin(), []ID{a}, [][20]byte{user1}, big.NewInt(1000)); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected not approved, got %v", err)
	}
	for _, id := range []ID{a, b} {
		if err := env.engine.Approve(RootOrigin(), id); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	env.height = 5
	settled, err := env.engine.Reward(RootOrigin(), nil, [][20]byte{user1, user2}, big.NewInt(1000))
	if err != nil {
		t.Fatalf("reward: %v", err)
	}
	if len(settled) != 1 || !settled[0].Equal(a) {
		t.Fatalf("expected only %s settled, got %v", a, settled)
	}
	approved, _ := env.engine.ApprovedCampaigns()
	if len(approved) != 1 || !approved[0].Equal(b) {
		t.Fatalf("expected %s to stay approved, got %v", b, approved)
	}
	if _, err := env.engine.Campaign(a); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected settled campaign removed, got %v", err)
	}

	settled, err = env.engine.Allocate(RootOrigin(), nil, [][20]byte{user1}, big.NewInt(1000))
	if err != nil {
		t.Fatalf("second reward: %v", err)
	}
	if len(settled) != 1 || !settled[0].Equal(b) {
		t.Fatalf("expected %s settled, got %v", b, settled)
	}
	index, _ := env.engine.PayoutIndex()
	if len(index) != 2 {
		t.Fatalf("expected two ids in payout index, got %v", index)
	}

	reward, _ := env.engine.PendingReward(nil, user1)
	requireBalance(t, "user1 pending", reward.Amount, 2000)

	env.height = 15
	if err := env.engine.Claim(Signed(user1), nil, user1, big.NewInt(2000)); err != nil {
		t.Fatalf("claim user1: %v", err)
	}
	if err := env.engine.Claim(RootOrigin(), nil, user2, big.NewInt(1000)); err != nil {
		t.Fatalf("claim user2: %v", err)
	}
	requireBalance(t, "pool", env.ledger.free(pool), 5000)
	index, _ = env.engine.PayoutIndex()
	if len(index) != 0 {
		t.Fatalf("expected payout index cleared, got %v", index)
	}
}

func TestTopologyGuards(t *testing.T) {
	env := newTestEnv(t, sharedPoolParams())
	id := env.create(t, 5000)
	if err := env.engine.Payment(RootOrigin(), id, [][20]byte{user1}, big.NewInt(1)); !errors.Is(err, ErrWrongTopology) {
		t.Fatalf("expected wrong topology, got %v", err)
	}

	perCampaign := newTestEnv(t, DefaultParams())
	if _, err := perCampaign.engine.Reward(RootOrigin(), nil, [][20]byte{user1}, big.NewInt(1)); !errors.Is(err, ErrWrongTopology) {
		t.Fatalf("expected wrong topology, got %v", err)
	}
	if _, err := perCampaign.engine.Allocate(RootOrigin(), nil, [][20]byte{user1}, big.NewInt(1)); !errors.Is(err, ErrInvalidCampaignID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestSharedPoolRejectRefundsValue(t *testing.T) {
	env := newTestEnv(t, sharedPoolParams())
	id := env.create(t, 5000)
	if err := env.engine.Reject(RootOrigin(), id); err != nil {
		t.Fatalf("reject: %v", err)
	}
	requireBalance(t, "bob free", env.ledger.free(bob), 100000)
}

func TestEngineRequiresState(t *testing.T) {
	engine := NewEngine(DefaultParams())
	if _, err := engine.Create(Signed(bob), nil, big.NewInt(1)); !errors.Is(err, errNilState) {
		t.Fatalf("expected nil state error, got %v", err)
	}
	engine.SetState(newMockState())
	if err := engine.Reject(RootOrigin(), SequenceID(0)); !errors.Is(err, errNilLedger) {
		t.Fatalf("expected nil ledger error, got %v", err)
	}
}
