package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"taskchain/native/campaign"
)

var (
	campaignRecordPrefix      = []byte("campaign/record/")
	campaignPendingPrefix     = []byte("campaign/pending/")
	campaignOutstandingPrefix = []byte("campaign/outstanding/")
	campaignSequenceKey       = []byte("campaign/sequence")
	campaignApprovedKey       = []byte("campaign/approved")
	campaignPayoutIndexKey    = []byte("campaign/payout-index")
)

func campaignRecordKey(id campaign.ID) []byte {
	buf := make([]byte, len(campaignRecordPrefix)+len(id))
	copy(buf, campaignRecordPrefix)
	copy(buf[len(campaignRecordPrefix):], id)
	return buf
}

// campaignPendingKey length-prefixes the scope so that no (scope, account)
// pair can collide with another.
func campaignPendingKey(scope campaign.ID, who [20]byte) []byte {
	buf := make([]byte, 0, len(campaignPendingPrefix)+1+len(scope)+len(who))
	buf = append(buf, campaignPendingPrefix...)
	buf = append(buf, byte(len(scope)))
	buf = append(buf, scope...)
	buf = append(buf, who[:]...)
	return buf
}

func campaignOutstandingKey(scope campaign.ID) []byte {
	buf := make([]byte, 0, len(campaignOutstandingPrefix)+1+len(scope))
	buf = append(buf, campaignOutstandingPrefix...)
	buf = append(buf, byte(len(scope)))
	buf = append(buf, scope...)
	return buf
}

type storedCampaign struct {
	ID        []byte
	Client    [20]byte
	Value     *big.Int
	Bond      *big.Int
	BondState uint8
	Status    uint8
	CreatedAt uint64
	Allocated *big.Int
}

func newStoredCampaign(c *campaign.Campaign) *storedCampaign {
	return &storedCampaign{
		ID:        append([]byte(nil), c.ID...),
		Client:    c.Client,
		Value:     bigOrZero(c.Value),
		Bond:      bigOrZero(c.Bond),
		BondState: uint8(c.BondState),
		Status:    uint8(c.Status),
		CreatedAt: c.CreatedAt,
		Allocated: bigOrZero(c.Allocated),
	}
}

func (s *storedCampaign) toCampaign() (*campaign.Campaign, error) {
	out := &campaign.Campaign{
		ID:        campaign.ID(append([]byte(nil), s.ID...)),
		Client:    s.Client,
		Value:     bigOrZero(s.Value),
		Bond:      bigOrZero(s.Bond),
		BondState: campaign.BondState(s.BondState),
		Status:    campaign.Status(s.Status),
		CreatedAt: s.CreatedAt,
		Allocated: bigOrZero(s.Allocated),
	}
	if !out.Status.Valid() || !out.BondState.Valid() {
		return nil, fmt.Errorf("campaign %s: invalid stored state", out.ID)
	}
	return out, nil
}

type storedPendingReward struct {
	AllocatedAt uint64
	Amount      *big.Int
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// CampaignGet loads the campaign stored under id.
func (m *Manager) CampaignGet(id campaign.ID) (*campaign.Campaign, bool, error) {
	data, err := m.get(campaignRecordKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedCampaign)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, err
	}
	c, err := stored.toCampaign()
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// CampaignPut persists the campaign record.
func (m *Manager) CampaignPut(c *campaign.Campaign) error {
	if c == nil {
		return fmt.Errorf("campaign: nil record")
	}
	if len(c.ID) == 0 {
		return fmt.Errorf("campaign: empty id")
	}
	encoded, err := rlp.EncodeToBytes(newStoredCampaign(c))
	if err != nil {
		return err
	}
	return m.put(campaignRecordKey(c.ID), encoded)
}

// CampaignDelete removes the campaign record.
func (m *Manager) CampaignDelete(id campaign.ID) error {
	return m.delete(campaignRecordKey(id))
}

// CampaignSequence returns the next sequence value to assign.
func (m *Manager) CampaignSequence() (uint64, error) {
	var next uint64
	if _, err := m.KVGet(campaignSequenceKey, &next); err != nil {
		return 0, err
	}
	return next, nil
}

// SetCampaignSequence stores the next sequence value to assign.
func (m *Manager) SetCampaignSequence(next uint64) error {
	return m.KVPut(campaignSequenceKey, next)
}

func (m *Manager) loadIDList(key []byte) ([]campaign.ID, error) {
	var raw [][]byte
	if err := m.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]campaign.ID, len(raw))
	for i, id := range raw {
		ids[i] = campaign.ID(id)
	}
	return ids, nil
}

func (m *Manager) writeIDList(key []byte, ids []campaign.ID) error {
	if len(ids) == 0 {
		return m.KVDelete(key)
	}
	raw := make([][]byte, len(ids))
	for i, id := range ids {
		raw[i] = append([]byte(nil), id...)
	}
	return m.KVPut(key, raw)
}

// CampaignApprovedList returns approved, unsettled campaign ids in approval
// order.
func (m *Manager) CampaignApprovedList() ([]campaign.ID, error) {
	return m.loadIDList(campaignApprovedKey)
}

func (m *Manager) SetCampaignApprovedList(ids []campaign.ID) error {
	return m.writeIDList(campaignApprovedKey, ids)
}

// CampaignPayoutIndex returns the ids of campaigns with outstanding rewards.
func (m *Manager) CampaignPayoutIndex() ([]campaign.ID, error) {
	return m.loadIDList(campaignPayoutIndexKey)
}

func (m *Manager) SetCampaignPayoutIndex(ids []campaign.ID) error {
	return m.writeIDList(campaignPayoutIndexKey, ids)
}

// CampaignPendingReward loads the beneficiary's pending reward in scope.
func (m *Manager) CampaignPendingReward(scope campaign.ID, who [20]byte) (*campaign.PendingReward, bool, error) {
	stored := new(storedPendingReward)
	ok, err := m.KVGet(campaignPendingKey(scope, who), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &campaign.PendingReward{AllocatedAt: stored.AllocatedAt, Amount: bigOrZero(stored.Amount)}, true, nil
}

// SetCampaignPendingReward stores the beneficiary's pending reward. Zero
// rewards are kept so the record still answers balance queries.
func (m *Manager) SetCampaignPendingReward(scope campaign.ID, who [20]byte, reward *campaign.PendingReward) error {
	if reward == nil {
		return m.KVDelete(campaignPendingKey(scope, who))
	}
	if reward.Amount != nil && reward.Amount.Sign() < 0 {
		return fmt.Errorf("campaign: negative pending reward")
	}
	return m.KVPut(campaignPendingKey(scope, who), &storedPendingReward{
		AllocatedAt: reward.AllocatedAt,
		Amount:      bigOrZero(reward.Amount),
	})
}

// CampaignOutstanding lists beneficiaries with a non-zero balance in scope.
func (m *Manager) CampaignOutstanding(scope campaign.ID) ([][20]byte, error) {
	var list [][20]byte
	if err := m.KVGetList(campaignOutstandingKey(scope), &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

func (m *Manager) SetCampaignOutstanding(scope campaign.ID, accounts [][20]byte) error {
	if len(accounts) == 0 {
		return m.KVDelete(campaignOutstandingKey(scope))
	}
	return m.KVPut(campaignOutstandingKey(scope), accounts)
}
