package events

import (
	"math/big"
	"strconv"

	"taskchain/core/types"
)

const (
	TypeCampaignCreated     = "campaign.created"
	TypeCampaignDeposited   = "campaign.deposited"
	TypeCampaignRejected    = "campaign.rejected"
	TypeCampaignApproved    = "campaign.approved"
	TypeCampaignBondSlashed = "campaign.bond_slashed"
	TypeCampaignPayment     = "campaign.payment"
	TypeCampaignRewarded    = "campaign.rewarded"
	TypeCampaignClaimed     = "campaign.claimed"
	TypeCampaignSettled     = "campaign.settled"
)

// CampaignCreated is emitted once a campaign is stored with its bond reserved.
type CampaignCreated struct {
	ID     []byte
	Client [20]byte
	Value  *big.Int
	Bond   *big.Int
}

func (CampaignCreated) EventType() string { return TypeCampaignCreated }

func (e CampaignCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignCreated,
		Attributes: map[string]string{
			"id":     formatID(e.ID),
			"client": formatAccount(e.Client),
			"value":  formatAmount(e.Value),
			"bond":   formatAmount(e.Bond),
		},
	}
}

// CampaignDeposited records the client's value arriving in the campaign
// account.
type CampaignDeposited struct {
	ID      []byte
	Client  [20]byte
	Account [20]byte
	Amount  *big.Int
}

func (CampaignDeposited) EventType() string { return TypeCampaignDeposited }

func (e CampaignDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignDeposited,
		Attributes: map[string]string{
			"id":      formatID(e.ID),
			"client":  formatAccount(e.Client),
			"account": formatAccount(e.Account),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type CampaignRejected struct {
	ID     []byte
	Client [20]byte
	Value  *big.Int
}

func (CampaignRejected) EventType() string { return TypeCampaignRejected }

func (e CampaignRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignRejected,
		Attributes: map[string]string{
			"id":     formatID(e.ID),
			"client": formatAccount(e.Client),
			"value":  formatAmount(e.Value),
		},
	}
}

type CampaignApproved struct {
	ID []byte
}

func (CampaignApproved) EventType() string { return TypeCampaignApproved }

func (e CampaignApproved) Event() *types.Event {
	return &types.Event{
		Type:       TypeCampaignApproved,
		Attributes: map[string]string{"id": formatID(e.ID)},
	}
}

// CampaignBondSlashed reports the client bond destroyed on approval and the
// account that received the redeposit.
type CampaignBondSlashed struct {
	ID     []byte
	Client [20]byte
	Sink   [20]byte
	Amount *big.Int
}

func (CampaignBondSlashed) EventType() string { return TypeCampaignBondSlashed }

func (e CampaignBondSlashed) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignBondSlashed,
		Attributes: map[string]string{
			"id":     formatID(e.ID),
			"client": formatAccount(e.Client),
			"sink":   formatAccount(e.Sink),
			"amount": formatAmount(e.Amount),
		},
	}
}

// CampaignPayment is emitted when a single campaign credits its beneficiaries.
// Amount is the total credited across all beneficiaries.
type CampaignPayment struct {
	ID            []byte
	Beneficiaries [][20]byte
	Amount        *big.Int
	Height        uint64
}

func (CampaignPayment) EventType() string { return TypeCampaignPayment }

func (e CampaignPayment) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignPayment,
		Attributes: map[string]string{
			"id":            formatID(e.ID),
			"beneficiaries": formatAccounts(e.Beneficiaries),
			"count":         strconv.Itoa(len(e.Beneficiaries)),
			"amount":        formatAmount(e.Amount),
			"height":        uintToString(e.Height),
		},
	}
}

// CampaignRewarded is emitted per campaign settled out of the shared pool.
// Amount is the total credited across all beneficiaries.
type CampaignRewarded struct {
	ID            []byte
	Amount        *big.Int
	Beneficiaries [][20]byte
	Height        uint64
}

func (CampaignRewarded) EventType() string { return TypeCampaignRewarded }

func (e CampaignRewarded) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignRewarded,
		Attributes: map[string]string{
			"id":            formatID(e.ID),
			"amount":        formatAmount(e.Amount),
			"beneficiaries": formatAccounts(e.Beneficiaries),
			"count":         strconv.Itoa(len(e.Beneficiaries)),
			"height":        uintToString(e.Height),
		},
	}
}

// CampaignClaimed is emitted for every successful claim. ID is empty for
// claims against the shared pool.
type CampaignClaimed struct {
	ID          []byte
	Beneficiary [20]byte
	Amount      *big.Int
	Remaining   *big.Int
}

func (CampaignClaimed) EventType() string { return TypeCampaignClaimed }

func (e CampaignClaimed) Event() *types.Event {
	attrs := map[string]string{
		"beneficiary": formatAccount(e.Beneficiary),
		"amount":      formatAmount(e.Amount),
		"remaining":   formatAmount(e.Remaining),
	}
	if len(e.ID) > 0 {
		attrs["id"] = formatID(e.ID)
	}
	return &types.Event{Type: TypeCampaignClaimed, Attributes: attrs}
}

// CampaignSettled is emitted when the last outstanding reward of a campaign is
// claimed and the unused remainder returns to the client.
type CampaignSettled struct {
	ID       []byte
	Client   [20]byte
	Refunded *big.Int
}

func (CampaignSettled) EventType() string { return TypeCampaignSettled }

func (e CampaignSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignSettled,
		Attributes: map[string]string{
			"id":       formatID(e.ID),
			"client":   formatAccount(e.Client),
			"refunded": formatAmount(e.Refunded),
		},
	}
}
