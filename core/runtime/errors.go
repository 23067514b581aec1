package runtime

import (
	"context"
	"errors"

	coreerrors "taskchain/core/errors"
	"taskchain/native/campaign"
)

var errorReasons = []struct {
	err    error
	reason string
}{
	{campaign.ErrBadOrigin, "bad_origin"},
	{ErrNotRoot, "bad_origin"},
	{campaign.ErrCampaignNotFound, "not_found"},
	{campaign.ErrDuplicateCampaign, "duplicate"},
	{campaign.ErrInvalidCampaignID, "invalid_id"},
	{campaign.ErrInvalidAmount, "invalid_amount"},
	{coreerrors.ErrInvalidAmount, "invalid_amount"},
	{campaign.ErrNoBeneficiaries, "no_beneficiaries"},
	{campaign.ErrCampaignNotPending, "not_pending"},
	{campaign.ErrNotApproved, "not_approved"},
	{campaign.ErrNotEnoughBalanceForUsers, "budget_exceeded"},
	{campaign.ErrArithmeticOverflow, "overflow"},
	{campaign.ErrRemainingBalanceTooLow, "balance_too_low"},
	{campaign.ErrCanNotClaim, "locked"},
	{campaign.ErrUserNotReward, "no_reward"},
	{campaign.ErrBondShortfall, "bond_shortfall"},
	{campaign.ErrWrongTopology, "wrong_topology"},
	{coreerrors.ErrInsufficientBalance, "insufficient_balance"},
	{coreerrors.ErrExistentialDeposit, "existential_deposit"},
	{ErrHeightRegress, "height_regress"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline"},
}

// errorReason maps err onto a bounded metrics label. Nil maps to "".
func errorReason(err error) string {
	if err == nil {
		return ""
	}
	for _, candidate := range errorReasons {
		if errors.Is(err, candidate.err) {
			return candidate.reason
		}
	}
	return "internal"
}
