package rewards

import (
	"math/big"

	"github.com/nathanwhit/calc-reward-script/perbill"
)

// Exposure is the stake backing a validator in an era: the validator's own
// stake, the grand total, and each nominator's individual stake. The chain
// guarantees own <= total and that own plus the nominator stakes sums to
// total; we do not re-verify that here.
type Exposure struct {
	Own    *big.Int
	Total  *big.Int
	Others map[string]*big.Int
}

// EraRewardPoints carries the era-wide point total and the points earned by
// one validator.
type EraRewardPoints struct {
	Total      uint32
	Individual uint32
}

// EraStakingInfo is everything needed to compute one validator's reward
// split for one era. Constructed fresh per calculation and never mutated.
type EraStakingInfo struct {
	Era        uint32
	EraPayout  *big.Int
	Points     EraRewardPoints
	Exposure   Exposure
	Commission perbill.Perbill
}

// RewardResult is the outcome of splitting one validator's era reward.
type RewardResult struct {
	Validator string `json:"validator"`
	Era       uint32 `json:"era"`

	// TotalPayout is the validator's share of the era payout, before the
	// commission/staking split.
	TotalPayout      *big.Int `json:"total_payout"`
	CommissionPayout *big.Int `json:"commission_payout"`
	StakingPayout    *big.Int `json:"staking_payout"`

	// ValidatorReward = CommissionPayout + StakingPayout
	ValidatorReward *big.Int `json:"validator_reward"`

	NominatorRewards map[string]*big.Int `json:"nominator_rewards"`
}

// NominatorAggregate sums one nominator's rewards across every validator it
// is exposed to. Missing lists validators for which no chain data could be
// retrieved; those were skipped, not counted as zero, so the caller can
// tell "earned nothing" apart from "unknown".
type NominatorAggregate struct {
	Nominator    string              `json:"nominator"`
	Era          uint32              `json:"era"`
	TotalReward  *big.Int            `json:"total_reward"`
	PerValidator map[string]*big.Int `json:"per_validator"`
	Missing      []string            `json:"missing,omitempty"`
}

// RequestKind selects which calculation path a Request takes.
type RequestKind int

const (
	RequestValidator RequestKind = iota
	RequestNominator
)

func (k RequestKind) String() string {
	switch k {
	case RequestValidator:
		return "validator"
	case RequestNominator:
		return "nominator"
	}

	return "unknown"
}

// Request is a single reward calculation request: one account, one era, and
// which role to compute for.
type Request struct {
	Kind    RequestKind
	Account string
	Era     uint32
}

// ComputeResult holds the outcome for whichever path the request took.
type ComputeResult struct {
	Kind      RequestKind
	Validator *RewardResult
	Nominator *NominatorAggregate
}
