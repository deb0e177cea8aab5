package chainclient

import (
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"

	"github.com/nathanwhit/calc-reward-script/perbill"
	"github.com/nathanwhit/calc-reward-script/rewards"
	"github.com/nathanwhit/calc-reward-script/util"
)

// Runtime storage structures, declared the way the staking pallet encodes
// them. Balances are Compact<u128> on the wire.

type accountID [32]byte

type individualExposure struct {
	Who   accountID
	Value types.UCompact
}

type exposure struct {
	Total  types.UCompact
	Own    types.UCompact
	Others []individualExposure
}

type validatorPrefs struct {
	Commission types.UCompact
	Blocked    types.Bool
}

type eraRewardPoints struct {
	Total      types.U32
	Individual []struct {
		Who    accountID
		Points types.U32
	}
}

type nominations struct {
	Targets     []accountID
	SubmittedIn types.U32
	Suppressed  types.Bool
}

type unlockChunk struct {
	Value types.UCompact
	Era   types.UCompact
}

type stakingLedger struct {
	Stash          accountID
	Total          types.UCompact
	Active         types.UCompact
	Unlocking      []unlockChunk
	ClaimedRewards []types.U32
}

// EraStakingInfo assembles everything the reward engine needs for one
// (validator, era) pair: the era payout, the era's reward points, the
// validator's exposure, and its commission. Any missing on-chain record
// surfaces as rewards.ErrMissingChainData so callers skip the pair instead
// of treating it as zero.
func (c *ChainClient) EraStakingInfo(era uint32, validator string) (*rewards.EraStakingInfo, error) {

	pubKey, err := util.DecodeSS58(validator)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad validator address %s", validator)
	}

	eraArg, err := codec.Encode(types.NewU32(era))
	if err != nil {
		return nil, errors.Wrap(err, "Cannot encode era index")
	}

	// Era payout pool
	key, err := types.CreateStorageKey(c.meta, "Staking", "ErasValidatorReward", eraArg)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build ErasValidatorReward storage key")
	}

	var eraPayout types.U128
	ok, err := c.getStorage(key, &eraPayout)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot query ErasValidatorReward")
	}
	if !ok {
		return nil, errors.Wrapf(rewards.ErrMissingChainData, "no payout recorded for era %d", era)
	}

	// Era reward points
	key, err = types.CreateStorageKey(c.meta, "Staking", "ErasRewardPoints", eraArg)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build ErasRewardPoints storage key")
	}

	var points eraRewardPoints
	ok, err = c.getStorage(key, &points)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot query ErasRewardPoints")
	}
	if !ok {
		return nil, errors.Wrapf(rewards.ErrMissingChainData, "no reward points recorded for era %d", era)
	}

	var individual uint32
	for _, entry := range points.Individual {
		if entry.Who == pubKey {
			individual = uint32(entry.Points)
			break
		}
	}

	// Exposure (clipped to the runtime's maximum rewardable nominators,
	// which is what payouts are computed from on-chain)
	key, err = types.CreateStorageKey(c.meta, "Staking", "ErasStakersClipped", eraArg, pubKey[:])
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build ErasStakersClipped storage key")
	}

	var exp exposure
	ok, err = c.getStorage(key, &exp)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot query ErasStakersClipped")
	}
	if !ok || compactToBig(exp.Total).Sign() == 0 {
		return nil, errors.Wrapf(rewards.ErrMissingChainData, "%s has no exposure in era %d", validator, era)
	}

	// Commission
	key, err = types.CreateStorageKey(c.meta, "Staking", "ErasValidatorPrefs", eraArg, pubKey[:])
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build ErasValidatorPrefs storage key")
	}

	var prefs validatorPrefs
	if _, err = c.getStorage(key, &prefs); err != nil {
		return nil, errors.Wrap(err, "Cannot query ErasValidatorPrefs")
	}
	// An absent prefs entry decodes as zero commission, which is what the
	// runtime defaults to for that era.

	others := make(map[string]*big.Int, len(exp.Others))
	for _, ie := range exp.Others {
		nominator := util.EncodeSS58(ie.Who, c.constants.SS58Prefix)
		others[nominator] = compactToBig(ie.Value)
	}

	info := &rewards.EraStakingInfo{
		Era:       era,
		EraPayout: eraPayout.Int,
		Points: rewards.EraRewardPoints{
			Total:      uint32(points.Total),
			Individual: individual,
		},
		Exposure: rewards.Exposure{
			Own:    compactToBig(exp.Own),
			Total:  compactToBig(exp.Total),
			Others: others,
		},
		Commission: perbill.FromParts(compactToBig(prefs.Commission).Uint64()),
	}

	log.WithFields(log.Fields{
		"Validator": validator, "Era": era,
		"Points": individual, "TotalPoints": info.Points.Total,
		"Commission": info.Commission.String(),
	}).Debug("Fetched era staking info")

	return info, nil
}

// NominatorTargets resolves a nominator's current validator targets,
// verifying the stash is bonded and its controller has a staking ledger
// along the way.
func (c *ChainClient) NominatorTargets(account string) ([]string, error) {

	pubKey, err := util.DecodeSS58(account)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad nominator address %s", account)
	}

	// Stash -> controller
	key, err := types.CreateStorageKey(c.meta, "Staking", "Bonded", pubKey[:])
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build Bonded storage key")
	}

	var controller accountID
	ok, err := c.getStorage(key, &controller)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot query Bonded")
	}
	if !ok {
		return nil, errors.Wrapf(rewards.ErrMissingChainData, "%s is not bonded", account)
	}

	// Controller -> ledger
	key, err = types.CreateStorageKey(c.meta, "Staking", "Ledger", controller[:])
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build Ledger storage key")
	}

	var ledger stakingLedger
	ok, err = c.getStorage(key, &ledger)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot query Ledger")
	}
	if !ok {
		return nil, errors.Wrapf(rewards.ErrMissingChainData, "no staking ledger for %s", account)
	}

	key, err = types.CreateStorageKey(c.meta, "Staking", "Nominators", pubKey[:])
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build Nominators storage key")
	}

	var noms nominations
	ok, err = c.getStorage(key, &noms)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot query Nominators")
	}
	if !ok {
		return nil, errors.Wrapf(rewards.ErrMissingChainData, "%s has no nominations", account)
	}

	targets := make([]string, 0, len(noms.Targets))
	for _, target := range noms.Targets {
		targets = append(targets, util.EncodeSS58(target, c.constants.SS58Prefix))
	}

	log.WithFields(log.Fields{
		"Nominator": account, "Targets": len(targets),
	}).Debug("Resolved nominator targets")

	return targets, nil
}
