package rewards

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"

	"github.com/nathanwhit/calc-reward-script/perbill"
)

func bi(v int64) *big.Int {
	return big.NewInt(v)
}

func mustRational(t *testing.T, n, d int64) perbill.Perbill {
	p, err := perbill.FromRational(bi(n), bi(d))
	if err != nil {
		t.Fatalf("FromRational(%d, %d): %s", n, d, err)
	}

	return p
}

// The worked example: 10^12 payout, validator earned 25 of 100 points, 10%
// commission, own stake 200 of 1000 total with two nominators at 500/300.
func scenarioInfo(t *testing.T) *EraStakingInfo {
	return &EraStakingInfo{
		Era:       100,
		EraPayout: bi(1_000_000_000_000),
		Points:    EraRewardPoints{Total: 100, Individual: 25},
		Exposure: Exposure{
			Own:   bi(200),
			Total: bi(1000),
			Others: map[string]*big.Int{
				"N1": bi(500),
				"N2": bi(300),
			},
		},
		Commission: mustRational(t, 1, 10),
	}
}

func TestCalculateValidatorReward(t *testing.T) {

	result, err := CalculateValidatorReward(scenarioInfo(t), "V1")
	if err != nil {
		t.Fatalf("CalculateValidatorReward: %s", err)
	}

	checks := []struct {
		name string
		got  *big.Int
		want int64
	}{
		{"total payout", result.TotalPayout, 250_000_000_000},
		{"commission payout", result.CommissionPayout, 25_000_000_000},
		{"staking payout", result.StakingPayout, 45_000_000_000},
		{"validator reward", result.ValidatorReward, 70_000_000_000},
		{"N1 reward", result.NominatorRewards["N1"], 112_500_000_000},
		{"N2 reward", result.NominatorRewards["N2"], 67_500_000_000},
	}

	for _, c := range checks {
		if c.got.Cmp(bi(c.want)) != 0 {
			t.Errorf("%s = %s, want %d", c.name, c.got, c.want)
		}
	}
}

func TestCalculateValidatorRewardZeroPoints(t *testing.T) {

	info := scenarioInfo(t)
	info.Points.Individual = 0

	result, err := CalculateValidatorReward(info, "V1")
	if err != nil {
		t.Fatalf("CalculateValidatorReward: %s", err)
	}

	for name, v := range map[string]*big.Int{
		"total payout":      result.TotalPayout,
		"commission payout": result.CommissionPayout,
		"staking payout":    result.StakingPayout,
		"validator reward":  result.ValidatorReward,
		"N1 reward":         result.NominatorRewards["N1"],
		"N2 reward":         result.NominatorRewards["N2"],
	} {
		if v == nil || v.Sign() != 0 {
			t.Errorf("%s = %s, want 0", name, v)
		}
	}
}

// Floor rounding must never pay out more than the validator's share of the
// era pool, even on awkward stake splits.
func TestRewardConservation(t *testing.T) {

	infos := []*EraStakingInfo{
		scenarioInfo(t),
		{
			Era:       7,
			EraPayout: bi(999_999_999_999),
			Points:    EraRewardPoints{Total: 7, Individual: 3},
			Exposure: Exposure{
				Own:   bi(17),
				Total: bi(101),
				Others: map[string]*big.Int{
					"A": bi(29),
					"B": bi(31),
					"C": bi(24),
				},
			},
			Commission: mustRational(t, 1, 3),
		},
		{
			Era:       8,
			EraPayout: bi(1),
			Points:    EraRewardPoints{Total: 3, Individual: 1},
			Exposure: Exposure{
				Own:    bi(1),
				Total:  bi(3),
				Others: map[string]*big.Int{"A": bi(2)},
			},
			Commission: perbill.FromParts(0),
		},
	}

	for _, info := range infos {
		result, err := CalculateValidatorReward(info, "V1")
		if err != nil {
			t.Fatalf("era %d: %s", info.Era, err)
		}

		distributed := new(big.Int).Add(result.CommissionPayout, result.StakingPayout)
		for _, reward := range result.NominatorRewards {
			distributed.Add(distributed, reward)
		}

		if distributed.Cmp(result.TotalPayout) > 0 {
			t.Errorf("era %d: distributed %s exceeds total payout %s", info.Era, distributed, result.TotalPayout)
		}
	}
}

func TestAggregateNominatorReward(t *testing.T) {

	results := []*RewardResult{
		{
			Validator:        "V1",
			Era:              100,
			NominatorRewards: map[string]*big.Int{"N1": bi(112_500_000_000)},
		},
		{
			Validator:        "V2",
			Era:              100,
			NominatorRewards: map[string]*big.Int{"N1": bi(50_000_000_000), "N9": bi(7)},
		},
		{
			// N1 has no stake with V3; contributes zero
			Validator:        "V3",
			Era:              100,
			NominatorRewards: map[string]*big.Int{"N9": bi(42)},
		},
	}

	agg := AggregateNominatorReward("N1", results)

	if agg.TotalReward.Cmp(bi(162_500_000_000)) != 0 {
		t.Errorf("Total = %s, want 162500000000", agg.TotalReward)
	}

	if agg.PerValidator["V1"].Cmp(bi(112_500_000_000)) != 0 {
		t.Errorf("V1 = %s", agg.PerValidator["V1"])
	}

	if agg.PerValidator["V3"].Sign() != 0 {
		t.Errorf("V3 = %s, want 0", agg.PerValidator["V3"])
	}
}

func TestAggregateNominatorRewardEmpty(t *testing.T) {

	agg := AggregateNominatorReward("N1", nil)
	if agg.TotalReward.Sign() != 0 {
		t.Errorf("Empty aggregate total = %s, want 0", agg.TotalReward)
	}
}

// stubProvider serves canned chain state to the engine.
type stubProvider struct {
	infos   map[string]*EraStakingInfo
	targets map[string][]string
}

func (s *stubProvider) EraStakingInfo(era uint32, validator string) (*EraStakingInfo, error) {
	info, ok := s.infos[validator]
	if !ok {
		return nil, errors.Wrapf(ErrMissingChainData, "no record for %s in era %d", validator, era)
	}

	return info, nil
}

func (s *stubProvider) NominatorTargets(account string) ([]string, error) {
	targets, ok := s.targets[account]
	if !ok {
		return nil, errors.Wrapf(ErrMissingChainData, "%s is not a nominator", account)
	}

	return targets, nil
}

func TestEngineComputeValidator(t *testing.T) {

	engine := NewEngine(&stubProvider{
		infos: map[string]*EraStakingInfo{"V1": scenarioInfo(t)},
	})

	result, err := engine.Compute(Request{Kind: RequestValidator, Account: "V1", Era: 100})
	if err != nil {
		t.Fatalf("Compute: %s", err)
	}

	if result.Kind != RequestValidator || result.Validator == nil {
		t.Fatal("Expected a validator result")
	}

	if result.Validator.ValidatorReward.Cmp(bi(70_000_000_000)) != 0 {
		t.Errorf("Validator reward = %s", result.Validator.ValidatorReward)
	}
}

func TestEngineComputeValidatorMissing(t *testing.T) {

	engine := NewEngine(&stubProvider{})

	_, err := engine.Compute(Request{Kind: RequestValidator, Account: "V404", Era: 100})
	if errors.Cause(err) != ErrMissingChainData {
		t.Errorf("Expected ErrMissingChainData, got %v", err)
	}
}

func TestEngineComputeNominator(t *testing.T) {

	infoV2 := scenarioInfo(t)
	infoV2.Points.Individual = 10
	infoV2.Exposure = Exposure{
		Own:    bi(100),
		Total:  bi(1000),
		Others: map[string]*big.Int{"N1": bi(900)},
	}

	engine := NewEngine(&stubProvider{
		infos: map[string]*EraStakingInfo{
			"V1": scenarioInfo(t),
			"V2": infoV2,
		},
		// V3 has no chain record and must be skipped, not zeroed
		targets: map[string][]string{"N1": {"V1", "V2", "V3"}},
	})

	result, err := engine.Compute(Request{Kind: RequestNominator, Account: "N1", Era: 100})
	if err != nil {
		t.Fatalf("Compute: %s", err)
	}

	agg := result.Nominator
	if agg == nil {
		t.Fatal("Expected a nominator aggregate")
	}

	// V2: 10/100 points of 10^12 = 10^11 payout, 10% commission leaves
	// 9*10^10, N1 holds 900/1000 -> 81_000_000_000
	want := bi(112_500_000_000 + 81_000_000_000)
	if agg.TotalReward.Cmp(want) != 0 {
		t.Errorf("Aggregate total = %s, want %s", agg.TotalReward, want)
	}

	if len(agg.Missing) != 1 || agg.Missing[0] != "V3" {
		t.Errorf("Missing = %v, want [V3]", agg.Missing)
	}
}

func TestFormatCTC(t *testing.T) {

	whole, _ := new(big.Int).SetString("2000000000000000000", 10)
	if got := FormatCTC(whole); got != "2 CTC" {
		t.Errorf("Got %q", got)
	}

	half, _ := new(big.Int).SetString("2500000000000000000", 10)
	if got := FormatCTC(half); got != "2.5 CTC" {
		t.Errorf("Got %q", got)
	}

	if got := ToCTC(half); got != 2.5 {
		t.Errorf("ToCTC = %f", got)
	}
}
