package webserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"

	"github.com/nathanwhit/calc-reward-script/rewards"
)

func parseRewardQuery(r *http.Request) (uint32, string, error) {

	keys := r.URL.Query()

	era, err := strconv.ParseUint(keys.Get("era"), 10, 32)
	if err != nil {
		return 0, "", errors.Wrap(err, "Unable to parse era")
	}

	account := keys.Get("account")
	if account == "" {
		return 0, "", errors.New("missing account parameter")
	}

	return uint32(era), account, nil
}

// getValidatorReward computes (or serves from cache) one validator's reward
// split for one era.
func (ws *WebServer) getValidatorReward(w http.ResponseWriter, r *http.Request) {

	log.Trace("API - getValidatorReward")

	era, account, err := parseRewardQuery(r)
	if err != nil {
		apiError(err, w)
		return
	}

	// Reward splits are deterministic, so a cached record is as good as
	// a recomputation
	if cached, err := ws.storage.GetValidatorReward(int(era), account); err == nil && cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)

		return
	}

	result, err := ws.engine.Compute(rewards.Request{
		Kind:    rewards.RequestValidator,
		Account: account,
		Era:     era,
	})
	if err != nil {
		log.WithError(err).Error("API - getValidatorReward")
		apiError(errors.Wrap(err, "Unable to compute validator reward"), w)

		return
	}

	resultBytes, err := json.Marshal(result.Validator)
	if err != nil {
		apiError(errors.Wrap(err, "Unable to encode reward result"), w)

		return
	}

	if err := ws.storage.SaveValidatorReward(int(era), account, resultBytes); err != nil {
		log.WithError(err).Error("Unable to cache validator reward")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resultBytes)
}

// getNominatorReward aggregates a nominator's reward across every validator
// it is exposed to in the requested era.
func (ws *WebServer) getNominatorReward(w http.ResponseWriter, r *http.Request) {

	log.Trace("API - getNominatorReward")

	era, account, err := parseRewardQuery(r)
	if err != nil {
		apiError(err, w)
		return
	}

	result, err := ws.engine.Compute(rewards.Request{
		Kind:    rewards.RequestNominator,
		Account: account,
		Era:     era,
	})
	if err != nil {
		log.WithError(err).Error("API - getNominatorReward")
		apiError(errors.Wrap(err, "Unable to aggregate nominator reward"), w)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result.Nominator); err != nil {
		log.WithError(err).Error("UI Return getNominatorReward Failure")
	}
}

// getEraRewards returns every cached reward record for an era.
func (ws *WebServer) getEraRewards(w http.ResponseWriter, r *http.Request) {

	log.Trace("API - getEraRewards")

	keys := r.URL.Query()
	era, err := strconv.Atoi(keys.Get("era"))
	if err != nil {
		apiError(errors.Wrap(err, "Unable to parse era"), w)

		return
	}

	eraRewards, err := ws.storage.GetEraRewards(era)
	if err != nil {
		log.WithError(err).Error("API - getEraRewards")
		apiError(errors.Wrap(err, "Unable to get era rewards from DB"), w)

		return
	}

	eraData := make(map[string]interface{}, 2)
	eraData["era"] = era
	eraData["rewards"] = eraRewards

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(eraData); err != nil {
		log.WithError(err).Error("UI Return getEraRewards Failure")
	}
}

// getRewardsMetadata returns the metadata of every cached era.
func (ws *WebServer) getRewardsMetadata(w http.ResponseWriter, r *http.Request) {

	log.Trace("API - getRewardsMetadata")

	metadata, err := ws.storage.GetRewardsMetadata()
	if err != nil {
		log.WithError(err).Error("API - getRewardsMetadata")
		apiError(errors.Wrap(err, "Unable to get metadata from DB"), w)

		return
	}

	rewardsData := make(map[string]interface{}, 2)
	rewardsData["network"] = ws.network
	rewardsData["metadata"] = metadata

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rewardsData); err != nil {
		log.WithError(err).Error("UI Return getRewardsMetadata Failure")
	}
}
