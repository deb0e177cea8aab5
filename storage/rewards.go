package storage

import (
	"encoding/json"

	"github.com/pkg/errors"

	bolt "go.etcd.io/bbolt"
)

// Computed rewards are cached per era in nested buckets:
// REWARDS_BUCKET -> era (8-byte key) -> validator address -> RewardResult JSON
// with an optional METADATA key per era bucket.

// SaveEraMetadata stores raw JSON metadata for an era, creating the era
// bucket if needed.
func (s *Storage) SaveEraMetadata(era int, metadataBytes []byte) error {

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(REWARDS_BUCKET)).CreateBucketIfNotExists(Itob(era))
		if err != nil {
			return errors.New("Unable to create era rewards bucket")
		}

		return b.Put([]byte(METADATA), metadataBytes)
	})
}

// SaveValidatorReward stores one validator's serialized RewardResult under
// its era bucket.
func (s *Storage) SaveValidatorReward(era int, validator string, resultBytes []byte) error {

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(REWARDS_BUCKET)).CreateBucketIfNotExists(Itob(era))
		if err != nil {
			return errors.New("Unable to create era rewards bucket")
		}

		// Keyed by validator address for easy scanning of an era
		return b.Put([]byte(validator), resultBytes)
	})
}

// GetValidatorReward returns the cached serialized RewardResult, or nil
// when the pair has never been computed.
func (s *Storage) GetValidatorReward(era int, validator string) ([]byte, error) {

	var resultBytes []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(REWARDS_BUCKET)).Bucket(Itob(era))
		if b == nil {
			return nil
		}

		if v := b.Get([]byte(validator)); v != nil {
			resultBytes = make([]byte, len(v))
			copy(resultBytes, v)
		}

		return nil
	})

	return resultBytes, err
}

// GetEraRewards returns every cached reward record for an era, keyed by
// validator address.
func (s *Storage) GetEraRewards(era int) (map[string]json.RawMessage, error) {

	eraRewards := make(map[string]json.RawMessage)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(REWARDS_BUCKET)).Bucket(Itob(era))
		if b == nil {
			return errors.Errorf("No rewards cached for era %d", era)
		}

		c := b.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			if string(k) == METADATA {
				continue
			}

			record := make(json.RawMessage, len(v))
			copy(record, v)
			eraRewards[string(k)] = record
		}

		return nil
	})

	return eraRewards, err
}

// GetRewardsMetadata returns the metadata of every cached era.
func (s *Storage) GetRewardsMetadata() (map[int]json.RawMessage, error) {

	rewardsMetadata := make(map[int]json.RawMessage)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(REWARDS_BUCKET))

		c := b.Cursor()

		for k, _ := c.First(); k != nil; k, _ = c.Next() {

			// Keys are era numbers, which are buckets of records
			eraBucket := b.Bucket(k)
			if eraBucket == nil {
				continue
			}

			metadataBytes := eraBucket.Get([]byte(METADATA))
			if metadataBytes == nil {
				continue
			}

			record := make(json.RawMessage, len(metadataBytes))
			copy(record, metadataBytes)
			rewardsMetadata[Btoi(k)] = record
		}

		return nil
	})

	return rewardsMetadata, err
}
