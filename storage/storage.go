package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	bolt "go.etcd.io/bbolt"
	log "github.com/sirupsen/logrus"
)

const (
	REWARDS_BUCKET = "rewards"
	METADATA       = "metadata"
)

type Storage struct {
	db *bolt.DB
}

// InitStorage opens (creating if needed) the per-network rewards cache DB
// in dataDir and makes sure the top-level buckets exist.
func InitStorage(dataDir, network string) (*Storage, error) {

	dbFile := filepath.Join(dataDir, fmt.Sprintf("%s_rewards.db", network))

	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open database %s", dbFile)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(REWARDS_BUCKET)); err != nil {
			return errors.Wrap(err, "Cannot create rewards bucket")
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("File", dbFile).Debug("Opened rewards database")

	return &Storage{db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	log.Info("Database closed")
}

// Itob returns an 8-byte big endian representation of v.
func Itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))

	return b
}

// Btoi decodes an 8-byte big endian key back to an int.
func Btoi(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
