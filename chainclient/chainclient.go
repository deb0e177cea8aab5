package chainclient

import (
	"math/big"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"

	"github.com/nathanwhit/calc-reward-script/util"
)

// ChainClient wraps a substrate RPC connection with a primary and an
// optional backup endpoint. It is the only component that talks to the
// network; the reward engine consumes the resolved values it produces.
type ChainClient struct {
	Current *gsrpc.SubstrateAPI
	Primary *gsrpc.SubstrateAPI
	Backup  *gsrpc.SubstrateAPI

	IsPrimary bool

	meta      *types.Metadata
	constants *util.NetworkConstants
	lock      sync.Mutex
}

func New(constants *util.NetworkConstants, rpcOverride string) (*ChainClient, error) {

	primaryURL := constants.PrimaryRPC
	if rpcOverride != "" {
		primaryURL = rpcOverride
	}

	primary, err := gsrpc.NewSubstrateAPI(primaryURL)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot connect to %s", primaryURL)
	}

	log.WithField("Endpoint", primaryURL).Info("Connected to chain RPC")

	client := &ChainClient{
		Current:   primary,
		Primary:   primary,
		IsPrimary: true,
		constants: constants,
	}

	if constants.BackupRPC != "" && rpcOverride == "" {
		backup, err := gsrpc.NewSubstrateAPI(constants.BackupRPC)
		if err != nil {
			log.WithError(err).WithField("Endpoint", constants.BackupRPC).Warn("Backup RPC unavailable")
		} else {
			client.Backup = backup
		}
	}

	client.meta, err = primary.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, errors.Wrap(err, "Cannot fetch chain metadata")
	}

	return client, nil
}

func (c *ChainClient) UseBackup() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.Backup == nil {
		log.Warn("No backup RPC endpoint configured")
		return
	}

	c.Current = c.Backup
	c.IsPrimary = false
}

func (c *ChainClient) UsePrimary() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.Current = c.Primary
	c.IsPrimary = true
}

func (c *ChainClient) api() *gsrpc.SubstrateAPI {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.Current
}

// getStorage queries the current endpoint, failing over to the backup once
// when the primary errors.
func (c *ChainClient) getStorage(key types.StorageKey, target interface{}) (bool, error) {

	ok, err := c.api().RPC.State.GetStorageLatest(key, target)
	if err != nil && c.IsPrimary && c.Backup != nil {
		log.WithError(err).Warn("Primary RPC query failed; switching to backup")
		c.UseBackup()

		return c.api().RPC.State.GetStorageLatest(key, target)
	}

	return ok, err
}

// ActiveEra returns the chain's current active era index.
func (c *ChainClient) ActiveEra() (uint32, error) {

	key, err := types.CreateStorageKey(c.meta, "Staking", "ActiveEra")
	if err != nil {
		return 0, errors.Wrap(err, "Cannot build ActiveEra storage key")
	}

	var activeEra struct {
		Index types.U32
		Start types.OptionU64
	}

	ok, err := c.getStorage(key, &activeEra)
	if err != nil {
		return 0, errors.Wrap(err, "Cannot query ActiveEra")
	}
	if !ok {
		return 0, errors.New("Chain has no active era")
	}

	return uint32(activeEra.Index), nil
}

func compactToBig(c types.UCompact) *big.Int {
	v := big.Int(c)

	return new(big.Int).Set(&v)
}
