package util

import (
	"fmt"
	"strings"
)

const (
	NETWORK_MAINNET = "mainnet"
	NETWORK_TESTNET = "testnet"
)

type NetworkConstants struct {
	PrimaryRPC    string
	BackupRPC     string
	SS58Prefix    uint8
	TokenDecimals int
	TokenSymbol   string
	// Eras are daily on both networks
	EraDurationHours int
	// HistoryDepth limits how far back ErasStakers/ErasValidatorReward
	// queries can reach before the runtime prunes them
	HistoryDepth int
}

func GetNetworkConstants(network string) (*NetworkConstants, error) {

	switch network {
	case NETWORK_MAINNET:
		return &NetworkConstants{
			PrimaryRPC:       "wss://rpc.mainnet.creditcoin.network/ws",
			BackupRPC:        "wss://mainnet.creditcoin.network/ws",
			SS58Prefix:       42,
			TokenDecimals:    18,
			TokenSymbol:      "CTC",
			EraDurationHours: 24,
			HistoryDepth:     84,
		}, nil
	case NETWORK_TESTNET:
		return &NetworkConstants{
			PrimaryRPC:       "wss://rpc.testnet.creditcoin.network/ws",
			BackupRPC:        "",
			SS58Prefix:       42,
			TokenDecimals:    18,
			TokenSymbol:      "tCTC",
			EraDurationHours: 24,
			HistoryDepth:     84,
		}, nil
	}

	// Unknown network
	return nil, fmt.Errorf("No such network '%s' exists", network)
}

func IsValidNetwork(maybeNetwork string) bool {
	return maybeNetwork == NETWORK_MAINNET || maybeNetwork == NETWORK_TESTNET
}

func AvailableNetworks() string {
	return strings.Join([]string{NETWORK_MAINNET, NETWORK_TESTNET}, ",")
}
