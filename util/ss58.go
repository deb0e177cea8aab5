package util

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Checksum preimage prefix mandated by the SS58 format
const ss58ChecksumPreimage = "SS58PRE"

// EncodeSS58 renders a 32-byte public key as an SS58 address under the
// given network prefix. The checksum is the first two bytes of
// blake2b-512("SS58PRE" | prefix | pubkey).
func EncodeSS58(pubKey [32]byte, prefix uint8) string {

	payload := append([]byte{prefix}, pubKey[:]...)

	checksum := ss58Checksum(payload)

	return base58.Encode(append(payload, checksum...))
}

// DecodeSS58 parses an SS58 address back into the raw 32-byte public key,
// verifying the embedded checksum. Only single-byte network prefixes are
// accepted, which covers every creditcoin network.
func DecodeSS58(address string) ([32]byte, error) {

	var pubKey [32]byte

	decoded := base58.Decode(strings.TrimSpace(address))

	// 1 prefix byte + 32 key bytes + 2 checksum bytes
	if len(decoded) != 35 {
		return pubKey, errors.Errorf("malformed SS58 address '%s'", address)
	}

	payload := decoded[:33]
	checksum := decoded[33:]

	if !bytes.Equal(checksum, ss58Checksum(payload)) {
		return pubKey, errors.Errorf("SS58 checksum mismatch for '%s'", address)
	}

	copy(pubKey[:], payload[1:])

	return pubKey, nil
}

func ss58Checksum(payload []byte) []byte {

	hash := blake2b.Sum512(append([]byte(ss58ChecksumPreimage), payload...))

	return hash[:2]
}
