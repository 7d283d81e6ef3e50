package permithash

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// abi.encode semantics: every field occupies one 32-byte word, values
// right-aligned, concatenated in declaration order.

func keccakWords(words ...[32]byte) common.Hash {
	raw := make([]byte, 0, len(words)*32)
	for _, w := range words {
		raw = append(raw, w[:]...)
	}
	return crypto.Keccak256Hash(raw)
}

func wordHash(h common.Hash) [32]byte {
	return h
}

func wordAddress(a common.Address) (w [32]byte) {
	copy(w[12:], a.Bytes())
	return w
}

func wordUint(v uint64) (w [32]byte) {
	binary.BigEndian.PutUint64(w[24:], v)
	return w
}

func wordU256(v *uint256.Int) (w [32]byte) {
	if v == nil {
		return w
	}
	return v.Bytes32()
}
