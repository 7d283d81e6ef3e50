package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// NewOrderID generates a random 32-byte order identifier.
// Order IDs are caller-chosen; this helper gives integrators a
// collision-resistant default.
func NewOrderID() common.Hash {
	id := uuid.New()
	return crypto.Keccak256Hash(id[:])
}

// NewSalt generates a random salt for an order permit.
func NewSalt() *uint256.Int {
	id := uuid.New()
	salt := new(uint256.Int)
	salt.SetBytes(crypto.Keccak256(id[:]))
	return salt
}
