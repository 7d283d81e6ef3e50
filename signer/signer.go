// Package signer provides client-side ECDSA signing for permitc digests.
// It produces the 65-byte (r, s, v) signatures the engine accepts, plus the
// EIP-2098 compact re-encoding.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer wraps an ECDSA private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewFromPrivateKey creates a signer from a hex-encoded private key, with
// or without the "0x" prefix.
func NewFromPrivateKey(privateKeyHex string) (*Signer, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignDigest signs a 32-byte permit digest, returning the 65-byte
// (r, s, v) signature with v adjusted to 27/28.
func (s *Signer) SignDigest(digest common.Hash) ([]byte, error) {
	signature, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

// SignTypedData signs arbitrary EIP-712 typed data. Convenience for
// integrators whose tooling works with typed-data JSON rather than
// precomputed digests.
func (s *Signer) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

// CompactSignature re-encodes a 65-byte (r, s, v) signature into the
// 64-byte EIP-2098 compact form: the recovery bit rides the high bit of vs.
func CompactSignature(signature []byte) ([]byte, error) {
	if len(signature) != 65 {
		return nil, fmt.Errorf("expected 65-byte signature, got %d", len(signature))
	}
	v := signature[64]
	if v != 27 && v != 28 {
		return nil, fmt.Errorf("expected v of 27 or 28, got %d", v)
	}

	compact := make([]byte, 64)
	copy(compact, signature[:64])
	if v == 28 {
		compact[32] |= 0x80
	}
	return compact, nil
}
