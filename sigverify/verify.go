// Package sigverify validates permit digests against an owner address. It
// accepts standard 65-byte ECDSA signatures, 64-byte EIP-2098 compact
// signatures, and EIP-1271 contract signatures as a fallback.
//
// Malformed or malleable ECDSA input never aborts verification on its own:
// it falls through to the EIP-1271 path, and only when that also fails does
// Verify return ErrInvalidSignature. Failing closed here is the single most
// security-critical property of the engine.
package sigverify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when neither ECDSA recovery nor the
// EIP-1271 fallback validates the signature for the claimed owner.
var ErrInvalidSignature = errors.New("invalid signature")

// EIP1271MagicValue is the bytes4 an EIP-1271 wallet returns from
// isValidSignature on success.
var EIP1271MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

const eip1271ABI = `[{"name":"isValidSignature","type":"function","stateMutability":"view","inputs":[{"name":"hash","type":"bytes32"},{"name":"signature","type":"bytes"}],"outputs":[{"name":"magicValue","type":"bytes4"}]}]`

var isValidSignatureABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(eip1271ABI))
	if err != nil {
		panic(fmt.Sprintf("parse EIP-1271 ABI: %v", err))
	}
	return parsed
}()

// secp256k1HalfN is the curve half-order. Signatures with s above it are
// malleable and treated as recovery failures, not accepted and not aborted.
var secp256k1HalfN = new(big.Int).Rsh(crypto.S256().Params().N, 1)

// ContractCaller performs the read-only external calls the EIP-1271
// fallback needs. Implementations typically wrap an ethclient; tests use
// in-memory fakes.
type ContractCaller interface {
	// CodeAt returns the bytecode at addr, empty for an EOA.
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)

	// CallContract executes a read-only call against addr.
	CallContract(ctx context.Context, addr common.Address, data []byte) ([]byte, error)
}

// Verify checks that signature authorizes digest on behalf of owner.
//
// 65-byte input parses as (r, s, v); 64-byte input parses as EIP-2098
// compact (r, vs). Any other length, a malleable s, or a recovery that does
// not yield owner falls through to EIP-1271: owner must have code and its
// isValidSignature call must return the magic value. Every other outcome is
// ErrInvalidSignature.
func Verify(ctx context.Context, digest common.Hash, signature []byte, owner common.Address, caller ContractCaller) error {
	if recovered, ok := recoverSigner(digest, signature); ok && recovered == owner {
		return nil
	}
	return verifyEIP1271(ctx, digest, signature, owner, caller)
}

// recoverSigner attempts ECDSA recovery. ok is false for unparseable input,
// malleable s values, and recovery failures; those cases are
// indistinguishable from a contract signer and fall through.
func recoverSigner(digest common.Hash, signature []byte) (common.Address, bool) {
	var r, s [32]byte
	var v byte

	switch len(signature) {
	case 65:
		copy(r[:], signature[0:32])
		copy(s[:], signature[32:64])
		v = signature[64]
	case 64:
		// EIP-2098 compact form: the recovery bit rides the high bit of vs.
		copy(r[:], signature[0:32])
		copy(s[:], signature[32:64])
		v = 27 + s[0]>>7
		s[0] &= 0x7f
	default:
		return common.Address{}, false
	}

	if v == 27 || v == 28 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, false
	}
	if new(big.Int).SetBytes(s[:]).Cmp(secp256k1HalfN) > 0 {
		return common.Address{}, false
	}

	sig := make([]byte, 65)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v

	pubkey, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, false
	}
	recovered := crypto.PubkeyToAddress(*pubkey)
	if recovered == (common.Address{}) {
		return common.Address{}, false
	}
	return recovered, true
}

func verifyEIP1271(ctx context.Context, digest common.Hash, signature []byte, owner common.Address, caller ContractCaller) error {
	if caller == nil {
		return ErrInvalidSignature
	}

	code, err := caller.CodeAt(ctx, owner)
	if err != nil || len(code) == 0 {
		return ErrInvalidSignature
	}

	calldata, err := isValidSignatureABI.Pack("isValidSignature", [32]byte(digest), signature)
	if err != nil {
		return ErrInvalidSignature
	}

	ret, err := caller.CallContract(ctx, owner, calldata)
	if err != nil {
		return ErrInvalidSignature
	}

	outputs, err := isValidSignatureABI.Unpack("isValidSignature", ret)
	if err != nil || len(outputs) != 1 {
		return ErrInvalidSignature
	}
	magic, ok := outputs[0].([4]byte)
	if !ok || !bytes.Equal(magic[:], EIP1271MagicValue[:]) {
		return ErrInvalidSignature
	}
	return nil
}
