// Package permithash builds the EIP-712 typed-data digests consumed by the
// permitc engine: on-chain approval updates, single-use permits (with and
// without additional data), and partially fillable order permits.
//
// Hashing is pure. Field order and widths exactly mirror the canonical type
// strings below; any mismatch against the off-chain signer silently
// invalidates every signature, so the encoders never reorder or truncate.
package permithash

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/types"
)

// Canonical EIP-712 type strings. The stub strings are completed with a
// caller-supplied label at registration time (see AdditionalDataTypehashes),
// letting integrators extend the signed payload without this package knowing
// its shape.
const (
	eip712DomainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"

	updateApprovalType = "UpdateApprovalBySignature(uint256 tokenType,address token,uint256 id,uint256 amount,uint256 nonce,address operator,uint256 approvalExpiration,uint256 sigDeadline,uint256 masterNonce)"

	singleUsePermitType = "PermitTransferFrom(uint256 tokenType,address token,uint256 id,uint256 amount,uint256 nonce,address operator,uint256 expiration,uint256 masterNonce)"

	orderType = "PermitOrder(uint256 tokenType,address token,uint256 id,uint256 amount,address owner,uint256 salt,uint256 expiration,bytes32 orderId)"

	// TransferAdditionalDataStub prefixes the type string of every advanced
	// single-use permit shape.
	TransferAdditionalDataStub = "PermitTransferFromWithAdditionalData(uint256 tokenType,address token,uint256 id,uint256 amount,uint256 nonce,address operator,uint256 expiration,uint256 masterNonce,"

	// OrderAdditionalDataStub prefixes the type string of every advanced
	// order permit shape.
	OrderAdditionalDataStub = "PermitOrderWithAdditionalData(uint256 tokenType,address token,uint256 id,uint256 amount,address owner,uint256 salt,uint256 expiration,bytes32 orderId,"
)

var (
	// DomainTypehash is the typehash of the EIP-712 domain struct.
	DomainTypehash = crypto.Keccak256Hash([]byte(eip712DomainType))

	// UpdateApprovalTypehash covers signed stored-approval updates.
	UpdateApprovalTypehash = crypto.Keccak256Hash([]byte(updateApprovalType))

	// SingleUsePermitTypehash covers basic single-use transfer permits.
	SingleUsePermitTypehash = crypto.Keccak256Hash([]byte(singleUsePermitType))

	// OrderTypehash covers basic order permits. The engine registers it in
	// the order-domain hash set at construction so plain order fills work
	// without a custom registration.
	OrderTypehash = crypto.Keccak256Hash([]byte(orderType))
)

// Domain holds the EIP-712 domain separator parameters supplied at engine
// construction.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Separator computes the EIP-712 domain separator:
// keccak256(abi.encode(typehash, keccak256(name), keccak256(version), chainId, verifyingContract)).
func (d Domain) Separator() common.Hash {
	chainID := new(uint256.Int)
	if d.ChainID != nil {
		chainID.SetFromBig(d.ChainID)
	}
	return keccakWords(
		wordHash(DomainTypehash),
		wordHash(crypto.Keccak256Hash([]byte(d.Name))),
		wordHash(crypto.Keccak256Hash([]byte(d.Version))),
		wordU256(chainID),
		wordAddress(d.VerifyingContract),
	)
}

// Digest assembles the final signable digest:
// keccak256(0x19 || 0x01 || domainSeparator || structHash).
func Digest(separator, structHash common.Hash) common.Hash {
	raw := make([]byte, 0, 2+32+32)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, separator.Bytes()...)
	raw = append(raw, structHash.Bytes()...)
	return crypto.Keccak256Hash(raw)
}

// OnChainApproval hashes a signed stored-approval update. masterNonce binds
// the signature to the owner's current epoch so lockdown invalidates it.
func OnChainApproval(
	tokenType types.TokenType,
	token common.Address,
	id *uint256.Int,
	amount *uint256.Int,
	nonce uint64,
	operator common.Address,
	approvalExpiration uint64,
	sigDeadline uint64,
	masterNonce uint64,
) common.Hash {
	return keccakWords(
		wordHash(UpdateApprovalTypehash),
		wordUint(uint64(tokenType)),
		wordAddress(token),
		wordU256(id),
		wordU256(amount),
		wordUint(nonce),
		wordAddress(operator),
		wordUint(approvalExpiration),
		wordUint(sigDeadline),
		wordUint(masterNonce),
	)
}

// SingleUsePermit hashes a single-use transfer permit. The operator is the
// submitting spender, captured at submission time rather than signed as a
// free-form field, so the permit cannot be redeemed by anyone else.
func SingleUsePermit(
	tokenType types.TokenType,
	token common.Address,
	id *uint256.Int,
	amount *uint256.Int,
	nonce uint64,
	operator common.Address,
	expiration uint64,
	masterNonce uint64,
) common.Hash {
	return keccakWords(
		wordHash(SingleUsePermitTypehash),
		wordUint(uint64(tokenType)),
		wordAddress(token),
		wordU256(id),
		wordU256(amount),
		wordUint(nonce),
		wordAddress(operator),
		wordUint(expiration),
		wordUint(masterNonce),
	)
}

// SingleUsePermitWithAdditionalData hashes an advanced single-use permit
// under a caller-selected typehash. The typehash must have been registered
// via the stub-string derivation; the engine enforces that before calling
// here.
func SingleUsePermitWithAdditionalData(
	tokenType types.TokenType,
	token common.Address,
	id *uint256.Int,
	amount *uint256.Int,
	nonce uint64,
	operator common.Address,
	expiration uint64,
	masterNonce uint64,
	additionalData common.Hash,
	advancedTypehash common.Hash,
) common.Hash {
	return keccakWords(
		wordHash(advancedTypehash),
		wordUint(uint64(tokenType)),
		wordAddress(token),
		wordU256(id),
		wordU256(amount),
		wordUint(nonce),
		wordAddress(operator),
		wordUint(expiration),
		wordUint(masterNonce),
		wordHash(additionalData),
	)
}

// Order hashes an order permit. The signature fixes orderStartAmount the
// first time an order is opened; later fills trust stored state.
func Order(
	tokenType types.TokenType,
	token common.Address,
	id *uint256.Int,
	orderStartAmount *uint256.Int,
	owner common.Address,
	salt *uint256.Int,
	expiration uint64,
	orderID common.Hash,
	orderTypehash common.Hash,
) common.Hash {
	return keccakWords(
		wordHash(orderTypehash),
		wordUint(uint64(tokenType)),
		wordAddress(token),
		wordU256(id),
		wordU256(orderStartAmount),
		wordAddress(owner),
		wordU256(salt),
		wordUint(expiration),
		wordHash(orderID),
	)
}

// AdditionalDataTypehashes derives the transfer-domain and order-domain
// typehashes for a caller-supplied label by completing the fixed stub
// strings. Anyone can register any label; registration conveys no trust by
// itself.
func AdditionalDataTypehashes(label string) (transferHash, orderHash common.Hash) {
	transferHash = crypto.Keccak256Hash([]byte(TransferAdditionalDataStub + label))
	orderHash = crypto.Keccak256Hash([]byte(OrderAdditionalDataStub + label))
	return transferHash, orderHash
}
