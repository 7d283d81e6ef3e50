// Package permitc composes the permit/approval and order-fulfillment engine:
// stored approvals, single-use signed permits, and partially fillable signed
// orders over ERC20/721/1155 transfers, with nonce-based replay protection,
// master-nonce lockdown, and a collateral-gated pause mechanism.
package permitc

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/types"
)

// Re-exported core types so integrators only import the root package.
type (
	TokenType      = types.TokenType
	ApprovalState  = types.ApprovalState
	PackedApproval = types.PackedApproval
)

const (
	TokenTypeERC20   = types.TokenTypeERC20
	TokenTypeERC721  = types.TokenTypeERC721
	TokenTypeERC1155 = types.TokenTypeERC1155

	StateOpen      = types.StateOpen
	StateFilled    = types.StateFilled
	StateCancelled = types.StateCancelled
)

// PermitTransfer is a signed single-use transfer authorization. The operator
// that submits it is bound into the signed digest implicitly, so the permit
// cannot be redeemed by anyone else.
type PermitTransfer struct {
	Token      common.Address
	ID         *uint256.Int // nil for ERC20
	Amount     *uint256.Int // permitted maximum
	Nonce      uint64
	Expiration uint64 // 0 means valid only at submission time
	Owner      common.Address
	Signature  []byte
}

// AdditionalData extends a PermitTransfer with a protocol-specific payload
// under a pre-registered typehash.
type AdditionalData struct {
	Data     common.Hash
	Typehash common.Hash
}

// OrderPermit is a signed, partially fillable transfer authorization tracked
// by a caller-chosen order ID.
type OrderPermit struct {
	Token      common.Address
	ID         *uint256.Int // nil for ERC20
	Amount     *uint256.Int // order start amount, fixed by the first verification
	Salt       *uint256.Int
	Expiration uint64
	Owner      common.Address
	OrderID    common.Hash
	Typehash   common.Hash // zero selects the default order typehash
	Signature  []byte
}

// UpdateApproval is a signed stored-approval update.
type UpdateApproval struct {
	TokenType          TokenType
	Token              common.Address
	ID                 *uint256.Int
	Nonce              uint64
	Amount             *uint256.Int
	Operator           common.Address
	ApprovalExpiration uint64
	SigDeadline        uint64
	Owner              common.Address
	Signature          []byte
}

// TransferResult reports the outcome of the token movement itself. Failed is
// true when the external token call reverted or was vetoed; the enclosing
// permit/approval state has already been compensated by then.
type TransferResult struct {
	Failed bool
	Detail error
}

// FillResult reports an order fill. QuantityFilled is zero whenever Failed
// is true: a failed transfer moves nothing and the order is restored.
type FillResult struct {
	QuantityFilled *uint256.Int
	Failed         bool
	Detail         error
}

// EventSink receives lifecycle notifications, mirroring the events the
// on-chain form of this engine emits. All methods are called synchronously
// under the engine's operation lock; implementations should be quick.
type EventSink interface {
	OnApproval(owner, operator common.Address, tokenType TokenType, token common.Address, id, amount *uint256.Int, expiration uint64)
	OnNonceInvalidated(owner common.Address, nonce uint64)
	OnLockdown(owner common.Address, masterNonce uint64)
	OnOrderOpened(orderID common.Hash, owner, operator common.Address, startAmount *uint256.Int)
	OnOrderFilled(orderID common.Hash, owner, operator common.Address, amount *uint256.Int)
	OnOrderRestored(orderID common.Hash, owner common.Address, amountRestored *uint256.Int)
	OnOrderClosed(orderID common.Hash, owner, operator common.Address, cancelled bool)
}
