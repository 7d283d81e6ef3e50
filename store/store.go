// Package store persists the permitc engine's authorization state: the
// per-owner single-use nonce bitmaps, the packed approval maps for transfer
// and order approvals, per-owner master nonces, and the registered
// additional-data hash sets.
//
// Approval entries are keyed by a content hash that folds in the owner's
// current master nonce. Incrementing the master nonce therefore orphans every
// prior approval in O(1); orphaned entries are never physically deleted,
// matching the append-only audit nature of the ledger this models.
package store

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/types"
)

var (
	// ErrNonceAlreadyUsed is returned when consuming a nonce whose bit is
	// already set.
	ErrNonceAlreadyUsed = errors.New("nonce already used or revoked")

	// ErrNonceNotUsed is returned when restoring a nonce that was never
	// consumed.
	ErrNonceNotUsed = errors.New("nonce not used or revoked")
)

// NonceStore tracks consumed single-use nonces per account. Consume and
// Restore are exact inverses toggling the same bit; each fails when the bit
// is already in the target state.
type NonceStore interface {
	// ConsumeNonce marks nonce as used for owner.
	ConsumeNonce(owner common.Address, nonce uint64) error

	// RestoreNonce clears a previously consumed nonce, making it reusable.
	// Invoked only as compensation when a downstream transfer fails.
	RestoreNonce(owner common.Address, nonce uint64) error

	// IsValidNonce reports whether nonce is still unused for owner.
	IsValidNonce(owner common.Address, nonce uint64) bool
}

// ApprovalStore holds packed approvals for both the direct/signed transfer
// path (orderID fixed to zero) and the order path (orderID caller-chosen),
// in two independent maps sharing the same keying scheme.
type ApprovalStore interface {
	// MasterNonce returns owner's current epoch counter.
	MasterNonce(owner common.Address) uint64

	// IncrementMasterNonce bumps owner's epoch, orphaning every approval
	// created under the previous value. Returns the new epoch.
	IncrementMasterNonce(owner common.Address) uint64

	// TransferApproval reads the stored transfer approval, zero-valued if
	// absent.
	TransferApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, operator common.Address) types.PackedApproval

	// SetTransferApproval unconditionally overwrites the stored transfer
	// approval.
	SetTransferApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, operator common.Address, approval types.PackedApproval)

	// OrderApproval reads the stored order approval, zero-valued if absent.
	OrderApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, orderID common.Hash, operator common.Address) types.PackedApproval

	// SetOrderApproval unconditionally overwrites the stored order approval.
	SetOrderApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, orderID common.Hash, operator common.Address, approval types.PackedApproval)

	// RegisterAdditionalDataHash inserts the derived transfer-domain and
	// order-domain typehashes. Insertion is idempotent and permanent.
	RegisterAdditionalDataHash(transferHash, orderHash common.Hash)

	// RegisterOrderHash inserts a typehash into the order-domain set only.
	// Used for the default order typehash, which has no transfer-domain
	// counterpart.
	RegisterOrderHash(orderHash common.Hash)

	// IsRegisteredTransferHash reports membership in the transfer-domain set.
	IsRegisteredTransferHash(h common.Hash) bool

	// IsRegisteredOrderHash reports membership in the order-domain set.
	IsRegisteredOrderHash(h common.Hash) bool
}

// Store combines both state surfaces; the in-memory implementation backs
// single-process deployments, and integrators may implement it over a shared
// backend.
type Store interface {
	NonceStore
	ApprovalStore
}
