// Package types defines the core data model shared by the permitc engine
// packages: token types, approval state, and the packed approval record that
// backs both stored approvals and partially fillable orders.
package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

// TokenType identifies which token standard a transfer targets.
// The set is closed; transfer dispatch switches over it.
type TokenType uint16

const (
	TokenTypeERC721  TokenType = 721
	TokenTypeERC1155 TokenType = 1155
	TokenTypeERC20   TokenType = 20
)

// Valid reports whether tt is one of the three supported standards.
func (tt TokenType) Valid() bool {
	switch tt {
	case TokenTypeERC20, TokenTypeERC721, TokenTypeERC1155:
		return true
	}
	return false
}

func (tt TokenType) String() string {
	switch tt {
	case TokenTypeERC20:
		return "ERC20"
	case TokenTypeERC721:
		return "ERC721"
	case TokenTypeERC1155:
		return "ERC1155"
	}
	return fmt.Sprintf("TokenType(%d)", uint16(tt))
}

// ApprovalState tracks the lifecycle of an order approval.
// It is meaningful only for order approvals; plain transfer approvals
// always carry StateOpen.
type ApprovalState uint8

const (
	StateOpen      ApprovalState = 0
	StateFilled    ApprovalState = 1
	StateCancelled ApprovalState = 2
)

func (s ApprovalState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFilled:
		return "filled"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("ApprovalState(%d)", uint8(s))
}

var (
	// AmountMax is the largest amount an approval can persist (2^200 - 1).
	// It doubles as the "unlimited" sentinel: an approval holding exactly
	// AmountMax is never decremented by successful transfers.
	AmountMax = func() *uint256.Int {
		one := uint256.NewInt(1)
		max := new(uint256.Int).Lsh(one, 200)
		return max.Sub(max, one)
	}()

	// ExpirationMax is the largest representable expiration timestamp
	// (48-bit unsigned seconds).
	ExpirationMax = uint64(1)<<48 - 1
)

// PackedApproval is the sole persistent unit of authorization state.
// Amount is monotonically consumed by successful transfers (unless it is the
// AmountMax sentinel) and restored by failed ones. State only moves forward
// Open->Filled or Open->Cancelled, except the explicit restore path that
// reopens a Filled order whose transfer failed downstream.
type PackedApproval struct {
	State      ApprovalState
	Amount     *uint256.Int
	Expiration uint64
}

// Clone returns a deep copy, safe to mutate independently.
func (a PackedApproval) Clone() PackedApproval {
	amount := new(uint256.Int)
	if a.Amount != nil {
		amount.Set(a.Amount)
	}
	return PackedApproval{State: a.State, Amount: amount, Expiration: a.Expiration}
}

// Unlimited reports whether the approval carries the never-decremented
// AmountMax sentinel.
func (a PackedApproval) Unlimited() bool {
	return a.Amount != nil && a.Amount.Eq(AmountMax)
}

// Zero reports whether the approval is indistinguishable from
// never-initialized storage.
func (a PackedApproval) Zero() bool {
	return a.State == StateOpen && (a.Amount == nil || a.Amount.IsZero()) && a.Expiration == 0
}
