package permitc

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PauseFlag selects which operation families a pause affects.
type PauseFlag uint64

const (
	PauseApprovalTransferERC20 PauseFlag = 1 << iota
	PauseApprovalTransferERC721
	PauseApprovalTransferERC1155
	PausePermittedTransferERC20
	PausePermittedTransferERC721
	PausePermittedTransferERC1155
	PauseOrderFillERC20
	PauseOrderFillERC1155
)

// PauseAuthorizer decides whether caller may pause or unpause. The composing
// application supplies it (typically an ownership check).
type PauseAuthorizer func(caller common.Address) bool

// PauseGate is the collateral-gated emergency stop. Pausing costs locked
// collateral: unless held collateral exceeds the configured threshold, the
// paused-flags check is skipped entirely, so frivolous pausing is
// disincentivized while a funded emergency stop always works.
//
// With a zero threshold the gate runs in always-check mode. The mode is
// fixed at construction.
type PauseGate struct {
	mu         sync.Mutex
	flags      PauseFlag
	collateral *uint256.Int

	// threshold-1, enabling a strict > comparison; nil selects
	// always-check mode.
	thresholdMinusOne *uint256.Int

	authorize PauseAuthorizer
}

func newPauseGate(threshold *uint256.Int, authorize PauseAuthorizer) *PauseGate {
	g := &PauseGate{
		collateral: new(uint256.Int),
		authorize:  authorize,
	}
	if threshold != nil && !threshold.IsZero() {
		g.thresholdMinusOne = new(uint256.Int).SubUint64(threshold, 1)
	}
	return g
}

// Pause sets the paused flags, optionally topping up collateral in the same
// call so enforcement can be funded atomically.
func (g *PauseGate) Pause(caller common.Address, flags PauseFlag, topUp *uint256.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.authorize == nil || !g.authorize(caller) {
		return ErrNotAuthorizedToPause
	}
	if topUp != nil {
		g.collateral.Add(g.collateral, topUp)
	}
	g.flags = flags
	return nil
}

// Unpause clears every paused flag and optionally sweeps collateral out.
// withdrawTo identifies the recipient for the integration layer; the gate
// only accounts for the amount.
func (g *PauseGate) Unpause(caller common.Address, withdrawTo common.Address, amount *uint256.Int) (*uint256.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.authorize == nil || !g.authorize(caller) {
		return nil, ErrNotAuthorizedToPause
	}
	withdrawn := new(uint256.Int)
	if amount != nil && !amount.IsZero() {
		if amount.Gt(g.collateral) {
			return nil, ErrWithdrawExceedsCollateral
		}
		g.collateral.Sub(g.collateral, amount)
		withdrawn.Set(amount)
	}
	g.flags = 0
	return withdrawn, nil
}

// Paused reports whether flag is currently enforced. In collateral-gated
// mode the flag check is skipped unless collateral strictly exceeds
// threshold-1.
func (g *PauseGate) Paused(flag PauseFlag) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.thresholdMinusOne != nil && !g.collateral.Gt(g.thresholdMinusOne) {
		return false
	}
	return g.flags&flag != 0
}

// Flags returns the raw flag mask regardless of collateral gating.
func (g *PauseGate) Flags() PauseFlag {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flags
}

// Collateral returns the currently held collateral.
func (g *PauseGate) Collateral() *uint256.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(uint256.Int).Set(g.collateral)
}
