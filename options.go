package permitc

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/sigverify"
	"github.com/limitbreak/permitc-go/store"
	"github.com/limitbreak/permitc-go/transfer"
)

// Option configures a PermitC engine at construction.
type Option func(*PermitC)

// WithStore replaces the default in-memory state store.
func WithStore(s store.Store) Option {
	return func(p *PermitC) {
		p.store = s
	}
}

// WithContractCaller enables the EIP-1271 contract-signature fallback.
// Without it, only ECDSA signatures verify.
func WithContractCaller(caller sigverify.ContractCaller) Option {
	return func(p *PermitC) {
		p.contractCaller = caller
	}
}

// WithBeforeTransferHook registers a pre-transfer policy hook (blocklists
// and the like). A hook reporting an error skips the token call entirely.
func WithBeforeTransferHook(hook transfer.BeforeTransferHook) Option {
	return func(p *PermitC) {
		p.transferHooks = append(p.transferHooks, hook)
	}
}

// WithEventSink registers a lifecycle event receiver.
func WithEventSink(sink EventSink) Option {
	return func(p *PermitC) {
		p.events = sink
	}
}

// WithPauseAuthorizer sets the pause/unpause authorization check. Without
// one, every pause attempt is rejected.
func WithPauseAuthorizer(authorize PauseAuthorizer) Option {
	return func(p *PermitC) {
		p.pauseAuthorizer = authorize
	}
}

// WithOwner is shorthand for a PauseAuthorizer that admits a single owner
// address.
func WithOwner(owner common.Address) Option {
	return WithPauseAuthorizer(func(caller common.Address) bool {
		return caller == owner
	})
}

// WithCollateralThreshold puts the pause gate into collateral-gated mode:
// paused flags are only enforced while held collateral meets the threshold.
// Zero (the default) selects always-check mode.
func WithCollateralThreshold(threshold *uint256.Int) Option {
	return func(p *PermitC) {
		p.collateralThreshold = threshold
	}
}

// WithTimeSource overrides the clock used for expiration checks. Intended
// for tests.
func WithTimeSource(now func() uint64) Option {
	return func(p *PermitC) {
		p.now = now
	}
}

func defaultTimeSource() uint64 {
	return uint64(time.Now().Unix())
}
