package permitc

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/permithash"
	"github.com/limitbreak/permitc-go/sigverify"
	"github.com/limitbreak/permitc-go/store"
	"github.com/limitbreak/permitc-go/transfer"
	"github.com/limitbreak/permitc-go/types"
)

// PermitC composes the hash engine, signature verifier, nonce registry,
// approval store, order engine, transfer executor and pause gate behind the
// public approve/transfer/fill/lockdown API.
//
// Operations are serialized by a single engine lock, mirroring the
// sequential transaction execution of the ledger this models. State is
// always written before the external token call; a failed call compensates
// the provisionally consumed nonce or approval amount afterward.
type PermitC struct {
	mu sync.Mutex

	domain    permithash.Domain
	separator common.Hash

	store          store.Store
	executor       *transfer.Executor
	contractCaller sigverify.ContractCaller
	pause          *PauseGate
	events         EventSink
	now            func() uint64

	transferHooks       []transfer.BeforeTransferHook
	pauseAuthorizer     PauseAuthorizer
	collateralThreshold *uint256.Int
}

// New creates an engine for the given EIP-712 domain. tokenCaller performs
// the actual token contract calls; pass nil only if no operation will ever
// reach a transfer (e.g. pure validation deployments).
func New(domain permithash.Domain, tokenCaller transfer.TokenCaller, opts ...Option) *PermitC {
	p := &PermitC{
		domain:    domain,
		separator: domain.Separator(),
		now:       defaultTimeSource,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.store == nil {
		p.store = store.NewMemoryStore()
	}
	p.executor = transfer.NewExecutor(tokenCaller, p.transferHooks...)
	p.pause = newPauseGate(p.collateralThreshold, p.pauseAuthorizer)

	// The default order typehash is always registered so plain order fills
	// work without a custom label registration. It goes into the order set
	// only; the basic permit shape is not an advanced transfer shape.
	p.store.RegisterOrderHash(permithash.OrderTypehash)

	return p
}

// DomainSeparator returns the EIP-712 domain separator digests are bound to.
func (p *PermitC) DomainSeparator() common.Hash {
	return p.separator
}

// Pause sets the paused operation flags, optionally topping up collateral.
func (p *PermitC) Pause(caller common.Address, flags PauseFlag, topUp *uint256.Int) error {
	return p.pause.Pause(caller, flags, topUp)
}

// Unpause clears all paused flags and optionally sweeps collateral to
// withdrawTo.
func (p *PermitC) Unpause(caller common.Address, withdrawTo common.Address, amount *uint256.Int) (*uint256.Int, error) {
	return p.pause.Unpause(caller, withdrawTo, amount)
}

// PauseGate exposes the gate for inspection.
func (p *PermitC) PauseGate() *PauseGate {
	return p.pause
}

// PermitTransferFromERC20 consumes a signed single-use permit and moves
// transferAmount of permit.Token from the owner to `to`. operator is the
// authenticated submitter and must match the spender bound into the
// signature. Validation failures return an error with no state changed; a
// failed token call restores the nonce and reports through the result.
func (p *PermitC) PermitTransferFromERC20(ctx context.Context, permit PermitTransfer, operator, to common.Address, transferAmount *uint256.Int) (TransferResult, error) {
	return p.permitTransferFrom(ctx, types.TokenTypeERC20, PausePermittedTransferERC20, permit, operator, to, transferAmount, nil)
}

// PermitTransferFromERC721 consumes a signed single-use permit for one
// ERC721 token.
func (p *PermitC) PermitTransferFromERC721(ctx context.Context, permit PermitTransfer, operator, to common.Address) (TransferResult, error) {
	return p.permitTransferFrom(ctx, types.TokenTypeERC721, PausePermittedTransferERC721, permit, operator, to, uint256.NewInt(1), nil)
}

// PermitTransferFromERC1155 consumes a signed single-use permit and moves
// transferAmount of the permitted id.
func (p *PermitC) PermitTransferFromERC1155(ctx context.Context, permit PermitTransfer, operator, to common.Address, transferAmount *uint256.Int) (TransferResult, error) {
	return p.permitTransferFrom(ctx, types.TokenTypeERC1155, PausePermittedTransferERC1155, permit, operator, to, transferAmount, nil)
}

// PermitTransferFromWithAdditionalDataERC20 is the advanced-permit variant:
// the signed payload carries additional protocol data under a typehash that
// must have been registered via RegisterAdditionalDataHash.
func (p *PermitC) PermitTransferFromWithAdditionalDataERC20(ctx context.Context, permit PermitTransfer, additional AdditionalData, operator, to common.Address, transferAmount *uint256.Int) (TransferResult, error) {
	return p.permitTransferFrom(ctx, types.TokenTypeERC20, PausePermittedTransferERC20, permit, operator, to, transferAmount, &additional)
}

// PermitTransferFromWithAdditionalDataERC721 is the advanced-permit ERC721
// variant.
func (p *PermitC) PermitTransferFromWithAdditionalDataERC721(ctx context.Context, permit PermitTransfer, additional AdditionalData, operator, to common.Address) (TransferResult, error) {
	return p.permitTransferFrom(ctx, types.TokenTypeERC721, PausePermittedTransferERC721, permit, operator, to, uint256.NewInt(1), &additional)
}

// PermitTransferFromWithAdditionalDataERC1155 is the advanced-permit ERC1155
// variant.
func (p *PermitC) PermitTransferFromWithAdditionalDataERC1155(ctx context.Context, permit PermitTransfer, additional AdditionalData, operator, to common.Address, transferAmount *uint256.Int) (TransferResult, error) {
	return p.permitTransferFrom(ctx, types.TokenTypeERC1155, PausePermittedTransferERC1155, permit, operator, to, transferAmount, &additional)
}

func (p *PermitC) permitTransferFrom(
	ctx context.Context,
	tokenType types.TokenType,
	flag PauseFlag,
	permit PermitTransfer,
	operator, to common.Address,
	transferAmount *uint256.Int,
	additional *AdditionalData,
) (TransferResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pause.Paused(flag) {
		return TransferResult{}, ErrPaused
	}
	if err := validateAmount(permit.Amount); err != nil {
		return TransferResult{}, err
	}
	if err := validateAmount(transferAmount); err != nil {
		return TransferResult{}, err
	}
	if err := validateExpiration(permit.Expiration); err != nil {
		return TransferResult{}, err
	}
	if transferAmount.Gt(permit.Amount) {
		return TransferResult{}, ErrExceededPermittedAmount
	}
	// Expiration 0 means "valid only at submission time".
	if p.resolveExpiration(permit.Expiration) < p.now() {
		return TransferResult{}, ErrPermitExpiredOrUnset
	}

	masterNonce := p.store.MasterNonce(permit.Owner)
	var structHash common.Hash
	if additional != nil {
		if !p.store.IsRegisteredTransferHash(additional.Typehash) {
			return TransferResult{}, ErrTypehashNotRegistered
		}
		structHash = permithash.SingleUsePermitWithAdditionalData(
			tokenType, permit.Token, permit.ID, permit.Amount, permit.Nonce,
			operator, permit.Expiration, masterNonce,
			additional.Data, additional.Typehash,
		)
	} else {
		structHash = permithash.SingleUsePermit(
			tokenType, permit.Token, permit.ID, permit.Amount, permit.Nonce,
			operator, permit.Expiration, masterNonce,
		)
	}
	digest := permithash.Digest(p.separator, structHash)
	if err := sigverify.Verify(ctx, digest, permit.Signature, permit.Owner, p.contractCaller); err != nil {
		return TransferResult{}, err
	}

	if err := p.consumeNonce(permit.Owner, permit.Nonce); err != nil {
		return TransferResult{}, err
	}

	failed, detail := p.executor.Transfer(ctx, tokenType, permit.Token, permit.Owner, to, permit.ID, transferAmount)
	if failed {
		// A failed transfer must not burn the signer's nonce.
		if err := p.store.RestoreNonce(permit.Owner, permit.Nonce); err != nil {
			return TransferResult{}, err
		}
		return TransferResult{Failed: true, Detail: detail}, nil
	}
	return TransferResult{}, nil
}

func (p *PermitC) consumeNonce(owner common.Address, nonce uint64) error {
	if err := p.store.ConsumeNonce(owner, nonce); err != nil {
		return ErrNonceAlreadyUsedOrRevoked
	}
	return nil
}

func (p *PermitC) resolveExpiration(expiration uint64) uint64 {
	if expiration == 0 {
		return p.now()
	}
	return expiration
}

func validateAmount(amount *uint256.Int) error {
	if amount == nil || amount.Gt(types.AmountMax) {
		return ErrAmountExceedsStorageMaximum
	}
	return nil
}

func validateExpiration(expiration uint64) error {
	if expiration > types.ExpirationMax {
		return ErrExpirationExceedsStorageMax
	}
	return nil
}

func validateTokenType(tokenType types.TokenType) error {
	if !tokenType.Valid() {
		return ErrInvalidTokenType
	}
	return nil
}
