package permitc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/permithash"
	"github.com/limitbreak/permitc-go/sigverify"
	"github.com/limitbreak/permitc-go/types"
)

// Approve stores an on-chain style approval of operator for up to amount of
// (token, id), valid until expiration. Overwrites any prior approval for the
// same tuple unconditionally. An expiration of 0 resolves to the current
// time: valid only within the issuing second.
func (p *PermitC) Approve(ctx context.Context, owner common.Address, tokenType TokenType, token common.Address, id *uint256.Int, operator common.Address, amount *uint256.Int, expiration uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateTokenType(tokenType); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := validateExpiration(expiration); err != nil {
		return err
	}

	p.storeApproval(owner, tokenType, token, id, operator, amount, expiration)
	return nil
}

// UpdateApprovalBySignature stores an approval authorized by the owner's
// signature instead of a direct call. The signature must arrive before
// req.SigDeadline, and its single-use nonce is consumed.
func (p *PermitC) UpdateApprovalBySignature(ctx context.Context, req UpdateApproval) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateTokenType(req.TokenType); err != nil {
		return err
	}
	if err := validateAmount(req.Amount); err != nil {
		return err
	}
	if err := validateExpiration(req.ApprovalExpiration); err != nil {
		return err
	}
	if p.now() > req.SigDeadline {
		return ErrSignatureDeadlineExpired
	}

	masterNonce := p.store.MasterNonce(req.Owner)
	structHash := permithash.OnChainApproval(
		req.TokenType, req.Token, req.ID, req.Amount, req.Nonce,
		req.Operator, req.ApprovalExpiration, req.SigDeadline, masterNonce,
	)
	digest := permithash.Digest(p.separator, structHash)
	if err := sigverify.Verify(ctx, digest, req.Signature, req.Owner, p.contractCaller); err != nil {
		return err
	}

	if err := p.consumeNonce(req.Owner, req.Nonce); err != nil {
		return err
	}

	p.storeApproval(req.Owner, req.TokenType, req.Token, req.ID, req.Operator, req.Amount, req.ApprovalExpiration)
	return nil
}

// Allowance returns the live amount and expiration approved for operator on
// the transfer-approval path. An expired approval reads back with a zero
// amount but its stored expiration.
func (p *PermitC) Allowance(owner, operator common.Address, tokenType TokenType, token common.Address, id *uint256.Int) (*uint256.Int, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	approval := p.store.TransferApproval(owner, tokenType, token, id, operator)
	return p.liveAllowance(approval)
}

// OrderAllowance is Allowance for the order-approval map.
func (p *PermitC) OrderAllowance(owner, operator common.Address, tokenType TokenType, token common.Address, id *uint256.Int, orderID common.Hash) (*uint256.Int, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	approval := p.store.OrderApproval(owner, tokenType, token, id, orderID, operator)
	return p.liveAllowance(approval)
}

func (p *PermitC) liveAllowance(approval PackedApproval) (*uint256.Int, uint64) {
	if approval.Expiration < p.now() {
		return new(uint256.Int), approval.Expiration
	}
	return approval.Amount, approval.Expiration
}

// TransferFromERC20 moves amount from `from` to `to` using a stored
// approval for operator. The approval amount is decremented on success and
// restored if the token call fails.
func (p *PermitC) TransferFromERC20(ctx context.Context, operator, from, to common.Address, token common.Address, amount *uint256.Int) (TransferResult, error) {
	return p.transferFromStored(ctx, types.TokenTypeERC20, PauseApprovalTransferERC20, operator, from, to, token, nil, amount, false)
}

// TransferFromERC721 moves one token using a stored approval. Using an
// ERC721 approval fully consumes it regardless of its stored amount.
func (p *PermitC) TransferFromERC721(ctx context.Context, operator, from, to common.Address, token common.Address, id *uint256.Int) (TransferResult, error) {
	return p.transferFromStored(ctx, types.TokenTypeERC721, PauseApprovalTransferERC721, operator, from, to, token, id, uint256.NewInt(1), true)
}

// TransferFromERC1155 moves amount of id using a stored approval.
func (p *PermitC) TransferFromERC1155(ctx context.Context, operator, from, to common.Address, token common.Address, id, amount *uint256.Int) (TransferResult, error) {
	return p.transferFromStored(ctx, types.TokenTypeERC1155, PauseApprovalTransferERC1155, operator, from, to, token, id, amount, false)
}

func (p *PermitC) transferFromStored(
	ctx context.Context,
	tokenType types.TokenType,
	flag PauseFlag,
	operator, from, to common.Address,
	token common.Address,
	id, amount *uint256.Int,
	zeroOut bool,
) (TransferResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pause.Paused(flag) {
		return TransferResult{}, ErrPaused
	}
	if err := validateAmount(amount); err != nil {
		return TransferResult{}, err
	}

	deducted, err := p.checkAndDeductApproval(from, tokenType, token, id, operator, amount, zeroOut)
	if err != nil {
		return TransferResult{}, err
	}

	failed, detail := p.executor.Transfer(ctx, tokenType, token, from, to, id, amount)
	if failed {
		p.restoreApproval(from, tokenType, token, id, operator, deducted)
		return TransferResult{Failed: true, Detail: detail}, nil
	}
	return TransferResult{}, nil
}

// checkAndDeductApproval verifies the stored approval covers amount and
// consumes it: zeroed out for ERC721, decremented otherwise. The unlimited
// sentinel is never decremented. Returns the quantity actually deducted so
// a failed transfer can restore it.
func (p *PermitC) checkAndDeductApproval(
	owner common.Address,
	tokenType types.TokenType,
	token common.Address,
	id *uint256.Int,
	operator common.Address,
	amount *uint256.Int,
	zeroOut bool,
) (*uint256.Int, error) {
	approval := p.store.TransferApproval(owner, tokenType, token, id, operator)

	if approval.Expiration < p.now() {
		return nil, ErrPermitExpiredOrUnset
	}
	if approval.Amount.Lt(amount) {
		return nil, ErrExceededPermittedAmount
	}

	deducted := new(uint256.Int)
	if !approval.Unlimited() {
		if zeroOut {
			deducted.Set(approval.Amount)
			approval.Amount.Clear()
		} else {
			deducted.Set(amount)
			approval.Amount.Sub(approval.Amount, amount)
		}
		p.store.SetTransferApproval(owner, tokenType, token, id, operator, approval)
	}
	return deducted, nil
}

// restoreApproval adds a deducted quantity back after a failed transfer.
// No-op when nothing was deducted (unlimited sentinel).
func (p *PermitC) restoreApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, operator common.Address, deducted *uint256.Int) {
	if deducted == nil || deducted.IsZero() {
		return
	}
	approval := p.store.TransferApproval(owner, tokenType, token, id, operator)
	approval.Amount.Add(approval.Amount, deducted)
	p.store.SetTransferApproval(owner, tokenType, token, id, operator, approval)
}

// storeApproval writes the approval, resolving a zero expiration to the
// current time. Must be called with the engine lock held.
func (p *PermitC) storeApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, operator common.Address, amount *uint256.Int, expiration uint64) {
	expiration = p.resolveExpiration(expiration)
	p.store.SetTransferApproval(owner, tokenType, token, id, operator, types.PackedApproval{
		State:      types.StateOpen,
		Amount:     amount,
		Expiration: expiration,
	})
	if p.events != nil {
		p.events.OnApproval(owner, operator, tokenType, token, id, amount, expiration)
	}
}
