package permitc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/permithash"
	"github.com/limitbreak/permitc-go/sigverify"
	"github.com/limitbreak/permitc-go/types"
)

// FillPermittedOrderERC20 fills up to requestedFillAmount of a signed ERC20
// order, moving the filled quantity from the order owner to `to`.
//
// The signature is verified only the first time an order ID is seen; that
// verification permanently fixes the order's start amount. The requested
// amount is clamped to the order's remaining amount, and the fill aborts if
// the clamped quantity is below minimumFillAmount, protecting fillers racing
// concurrent fills from unacceptably small partials.
func (p *PermitC) FillPermittedOrderERC20(ctx context.Context, order OrderPermit, operator, to common.Address, requestedFillAmount, minimumFillAmount *uint256.Int) (FillResult, error) {
	return p.fillPermittedOrder(ctx, types.TokenTypeERC20, PauseOrderFillERC20, order, operator, to, requestedFillAmount, minimumFillAmount)
}

// FillPermittedOrderERC1155 fills up to requestedFillAmount of a signed
// ERC1155 order for order.ID.
func (p *PermitC) FillPermittedOrderERC1155(ctx context.Context, order OrderPermit, operator, to common.Address, requestedFillAmount, minimumFillAmount *uint256.Int) (FillResult, error) {
	return p.fillPermittedOrder(ctx, types.TokenTypeERC1155, PauseOrderFillERC1155, order, operator, to, requestedFillAmount, minimumFillAmount)
}

func (p *PermitC) fillPermittedOrder(
	ctx context.Context,
	tokenType types.TokenType,
	flag PauseFlag,
	order OrderPermit,
	operator, to common.Address,
	requestedFillAmount, minimumFillAmount *uint256.Int,
) (FillResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pause.Paused(flag) {
		return FillResult{}, ErrPaused
	}
	// Reject up front: the first verification would otherwise fix an
	// amount the store cannot represent.
	if err := validateAmount(order.Amount); err != nil {
		return FillResult{}, err
	}
	// A zero start amount would open the order already Filled and still
	// reach the token contract with a zero quantity.
	if order.Amount.IsZero() {
		return FillResult{}, ErrZeroOrderStartAmount
	}
	if err := validateAmount(requestedFillAmount); err != nil {
		return FillResult{}, err
	}
	if err := validateExpiration(order.Expiration); err != nil {
		return FillResult{}, err
	}

	orderTypehash := order.Typehash
	if orderTypehash == (common.Hash{}) {
		orderTypehash = permithash.OrderTypehash
	}
	if !p.store.IsRegisteredOrderHash(orderTypehash) {
		return FillResult{}, ErrTypehashNotRegistered
	}

	approval := p.store.OrderApproval(order.Owner, tokenType, order.Token, order.ID, order.OrderID, operator)
	if approval.State != types.StateOpen {
		return FillResult{}, ErrOrderIsEitherCancelledOrFilled
	}

	opened := false
	if approval.Amount.IsZero() {
		// First touch: verify the signature binding the start amount.
		// Later fills trust stored state and never re-verify.
		structHash := permithash.Order(
			tokenType, order.Token, order.ID, order.Amount, order.Owner,
			order.Salt, order.Expiration, order.OrderID, orderTypehash,
		)
		digest := permithash.Digest(p.separator, structHash)
		if err := sigverify.Verify(ctx, digest, order.Signature, order.Owner, p.contractCaller); err != nil {
			return FillResult{}, err
		}
		approval.Amount.Set(order.Amount)
		approval.Expiration = p.resolveExpiration(order.Expiration)
		opened = true
	}

	if approval.Expiration < p.now() {
		return FillResult{}, ErrPermitExpiredOrUnset
	}

	// Clamp the request down to what remains.
	fill := new(uint256.Int).Set(requestedFillAmount)
	if fill.Gt(approval.Amount) {
		fill.Set(approval.Amount)
	}
	if minimumFillAmount != nil && fill.Lt(minimumFillAmount) {
		return FillResult{}, ErrUnableToFillMinimumRequested
	}

	restoreAmount := new(uint256.Int)
	if !approval.Unlimited() {
		restoreAmount.Set(fill)
		approval.Amount.Sub(approval.Amount, fill)
		if approval.Amount.IsZero() {
			approval.State = types.StateFilled
		}
	}

	// Persist before the external token call.
	p.store.SetOrderApproval(order.Owner, tokenType, order.Token, order.ID, order.OrderID, operator, approval)
	if opened && p.events != nil {
		p.events.OnOrderOpened(order.OrderID, order.Owner, operator, order.Amount)
	}

	failed, detail := p.executor.Transfer(ctx, tokenType, order.Token, order.Owner, to, order.ID, fill)
	if failed {
		p.restoreOrder(order.Owner, tokenType, order.Token, order.ID, order.OrderID, operator, restoreAmount)
		return FillResult{QuantityFilled: new(uint256.Int), Failed: true, Detail: detail}, nil
	}

	if p.events != nil {
		p.events.OnOrderFilled(order.OrderID, order.Owner, operator, fill)
		if approval.State == types.StateFilled {
			p.events.OnOrderClosed(order.OrderID, order.Owner, operator, false)
		}
	}
	return FillResult{QuantityFilled: fill}, nil
}

// restoreOrder adds the filled-but-unsent quantity back and reopens a
// prematurely Filled order after a failed transfer.
func (p *PermitC) restoreOrder(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, orderID common.Hash, operator common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	approval := p.store.OrderApproval(owner, tokenType, token, id, orderID, operator)
	approval.Amount.Add(approval.Amount, amount)
	approval.State = types.StateOpen
	p.store.SetOrderApproval(owner, tokenType, token, id, orderID, operator, approval)
	if p.events != nil {
		p.events.OnOrderRestored(orderID, owner, amount)
	}
}

// ClosePermittedOrder cancels an order that is still Open. Callable by the
// order owner or the operator; cancelling an order that was never opened
// permanently prevents it from opening.
func (p *PermitC) ClosePermittedOrder(ctx context.Context, caller, owner common.Address, tokenType TokenType, token common.Address, id *uint256.Int, orderID common.Hash, operator common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateTokenType(tokenType); err != nil {
		return err
	}
	if caller != owner && caller != operator {
		return ErrCallerNotOwnerOrOperator
	}

	approval := p.store.OrderApproval(owner, tokenType, token, id, orderID, operator)
	if approval.State != types.StateOpen {
		return ErrOrderIsEitherCancelledOrFilled
	}

	approval.State = types.StateCancelled
	approval.Amount.Clear()
	approval.Expiration = 0
	p.store.SetOrderApproval(owner, tokenType, token, id, orderID, operator, approval)

	if p.events != nil {
		p.events.OnOrderClosed(orderID, owner, operator, true)
	}
	return nil
}
