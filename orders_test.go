package permitc

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitbreak/permitc-go/types"
)

func newTestOrder(startAmount uint64) OrderPermit {
	return OrderPermit{
		Token:      testToken,
		Amount:     uint256.NewInt(startAmount),
		Salt:       uint256.NewInt(42),
		Expiration: testNow + 1000,
		OrderID:    common.HexToHash("0x0101"),
	}
}

func TestOrderFillLifecycle(t *testing.T) {
	events := &eventRecorder{}
	p, _ := newTestEngine(WithEventSink(events))
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(50)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	// First fill opens the order and verifies the signature.
	result, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(30), nil)
	require.NoError(t, err)
	require.False(t, result.Failed)
	assert.True(t, result.QuantityFilled.Eq(uint256.NewInt(30)))
	assert.Equal(t, []string{"order_opened", "order_filled"}, events.names)

	remaining, _ := p.OrderAllowance(sgn.Address(), testOperator, TokenTypeERC20, testToken, nil, order.OrderID)
	assert.True(t, remaining.Eq(uint256.NewInt(20)))

	// Once opened, fills trust stored state: the signature is never
	// checked again.
	order.Signature = []byte("garbage")

	// 20 remain; demanding at least 25 must fail without mutating.
	_, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(25), uint256.NewInt(25))
	assert.ErrorIs(t, err, ErrUnableToFillMinimumRequested)
	remaining, _ = p.OrderAllowance(sgn.Address(), testOperator, TokenTypeERC20, testToken, nil, order.OrderID)
	assert.True(t, remaining.Eq(uint256.NewInt(20)))

	// Over-asking clamps to the remainder and closes the order as filled.
	result, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(40), nil)
	require.NoError(t, err)
	require.False(t, result.Failed)
	assert.True(t, result.QuantityFilled.Eq(uint256.NewInt(20)))
	assert.Contains(t, events.names, "order_closed")

	_, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(1), nil)
	assert.ErrorIs(t, err, ErrOrderIsEitherCancelledOrFilled)
}

func TestOrderFillSumNeverExceedsStartAmount(t *testing.T) {
	p, _ := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(50)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	total := new(uint256.Int)
	for _, ask := range []uint64{17, 17, 17, 17} {
		result, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(ask), nil)
		if errors.Is(err, ErrOrderIsEitherCancelledOrFilled) {
			break
		}
		require.NoError(t, err)
		require.False(t, result.Failed)
		total.Add(total, result.QuantityFilled)
	}
	assert.True(t, total.Eq(uint256.NewInt(50)), "fills must sum to exactly the start amount, got %s", total)
}

func TestOrderMinimumFillOnFreshOrder(t *testing.T) {
	p, _ := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(50)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	// Requesting 10 with a 20 minimum fails before anything is persisted.
	_, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), uint256.NewInt(20))
	assert.ErrorIs(t, err, ErrUnableToFillMinimumRequested)

	remaining, _ := p.OrderAllowance(sgn.Address(), testOperator, TokenTypeERC20, testToken, nil, order.OrderID)
	assert.True(t, remaining.IsZero(), "rejected first fill must leave the order unopened")

	// The untouched order is still fully fillable.
	result, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(50), nil)
	require.NoError(t, err)
	assert.True(t, result.QuantityFilled.Eq(uint256.NewInt(50)))
}

func TestOrderRestoreOnTransferFailure(t *testing.T) {
	events := &eventRecorder{}
	p, caller := newTestEngine(WithEventSink(events))
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(50)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	result, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(30), nil)
	require.NoError(t, err)
	require.False(t, result.Failed)

	// The final fill would close the order, but its transfer fails: the
	// quantity comes back and the order reopens.
	caller.failWith = errors.New("insufficient balance")
	result, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(20), nil)
	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.True(t, result.QuantityFilled.IsZero(), "failed fill moves nothing")
	assert.Contains(t, events.names, "order_restored")

	remaining, _ := p.OrderAllowance(sgn.Address(), testOperator, TokenTypeERC20, testToken, nil, order.OrderID)
	assert.True(t, remaining.Eq(uint256.NewInt(20)))

	caller.failWith = nil
	result, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(20), nil)
	require.NoError(t, err)
	require.False(t, result.Failed)
	assert.True(t, result.QuantityFilled.Eq(uint256.NewInt(20)))
}

func TestOrderExpired(t *testing.T) {
	p, _ := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(50)
	order.Expiration = testNow - 1
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	_, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrPermitExpiredOrUnset)
}

func TestOrderUnregisteredTypehash(t *testing.T) {
	p, _ := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(50)
	order.Typehash = common.HexToHash("0x5555")
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	_, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrTypehashNotRegistered)

	// Registering the label makes the custom shape fillable.
	_, orderHash := p.RegisterAdditionalDataHash("CustomOrder(bytes32 extra)")
	order.Typehash = orderHash
	signOrder(t, p, sgn, TokenTypeERC20, &order)
	result, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	require.NoError(t, err)
	assert.False(t, result.Failed)
}

func TestOrderStartAmountTooLarge(t *testing.T) {
	p, _ := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(0)
	order.Amount = new(uint256.Int).AddUint64(types.AmountMax, 1)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	_, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrAmountExceedsStorageMaximum)
}

func TestOrderZeroStartAmount(t *testing.T) {
	p, caller := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(0)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	_, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrZeroOrderStartAmount)
	assert.Equal(t, 0, caller.calls, "degenerate order must not reach the token")

	// Nothing was persisted: the order is neither opened nor closed.
	remaining, _ := p.OrderAllowance(sgn.Address(), testOperator, TokenTypeERC20, testToken, nil, order.OrderID)
	assert.True(t, remaining.IsZero())
	_, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrZeroOrderStartAmount)
}

func TestOrderERC1155(t *testing.T) {
	p, caller := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)

	order := newTestOrder(100)
	order.ID = uint256.NewInt(7)
	signOrder(t, p, sgn, TokenTypeERC1155, &order)

	result, err := p.FillPermittedOrderERC1155(ctx, order, testOperator, testRecipient, uint256.NewInt(60), nil)
	require.NoError(t, err)
	require.False(t, result.Failed)
	assert.True(t, result.QuantityFilled.Eq(uint256.NewInt(60)))
	assert.Equal(t, 1, caller.calls)

	remaining, _ := p.OrderAllowance(sgn.Address(), testOperator, TokenTypeERC1155, testToken, order.ID, order.OrderID)
	assert.True(t, remaining.Eq(uint256.NewInt(40)))
}

func TestClosePermittedOrder(t *testing.T) {
	events := &eventRecorder{}
	p, _ := newTestEngine(WithEventSink(events))
	ctx := context.Background()
	sgn := newTestSigner(t)
	owner := sgn.Address()

	order := newTestOrder(50)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	stranger := common.HexToAddress("0x9999999999999999999999999999999999999999")
	err := p.ClosePermittedOrder(ctx, stranger, owner, TokenTypeERC20, testToken, nil, order.OrderID, testOperator)
	assert.ErrorIs(t, err, ErrCallerNotOwnerOrOperator)

	// Cancelling a never-opened order permanently blocks it.
	require.NoError(t, p.ClosePermittedOrder(ctx, owner, owner, TokenTypeERC20, testToken, nil, order.OrderID, testOperator))
	assert.Contains(t, events.names, "order_cancelled")

	_, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrOrderIsEitherCancelledOrFilled)

	err = p.ClosePermittedOrder(ctx, owner, owner, TokenTypeERC20, testToken, nil, order.OrderID, testOperator)
	assert.ErrorIs(t, err, ErrOrderIsEitherCancelledOrFilled)
}

func TestClosePermittedOrderByOperator(t *testing.T) {
	p, _ := newTestEngine()
	ctx := context.Background()
	sgn := newTestSigner(t)
	owner := sgn.Address()

	order := newTestOrder(50)
	signOrder(t, p, sgn, TokenTypeERC20, &order)

	result, err := p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	require.NoError(t, err)
	require.False(t, result.Failed)

	// The operator abandons the rest of the order.
	require.NoError(t, p.ClosePermittedOrder(ctx, testOperator, owner, TokenTypeERC20, testToken, nil, order.OrderID, testOperator))

	remaining, _ := p.OrderAllowance(owner, testOperator, TokenTypeERC20, testToken, nil, order.OrderID)
	assert.True(t, remaining.IsZero())
	_, err = p.FillPermittedOrderERC20(ctx, order, testOperator, testRecipient, uint256.NewInt(10), nil)
	assert.ErrorIs(t, err, ErrOrderIsEitherCancelledOrFilled)
}
