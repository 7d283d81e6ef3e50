package permitc

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/limitbreak/permitc-go/permithash"
	"github.com/limitbreak/permitc-go/signer"
)

// Fixed clock for every engine test; expirations are offsets from this.
const testNow uint64 = 1_700_000_000

// Well-known throwaway development key.
const testSignerKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	testToken     = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testOperator  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testRecipient = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func testDomain() permithash.Domain {
	return permithash.Domain{
		Name:              "PermitC",
		Version:           "1",
		ChainID:           big.NewInt(1),
		VerifyingContract: common.HexToAddress("0x4444444444444444444444444444444444444444"),
	}
}

// engineTokenCaller counts token calls and fails on demand.
type engineTokenCaller struct {
	calls    int
	failWith error
}

func (m *engineTokenCaller) WriteContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	m.calls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	return nil, nil
}

// eventRecorder captures the sequence of lifecycle event names.
type eventRecorder struct {
	names []string
}

func (r *eventRecorder) OnApproval(owner, operator common.Address, tokenType TokenType, token common.Address, id, amount *uint256.Int, expiration uint64) {
	r.names = append(r.names, "approval")
}

func (r *eventRecorder) OnNonceInvalidated(owner common.Address, nonce uint64) {
	r.names = append(r.names, "nonce_invalidated")
}

func (r *eventRecorder) OnLockdown(owner common.Address, masterNonce uint64) {
	r.names = append(r.names, "lockdown")
}

func (r *eventRecorder) OnOrderOpened(orderID common.Hash, owner, operator common.Address, startAmount *uint256.Int) {
	r.names = append(r.names, "order_opened")
}

func (r *eventRecorder) OnOrderFilled(orderID common.Hash, owner, operator common.Address, amount *uint256.Int) {
	r.names = append(r.names, "order_filled")
}

func (r *eventRecorder) OnOrderRestored(orderID common.Hash, owner common.Address, amountRestored *uint256.Int) {
	r.names = append(r.names, "order_restored")
}

func (r *eventRecorder) OnOrderClosed(orderID common.Hash, owner, operator common.Address, cancelled bool) {
	if cancelled {
		r.names = append(r.names, "order_cancelled")
	} else {
		r.names = append(r.names, "order_closed")
	}
}

func newTestEngine(opts ...Option) (*PermitC, *engineTokenCaller) {
	caller := &engineTokenCaller{}
	base := []Option{WithTimeSource(func() uint64 { return testNow })}
	return New(testDomain(), caller, append(base, opts...)...), caller
}

func newTestSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.NewFromPrivateKey(testSignerKey)
	require.NoError(t, err)
	return s
}

// signPermit fills in Owner and Signature for the permit as redeemed by
// operator against p's domain and the owner's current master nonce.
func signPermit(t *testing.T, p *PermitC, sgn *signer.Signer, tokenType TokenType, permit *PermitTransfer, operator common.Address) {
	t.Helper()
	permit.Owner = sgn.Address()
	structHash := permithash.SingleUsePermit(
		tokenType, permit.Token, permit.ID, permit.Amount, permit.Nonce,
		operator, permit.Expiration, p.MasterNonce(permit.Owner),
	)
	sig, err := sgn.SignDigest(permithash.Digest(p.DomainSeparator(), structHash))
	require.NoError(t, err)
	permit.Signature = sig
}

// signPermitWithAdditionalData is signPermit for the advanced-permit shape.
func signPermitWithAdditionalData(t *testing.T, p *PermitC, sgn *signer.Signer, tokenType TokenType, permit *PermitTransfer, additional AdditionalData, operator common.Address) {
	t.Helper()
	permit.Owner = sgn.Address()
	structHash := permithash.SingleUsePermitWithAdditionalData(
		tokenType, permit.Token, permit.ID, permit.Amount, permit.Nonce,
		operator, permit.Expiration, p.MasterNonce(permit.Owner),
		additional.Data, additional.Typehash,
	)
	sig, err := sgn.SignDigest(permithash.Digest(p.DomainSeparator(), structHash))
	require.NoError(t, err)
	permit.Signature = sig
}

// signOrder fills in Owner and Signature for an order permit.
func signOrder(t *testing.T, p *PermitC, sgn *signer.Signer, tokenType TokenType, order *OrderPermit) {
	t.Helper()
	order.Owner = sgn.Address()
	typehash := order.Typehash
	if typehash == (common.Hash{}) {
		typehash = permithash.OrderTypehash
	}
	structHash := permithash.Order(
		tokenType, order.Token, order.ID, order.Amount, order.Owner,
		order.Salt, order.Expiration, order.OrderID, typehash,
	)
	sig, err := sgn.SignDigest(permithash.Digest(p.DomainSeparator(), structHash))
	require.NoError(t, err)
	order.Signature = sig
}

// signUpdateApproval fills in Owner and Signature for a signed approval
// update.
func signUpdateApproval(t *testing.T, p *PermitC, sgn *signer.Signer, req *UpdateApproval) {
	t.Helper()
	req.Owner = sgn.Address()
	structHash := permithash.OnChainApproval(
		req.TokenType, req.Token, req.ID, req.Amount, req.Nonce,
		req.Operator, req.ApprovalExpiration, req.SigDeadline, p.MasterNonce(req.Owner),
	)
	sig, err := sgn.SignDigest(permithash.Digest(p.DomainSeparator(), structHash))
	require.NoError(t, err)
	req.Signature = sig
}
