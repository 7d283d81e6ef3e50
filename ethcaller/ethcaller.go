// Package ethcaller backs the engine's external-call interfaces with a live
// go-ethereum client: read-only calls for EIP-1271 signature checks and
// signed EIP-1559 transactions for token transfers.
package ethcaller

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/limitbreak/permitc-go/sigverify"
	"github.com/limitbreak/permitc-go/transfer"
)

var (
	_ transfer.TokenCaller     = (*Caller)(nil)
	_ sigverify.ContractCaller = (*Caller)(nil)
)

// Conservative gas limit covering any of the three token transfer calls.
const defaultGasLimit = uint64(200_000)

// Caller wraps an ethclient and a transaction-signing key. It satisfies both
// the engine's TokenCaller (state-changing token calls) and ContractCaller
// (EIP-1271 reads).
type Caller struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	gasLimit   uint64
}

// Option configures a Caller.
type Option func(*Caller)

// WithGasLimit overrides the per-transaction gas limit.
func WithGasLimit(limit uint64) Option {
	return func(c *Caller) {
		c.gasLimit = limit
	}
}

// New creates a Caller over an existing client. privateKeyHex signs outgoing
// transactions, with or without the "0x" prefix. The chain ID is fetched once
// at construction.
func New(ctx context.Context, client *ethclient.Client, privateKeyHex string, opts ...Option) (*Caller, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	c := &Caller{
		client:     client,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
		gasLimit:   defaultGasLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dial connects to rpcURL and creates a Caller over the connection.
func Dial(ctx context.Context, rpcURL, privateKeyHex string, opts ...Option) (*Caller, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return New(ctx, client, privateKeyHex, opts...)
}

// Address returns the transaction sender address.
func (c *Caller) Address() common.Address {
	return c.address
}

// CodeAt returns the bytecode deployed at addr, empty for an EOA.
func (c *Caller) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return c.client.CodeAt(ctx, addr, nil)
}

// CallContract executes a read-only call against addr.
func (c *Caller) CallContract(ctx context.Context, addr common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &addr, Data: data}
	return c.client.CallContract(ctx, msg, nil)
}

// WriteContract packs, signs and sends a contract call, then waits for it to
// mine. A reverted transaction is returned as an error; the engine converts
// that into its compensation path. Writes have no return data on this
// transport, so an ERC20 that lies by returning false must revert to be
// detected.
func (c *Caller) WriteContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	calldata, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending nonce: %w", err)
	}
	gasTipCap, err := c.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	// Gas price doubles as a conservative fee cap.
	gasFeeCap, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       c.gasLimit,
		To:        &contract,
		Data:      calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.client, signed)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction %s: %w", signed.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", signed.Hash())
	}
	return nil, nil
}
