// Package transfer moves tokens by calling out to ERC20/721/1155 contracts
// through a TokenCaller. A failed or reverting token call is converted into
// a boolean failure signal instead of propagating: the caller owns the
// compensation (nonce restore, approval restore, order reopen).
package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/types"
)

// Token-standard transfer entrypoint ABIs.
const (
	erc20ABI   = `[{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]}]`
	erc721ABI  = `[{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]}]`
	erc1155ABI = `[{"name":"safeTransferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]}]`
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse token ABI: %v", err))
	}
	return parsed
}

var (
	parsedERC20ABI   = mustParseABI(erc20ABI)
	parsedERC721ABI  = mustParseABI(erc721ABI)
	parsedERC1155ABI = mustParseABI(erc1155ABI)
)

// TokenCaller executes state-changing calls against token contracts and
// returns the raw return data. Implementations typically wrap an ethclient
// transactor; tests use in-memory token fakes.
type TokenCaller interface {
	WriteContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]byte, error)
}

// BeforeTransferHook runs before the token contract is called. Returning
// true signals a policy error: the transfer is skipped entirely without
// touching the token contract.
type BeforeTransferHook func(tokenType types.TokenType, token common.Address, from, to common.Address, id, amount *uint256.Int) bool

// Executor dispatches transfers over the closed token-type set.
type Executor struct {
	caller TokenCaller
	hooks  []BeforeTransferHook
}

// NewExecutor creates an Executor. Hooks run in registration order.
func NewExecutor(caller TokenCaller, hooks ...BeforeTransferHook) *Executor {
	return &Executor{caller: caller, hooks: hooks}
}

// Transfer performs the token movement for tokenType. failed is true when a
// hook vetoed the transfer, the call reverted, or an ERC20 returned false;
// detail carries the underlying cause for diagnostics. Transfer never
// aborts: state compensation is the caller's job.
func (e *Executor) Transfer(ctx context.Context, tokenType types.TokenType, token common.Address, from, to common.Address, id, amount *uint256.Int) (failed bool, detail error) {
	for _, hook := range e.hooks {
		if hook(tokenType, token, from, to, id, amount) {
			return true, fmt.Errorf("transfer vetoed by policy hook")
		}
	}

	switch tokenType {
	case types.TokenTypeERC721:
		_, err := e.caller.WriteContract(ctx, token, parsedERC721ABI, "transferFrom", from, to, id.ToBig())
		if err != nil {
			return true, fmt.Errorf("erc721 transferFrom: %w", err)
		}
		return false, nil

	case types.TokenTypeERC1155:
		_, err := e.caller.WriteContract(ctx, token, parsedERC1155ABI, "safeTransferFrom", from, to, id.ToBig(), amount.ToBig(), []byte{})
		if err != nil {
			return true, fmt.Errorf("erc1155 safeTransferFrom: %w", err)
		}
		return false, nil

	case types.TokenTypeERC20:
		ret, err := e.caller.WriteContract(ctx, token, parsedERC20ABI, "transferFrom", from, to, amount.ToBig())
		if err != nil {
			return true, fmt.Errorf("erc20 transferFrom: %w", err)
		}
		// No return data at all is treated as success: non-standard but
		// common ERC20 behavior.
		if len(ret) == 0 {
			return false, nil
		}
		outputs, err := parsedERC20ABI.Unpack("transferFrom", ret)
		if err != nil {
			return true, fmt.Errorf("erc20 transferFrom return data: %w", err)
		}
		if ok, isBool := outputs[0].(bool); isBool && !ok {
			return true, fmt.Errorf("erc20 transferFrom returned false")
		}
		return false, nil
	}

	return true, fmt.Errorf("unsupported token type %s", tokenType)
}
