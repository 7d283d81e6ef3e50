// Package codec defines the JSON interchange format for signed permits and
// orders, the form an off-chain relayer submits to a permitc deployment.
// Payloads are schema-validated before field conversion, so malformed input
// is rejected with a precise reason instead of a partial decode.
package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/xeipuuv/gojsonschema"

	permitc "github.com/limitbreak/permitc-go"
	"github.com/limitbreak/permitc-go/types"
)

// PermitTransferJSON is the wire form of a signed single-use permit.
// Amounts and IDs are decimal strings; addresses and the signature are hex.
type PermitTransferJSON struct {
	TokenType  string `json:"tokenType"`
	Token      string `json:"token"`
	ID         string `json:"id,omitempty"`
	Amount     string `json:"amount"`
	Nonce      uint64 `json:"nonce"`
	Expiration uint64 `json:"expiration"`
	Owner      string `json:"owner"`
	Signature  string `json:"signature"`
}

// OrderPermitJSON is the wire form of a signed order permit.
type OrderPermitJSON struct {
	TokenType  string `json:"tokenType"`
	Token      string `json:"token"`
	ID         string `json:"id,omitempty"`
	Amount     string `json:"amount"`
	Salt       string `json:"salt"`
	Expiration uint64 `json:"expiration"`
	Owner      string `json:"owner"`
	OrderID    string `json:"orderId"`
	Typehash   string `json:"typehash,omitempty"`
	Signature  string `json:"signature"`
}

// ParsePermitTransfer validates and decodes a permit payload, returning the
// permit and the token type it targets.
func ParsePermitTransfer(data []byte) (permitc.PermitTransfer, permitc.TokenType, error) {
	if err := validate(permitTransferSchema, data); err != nil {
		return permitc.PermitTransfer{}, 0, err
	}

	var wire PermitTransferJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return permitc.PermitTransfer{}, 0, fmt.Errorf("failed to unmarshal permit: %w", err)
	}

	tokenType, err := parseTokenType(wire.TokenType)
	if err != nil {
		return permitc.PermitTransfer{}, 0, err
	}
	token, err := parseAddress(wire.Token)
	if err != nil {
		return permitc.PermitTransfer{}, 0, fmt.Errorf("invalid token: %w", err)
	}
	owner, err := parseAddress(wire.Owner)
	if err != nil {
		return permitc.PermitTransfer{}, 0, fmt.Errorf("invalid owner: %w", err)
	}
	id, err := parseOptionalAmount(wire.ID)
	if err != nil {
		return permitc.PermitTransfer{}, 0, fmt.Errorf("invalid id: %w", err)
	}
	amount, err := parseAmount(wire.Amount)
	if err != nil {
		return permitc.PermitTransfer{}, 0, fmt.Errorf("invalid amount: %w", err)
	}
	signature, err := parseHexBytes(wire.Signature)
	if err != nil {
		return permitc.PermitTransfer{}, 0, fmt.Errorf("invalid signature: %w", err)
	}

	return permitc.PermitTransfer{
		Token:      token,
		ID:         id,
		Amount:     amount,
		Nonce:      wire.Nonce,
		Expiration: wire.Expiration,
		Owner:      owner,
		Signature:  signature,
	}, tokenType, nil
}

// EncodePermitTransfer produces the wire form of a permit.
func EncodePermitTransfer(permit permitc.PermitTransfer, tokenType permitc.TokenType) ([]byte, error) {
	if !tokenType.Valid() {
		return nil, fmt.Errorf("invalid token type %d", tokenType)
	}
	wire := PermitTransferJSON{
		TokenType:  tokenType.String(),
		Token:      permit.Token.Hex(),
		Amount:     decimal(permit.Amount),
		Nonce:      permit.Nonce,
		Expiration: permit.Expiration,
		Owner:      permit.Owner.Hex(),
		Signature:  "0x" + hex.EncodeToString(permit.Signature),
	}
	if permit.ID != nil {
		wire.ID = decimal(permit.ID)
	}
	return json.Marshal(wire)
}

// ParseOrderPermit validates and decodes an order payload.
func ParseOrderPermit(data []byte) (permitc.OrderPermit, permitc.TokenType, error) {
	if err := validate(orderPermitSchema, data); err != nil {
		return permitc.OrderPermit{}, 0, err
	}

	var wire OrderPermitJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("failed to unmarshal order: %w", err)
	}

	tokenType, err := parseTokenType(wire.TokenType)
	if err != nil {
		return permitc.OrderPermit{}, 0, err
	}
	token, err := parseAddress(wire.Token)
	if err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("invalid token: %w", err)
	}
	owner, err := parseAddress(wire.Owner)
	if err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("invalid owner: %w", err)
	}
	id, err := parseOptionalAmount(wire.ID)
	if err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("invalid id: %w", err)
	}
	amount, err := parseAmount(wire.Amount)
	if err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("invalid amount: %w", err)
	}
	salt, err := parseAmount(wire.Salt)
	if err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("invalid salt: %w", err)
	}
	orderID, err := parseHash(wire.OrderID)
	if err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("invalid orderId: %w", err)
	}
	signature, err := parseHexBytes(wire.Signature)
	if err != nil {
		return permitc.OrderPermit{}, 0, fmt.Errorf("invalid signature: %w", err)
	}

	order := permitc.OrderPermit{
		Token:      token,
		ID:         id,
		Amount:     amount,
		Salt:       salt,
		Expiration: wire.Expiration,
		Owner:      owner,
		OrderID:    orderID,
		Signature:  signature,
	}
	if wire.Typehash != "" {
		typehash, err := parseHash(wire.Typehash)
		if err != nil {
			return permitc.OrderPermit{}, 0, fmt.Errorf("invalid typehash: %w", err)
		}
		order.Typehash = typehash
	}
	return order, tokenType, nil
}

// EncodeOrderPermit produces the wire form of an order permit.
func EncodeOrderPermit(order permitc.OrderPermit, tokenType permitc.TokenType) ([]byte, error) {
	if !tokenType.Valid() {
		return nil, fmt.Errorf("invalid token type %d", tokenType)
	}
	wire := OrderPermitJSON{
		TokenType:  tokenType.String(),
		Token:      order.Token.Hex(),
		Amount:     decimal(order.Amount),
		Salt:       decimal(order.Salt),
		Expiration: order.Expiration,
		Owner:      order.Owner.Hex(),
		OrderID:    order.OrderID.Hex(),
		Signature:  "0x" + hex.EncodeToString(order.Signature),
	}
	if order.ID != nil {
		wire.ID = decimal(order.ID)
	}
	if order.Typehash != (common.Hash{}) {
		wire.Typehash = order.Typehash.Hex()
	}
	return json.Marshal(wire)
}

func validate(schema string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return fmt.Errorf("invalid payload: %s", strings.Join(reasons, "; "))
	}
	return nil
}

func parseTokenType(s string) (types.TokenType, error) {
	switch s {
	case "ERC20":
		return types.TokenTypeERC20, nil
	case "ERC721":
		return types.TokenTypeERC721, nil
	case "ERC1155":
		return types.TokenTypeERC1155, nil
	}
	return 0, fmt.Errorf("invalid token type %q", s)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("not a hex address: %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("not a decimal amount: %q", s)
	}
	return amount, nil
}

func parseOptionalAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	return parseAmount(s)
}

func parseHash(s string) (common.Hash, error) {
	raw, err := parseHexBytes(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(raw) != 32 {
		return common.Hash{}, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	return common.BytesToHash(raw), nil
}

func parseHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not hex: %w", err)
	}
	return raw, nil
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
