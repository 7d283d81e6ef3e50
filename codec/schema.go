package codec

// JSON schemas the wire payloads are validated against before decoding.

const permitTransferSchema = `{
  "type": "object",
  "required": ["tokenType", "token", "amount", "nonce", "expiration", "owner", "signature"],
  "properties": {
    "tokenType": {"type": "string", "enum": ["ERC20", "ERC721", "ERC1155"]},
    "token": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
    "id": {"type": "string", "pattern": "^[0-9]+$"},
    "amount": {"type": "string", "pattern": "^[0-9]+$"},
    "nonce": {"type": "integer", "minimum": 0},
    "expiration": {"type": "integer", "minimum": 0},
    "owner": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
    "signature": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"}
  },
  "additionalProperties": false
}`

const orderPermitSchema = `{
  "type": "object",
  "required": ["tokenType", "token", "amount", "salt", "expiration", "owner", "orderId", "signature"],
  "properties": {
    "tokenType": {"type": "string", "enum": ["ERC20", "ERC1155"]},
    "token": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
    "id": {"type": "string", "pattern": "^[0-9]+$"},
    "amount": {"type": "string", "pattern": "^[0-9]+$"},
    "salt": {"type": "string", "pattern": "^[0-9]+$"},
    "expiration": {"type": "integer", "minimum": 0},
    "owner": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
    "orderId": {"type": "string", "pattern": "^0x[0-9a-fA-F]{64}$"},
    "typehash": {"type": "string", "pattern": "^0x[0-9a-fA-F]{64}$"},
    "signature": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"}
  },
  "additionalProperties": false
}`
