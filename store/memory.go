package store

import (
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/limitbreak/permitc-go/types"
)

// MemoryStore is the in-memory Store implementation.
//
// Suitable for single-instance deployments where state doesn't need to be
// shared across processes; mutex-protected throughout. Orphaned approval
// entries (post-lockdown) are retained, not reclaimed.
type MemoryStore struct {
	mu sync.Mutex

	// nonce slot (nonce >> 8) -> 256-bit bitmap, bit (nonce & 255)
	nonces       map[common.Address]map[uint64]*[4]uint64
	masterNonces map[common.Address]uint64

	transferApprovals map[common.Hash]map[common.Address]types.PackedApproval
	orderApprovals    map[common.Hash]map[common.Address]types.PackedApproval

	transferHashes map[common.Hash]struct{}
	orderHashes    map[common.Hash]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:            make(map[common.Address]map[uint64]*[4]uint64),
		masterNonces:      make(map[common.Address]uint64),
		transferApprovals: make(map[common.Hash]map[common.Address]types.PackedApproval),
		orderApprovals:    make(map[common.Hash]map[common.Address]types.PackedApproval),
		transferHashes:    make(map[common.Hash]struct{}),
		orderHashes:       make(map[common.Hash]struct{}),
	}
}

func (s *MemoryStore) ConsumeNonce(owner common.Address, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	word, bit := s.nonceBit(owner, nonce)
	if *word&bit != 0 {
		return ErrNonceAlreadyUsed
	}
	*word |= bit
	return nil
}

func (s *MemoryStore) RestoreNonce(owner common.Address, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	word, bit := s.nonceBit(owner, nonce)
	if *word&bit == 0 {
		return ErrNonceNotUsed
	}
	*word &^= bit
	return nil
}

func (s *MemoryStore) IsValidNonce(owner common.Address, nonce uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	word, bit := s.nonceBit(owner, nonce)
	return *word&bit == 0
}

// nonceBit returns the bitmap word and mask for nonce. Must be called with
// the lock held.
func (s *MemoryStore) nonceBit(owner common.Address, nonce uint64) (*uint64, uint64) {
	slots, ok := s.nonces[owner]
	if !ok {
		slots = make(map[uint64]*[4]uint64)
		s.nonces[owner] = slots
	}
	bitmap, ok := slots[nonce>>8]
	if !ok {
		bitmap = new([4]uint64)
		slots[nonce>>8] = bitmap
	}
	pos := nonce & 255
	return &bitmap[pos>>6], uint64(1) << (pos & 63)
}

func (s *MemoryStore) MasterNonce(owner common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masterNonces[owner]
}

func (s *MemoryStore) IncrementMasterNonce(owner common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masterNonces[owner]++
	return s.masterNonces[owner]
}

func (s *MemoryStore) TransferApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, operator common.Address) types.PackedApproval {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.approvalKey(owner, tokenType, token, id, common.Hash{})
	return s.read(s.transferApprovals, key, operator)
}

func (s *MemoryStore) SetTransferApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, operator common.Address, approval types.PackedApproval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.approvalKey(owner, tokenType, token, id, common.Hash{})
	s.write(s.transferApprovals, key, operator, approval)
}

func (s *MemoryStore) OrderApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, orderID common.Hash, operator common.Address) types.PackedApproval {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.approvalKey(owner, tokenType, token, id, orderID)
	return s.read(s.orderApprovals, key, operator)
}

func (s *MemoryStore) SetOrderApproval(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, orderID common.Hash, operator common.Address, approval types.PackedApproval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.approvalKey(owner, tokenType, token, id, orderID)
	s.write(s.orderApprovals, key, operator, approval)
}

func (s *MemoryStore) RegisterAdditionalDataHash(transferHash, orderHash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferHashes[transferHash] = struct{}{}
	s.orderHashes[orderHash] = struct{}{}
}

func (s *MemoryStore) RegisterOrderHash(orderHash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderHashes[orderHash] = struct{}{}
}

func (s *MemoryStore) IsRegisteredTransferHash(h common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.transferHashes[h]
	return ok
}

func (s *MemoryStore) IsRegisteredOrderHash(h common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.orderHashes[h]
	return ok
}

// approvalKey content-addresses the canonical field tuple, folding in the
// owner's current master nonce. Fixed-width, order-sensitive encoding: one
// 32-byte word per field. Must be called with the lock held.
func (s *MemoryStore) approvalKey(owner common.Address, tokenType types.TokenType, token common.Address, id *uint256.Int, orderID common.Hash) common.Hash {
	raw := make([]byte, 0, 6*32)
	raw = appendAddressWord(raw, owner)
	raw = appendUintWord(raw, uint64(tokenType))
	raw = appendAddressWord(raw, token)
	if id != nil {
		idWord := id.Bytes32()
		raw = append(raw, idWord[:]...)
	} else {
		raw = append(raw, make([]byte, 32)...)
	}
	raw = append(raw, orderID.Bytes()...)
	raw = appendUintWord(raw, s.masterNonces[owner])
	return crypto.Keccak256Hash(raw)
}

func (s *MemoryStore) read(m map[common.Hash]map[common.Address]types.PackedApproval, key common.Hash, operator common.Address) types.PackedApproval {
	if byOperator, ok := m[key]; ok {
		if approval, ok := byOperator[operator]; ok {
			return approval.Clone()
		}
	}
	return types.PackedApproval{Amount: new(uint256.Int)}
}

func (s *MemoryStore) write(m map[common.Hash]map[common.Address]types.PackedApproval, key common.Hash, operator common.Address, approval types.PackedApproval) {
	byOperator, ok := m[key]
	if !ok {
		byOperator = make(map[common.Address]types.PackedApproval)
		m[key] = byOperator
	}
	byOperator[operator] = approval.Clone()
}

func appendAddressWord(raw []byte, a common.Address) []byte {
	raw = append(raw, make([]byte, 12)...)
	return append(raw, a.Bytes()...)
}

func appendUintWord(raw []byte, v uint64) []byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], v)
	return append(raw, w[:]...)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
