package permitc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/limitbreak/permitc-go/permithash"
)

// InvalidateUnorderedNonce burns one of the caller's single-use nonces,
// cancelling any unredeemed permit signed with it.
func (p *PermitC) InvalidateUnorderedNonce(ctx context.Context, owner common.Address, nonce uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.consumeNonce(owner, nonce); err != nil {
		return err
	}
	if p.events != nil {
		p.events.OnNonceInvalidated(owner, nonce)
	}
	return nil
}

// IsValidUnorderedNonce reports whether nonce is still unused for owner.
func (p *PermitC) IsValidUnorderedNonce(owner common.Address, nonce uint64) bool {
	return p.store.IsValidNonce(owner, nonce)
}

// Lockdown increments the caller's master nonce, invalidating every
// approval and permit ever created for them in O(1): approval keys fold in
// the epoch, so all prior entries become unreachable.
func (p *PermitC) Lockdown(ctx context.Context, owner common.Address) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	masterNonce := p.store.IncrementMasterNonce(owner)
	if p.events != nil {
		p.events.OnLockdown(owner, masterNonce)
	}
	return masterNonce
}

// MasterNonce returns owner's current epoch counter.
func (p *PermitC) MasterNonce(owner common.Address) uint64 {
	return p.store.MasterNonce(owner)
}

// RegisterAdditionalDataHash derives and registers the transfer-domain and
// order-domain typehashes for label. Registration is idempotent, permanent,
// and permissionless: anyone can register any label, so registration alone
// conveys no trust. Operators must still check signers actually signed
// under the derived hash.
func (p *PermitC) RegisterAdditionalDataHash(label string) (transferHash, orderHash common.Hash) {
	transferHash, orderHash = permithash.AdditionalDataTypehashes(label)
	p.store.RegisterAdditionalDataHash(transferHash, orderHash)
	return transferHash, orderHash
}

// IsRegisteredTransferAdditionalDataHash reports membership in the
// transfer-domain registered set.
func (p *PermitC) IsRegisteredTransferAdditionalDataHash(h common.Hash) bool {
	return p.store.IsRegisteredTransferHash(h)
}

// IsRegisteredOrderAdditionalDataHash reports membership in the
// order-domain registered set.
func (p *PermitC) IsRegisteredOrderAdditionalDataHash(h common.Hash) bool {
	return p.store.IsRegisteredOrderHash(h)
}
