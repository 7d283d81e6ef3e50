package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Well-known throwaway development key and its address.
const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewFromPrivateKey(t *testing.T) {
	for _, key := range []string{testKey, "0x" + testKey} {
		s, err := NewFromPrivateKey(key)
		if err != nil {
			t.Fatalf("NewFromPrivateKey(%q): %v", key, err)
		}
		if s.Address() != common.HexToAddress(testAddress) {
			t.Errorf("address = %s, want %s", s.Address(), testAddress)
		}
	}

	if _, err := NewFromPrivateKey("not-a-key"); err == nil {
		t.Error("invalid hex should be rejected")
	}
}

func TestSignDigestRecovers(t *testing.T) {
	s, err := NewFromPrivateKey(testKey)
	if err != nil {
		t.Fatal(err)
	}
	digest := crypto.Keccak256Hash([]byte("permit digest"))

	signature, err := s.SignDigest(digest)
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}
	if len(signature) != 65 {
		t.Fatalf("signature length = %d, want 65", len(signature))
	}
	if v := signature[64]; v != 27 && v != 28 {
		t.Fatalf("v = %d, want 27 or 28", v)
	}

	recovery := make([]byte, 65)
	copy(recovery, signature)
	recovery[64] -= 27
	pubkey, err := crypto.SigToPub(digest.Bytes(), recovery)
	if err != nil {
		t.Fatalf("SigToPub: %v", err)
	}
	if recovered := crypto.PubkeyToAddress(*pubkey); recovered != s.Address() {
		t.Errorf("recovered %s, want %s", recovered, s.Address())
	}
}

func TestSignTypedDataRecovers(t *testing.T) {
	s, err := NewFromPrivateKey(testKey)
	if err != nil {
		t.Fatal(err)
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": []apitypes.Type{
				{Name: "owner", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              "PermitC",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1),
			VerifyingContract: "0x4444444444444444444444444444444444444444",
		},
		Message: apitypes.TypedDataMessage{
			"owner":  testAddress,
			"amount": "100",
		},
	}

	signature, err := s.SignTypedData(typedData)
	if err != nil {
		t.Fatalf("SignTypedData: %v", err)
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		t.Fatal(err)
	}
	recovery := make([]byte, 65)
	copy(recovery, signature)
	recovery[64] -= 27
	pubkey, err := crypto.SigToPub(digest, recovery)
	if err != nil {
		t.Fatalf("SigToPub: %v", err)
	}
	if recovered := crypto.PubkeyToAddress(*pubkey); recovered != s.Address() {
		t.Errorf("recovered %s, want %s", recovered, s.Address())
	}
}

func TestCompactSignature(t *testing.T) {
	s, err := NewFromPrivateKey(testKey)
	if err != nil {
		t.Fatal(err)
	}
	digest := crypto.Keccak256Hash([]byte("permit digest"))
	signature, err := s.SignDigest(digest)
	if err != nil {
		t.Fatal(err)
	}

	compact, err := CompactSignature(signature)
	if err != nil {
		t.Fatalf("CompactSignature: %v", err)
	}
	if len(compact) != 64 {
		t.Fatalf("compact length = %d, want 64", len(compact))
	}
	// vs carries the recovery bit in its high bit; the rest matches s.
	wantHigh := signature[64] == 28
	if gotHigh := compact[32]&0x80 != 0; gotHigh != wantHigh {
		t.Errorf("recovery bit = %v, want %v", gotHigh, wantHigh)
	}

	if _, err := CompactSignature(signature[:64]); err == nil {
		t.Error("short input should be rejected")
	}
	bad := make([]byte, 65)
	copy(bad, signature)
	bad[64] = 0
	if _, err := CompactSignature(bad); err == nil {
		t.Error("v outside 27/28 should be rejected")
	}
}
