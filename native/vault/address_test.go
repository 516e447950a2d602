package vault

import (
	"testing"

	"yieldvault/crypto"
)

func TestDeriveIDDeterminism(t *testing.T) {
	authority := makeAddr(0xA0)
	a := DeriveVaultID(authority)
	b := DeriveVaultID(authority)
	if a != b {
		t.Fatal("derivation must be deterministic")
	}
	if a.IsZero() {
		t.Fatal("derived identifier must be non-zero")
	}
	if a != DeriveVaultID(crypto.MustNewAddress("other", authority.Bytes())) {
		t.Fatal("derivation must depend on the raw identity, not its display prefix")
	}
}

func TestDeriveIDNamespaceSeparation(t *testing.T) {
	authority := makeAddr(0xA0)
	asset := makeAddr(0xE0)
	user := makeAddr(1)

	vaultID := DeriveVaultID(authority)
	poolID := DerivePoolID(vaultID, asset)
	seen := map[ID]string{
		vaultID:                            "vault",
		DeriveVaultSignerID(vaultID):       "signer",
		poolID:                             "pool",
		DerivePositionID(poolID, user):     "position",
		DeriveReferralID(vaultID, user):    "referral",
		DeriveStrategyID(poolID, 1):        "strategy-1",
		DeriveStrategyID(poolID, 2):        "strategy-2",
		DerivePoolID(vaultID, makeAddr(2)): "pool-2",
	}
	if len(seen) != 8 {
		t.Fatalf("identifier collision across namespaces: %v", seen)
	}

	// Same parents, different namespace must not collide.
	if DeriveReferralID(vaultID, user) == DeriveID(nsUserPosition, vaultID[:], user.Bytes()) {
		t.Fatal("namespace tag must separate identical parent tuples")
	}
}

func TestDeriveCustodyAddressStable(t *testing.T) {
	vaultID := DeriveVaultID(makeAddr(0xA0))
	custody := DeriveCustodyAddress(vaultID)
	if custody.IsZero() {
		t.Fatal("custody must be non-zero")
	}
	if !custody.Equal(DeriveCustodyAddress(vaultID)) {
		t.Fatal("custody derivation must be stable")
	}
	signer := DeriveVaultSignerID(vaultID)
	for i := 0; i < crypto.AddressLength; i++ {
		if custody.Raw()[i] != signer[i] {
			t.Fatal("custody must truncate the signer identifier")
		}
	}
}

func TestParseIDRoundTrip(t *testing.T) {
	id := DeriveVaultID(makeAddr(0xA0))
	parsed, err := ParseID(id.Hex())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("parsed %s, want %s", parsed.Hex(), id.Hex())
	}
	if _, err := ParseID("zz"); err == nil {
		t.Fatal("expected error for malformed identifier")
	}
}
