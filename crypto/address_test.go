package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr, err := NewAddress(VaultPrefix, raw)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	encoded := addr.String()
	if encoded == "" {
		t.Fatal("expected non-empty bech32 form")
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("round trip mismatch: %x != %x", decoded.Bytes(), raw)
	}
	if decoded.Prefix() != VaultPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestAddressZeroSentinel(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Fatal("zero value must report IsZero")
	}
	if zero.String() != "" {
		t.Fatalf("zero address must render empty, got %q", zero.String())
	}
	addr := MustNewAddress(VaultPrefix, make([]byte, AddressLength))
	if !addr.IsZero() {
		t.Fatal("all-zero bytes must report IsZero")
	}
}

func TestAddressRejectsBadLength(t *testing.T) {
	if _, err := NewAddress(VaultPrefix, make([]byte, 19)); err == nil {
		t.Fatal("expected error for short input")
	}
	if _, err := NewAddress(VaultPrefix, make([]byte, 32)); err == nil {
		t.Fatal("expected error for long input")
	}
}

func TestAddressEqualIgnoresPrefix(t *testing.T) {
	raw := make([]byte, AddressLength)
	raw[0] = 0xAB
	a := MustNewAddress(VaultPrefix, raw)
	b := MustNewAddress(AddressPrefix("other"), raw)
	if !a.Equal(b) {
		t.Fatal("addresses with identical bytes must compare equal")
	}
}
