package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix defines the human-readable prefix of vault identities.
type AddressPrefix string

const (
	// VaultPrefix is the bech32 prefix used for all vault identities.
	VaultPrefix AddressPrefix = "yv"

	// AddressLength is the raw byte length of an identity.
	AddressLength = 20
)

// Address represents a 20-byte identity with a bech32 string form. The zero
// value is the "no identity" sentinel used for absent inviters.
type Address struct {
	prefix AddressPrefix
	bytes  [AddressLength]byte
}

// NewAddress builds an address from raw bytes. Inputs shorter or longer than
// AddressLength are rejected.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	addr := Address{prefix: prefix}
	copy(addr.bytes[:], b)
	return addr, nil
}

// MustNewAddress builds an address from raw bytes and panics on malformed
// input. Intended for tests and derivation helpers that already guarantee
// the length.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// String renders the bech32 form of the address. The zero address renders as
// an empty string so callers can treat it as "unset" in logs and payloads.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	prefix := a.prefix
	if prefix == "" {
		prefix = VaultPrefix
	}
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		return hex.EncodeToString(a.bytes[:])
	}
	encoded, err := bech32.Encode(string(prefix), conv)
	if err != nil {
		return hex.EncodeToString(a.bytes[:])
	}
	return encoded
}

// Bytes returns a copy of the raw 20-byte identity.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.bytes[:])
	return out
}

// Raw returns the fixed-size array form used for map keys and wire layouts.
func (a Address) Raw() [AddressLength]byte { return a.bytes }

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix { return a.prefix }

// IsZero reports whether the address is the all-zero sentinel.
func (a Address) IsZero() bool {
	return a.bytes == [AddressLength]byte{}
}

// Equal compares two addresses by identity bytes, ignoring the prefix.
func (a Address) Equal(b Address) bool {
	return bytes.Equal(a.bytes[:], b.bytes[:])
}

// DecodeAddress parses the bech32 string form of an address.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}
