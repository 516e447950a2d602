package vault

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"yieldvault/crypto"
)

// Wire layouts mirror the data model field lists in declared order: numeric
// fields are fixed-width little-endian, booleans a single byte, timestamps
// signed 64-bit, identities 20 raw bytes, identifiers 32 raw bytes. Entity
// keys are not repeated in the payload; the store derives them.
const (
	vaultWireLen    = crypto.AddressLength + 8 + 1
	poolWireLen     = 32 + crypto.AddressLength*2 + 8 + 8 + 2
	positionWireLen = 8 + 16 + 8
	referralWireLen = crypto.AddressLength + 16
	strategyWireLen = crypto.AddressLength + 2 + 8
)

func encodeU128(dst []byte, v *big.Int) error {
	if v == nil {
		v = big.NewInt(0)
	}
	if v.Sign() < 0 || v.Cmp(u128Bound) >= 0 {
		return fmt.Errorf("%w: value outside u128 range", ErrAccountSerialization)
	}
	var be [16]byte
	v.FillBytes(be[:])
	for i := 0; i < 16; i++ {
		dst[i] = be[15-i]
	}
	return nil
}

func decodeU128(src []byte) *big.Int {
	var be [16]byte
	for i := 0; i < 16; i++ {
		be[i] = src[15-i]
	}
	return new(big.Int).SetBytes(be[:])
}

// MarshalBinary encodes the vault wire layout: authority, basePointsRate,
// paused.
func (v *Vault) MarshalBinary() ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil vault", ErrAccountSerialization)
	}
	buf := make([]byte, vaultWireLen)
	copy(buf, v.Authority.Bytes())
	binary.LittleEndian.PutUint64(buf[crypto.AddressLength:], v.BasePointsRate)
	if v.Paused {
		buf[vaultWireLen-1] = 1
	}
	return buf, nil
}

// UnmarshalBinary decodes the vault wire layout.
func (v *Vault) UnmarshalBinary(data []byte) error {
	if len(data) != vaultWireLen {
		return fmt.Errorf("%w: vault payload is %d bytes, want %d", ErrAccountSerialization, len(data), vaultWireLen)
	}
	authority, err := crypto.NewAddress(crypto.VaultPrefix, data[:crypto.AddressLength])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountSerialization, err)
	}
	v.Authority = authority
	v.BasePointsRate = binary.LittleEndian.Uint64(data[crypto.AddressLength:])
	switch data[vaultWireLen-1] {
	case 0:
		v.Paused = false
	case 1:
		v.Paused = true
	default:
		return fmt.Errorf("%w: invalid paused byte %#x", ErrAccountSerialization, data[vaultWireLen-1])
	}
	return nil
}

// MarshalBinary encodes the pool wire layout: vault, assetId, custody,
// totalUnderlying, totalShares, pointsMultiplierBps.
func (p *AssetPool) MarshalBinary() ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrAccountSerialization)
	}
	buf := make([]byte, poolWireLen)
	off := copy(buf, p.Vault[:])
	off += copy(buf[off:], p.Asset.Bytes())
	off += copy(buf[off:], p.Custody.Bytes())
	binary.LittleEndian.PutUint64(buf[off:], p.TotalUnderlying)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.TotalShares)
	off += 8
	binary.LittleEndian.PutUint16(buf[off:], p.PointsMultiplierBps)
	return buf, nil
}

// UnmarshalBinary decodes the pool wire layout.
func (p *AssetPool) UnmarshalBinary(data []byte) error {
	if len(data) != poolWireLen {
		return fmt.Errorf("%w: pool payload is %d bytes, want %d", ErrAccountSerialization, len(data), poolWireLen)
	}
	off := copy(p.Vault[:], data[:32])
	asset, err := crypto.NewAddress(crypto.VaultPrefix, data[off:off+crypto.AddressLength])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountSerialization, err)
	}
	off += crypto.AddressLength
	custody, err := crypto.NewAddress(crypto.VaultPrefix, data[off:off+crypto.AddressLength])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountSerialization, err)
	}
	off += crypto.AddressLength
	p.Asset = asset
	p.Custody = custody
	p.TotalUnderlying = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.TotalShares = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.PointsMultiplierBps = binary.LittleEndian.Uint16(data[off:])
	return nil
}

// MarshalBinary encodes the position wire layout: shares, cumulativePoints,
// lastPointsTs.
func (u *UserPosition) MarshalBinary() ([]byte, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: nil position", ErrAccountSerialization)
	}
	buf := make([]byte, positionWireLen)
	binary.LittleEndian.PutUint64(buf, u.Shares)
	if err := encodeU128(buf[8:24], u.CumulativePoints); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(buf[24:], uint64(u.LastPointsTs))
	return buf, nil
}

// UnmarshalBinary decodes the position wire layout. The pool and user key
// fields are populated by the store from the lookup key.
func (u *UserPosition) UnmarshalBinary(data []byte) error {
	if len(data) != positionWireLen {
		return fmt.Errorf("%w: position payload is %d bytes, want %d", ErrAccountSerialization, len(data), positionWireLen)
	}
	u.Shares = binary.LittleEndian.Uint64(data)
	u.CumulativePoints = decodeU128(data[8:24])
	u.LastPointsTs = int64(binary.LittleEndian.Uint64(data[24:]))
	return nil
}

// MarshalBinary encodes the referral wire layout: inviter,
// pointsFromInvites.
func (r *ReferralRecord) MarshalBinary() ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil referral record", ErrAccountSerialization)
	}
	buf := make([]byte, referralWireLen)
	copy(buf, r.Inviter.Bytes())
	if err := encodeU128(buf[crypto.AddressLength:], r.PointsFromInvites); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary decodes the referral wire layout.
func (r *ReferralRecord) UnmarshalBinary(data []byte) error {
	if len(data) != referralWireLen {
		return fmt.Errorf("%w: referral payload is %d bytes, want %d", ErrAccountSerialization, len(data), referralWireLen)
	}
	inviter, err := crypto.NewAddress(crypto.VaultPrefix, data[:crypto.AddressLength])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountSerialization, err)
	}
	r.Inviter = inviter
	r.PointsFromInvites = decodeU128(data[crypto.AddressLength:])
	return nil
}

// MarshalBinary encodes the strategy wire layout: authority, weightBps,
// lastHarvestTs.
func (s *Strategy) MarshalBinary() ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil strategy", ErrAccountSerialization)
	}
	buf := make([]byte, strategyWireLen)
	copy(buf, s.Authority.Bytes())
	binary.LittleEndian.PutUint16(buf[crypto.AddressLength:], s.WeightBps)
	binary.LittleEndian.PutUint64(buf[crypto.AddressLength+2:], uint64(s.LastHarvestTs))
	return buf, nil
}

// UnmarshalBinary decodes the strategy wire layout.
func (s *Strategy) UnmarshalBinary(data []byte) error {
	if len(data) != strategyWireLen {
		return fmt.Errorf("%w: strategy payload is %d bytes, want %d", ErrAccountSerialization, len(data), strategyWireLen)
	}
	authority, err := crypto.NewAddress(crypto.VaultPrefix, data[:crypto.AddressLength])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountSerialization, err)
	}
	s.Authority = authority
	s.WeightBps = binary.LittleEndian.Uint16(data[crypto.AddressLength:])
	s.LastHarvestTs = int64(binary.LittleEndian.Uint64(data[crypto.AddressLength+2:]))
	return nil
}
