package vault

import (
	"errors"
	"math/big"
	"testing"
)

func TestVaultWireRoundTrip(t *testing.T) {
	in := &Vault{Authority: makeAddr(0xA0), BasePointsRate: 42, Paused: true}
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != vaultWireLen {
		t.Fatalf("payload = %d bytes, want %d", len(data), vaultWireLen)
	}
	var out Vault
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Authority.Equal(in.Authority) || out.BasePointsRate != 42 || !out.Paused {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	data[vaultWireLen-1] = 2
	if err := out.UnmarshalBinary(data); !errors.Is(err, ErrAccountSerialization) {
		t.Fatalf("expected ErrAccountSerialization for bad paused byte, got %v", err)
	}
	if err := out.UnmarshalBinary(data[:5]); !errors.Is(err, ErrAccountSerialization) {
		t.Fatalf("expected ErrAccountSerialization for short payload, got %v", err)
	}
}

func TestPoolWireRoundTrip(t *testing.T) {
	vaultID := DeriveVaultID(makeAddr(0xA0))
	in := &AssetPool{
		Vault:               vaultID,
		Asset:               makeAddr(0xE0),
		Custody:             DeriveCustodyAddress(vaultID),
		TotalUnderlying:     9_000_000,
		TotalShares:         8_000_000,
		PointsMultiplierBps: 7_500,
	}
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != poolWireLen {
		t.Fatalf("payload = %d bytes, want %d", len(data), poolWireLen)
	}
	var out AssetPool
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Vault != in.Vault || !out.Asset.Equal(in.Asset) || !out.Custody.Equal(in.Custody) {
		t.Fatalf("identity fields mismatch: %+v", out)
	}
	if out.TotalUnderlying != 9_000_000 || out.TotalShares != 8_000_000 || out.PointsMultiplierBps != 7_500 {
		t.Fatalf("numeric fields mismatch: %+v", out)
	}
}

func TestPositionWireRoundTrip(t *testing.T) {
	points := new(big.Int).Sub(u128Bound, big.NewInt(1))
	in := &UserPosition{Shares: 3_000_000, CumulativePoints: points, LastPointsTs: 1_700_000_000}
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != positionWireLen {
		t.Fatalf("payload = %d bytes, want %d", len(data), positionWireLen)
	}
	var out UserPosition
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Shares != in.Shares || out.LastPointsTs != in.LastPointsTs {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.CumulativePoints.Cmp(points) != 0 {
		t.Fatalf("points = %s, want %s", out.CumulativePoints, points)
	}

	in.CumulativePoints = new(big.Int).Set(u128Bound)
	if _, err := in.MarshalBinary(); !errors.Is(err, ErrAccountSerialization) {
		t.Fatalf("expected ErrAccountSerialization above u128, got %v", err)
	}
	in.CumulativePoints = big.NewInt(-1)
	if _, err := in.MarshalBinary(); !errors.Is(err, ErrAccountSerialization) {
		t.Fatalf("expected ErrAccountSerialization for negative points, got %v", err)
	}
}

func TestReferralWireRoundTrip(t *testing.T) {
	in := &ReferralRecord{Inviter: makeAddr(1), PointsFromInvites: big.NewInt(150_000)}
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != referralWireLen {
		t.Fatalf("payload = %d bytes, want %d", len(data), referralWireLen)
	}
	var out ReferralRecord
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Inviter.Equal(in.Inviter) || out.PointsFromInvites.Cmp(in.PointsFromInvites) != 0 {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	// An unlocked record carries the zero inviter on the wire.
	in = &ReferralRecord{PointsFromInvites: big.NewInt(0)}
	data, err = in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal unlocked: %v", err)
	}
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal unlocked: %v", err)
	}
	if out.InviterLocked() {
		t.Fatal("zero inviter must decode as unlocked")
	}
}

func TestStrategyWireRoundTrip(t *testing.T) {
	in := &Strategy{Authority: makeAddr(0xB0), WeightBps: 6_000, LastHarvestTs: 1_700_000_123}
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != strategyWireLen {
		t.Fatalf("payload = %d bytes, want %d", len(data), strategyWireLen)
	}
	var out Strategy
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Authority.Equal(in.Authority) || out.WeightBps != 6_000 || out.LastHarvestTs != 1_700_000_123 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestU128LittleEndianLayout(t *testing.T) {
	buf := make([]byte, 16)
	if err := encodeU128(buf, big.NewInt(0x0102)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf[0] != 0x02 || buf[1] != 0x01 {
		t.Fatalf("expected little-endian layout, got % x", buf[:2])
	}
	if got := decodeU128(buf); got.Cmp(big.NewInt(0x0102)) != 0 {
		t.Fatalf("decode = %s, want 258", got)
	}
}
