package events

import (
	"testing"

	"yieldvault/crypto"
)

func addr(suffix byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[crypto.AddressLength-1] = suffix
	return crypto.MustNewAddress(crypto.VaultPrefix, raw)
}

func TestMemoryEmitterRecordsInOrder(t *testing.T) {
	emitter := &MemoryEmitter{}
	emitter.Emit(VaultDeposited{User: addr(1), Asset: addr(0xE0), Amount: 100, Shares: 100})
	emitter.Emit(VaultWithdrawn{User: addr(1), Asset: addr(0xE0), Amount: 40, Shares: 40})

	recorded := emitter.Events()
	if len(recorded) != 2 {
		t.Fatalf("recorded %d events, want 2", len(recorded))
	}
	if recorded[0].Type != TypeVaultDeposited || recorded[1].Type != TypeVaultWithdrawn {
		t.Fatalf("unexpected ordering: %s, %s", recorded[0].Type, recorded[1].Type)
	}
	if recorded[0].Attribute("amount") != "100" {
		t.Fatalf("amount attribute = %q", recorded[0].Attribute("amount"))
	}
	if recorded[0].Attribute("user") != addr(1).String() {
		t.Fatalf("user attribute = %q", recorded[0].Attribute("user"))
	}
}

func TestEventPayloadAttributes(t *testing.T) {
	var strategy [32]byte
	strategy[31] = 7
	evt := VaultHarvested{Strategy: strategy, Asset: addr(0xE0), Yield: 1_000_000}.Event()
	if evt.Attribute("yield") != "1000000" {
		t.Fatalf("yield attribute = %q", evt.Attribute("yield"))
	}
	if evt.Attribute("strategy") == "" {
		t.Fatal("strategy attribute must be set")
	}
	if evt.Attribute("missing") != "" {
		t.Fatal("absent attribute must read empty")
	}

	reg := VaultStrategyRegistered{Asset: addr(0xE0), Strategy: strategy, WeightBps: 6_000}.Event()
	if reg.Attribute("weightBps") != "6000" {
		t.Fatalf("weightBps attribute = %q", reg.Attribute("weightBps"))
	}
}

func TestNoopEmitterDiscards(t *testing.T) {
	// Must not panic on nil payloads either.
	NoopEmitter{}.Emit(nil)
	NoopEmitter{}.Emit(VaultTokenRegistered{Asset: addr(0xE0), MultiplierBps: 100})
}
