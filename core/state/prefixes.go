package state

// Storage key prefixes. Entity records are keyed by their derived 32-byte
// identifiers; ledger balances by asset and holder identity bytes.
var (
	vaultPrefix      = []byte("vault/cfg/")
	poolPrefix       = []byte("vault/pool/")
	positionPrefix   = []byte("vault/pos/")
	referralPrefix   = []byte("vault/ref/")
	strategyPrefix   = []byte("vault/strat/")
	strategyIxPrefix = []byte("vault/stratix/")
	balancePrefix    = []byte("ledger/bal/")
)

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	key := make([]byte, 0, size)
	key = append(key, prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}
