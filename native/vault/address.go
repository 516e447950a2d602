package vault

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"yieldvault/crypto"
)

// Namespace tags for the deterministic address registry. Every entity ID is
// keccak256 over the length-prefixed tag followed by the parent identifiers,
// so identifiers are collision-resistant within a namespace and reproducible
// by any external caller.
const (
	nsVault        = "vault"
	nsVaultSigner  = "vault_signer"
	nsVaultToken   = "vault_token"
	nsUserPosition = "user_position"
	nsReferral     = "referral"
	nsStrategy     = "strategy"
)

// DeriveID computes the content-addressed identifier for a namespace tag and
// its parent identifiers.
func DeriveID(namespace string, parents ...[]byte) ID {
	buf := make([]byte, 0, 1+len(namespace)+len(parents)*32)
	buf = append(buf, byte(len(namespace)))
	buf = append(buf, namespace...)
	for _, parent := range parents {
		buf = append(buf, parent...)
	}
	var id ID
	copy(id[:], ethcrypto.Keccak256(buf))
	return id
}

// DeriveVaultID returns the vault identifier for an authority.
func DeriveVaultID(authority crypto.Address) ID {
	return DeriveID(nsVault, authority.Bytes())
}

// DeriveVaultSignerID returns the custody signer identifier for a vault.
func DeriveVaultSignerID(vaultID ID) ID {
	return DeriveID(nsVaultSigner, vaultID[:])
}

// DeriveCustodyAddress returns the ledger identity that holds a vault's
// deposited funds. It is the truncated custody signer identifier.
func DeriveCustodyAddress(vaultID ID) crypto.Address {
	signer := DeriveVaultSignerID(vaultID)
	return crypto.MustNewAddress(crypto.VaultPrefix, signer[:crypto.AddressLength])
}

// DerivePoolID returns the asset pool identifier for a vault and asset.
func DerivePoolID(vaultID ID, asset crypto.Address) ID {
	return DeriveID(nsVaultToken, vaultID[:], asset.Bytes())
}

// DerivePositionID returns the user position identifier for a pool and user.
func DerivePositionID(poolID ID, user crypto.Address) ID {
	return DeriveID(nsUserPosition, poolID[:], user.Bytes())
}

// DeriveReferralID returns the referral record identifier for a vault and
// user.
func DeriveReferralID(vaultID ID, user crypto.Address) ID {
	return DeriveID(nsReferral, vaultID[:], user.Bytes())
}

// DeriveStrategyID returns the strategy identifier for a pool and strategy
// index.
func DeriveStrategyID(poolID ID, strategyID uint8) ID {
	return DeriveID(nsStrategy, poolID[:], []byte{strategyID})
}
