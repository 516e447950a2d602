package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"yieldvault/crypto"
	"yieldvault/native/vault"
)

// Persistence backends accepted by Validate.
const (
	PersistenceMemory  = "memory"
	PersistenceLevelDB = "leveldb"
)

// GenesisBalance funds a holder with underlying at startup.
type GenesisBalance struct {
	Asset  string `toml:"Asset"`
	Holder string `toml:"Holder"`
	Amount uint64 `toml:"Amount"`
}

type Config struct {
	ListenAddress    string           `toml:"ListenAddress"`
	DataDir          string           `toml:"DataDir"`
	Persistence      string           `toml:"Persistence"`
	Authority        string           `toml:"Authority"`
	BasePointsRate   uint64           `toml:"BasePointsRate"`
	ReferralBonusBps uint16           `toml:"ReferralBonusBps"`
	LogLevel         string           `toml:"LogLevel"`
	Genesis          []GenesisBalance `toml:"Genesis"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./vault-data"
	}
	if strings.TrimSpace(cfg.Persistence) == "" {
		cfg.Persistence = PersistenceLevelDB
	}
	if cfg.ReferralBonusBps == 0 {
		cfg.ReferralBonusBps = vault.DefaultReferralBonusBps
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Genesis == nil {
		cfg.Genesis = []GenesisBalance{}
	}
}

// Validate rejects configurations the node cannot run with.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("ListenAddress must not be empty")
	}
	switch cfg.Persistence {
	case PersistenceMemory, PersistenceLevelDB:
	default:
		return fmt.Errorf("Persistence must be %q or %q, got %q", PersistenceMemory, PersistenceLevelDB, cfg.Persistence)
	}
	if cfg.Persistence == PersistenceLevelDB && strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must be set for leveldb persistence")
	}
	if cfg.ReferralBonusBps > vault.MaxBps {
		return fmt.Errorf("ReferralBonusBps %d exceeds %d", cfg.ReferralBonusBps, vault.MaxBps)
	}
	if strings.TrimSpace(cfg.Authority) != "" {
		if _, err := crypto.DecodeAddress(cfg.Authority); err != nil {
			return fmt.Errorf("Authority: %w", err)
		}
	}
	for i, bal := range cfg.Genesis {
		if _, err := crypto.DecodeAddress(bal.Asset); err != nil {
			return fmt.Errorf("Genesis[%d].Asset: %w", i, err)
		}
		if _, err := crypto.DecodeAddress(bal.Holder); err != nil {
			return fmt.Errorf("Genesis[%d].Holder: %w", i, err)
		}
		if bal.Amount == 0 {
			return fmt.Errorf("Genesis[%d].Amount must be positive", i)
		}
	}
	return nil
}

// AuthorityAddress returns the configured bootstrap authority, or the zero
// address when none is set.
func (cfg *Config) AuthorityAddress() (crypto.Address, error) {
	if strings.TrimSpace(cfg.Authority) == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(cfg.Authority)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:    ":8080",
		DataDir:          "./vault-data",
		Persistence:      PersistenceLevelDB,
		BasePointsRate:   10,
		ReferralBonusBps: vault.DefaultReferralBonusBps,
		LogLevel:         "info",
		Genesis:          []GenesisBalance{},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
