// Package genesis decodes the genesis account/delegate seed file and turns
// it into the transaction set core.BlockService.ApplyGenesisBlock expects.
// The seed file is decoded directly with yaml.v3 rather than viper, since it
// is a one-shot document never merged with environment overrides.
package genesis

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lumenchain/lumend/core"
)

// Seed is the on-disk genesis document: one entry per pre-funded account,
// with an optional delegate registration.
type Seed struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// SeedAccount describes a single genesis-funded address.
type SeedAccount struct {
	PublicKey string `yaml:"publicKey"` // hex-encoded, 32 bytes
	Balance   uint64 `yaml:"balance"`
	Delegate  string `yaml:"delegate,omitempty"`
}

// Load reads and parses a genesis seed file from path.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis seed %s: %w", path, err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode genesis seed: %w", err)
	}
	return &s, nil
}

// Accounts resolves every seed entry's hex public key into its address and
// opening balance, for direct crediting by ApplyGenesisBlock before the
// transaction set below is replayed.
func (s *Seed) Accounts() ([]core.GenesisAccount, error) {
	out := make([]core.GenesisAccount, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		pub, err := decodePublicKey(a.PublicKey)
		if err != nil {
			return nil, err
		}
		out = append(out, core.GenesisAccount{
			Address:   core.AddressFromPublicKey(pub),
			PublicKey: pub,
			Balance:   a.Balance,
		})
	}
	return out, nil
}

// Transactions builds the delegate-registration transactions a genesis
// block carries. Opening balances are credited directly by
// ApplyGenesisBlock's account pre-registration step, not by a transaction:
// a seed account has no predecessor balance to debit, so there is no SEND
// transaction to replay here. Genesis transactions are admitted without
// signature verification (process(..., verify=false)), so none are signed.
func (s *Seed) Transactions() ([]*core.Transaction, error) {
	var txs []*core.Transaction
	for _, a := range s.Accounts {
		if a.Delegate == "" {
			continue
		}
		pub, err := decodePublicKey(a.PublicKey)
		if err != nil {
			return nil, err
		}
		addr := core.AddressFromPublicKey(pub)

		txs = append(txs, &core.Transaction{
			Type:            core.TxDelegate,
			SenderPublicKey: pub,
			SenderAddress:   addr,
			CreatedAt:       0,
			Delegate:        &core.DelegateAsset{Username: a.Delegate},
		})
	}
	return txs, nil
}

func decodePublicKey(s string) (core.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return core.PublicKey{}, fmt.Errorf("decode publicKey %q: %w", s, err)
	}
	return core.PublicKeyFromBytes(b)
}
