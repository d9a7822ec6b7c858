// Package wallet loads the trader keypair. Secrets arrive through the config
// layer (which resolves ${ENV} references), never from disk inside this
// package.
package wallet

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Wallet wraps the trader's signing key.
type Wallet struct {
	key solana.PrivateKey
}

// FromBase58 parses a base58-encoded secret key.
func FromBase58(secret string) (*Wallet, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("wallet: empty secret key")
	}
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid secret key: %w", err)
	}
	return &Wallet{key: key}, nil
}

func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// Sign signs a transaction with the trader key as fee payer.
func (w *Wallet) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("wallet: sign: %w", err)
	}
	return nil
}
