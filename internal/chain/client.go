// Package chain narrows the blockchain RPC transport to the handful of calls
// the engine needs. Everything above this package depends on the interface,
// never on the concrete RPC client.
package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrAccountNotFound reports a missing on-chain account.
var ErrAccountNotFound = fmt.Errorf("chain: account not found")

// Client is the opaque network boundary: read accounts, fetch a recency
// token, submit and confirm transactions, and read token balance effects.
type Client interface {
	// GetAccount returns the raw data of an account, or ErrAccountNotFound.
	GetAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
	// LatestBlockhash fetches a fresh recency token for transaction assembly.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	// SubmitTransaction sends a signed transaction and returns its signature.
	// It does not wait for finality.
	SubmitTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error)
	// ConfirmTransaction blocks until the transaction is finalized or the
	// context expires; a non-nil error includes on-chain execution failures.
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
	// TokenBalanceDelta returns the signed raw-unit change of owner's mint
	// balance caused by the transaction.
	TokenBalanceDelta(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) (int64, error)
}
