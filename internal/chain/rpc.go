package chain

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient implements Client on top of a JSON-RPC endpoint.
type RPCClient struct {
	rpc          *rpc.Client
	confirmEvery time.Duration
}

func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		rpc:          rpc.New(endpoint),
		confirmEvery: 400 * time.Millisecond, // ~1 slot
	}
}

func (c *RPCClient) GetAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: get account %s: %w", address, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return res.Value.Data.GetBinary(), nil
}

func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("chain: latest blockhash: %w", err)
	}
	return res.Value.Blockhash, nil
}

func (c *RPCClient) SubmitTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       skipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("chain: send transaction: %w", err)
	}
	return sig, nil
}

func (c *RPCClient) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.confirmEvery)
	defer ticker.Stop()
	for {
		res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return fmt.Errorf("chain: transaction %s failed on-chain: %v", sig, st.Err)
			}
			switch st.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("chain: confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *RPCClient) TokenBalanceDelta(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) (int64, error) {
	maxVer := uint64(0)
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVer,
	})
	if err != nil {
		return 0, fmt.Errorf("chain: get transaction %s: %w", sig, err)
	}
	if res == nil || res.Meta == nil {
		return 0, fmt.Errorf("chain: transaction %s has no metadata", sig)
	}
	if res.Meta.Err != nil {
		return 0, fmt.Errorf("chain: transaction %s failed on-chain: %v", sig, res.Meta.Err)
	}
	pre := sumTokenBalance(res.Meta.PreTokenBalances, owner, mint)
	post := sumTokenBalance(res.Meta.PostTokenBalances, owner, mint)
	return post - pre, nil
}

func sumTokenBalance(balances []rpc.TokenBalance, owner, mint solana.PublicKey) int64 {
	var total int64
	for _, b := range balances {
		if b.Owner == nil || !b.Owner.Equals(owner) || !b.Mint.Equals(mint) {
			continue
		}
		if b.UiTokenAmount == nil {
			continue
		}
		v, err := strconv.ParseInt(b.UiTokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return total
}
