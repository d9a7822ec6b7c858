package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TxInstruction is one top-level instruction with its accounts resolved
// to public keys.
type TxInstruction struct {
	Program  solana.PublicKey
	Accounts []solana.PublicKey
	Data     []byte
}

// TxDetail is the decoded shape of a confirmed transaction, enough to
// classify it without replaying it.
type TxDetail struct {
	Signer       solana.PublicKey
	Instructions []TxInstruction
	BlockTime    time.Time
	Failed       bool
}

// InspectTransaction fetches and flattens a confirmed transaction.
func (c *RPCClient) InspectTransaction(ctx context.Context, sig solana.Signature) (*TxDetail, error) {
	maxVer := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVer,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", sig, err)
	}
	if out == nil || out.Transaction == nil {
		return nil, fmt.Errorf("transaction %s not found", sig)
	}
	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", sig, err)
	}
	msg := tx.Message
	detail := &TxDetail{Failed: out.Meta != nil && out.Meta.Err != nil}
	if len(msg.AccountKeys) > 0 {
		detail.Signer = msg.AccountKeys[0]
	}
	if out.BlockTime != nil {
		detail.BlockTime = out.BlockTime.Time()
	}
	for _, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= len(msg.AccountKeys) {
			continue
		}
		ix := TxInstruction{
			Program: msg.AccountKeys[ci.ProgramIDIndex],
			Data:    ci.Data,
		}
		for _, idx := range ci.Accounts {
			if int(idx) < len(msg.AccountKeys) {
				ix.Accounts = append(ix.Accounts, msg.AccountKeys[idx])
			}
		}
		detail.Instructions = append(detail.Instructions, ix)
	}
	return detail, nil
}
