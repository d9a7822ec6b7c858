package pumpswap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Exact account counts for the two swap instructions. The sell layout drops
// the two volume-accumulator accounts present in buy.
const (
	BuyAccountCount  = 23
	SellAccountCount = 21
)

// ErrAccountOrderMismatch means the builder produced a layout that violates
// the program's positional contract. Non-recoverable: the trade must be
// dropped rather than submitted malformed.
var ErrAccountOrderMismatch = fmt.Errorf("pumpswap: account order mismatch")

// AccountReader is the single network dependency of the builder: a raw
// account fetch. Absent accounts are reported as an error.
type AccountReader interface {
	GetAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// Builder assembles the full ordered account list plus encoded payload for
// buy and sell instructions. Given the fetched pool/global-config state it
// is pure.
type Builder struct {
	resolver *Resolver
	reader   AccountReader
}

func NewBuilder(resolver *Resolver, reader AccountReader) *Builder {
	if resolver == nil {
		resolver = NewResolver()
	}
	return &Builder{resolver: resolver, reader: reader}
}

// fetchState reads the pool and global_config records once per build.
func (b *Builder) fetchState(ctx context.Context, pool solana.PublicKey) (*Pool, *GlobalConfig, error) {
	raw, err := b.reader.GetAccount(ctx, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch pool %s: %w", pool, err)
	}
	p, err := DecodePool(raw)
	if err != nil {
		return nil, nil, err
	}
	gcAddr, err := b.resolver.GlobalConfig()
	if err != nil {
		return nil, nil, err
	}
	rawGC, err := b.reader.GetAccount(ctx, gcAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch global config %s: %w", gcAddr, err)
	}
	gc, err := DecodeGlobalConfig(rawGC)
	if err != nil {
		return nil, nil, err
	}
	return p, gc, nil
}

// common holds every address shared by the buy and sell layouts.
type common struct {
	globalConfig        solana.PublicKey
	userBaseATA         solana.PublicKey
	userQuoteATA        solana.PublicKey
	poolBaseATA         solana.PublicKey
	poolQuoteATA        solana.PublicKey
	feeRecipient        solana.PublicKey
	feeRecipientATA     solana.PublicKey
	eventAuthority      solana.PublicKey
	creatorVaultATA     solana.PublicKey
	creatorVaultAuth    solana.PublicKey
	feeConfig           solana.PublicKey
}

func (b *Builder) deriveCommon(pool solana.PublicKey, user solana.PublicKey, baseMint, quoteMint solana.PublicKey, state *Pool, gc *GlobalConfig) (*common, error) {
	c := &common{feeRecipient: gc.FeeRecipient()}
	tokenProg := solana.TokenProgramID

	var err error
	if c.globalConfig, err = b.resolver.GlobalConfig(); err != nil {
		return nil, err
	}
	if c.eventAuthority, err = b.resolver.EventAuthority(); err != nil {
		return nil, err
	}
	if c.feeConfig, err = b.resolver.FeeConfig(); err != nil {
		return nil, err
	}
	if c.creatorVaultAuth, err = b.resolver.CreatorVaultAuthority(state.CoinCreator); err != nil {
		return nil, err
	}
	if c.userBaseATA, err = AssociatedTokenAddress(user, baseMint, tokenProg); err != nil {
		return nil, err
	}
	if c.userQuoteATA, err = AssociatedTokenAddress(user, quoteMint, tokenProg); err != nil {
		return nil, err
	}
	if c.poolBaseATA, err = AssociatedTokenAddress(pool, baseMint, tokenProg); err != nil {
		return nil, err
	}
	if c.poolQuoteATA, err = AssociatedTokenAddress(pool, quoteMint, tokenProg); err != nil {
		return nil, err
	}
	if c.feeRecipientATA, err = AssociatedTokenAddress(c.feeRecipient, quoteMint, tokenProg); err != nil {
		return nil, err
	}
	if c.creatorVaultATA, err = AssociatedTokenAddress(c.creatorVaultAuth, quoteMint, tokenProg); err != nil {
		return nil, err
	}
	return c, nil
}

func meta(key solana.PublicKey, writable, signer bool) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: key, IsWritable: writable, IsSigner: signer}
}

// BuildBuyAccounts returns the buy instruction's 23 accounts in the exact
// order the program's IDL mandates.
func (b *Builder) BuildBuyAccounts(ctx context.Context, pool, user, baseMint, quoteMint solana.PublicKey) (solana.AccountMetaSlice, *Pool, error) {
	state, gc, err := b.fetchState(ctx, pool)
	if err != nil {
		return nil, nil, err
	}
	c, err := b.deriveCommon(pool, user, baseMint, quoteMint, state, gc)
	if err != nil {
		return nil, nil, err
	}
	globalVol, err := b.resolver.GlobalVolumeAccumulator()
	if err != nil {
		return nil, nil, err
	}
	userVol, err := b.resolver.UserVolumeAccumulator(user)
	if err != nil {
		return nil, nil, err
	}

	accounts := solana.AccountMetaSlice{
		meta(pool, true, false),                 // 0 pool
		meta(user, true, true),                  // 1 user
		meta(c.globalConfig, false, false),      // 2 global_config
		meta(baseMint, false, false),            // 3 base_mint
		meta(quoteMint, false, false),           // 4 quote_mint
		meta(c.userBaseATA, true, false),        // 5 user_base_token_account
		meta(c.userQuoteATA, true, false),       // 6 user_quote_token_account
		meta(c.poolBaseATA, true, false),        // 7 pool_base_token_account
		meta(c.poolQuoteATA, true, false),       // 8 pool_quote_token_account
		meta(c.feeRecipient, false, false),      // 9 protocol_fee_recipient
		meta(c.feeRecipientATA, true, false),    // 10 protocol_fee_recipient_token_account
		meta(solana.TokenProgramID, false, false),                    // 11 base_token_program
		meta(solana.TokenProgramID, false, false),                    // 12 quote_token_program
		meta(solana.SystemProgramID, false, false),                   // 13 system_program
		meta(solana.SPLAssociatedTokenAccountProgramID, false, false), // 14 associated_token_program
		meta(c.eventAuthority, false, false),    // 15 event_authority
		meta(b.resolver.AMMProgram, false, false), // 16 program
		meta(c.creatorVaultATA, true, false),    // 17 coin_creator_vault_ata
		meta(c.creatorVaultAuth, false, false),  // 18 coin_creator_vault_authority
		meta(globalVol, false, false),           // 19 global_volume_accumulator
		meta(userVol, true, false),              // 20 user_volume_accumulator
		meta(c.feeConfig, false, false),         // 21 fee_config
		meta(b.resolver.FeeProgram, false, false), // 22 fee_program
	}
	if len(accounts) != BuyAccountCount {
		return nil, nil, fmt.Errorf("%w: buy layout has %d accounts, want %d", ErrAccountOrderMismatch, len(accounts), BuyAccountCount)
	}
	return accounts, state, nil
}

// BuildSellAccounts returns the sell instruction's 21 accounts. Identical to
// buy through index 18, then fee_config and fee_program close the list; the
// volume accumulators exist only on the buy side.
func (b *Builder) BuildSellAccounts(ctx context.Context, pool, user, baseMint, quoteMint solana.PublicKey) (solana.AccountMetaSlice, *Pool, error) {
	state, gc, err := b.fetchState(ctx, pool)
	if err != nil {
		return nil, nil, err
	}
	c, err := b.deriveCommon(pool, user, baseMint, quoteMint, state, gc)
	if err != nil {
		return nil, nil, err
	}

	accounts := solana.AccountMetaSlice{
		meta(pool, true, false),                 // 0 pool
		meta(user, true, true),                  // 1 user
		meta(c.globalConfig, false, false),      // 2 global_config
		meta(baseMint, false, false),            // 3 base_mint
		meta(quoteMint, false, false),           // 4 quote_mint
		meta(c.userBaseATA, true, false),        // 5 user_base_token_account
		meta(c.userQuoteATA, true, false),       // 6 user_quote_token_account
		meta(c.poolBaseATA, true, false),        // 7 pool_base_token_account
		meta(c.poolQuoteATA, true, false),       // 8 pool_quote_token_account
		meta(c.feeRecipient, false, false),      // 9 protocol_fee_recipient
		meta(c.feeRecipientATA, true, false),    // 10 protocol_fee_recipient_token_account
		meta(solana.TokenProgramID, false, false),                    // 11 base_token_program
		meta(solana.TokenProgramID, false, false),                    // 12 quote_token_program
		meta(solana.SystemProgramID, false, false),                   // 13 system_program
		meta(solana.SPLAssociatedTokenAccountProgramID, false, false), // 14 associated_token_program
		meta(c.eventAuthority, false, false),    // 15 event_authority
		meta(b.resolver.AMMProgram, false, false), // 16 program
		meta(c.creatorVaultATA, true, false),    // 17 coin_creator_vault_ata
		meta(c.creatorVaultAuth, false, false),  // 18 coin_creator_vault_authority
		meta(c.feeConfig, false, false),         // 19 fee_config
		meta(b.resolver.FeeProgram, false, false), // 20 fee_program
	}
	if len(accounts) != SellAccountCount {
		return nil, nil, fmt.Errorf("%w: sell layout has %d accounts, want %d", ErrAccountOrderMismatch, len(accounts), SellAccountCount)
	}
	return accounts, state, nil
}
