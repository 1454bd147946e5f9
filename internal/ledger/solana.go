package ledger

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaSettler writes settlement memos to Solana via the memo program.
type SolanaSettler struct {
	rpcClient *rpc.Client
	wallet    *solana.Wallet
}

// NewSolanaSettler creates a settler for the given RPC endpoint. Returns
// an error when the private key cannot be parsed; an empty key is a
// configuration mistake the caller should catch before getting here.
func NewSolanaSettler(rpcEndpoint, privateKey string) (*SolanaSettler, error) {
	wallet, err := solana.WalletFromPrivateKeyBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement wallet: %w", err)
	}
	log.Printf("Settlement wallet loaded: %s", wallet.PublicKey())

	return &SolanaSettler{
		rpcClient: rpc.New(rpcEndpoint),
		wallet:    wallet,
	}, nil
}

// SubmitMemo records a memo transaction and returns its signature.
func (s *SolanaSettler) SubmitMemo(ctx context.Context, memo string) (string, error) {
	recent, err := s.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	inst := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{
			solana.Meta(s.wallet.PublicKey()).SIGNER(),
		},
		[]byte(memo),
	)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		recent.Value.Blockhash,
		solana.TransactionPayer(s.wallet.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build memo transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.wallet.PublicKey()) {
			return &s.wallet.PrivateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign memo transaction: %w", err)
	}

	sig, err := s.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send memo transaction: %w", err)
	}

	return sig.String(), nil
}
