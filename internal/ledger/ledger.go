// Package ledger anchors call lifecycle events on Solana as memo
// transactions, giving each call an externally verifiable audit trail.
package ledger

import "context"

// Settler submits a settlement memo and returns a reference to it.
type Settler interface {
	SubmitMemo(ctx context.Context, memo string) (string, error)
}

// DryRunSettler satisfies Settler without touching a chain. Used in
// tests and when no wallet is configured.
type DryRunSettler struct{}

func (DryRunSettler) SubmitMemo(_ context.Context, memo string) (string, error) {
	return "dry-run:" + shortMemo(memo), nil
}

func shortMemo(memo string) string {
	if len(memo) > 32 {
		return memo[:32]
	}
	return memo
}
