// Package mining implements the node's proof-of-work search: partitioning
// the pending pool into batches, searching each batch's nonce space in
// parallel, and returning whichever batch solves first.
package mining

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
)

// ErrNoNonceFound is returned when every candidate batch exhausts the
// nonce space without matching the target difficulty. In practice, at
// the difficulties this node uses, that should never happen.
var ErrNoNonceFound = errors.New("no nonce found for any transaction batch")

// Result is the winning outcome of a mining search: the hash, the nonce
// that produced it, and the transactions that were hashed.
type Result struct {
	Hash         string
	Nonce        uint32
	Transactions []database.ProvenTransaction
}

// TryMineAny partitions poll into contiguous batches of up to
// database.MaxTransactionCount transactions (including an empty batch
// when poll is empty, so a reward-only block can still be mined),
// launches one search goroutine per batch, and returns whichever
// finishes first. The remaining goroutines are cancelled once a winner
// is found. ctx governs the whole search: cancelling it (e.g. because a
// foreign block just extended the chain) stops every goroutine promptly.
func TryMineAny(ctx context.Context, difficulty int, poll []database.ProvenTransaction) (Result, error) {
	batches := partition(poll, database.MaxTransactionCount)

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}

	results := make(chan outcome, len(batches))

	var wg sync.WaitGroup
	for _, batch := range batches {
		batch := batch
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := searchBatch(searchCtx, difficulty, batch)
			select {
			case results <- outcome{result: result, err: err}:
			case <-searchCtx.Done():
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for out := range results {
		if out.err == nil {
			cancel()
			return out.result, nil
		}
		if firstErr == nil {
			firstErr = out.err
		}
	}

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	if firstErr != nil {
		return Result{}, firstErr
	}

	return Result{}, ErrNoNonceFound
}

// partition splits transactions into contiguous slices of at most size
// elements, always returning at least one (possibly empty) slice.
func partition(transactions []database.ProvenTransaction, size int) [][]database.ProvenTransaction {
	if len(transactions) == 0 {
		return [][]database.ProvenTransaction{nil}
	}

	var batches [][]database.ProvenTransaction
	for i := 0; i < len(transactions); i += size {
		end := i + size
		if end > len(transactions) {
			end = len(transactions)
		}
		batches = append(batches, transactions[i:end])
	}

	return batches
}

// searchBatch scans nonce in [0, 2^32) looking for one whose hash
// satisfies the difficulty predicate, checking ctx for cancellation
// every 4096 nonces.
func searchBatch(ctx context.Context, difficulty int, batch []database.ProvenTransaction) (Result, error) {
	var nonce int64
	for nonce = 0; nonce <= math.MaxUint32; nonce++ {
		if nonce%4096 == 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			default:
			}
		}

		hash, err := database.HashTransactions(batch, uint32(nonce))
		if err != nil {
			return Result{}, fmt.Errorf("hashing candidate batch: %w", err)
		}

		if database.Matches(hash, difficulty) {
			return Result{Hash: hash, Nonce: uint32(nonce), Transactions: batch}, nil
		}
	}

	return Result{}, ErrNoNonceFound
}
