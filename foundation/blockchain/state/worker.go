package state

import (
	"context"
	"sync"
	"time"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/gossip"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/mining"
)

// miningInterval is how often the worker wakes up to attempt mining a
// new block over whatever is currently pending.
const miningInterval = 60 * time.Second

// Worker drives the background mining loop: on each tick it snapshots
// the pending pool and chain tip, searches for a winning nonce outside
// the state lock, and — if the tip hasn't moved while it searched —
// appends the new block and gossips it to every known peer.
type Worker struct {
	state    *State
	gossip   *gossip.Client
	wg       sync.WaitGroup
	shutdown chan struct{}
}

// NewWorker starts the mining loop in a background goroutine. Call
// Shutdown to stop it.
func NewWorker(s *State, g *gossip.Client) *Worker {
	w := &Worker{
		state:    s,
		gossip:   g,
		shutdown: make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w
}

// Shutdown stops the mining loop and waits for the in-flight tick, if
// any, to unwind.
func (w *Worker) Shutdown() {
	close(w.shutdown)
	w.wg.Wait()
}

func (w *Worker) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(miningInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.mineOnce()
		case <-w.shutdown:
			return
		}
	}
}

// mineOnce runs a single attempt: it is safe to call directly (e.g. from
// a "mine now" endpoint or a test) outside the ticker cadence.
func (w *Worker) mineOnce() {
	tipHeightBefore := w.state.Height()
	tip := w.state.LatestBlock()
	pending := w.state.Pending()

	self := w.state.User()
	reward := database.NewMiningReward(self.Node.ID)
	batch := append([]database.ProvenTransaction{reward}, pending...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
				if w.state.Height() != tipHeightBefore {
					cancel()
					return
				}
			}
		}
	}()

	result, err := mining.TryMineAny(ctx, database.GenesisDifficulty, batch)
	if err != nil {
		w.state.event("worker: mining attempt abandoned: %v", err)
		return
	}

	if w.state.Height() != tipHeightBefore {
		w.state.event("worker: discarding solved block, tip advanced during search")
		return
	}

	block := database.NewMinedBlock(tip, self.Node.ID, database.GenesisDifficulty, result.Transactions, result.Nonce, result.Hash)

	if err := w.state.TryAddBlock(block); err != nil {
		w.state.event("worker: solved block rejected locally: %v", err)
		return
	}

	w.state.event("worker: mined block: index[%d] hash[%s]", block.Header.Index, block.Header.Hash)

	peers := w.state.Nodes()
	w.gossip.SendNewBlock(context.Background(), peers, block)
}
