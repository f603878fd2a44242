// Package private maintains the handlers for node-to-node traffic: the
// six gossip endpoints peers use to register, sync, and broadcast, plus
// a read-only status endpoint.
package private

import (
	"context"
	"fmt"
	"net/http"

	v1 "github.com/nocoinlabs/nocoin-node/business/web/v1"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/gossip"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/state"
	"github.com/nocoinlabs/nocoin-node/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node-to-node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Gossip *gossip.Client
}

// Register accepts a new peer's public key, derives its node id from
// the connecting address, adds it to the known peer set, fans out
// acknowledge_new_node to every other known peer, and returns the full
// peer list including the new node.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req gossip.RegisterRequest
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestErrorKind(fmt.Errorf("decoding register request: %w", err), v1.KindMalformedInput)
	}

	node, err := h.State.TryCreateNode(r.RemoteAddr, req.PubKey)
	if err != nil {
		return v1.NewBusinessError(err)
	}

	h.Log.Infow("node registered", "traceid", v.TraceID, "id", node.ID, "addr", node.Addr)

	peers := h.State.Nodes()
	go h.Gossip.SendAcknowledgeNewNode(context.Background(), node, peers)

	return web.Respond(ctx, w, peers, http.StatusOK)
}

// GetChain returns the full blockchain.
func (h Handlers) GetChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Chain(), http.StatusOK)
}

// GetPendingTransactions returns the pending transaction pool.
func (h Handlers) GetPendingTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Pending(), http.StatusOK)
}

// NewBlock accepts a block broadcast by a peer and, if it validly
// extends the local chain, appends it.
func (h Handlers) NewBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return v1.NewRequestErrorKind(fmt.Errorf("decoding block: %w", err), v1.KindMalformedInput)
	}

	if err := h.State.TryAddBlock(block); err != nil {
		return v1.NewBusinessError(err)
	}

	return web.Respond(ctx, w, nil, http.StatusOK)
}

// newTransactionRequest is the body of POST /new_transaction.
type newTransactionRequest struct {
	Transaction database.Transaction `json:"transaction"`
	Proof       signature.Signature  `json:"proof"`
}

// NewTransaction accepts a transaction broadcast by a peer or submitted
// by a client and, if it verifies, adds it to the pending pool.
func (h Handlers) NewTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req newTransactionRequest
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestErrorKind(fmt.Errorf("decoding transaction: %w", err), v1.KindMalformedInput)
	}

	if err := h.State.TryAddTransaction(req.Transaction, req.Proof); err != nil {
		return v1.NewBusinessError(err)
	}

	return web.Respond(ctx, w, nil, http.StatusOK)
}

// AcknowledgeNewNode accepts a peer announcement from another node.
func (h Handlers) AcknowledgeNewNode(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var node database.Node
	if err := web.Decode(r, &node); err != nil {
		return v1.NewRequestErrorKind(fmt.Errorf("decoding node: %w", err), v1.KindMalformedInput)
	}

	if err := h.State.AcknowledgeNode(node); err != nil {
		return v1.NewBusinessError(err)
	}

	return web.Respond(ctx, w, nil, http.StatusOK)
}

// nodeStatus is the diagnostic payload Status returns.
type nodeStatus struct {
	LatestBlockHash  string          `json:"latest_block_hash"`
	LatestBlockIndex uint64          `json:"latest_block_index"`
	KnownPeers       []database.Node `json:"known_peers"`
}

// Status returns read-only diagnostics about the local node: its chain
// tip and known peer set.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tip := h.State.LatestBlock()

	status := nodeStatus{
		LatestBlockHash:  tip.Header.Hash,
		LatestBlockIndex: tip.Header.Index,
		KnownPeers:       h.State.Nodes(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
