// Package gossip implements the node's outbound HTTP calls: bootstrap
// registration, chain and pending-transaction fetches, and best-effort
// fan-out of new blocks and new nodes to peers. Transactions are not
// broadcast.
package gossip

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultTimeout bounds every outbound call so a slow or dead peer can't
// stall gossip indefinitely.
const defaultTimeout = 10 * time.Second

// Client issues the node's outbound gossip calls over HTTP/JSON.
type Client struct {
	http *resty.Client
	log  *zap.SugaredLogger
}

// New constructs a gossip Client with a bounded per-call timeout.
func New(log *zap.SugaredLogger) *Client {
	return &Client{
		http: resty.New().SetTimeout(defaultTimeout),
		log:  log,
	}
}

// RegisterRequest is the body POSTed to a bootstrap peer's /register.
type RegisterRequest struct {
	PubKey signature.PubKey `json:"pub_key"`
}

// RegisterNode bootstraps against bootstrapAddr, the deliberate
// port-minus-one convention (or an explicit --bootstrap override),
// returning the peer set the bootstrap node reports back.
func (c *Client) RegisterNode(ctx context.Context, bootstrapAddr string, pubKey signature.PubKey) ([]database.Node, error) {
	var nodes []database.Node

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(RegisterRequest{PubKey: pubKey}).
		SetResult(&nodes).
		Post(url(bootstrapAddr, "register"))
	if err != nil {
		return nil, fmt.Errorf("registering with %s: %w", bootstrapAddr, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("registering with %s: peer responded %s", bootstrapAddr, resp.Status())
	}

	return nodes, nil
}

// GetChain fetches a peer's full blockchain.
func (c *Client) GetChain(ctx context.Context, peer database.Node) (database.Blockchain, error) {
	var chain database.Blockchain

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&chain).
		Get(url(peer.Addr, "get_chain"))
	if err != nil {
		return nil, fmt.Errorf("fetching chain from %v: %w", peer.ID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching chain from %v: peer responded %s", peer.ID, resp.Status())
	}

	return chain, nil
}

// GetPendingTransactions fetches a peer's pending transaction pool.
func (c *Client) GetPendingTransactions(ctx context.Context, peer database.Node) ([]database.ProvenTransaction, error) {
	var txs []database.ProvenTransaction

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&txs).
		Get(url(peer.Addr, "get_pending_transactions"))
	if err != nil {
		return nil, fmt.Errorf("fetching pending transactions from %v: %w", peer.ID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching pending transactions from %v: peer responded %s", peer.ID, resp.Status())
	}

	return txs, nil
}

// SendNewBlock broadcasts a newly mined block to recipients, best-effort:
// each peer's failure is logged, not propagated, and does not abort the
// rest of the fan-out.
func (c *Client) SendNewBlock(ctx context.Context, recipients []database.Node, block database.Block) {
	var g errgroup.Group

	for _, peer := range recipients {
		peer := peer
		g.Go(func() error {
			resp, err := c.http.R().
				SetContext(ctx).
				SetBody(block).
				Post(url(peer.Addr, "new_block"))
			if err != nil {
				c.log.Infow("gossip: send new block failed", "node", peer.ID, "error", err)
				return nil
			}
			if resp.IsError() {
				c.log.Infow("gossip: send new block rejected", "node", peer.ID, "status", resp.Status())
			}
			return nil
		})
	}

	_ = g.Wait()
}

// AcknowledgeRequest is the body POSTed to /acknowledge_new_node.
type AcknowledgeRequest = database.Node

// SendAcknowledgeNewNode announces newNode to every peer in all except
// newNode itself, best-effort.
func (c *Client) SendAcknowledgeNewNode(ctx context.Context, newNode database.Node, all []database.Node) {
	var g errgroup.Group

	for _, peer := range all {
		if peer.ID == newNode.ID {
			continue
		}

		peer := peer
		g.Go(func() error {
			resp, err := c.http.R().
				SetContext(ctx).
				SetBody(AcknowledgeRequest(newNode)).
				Post(url(peer.Addr, "acknowledge_new_node"))
			if err != nil {
				c.log.Infow("gossip: acknowledge new node failed", "node", peer.ID, "error", err)
				return nil
			}
			if resp.IsError() {
				c.log.Infow("gossip: acknowledge new node rejected", "node", peer.ID, "status", resp.Status())
			}
			return nil
		})
	}

	_ = g.Wait()
}

// BootstrapAddr computes the peer a node started on addr should attempt
// to register with under the source's deliberate simplification: the
// peer listening one port below.
func BootstrapAddr(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("parsing address %q: %w", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("parsing port %q: %w", portStr, err)
	}

	return net.JoinHostPort(host, strconv.Itoa(port-1)), nil
}

func url(addr, endpoint string) string {
	return fmt.Sprintf("http://%s/%s", addr, endpoint)
}
