// Package state is the core API for the node: it owns the Network
// aggregate (user identity, known peers, the chain, the pending pool,
// and a wallet cache) and every mutating operation over it, each
// executing under a single exclusive lock so the aggregate stays
// linearizable.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
)

// EventHandler is called with progress messages as the state package
// does its work, decoupling it from any particular logging backend.
type EventHandler func(v string, args ...any)

// Sentinel errors for the network-state operations.
var (
	ErrDuplicateNode = errors.New("node already known to the network")
)

// Config configures a new State.
type Config struct {
	Addr      string
	PrivKey   signature.PrivKey
	PubKey    signature.PubKey
	EvHandler EventHandler
}

// State owns the Network aggregate and exposes every mutation as a
// method, each executing under mu.
type State struct {
	mu sync.Mutex

	user        database.User
	nodes       []database.Node
	blockchain  database.Blockchain
	pending     []database.ProvenTransaction
	walletCache map[database.NodeId]database.NoCoin
	evHandler   EventHandler
}

func (s *State) event(v string, args ...any) {
	if s.evHandler != nil {
		s.evHandler(v, args...)
	}
}

// New starts a fresh network: a brand-new user identity, a peer set
// holding only the local node (its id derived from cfg.Addr), and a
// chain containing only the genesis block.
func New(cfg Config) (*State, error) {
	id, err := database.NodeIDFromAddr(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("deriving node id from address: %w", err)
	}

	self := database.Node{ID: id, Addr: cfg.Addr, PubKey: cfg.PubKey}

	s := &State{
		user:        database.User{Node: self, PrivKey: cfg.PrivKey},
		nodes:       []database.Node{self},
		blockchain:  database.Blockchain{database.NewGenesisBlock()},
		pending:     nil,
		walletCache: make(map[database.NodeId]database.NoCoin),
		evHandler:   cfg.EvHandler,
	}

	return s, nil
}

// NewAdopted starts a network by adopting a peer's chain and peer set.
// The peer chain is checked with database.ValidateChain first, and an
// error is returned if it fails.
func NewAdopted(cfg Config, peerNodes []database.Node, peerChain database.Blockchain) (*State, error) {
	if err := database.ValidateChain(peerChain); err != nil {
		return nil, fmt.Errorf("adopting chain: %w", err)
	}

	id, err := database.NodeIDFromAddr(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("deriving node id from address: %w", err)
	}

	self := database.Node{ID: id, Addr: cfg.Addr, PubKey: cfg.PubKey}

	nodes := append([]database.Node{}, peerNodes...)
	if !containsNode(nodes, self.ID) {
		nodes = append(nodes, self)
	}

	s := &State{
		user:        database.User{Node: self, PrivKey: cfg.PrivKey},
		nodes:       nodes,
		blockchain:  append(database.Blockchain{}, peerChain...),
		pending:     nil,
		walletCache: database.CalculateAllWallets(peerChain),
		evHandler:   cfg.EvHandler,
	}

	return s, nil
}

func containsNode(nodes []database.Node, id database.NodeId) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// User returns the local node's identity.
func (s *State) User() database.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Nodes returns a snapshot of the known peer set.
func (s *State) Nodes() []database.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.Node{}, s.nodes...)
}

// Chain returns a snapshot of the blockchain.
func (s *State) Chain() database.Blockchain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(database.Blockchain{}, s.blockchain...)
}

// LatestBlock returns the current chain tip.
func (s *State) LatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockchain[len(s.blockchain)-1]
}

// Height returns the number of blocks currently in the chain; it
// doubles as a cheap "has the tip moved" token for the mining worker.
func (s *State) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blockchain)
}

// Pending returns a snapshot of the pending transaction pool.
func (s *State) Pending() []database.ProvenTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.ProvenTransaction{}, s.pending...)
}

// Wallet returns id's current balance at the chain tip, using the
// cache when warm and recomputing (and re-seeding the cache) otherwise.
func (s *State) Wallet(id database.NodeId) database.NoCoin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletLocked(id)
}

func (s *State) walletLocked(id database.NodeId) database.NoCoin {
	if balance, ok := s.walletCache[id]; ok {
		return balance
	}

	balance := database.CalculateWallet(id, s.blockchain)
	s.walletCache[id] = balance
	return balance
}

func (s *State) invalidateWalletCache() {
	s.walletCache = make(map[database.NodeId]database.NoCoin)
}
