package state

import (
	"fmt"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
)

// TryCreateNode derives a NodeId from addr (its port), rejects it if
// that id is already known, and otherwise adds and returns the new Node.
func (s *State) TryCreateNode(addr string, pubKey signature.PubKey) (database.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := database.NodeIDFromAddr(addr)
	if err != nil {
		return database.Node{}, fmt.Errorf("deriving node id: %w", err)
	}

	if containsNode(s.nodes, id) {
		return database.Node{}, ErrDuplicateNode
	}

	node := database.Node{ID: id, Addr: addr, PubKey: pubKey}
	s.nodes = append(s.nodes, node)

	s.event("state: node registered: id[%d] addr[%s]", node.ID, node.Addr)

	return node, nil
}

// AcknowledgeNode adds node to the known peer set, rejecting it if its
// id is already present.
func (s *State) AcknowledgeNode(node database.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if containsNode(s.nodes, node.ID) {
		return ErrDuplicateNode
	}

	s.nodes = append(s.nodes, node)
	s.event("state: node acknowledged: id[%d] addr[%s]", node.ID, node.Addr)

	return nil
}

// TryAddTransaction verifies tx and, on success, appends it to the
// pending pool.
func (s *State) TryAddTransaction(tx database.Transaction, proof signature.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proven, err := s.verifyLocked(tx, proof)
	if err != nil {
		return err
	}

	s.pending = append(s.pending, proven)
	s.event("state: transaction added to pool: from[%v] to[%v] amount[%s]", tx.From, tx.To, tx.Amount)

	return nil
}

func (s *State) verifyLocked(tx database.Transaction, proof signature.Signature) (database.ProvenTransaction, error) {
	lookup := func(id database.NodeId) (database.Node, bool) {
		for _, n := range s.nodes {
			if n.ID == id {
				return n, true
			}
		}
		return database.Node{}, false
	}

	balanceOf := func(id database.NodeId) database.NoCoin {
		return s.walletLocked(id)
	}

	return database.VerifyTransaction(lookup, balanceOf, tx, proof)
}

// TryAddBlock verifies block extends the current tip with valid
// proof-of-work, removes its transactions from the pending pool (failing
// if any transaction other than a single reward is absent, since at most
// the reward may be new to this node), and appends it to the chain.
func (s *State) TryAddBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip := s.blockchain[len(s.blockchain)-1]
	if err := database.ValidateNextBlock(tip, block); err != nil {
		return err
	}

	remaining, err := removeBlockTransactions(s.pending, block.Transactions)
	if err != nil {
		return err
	}

	s.pending = remaining
	s.blockchain = append(s.blockchain, block)
	s.invalidateWalletCache()

	s.event("state: block accepted: index[%d] hash[%s] minedby[%d]", block.Header.Index, block.Header.Hash, block.MinedBy)

	return nil
}

// removeBlockTransactions removes every one of block's transactions
// from pool. The block's first reward is exempt (this node never had its
// miner's reward in its own pool); any other transaction absent from
// pool, a second reward included, means this node never validated it,
// so the whole block is rejected.
func removeBlockTransactions(pool []database.ProvenTransaction, blockTxs []database.ProvenTransaction) ([]database.ProvenTransaction, error) {
	remaining := append([]database.ProvenTransaction{}, pool...)

	rewardSeen := false
	for _, tx := range blockTxs {
		if tx.Transaction.Transaction.IsReward() && !rewardSeen {
			rewardSeen = true
			continue
		}

		idx := indexOfTransaction(remaining, tx)
		if idx < 0 {
			return nil, database.ErrForeignTransactionsInBlock
		}

		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	return remaining, nil
}

func indexOfTransaction(pool []database.ProvenTransaction, target database.ProvenTransaction) int {
	for i, tx := range pool {
		if sameTransaction(tx, target) {
			return i
		}
	}
	return -1
}

func sameTransaction(a, b database.ProvenTransaction) bool {
	ta, tb := a.Transaction.Transaction, b.Transaction.Transaction
	if ta.To != tb.To || !ta.Amount.Equal(tb.Amount) || !ta.Fee.Equal(tb.Fee) {
		return false
	}
	switch {
	case ta.From == nil && tb.From == nil:
		return true
	case ta.From == nil || tb.From == nil:
		return false
	default:
		return *ta.From == *tb.From
	}
}

// TryAdoptPendingTransactions replaces the pending pool wholesale after
// verifying every transaction, or fails with the combined verification
// errors and leaves the pool untouched.
func (s *State) TryAdoptPendingTransactions(transactions []database.Transaction, proofs []signature.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(transactions) != len(proofs) {
		return fmt.Errorf("%d transactions but %d proofs", len(transactions), len(proofs))
	}

	proven := make([]database.ProvenTransaction, 0, len(transactions))
	var errs []error
	for i, tx := range transactions {
		p, err := s.verifyLocked(tx, proofs[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		proven = append(proven, p)
	}

	if len(errs) > 0 {
		return fmt.Errorf("adopting pending transactions: %w", joinErrors(errs))
	}

	s.pending = proven
	return nil
}

func joinErrors(errs []error) error {
	msg := ""
	for i, err := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return fmt.Errorf("%s", msg)
}
