package state_test

import (
	"testing"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/state"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T, addr string) *state.State {
	t.Helper()

	priv, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	st, err := state.New(state.Config{Addr: addr, PrivKey: priv, PubKey: pub})
	require.NoError(t, err)

	return st
}

// TestSoloBootstrap covers scenario S1: a node started with no reachable
// peer ends up with a one-peer network, a chain of just the genesis
// block, and an empty pending pool.
func TestSoloBootstrap(t *testing.T) {
	st := newState(t, "127.0.0.1:8100")

	require.Len(t, st.Nodes(), 1)
	require.Equal(t, 1, st.Height())
	require.Empty(t, st.Pending())
}

func TestTryCreateNodeRejectsDuplicate(t *testing.T) {
	st := newState(t, "127.0.0.1:8100")

	_, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	_, err = st.TryCreateNode("127.0.0.1:8100", pub)
	require.ErrorIs(t, err, state.ErrDuplicateNode)
}

func TestTryCreateNodeAddsNewPeer(t *testing.T) {
	st := newState(t, "127.0.0.1:8100")

	_, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	node, err := st.TryCreateNode("127.0.0.1:8101", pub)
	require.NoError(t, err)
	require.Equal(t, database.NodeId(8101), node.ID)
	require.Len(t, st.Nodes(), 2)
}

// TestTryAddTransactionRejectsInsufficientFunds covers scenario S3: a
// transaction from a sender with no balance is rejected.
func TestTryAddTransactionRejectsInsufficientFunds(t *testing.T) {
	st := newState(t, "127.0.0.1:8100")

	senderPriv, senderPub, err := signature.GenerateKey()
	require.NoError(t, err)

	sender, err := st.TryCreateNode("127.0.0.1:8101", senderPub)
	require.NoError(t, err)

	fromID := sender.ID
	tx := database.Transaction{From: &fromID, To: st.User().Node.ID, Fee: database.Zero, Amount: database.NewNoCoin(1)}

	proof, err := database.SignTransaction(tx, senderPriv)
	require.NoError(t, err)

	err = st.TryAddTransaction(tx, proof)
	require.ErrorIs(t, err, database.ErrInsufficientFunds)
}

// TestTryAddBlockRemovesOnlyItsOwnTransactions covers testable property
// 6, pool subset: after a block is added, its non-reward transactions
// are gone from the pool and nothing else is.
func TestTryAddBlockRemovesOnlyItsOwnTransactions(t *testing.T) {
	st := newState(t, "127.0.0.1:8100")

	senderPriv, senderPub, err := signature.GenerateKey()
	require.NoError(t, err)
	sender, err := st.TryCreateNode("127.0.0.1:8101", senderPub)
	require.NoError(t, err)

	// Credit sender via a mined block first so it can afford a transfer.
	mineReward(t, st, sender.ID)

	fromID := sender.ID
	included := database.Transaction{From: &fromID, To: st.User().Node.ID, Fee: database.Zero, Amount: database.NewNoCoin(1)}
	includedProof, err := database.SignTransaction(included, senderPriv)
	require.NoError(t, err)
	require.NoError(t, st.TryAddTransaction(included, includedProof))

	unrelated := database.Transaction{From: &fromID, To: st.User().Node.ID, Fee: database.Zero, Amount: database.NewNoCoin(2)}
	unrelatedProof, err := database.SignTransaction(unrelated, senderPriv)
	require.NoError(t, err)
	require.NoError(t, st.TryAddTransaction(unrelated, unrelatedProof))

	tip := st.LatestBlock()
	reward := database.NewMiningReward(st.User().Node.ID)
	batch := []database.ProvenTransaction{reward, {Transaction: database.AffordableTransaction{Transaction: included}, Proof: includedProof}}

	hash, nonce := minePOW(t, batch, 0)
	block := database.NewMinedBlock(tip, st.User().Node.ID, 0, batch, nonce, hash)

	require.NoError(t, st.TryAddBlock(block))

	pending := st.Pending()
	require.Len(t, pending, 1)
	require.True(t, pending[0].Transaction.Transaction.Amount.Equal(database.NewNoCoin(2)))
}

// TestTryAddBlockRejectsForeignTransactions covers scenario S6's sibling
// case: a block carrying a non-reward transaction this node never saw is
// rejected as bad-block, not silently accepted.
func TestTryAddBlockRejectsForeignTransactions(t *testing.T) {
	st := newState(t, "127.0.0.1:8100")

	senderPriv, senderPub, err := signature.GenerateKey()
	require.NoError(t, err)
	sender, err := st.TryCreateNode("127.0.0.1:8101", senderPub)
	require.NoError(t, err)

	mineReward(t, st, sender.ID)

	fromID := sender.ID
	foreign := database.Transaction{From: &fromID, To: st.User().Node.ID, Fee: database.Zero, Amount: database.NewNoCoin(1)}
	proof, err := database.SignTransaction(foreign, senderPriv)
	require.NoError(t, err)

	tip := st.LatestBlock()
	reward := database.NewMiningReward(st.User().Node.ID)
	batch := []database.ProvenTransaction{
		reward,
		{Transaction: database.AffordableTransaction{Transaction: foreign}, Proof: proof},
		database.NewMiningReward(sender.ID), // a second "unexpected" transaction never seen locally
	}

	hash, nonce := minePOW(t, batch, 0)
	block := database.NewMinedBlock(tip, st.User().Node.ID, 0, batch, nonce, hash)

	err = st.TryAddBlock(block)
	require.ErrorIs(t, err, database.ErrForeignTransactionsInBlock)
}

// TestTryAddBlockRejectsBadPOW covers scenario S6: tampering with a
// block's nonce after the fact must be rejected.
func TestTryAddBlockRejectsBadPOW(t *testing.T) {
	st := newState(t, "127.0.0.1:8100")

	tip := st.LatestBlock()
	reward := database.NewMiningReward(st.User().Node.ID)
	batch := []database.ProvenTransaction{reward}

	hash, nonce := minePOW(t, batch, database.GenesisDifficulty)
	block := database.NewMinedBlock(tip, st.User().Node.ID, database.GenesisDifficulty, batch, nonce, hash)
	block.Nonce++ // tamper: the stored hash no longer matches this nonce's real hash

	err := st.TryAddBlock(block)
	require.ErrorIs(t, err, database.ErrPOWFailed)
}

// mineReward mines a zero-difficulty reward-only block onto st, crediting
// minerID with the mining reward — a test fixture, not a production path.
func mineReward(t *testing.T, st *state.State, minerID database.NodeId) {
	t.Helper()

	tip := st.LatestBlock()
	batch := []database.ProvenTransaction{database.NewMiningReward(minerID)}
	hash, nonce := minePOW(t, batch, 0)
	block := database.NewMinedBlock(tip, minerID, 0, batch, nonce, hash)
	require.NoError(t, st.TryAddBlock(block))
}

func minePOW(t *testing.T, txs []database.ProvenTransaction, difficulty int) (string, uint32) {
	t.Helper()

	for nonce := uint32(0); ; nonce++ {
		hash, err := database.HashTransactions(txs, nonce)
		require.NoError(t, err)
		if database.Matches(hash, difficulty) {
			return hash, nonce
		}
	}
}
