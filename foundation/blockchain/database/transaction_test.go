package database_test

import (
	"testing"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, id database.NodeId) (database.Node, signature.PrivKey) {
	t.Helper()

	priv, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	return database.Node{ID: id, Addr: "127.0.0.1:0", PubKey: pub}, priv
}

func TestVerifyTransactionAcceptsAffordableSignedTransfer(t *testing.T) {
	sender, senderPriv := newTestNode(t, 1)
	recipient, _ := newTestNode(t, 2)

	lookup := func(id database.NodeId) (database.Node, bool) {
		if id == sender.ID {
			return sender, true
		}
		return database.Node{}, false
	}
	balanceOf := func(database.NodeId) database.NoCoin { return database.NewNoCoin(100) }

	fromID := sender.ID
	tx := database.Transaction{From: &fromID, To: recipient.ID, Fee: database.NewNoCoin(1), Amount: database.NewNoCoin(10)}

	proof, err := database.SignTransaction(tx, senderPriv)
	require.NoError(t, err)

	proven, err := database.VerifyTransaction(lookup, balanceOf, tx, proof)
	require.NoError(t, err)
	require.Equal(t, tx, proven.Transaction.Transaction)
}

func TestVerifyTransactionRejectsUnknownSender(t *testing.T) {
	lookup := func(database.NodeId) (database.Node, bool) { return database.Node{}, false }
	balanceOf := func(database.NodeId) database.NoCoin { return database.Zero }

	fromID := database.NodeId(1)
	tx := database.Transaction{From: &fromID, To: 2, Fee: database.Zero, Amount: database.NewNoCoin(1)}

	_, err := database.VerifyTransaction(lookup, balanceOf, tx, nil)
	require.ErrorIs(t, err, database.ErrUnknownSender)
}

func TestVerifyTransactionRejectsInsufficientFunds(t *testing.T) {
	sender, senderPriv := newTestNode(t, 1)

	lookup := func(database.NodeId) (database.Node, bool) { return sender, true }
	balanceOf := func(database.NodeId) database.NoCoin { return database.NewNoCoin(5) }

	fromID := sender.ID
	tx := database.Transaction{From: &fromID, To: 2, Fee: database.NewNoCoin(1), Amount: database.NewNoCoin(4)}

	proof, err := database.SignTransaction(tx, senderPriv)
	require.NoError(t, err)

	_, err = database.VerifyTransaction(lookup, balanceOf, tx, proof)
	require.ErrorIs(t, err, database.ErrInsufficientFunds)
}

func TestVerifyTransactionRejectsBadSignature(t *testing.T) {
	sender, _ := newTestNode(t, 1)

	otherPrivKey, _, err := signature.GenerateKey()
	require.NoError(t, err)

	lookup := func(database.NodeId) (database.Node, bool) { return sender, true }
	balanceOf := func(database.NodeId) database.NoCoin { return database.NewNoCoin(100) }

	fromID := sender.ID
	tx := database.Transaction{From: &fromID, To: 2, Fee: database.Zero, Amount: database.NewNoCoin(1)}

	proof, err := database.SignTransaction(tx, otherPrivKey)
	require.NoError(t, err)

	_, err = database.VerifyTransaction(lookup, balanceOf, tx, proof)
	require.ErrorIs(t, err, database.ErrBadSignature)
}

func TestVerifyTransactionRejectsMalformedReward(t *testing.T) {
	lookup := func(database.NodeId) (database.Node, bool) { return database.Node{}, false }
	balanceOf := func(database.NodeId) database.NoCoin { return database.Zero }

	tx := database.Transaction{From: nil, To: 1, Fee: database.NewNoCoin(1), Amount: database.MiningReward}

	_, err := database.VerifyTransaction(lookup, balanceOf, tx, nil)
	require.ErrorIs(t, err, database.ErrMalformedReward)
}

func TestNewMiningRewardIsWellFormed(t *testing.T) {
	reward := database.NewMiningReward(7)

	require.True(t, reward.Transaction.Transaction.IsReward())
	require.True(t, reward.Transaction.Transaction.Amount.Equal(database.MiningReward))
	require.True(t, reward.Transaction.Transaction.Fee.Equal(database.Zero))
	require.Nil(t, reward.Proof)
}
