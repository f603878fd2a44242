package database

import (
	"errors"
	"fmt"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
)

// MaxTransactionCount is the largest number of transactions a single
// block may carry.
const MaxTransactionCount = 10

// Sentinel errors tagging each validation failure kind. Handlers
// map these to HTTP status codes and wire error kinds at the boundary.
var (
	ErrUnknownSender     = errors.New("unknown sender")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBadSignature      = errors.New("signature does not verify")
	ErrMalformedReward   = errors.New("malformed mining reward")
)

// Transaction is a request to move NoCoin from one account to another.
// A nil From identifies a mining reward.
type Transaction struct {
	From   *NodeId `json:"from"`
	To     NodeId  `json:"to"`
	Fee    NoCoin  `json:"fee"`
	Amount NoCoin  `json:"amount"`
}

// IsReward reports whether this transaction is a mining reward, i.e. it
// has no sender.
func (t Transaction) IsReward() bool {
	return t.From == nil
}

// AffordableTransaction is a Transaction that has passed the balance
// check. It is a witness type: the only way to construct one is
// mapToAffordable, so a value of this type in hand is proof the check
// ran.
type AffordableTransaction struct {
	Transaction Transaction
}

// ProvenTransaction pairs an AffordableTransaction with its signature
// proof. Proof is nil exactly when the transaction is a mining reward.
type ProvenTransaction struct {
	Transaction AffordableTransaction `json:"transaction"`
	Proof       signature.Signature   `json:"proof"`
}

// NewMiningReward constructs the reward transaction a miner prepends to
// a block it is about to mine. The reward is only realized if the block
// is ultimately accepted by peers.
func NewMiningReward(minerID NodeId) ProvenTransaction {
	tx := Transaction{
		From:   nil,
		To:     minerID,
		Fee:    Zero,
		Amount: MiningReward,
	}

	return ProvenTransaction{
		Transaction: AffordableTransaction{Transaction: tx},
		Proof:       nil,
	}
}

// WalletBalance abstracts the balance lookup a sender is checked
// against: the network cache when warm, or a recompute over the chain.
type WalletBalance func(id NodeId) NoCoin

// SenderLookup abstracts resolving a NodeId to its known public key.
type SenderLookup func(id NodeId) (Node, bool)

// VerifyTransaction performs full transaction validation:
// affordability, signature verification, and reward well-formedness. It
// returns the ProvenTransaction on success.
func VerifyTransaction(lookup SenderLookup, balanceOf WalletBalance, tx Transaction, proof signature.Signature) (ProvenTransaction, error) {
	affordable, sender, err := mapToAffordable(lookup, balanceOf, tx)
	if err != nil {
		return ProvenTransaction{}, err
	}

	if tx.IsReward() {
		if !(tx.Amount.Equal(MiningReward) && tx.Fee.Equal(Zero)) {
			return ProvenTransaction{}, ErrMalformedReward
		}

		return ProvenTransaction{Transaction: affordable, Proof: nil}, nil
	}

	serialized, err := signature.Stamp(tx)
	if err != nil {
		return ProvenTransaction{}, fmt.Errorf("stamping transaction: %w", err)
	}

	if err := signature.Verify(serialized, proof, sender.PubKey); err != nil {
		return ProvenTransaction{}, ErrBadSignature
	}

	return ProvenTransaction{Transaction: affordable, Proof: proof}, nil
}

// mapToAffordable resolves the sender and checks the balance check of
// the affordability check. Reward transactions (From == nil) skip the check.
func mapToAffordable(lookup SenderLookup, balanceOf WalletBalance, tx Transaction) (AffordableTransaction, Node, error) {
	if tx.From == nil {
		return AffordableTransaction{Transaction: tx}, Node{}, nil
	}

	sender, ok := lookup(*tx.From)
	if !ok {
		return AffordableTransaction{}, Node{}, ErrUnknownSender
	}

	balance := balanceOf(*tx.From)
	if balance.LessEqual(tx.Amount.Add(tx.Fee)) {
		return AffordableTransaction{}, Node{}, ErrInsufficientFunds
	}

	return AffordableTransaction{Transaction: tx}, sender, nil
}

// SignTransaction produces the proof a sender attaches to a transaction
// it originates, for use by a wallet client (not part of the node's own
// HTTP surface, but the counterpart VerifyTransaction expects).
func SignTransaction(tx Transaction, priv signature.PrivKey) (signature.Signature, error) {
	serialized, err := signature.Stamp(tx)
	if err != nil {
		return nil, fmt.Errorf("stamping transaction: %w", err)
	}

	return signature.Sign(serialized, priv)
}
