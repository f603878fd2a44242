package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
)

// GenesisDifficulty is the fixed difficulty of block 0.
const GenesisDifficulty = 3

// Sentinel errors for chain-level validation failures, mapped to
// bad-block / bad-chain kinds).
var (
	ErrBadPrevHash                = errors.New("previous block hash mismatch")
	ErrPOWFailed                  = errors.New("proof of work does not match difficulty")
	ErrForeignTransactionsInBlock = errors.New("block contains more than one transaction absent from the pool")
	ErrGenesisMalformed           = errors.New("genesis block is malformed")
	ErrEmptyChain                 = errors.New("blockchain has no blocks")
)

// BlockHeader carries everything about a block except its transactions.
type BlockHeader struct {
	Index      uint64 `json:"index"`
	PrevHash   string `json:"prev_hash"`
	Hash       string `json:"hash"`
	Timestamp  int64  `json:"timestamp"`
	Difficulty int    `json:"difficulty"`
}

// Block is a batch of proven transactions plus the proof-of-work nonce
// that makes its hash satisfy the header's difficulty.
type Block struct {
	Header       BlockHeader         `json:"header"`
	MinedBy      NodeId              `json:"mined_by"`
	Transactions []ProvenTransaction `json:"transactions"`
	Nonce        uint32              `json:"nonce"`
}

// Blockchain is the ordered, append-only sequence of blocks.
type Blockchain []Block

// genesisNonce is the nonce that makes an empty transaction list's hash
// satisfy GenesisDifficulty leading hex zeroes. It is a fixed point, not
// a mined secret: every node computes the same genesis block, so it must
// agree on this nonce the same way it agrees on GenesisDifficulty.
const genesisNonce = 2017

// NewGenesisBlock constructs block 0: no transactions, a zero previous
// hash, and the fixed genesis difficulty. Its hash still satisfies the
// chain's proof-of-work predicate, using the fixed
// genesisNonce rather than one discovered by mining.
func NewGenesisBlock() Block {
	header := BlockHeader{
		Index:      0,
		PrevHash:   signature.ZeroHash,
		Timestamp:  0,
		Difficulty: GenesisDifficulty,
	}

	hash, err := HashTransactions(nil, genesisNonce)
	if err != nil {
		// Hashing an empty transaction slice cannot fail: Stamp only fails
		// on unmarshalable values, and []ProvenTransaction(nil) always
		// marshals.
		panic(fmt.Sprintf("hashing genesis block: %v", err))
	}
	header.Hash = hash

	return Block{Header: header, MinedBy: NodeId(0), Transactions: nil, Nonce: genesisNonce}
}

// HashTransactions computes H(T, n): the SHA-256 hex
// digest of the canonical encoding of the transaction slice concatenated
// with the nonce's little-endian bytes.
func HashTransactions(transactions []ProvenTransaction, nonce uint32) (string, error) {
	payload, err := signature.Stamp(transactions)
	if err != nil {
		return "", fmt.Errorf("stamping transactions: %w", err)
	}

	var nonceBytes [4]byte
	binary.LittleEndian.PutUint32(nonceBytes[:], nonce)
	payload = append(payload, nonceBytes[:]...)

	return signature.HashBytes(payload), nil
}

// Matches reports whether hash has at least difficulty leading hex-zero
// characters, the proof-of-work predicate.
func Matches(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}

	if len(hash) < difficulty {
		return false
	}

	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// ValidateChain walks a whole chain end to end: used when
// adopting a peer's chain at bootstrap. It checks genesis well-formedness,
// hash chaining, and proof-of-work for every block; it does not re-verify
// transaction signatures, a documented gap preserved here.
func ValidateChain(chain Blockchain) error {
	if len(chain) == 0 {
		return ErrEmptyChain
	}

	genesis := chain[0]
	wantGenesis := NewGenesisBlock()
	switch {
	case len(genesis.Transactions) != 0:
		return ErrGenesisMalformed
	case genesis.Header.PrevHash != signature.ZeroHash:
		return ErrGenesisMalformed
	case genesis.Header.Difficulty != GenesisDifficulty:
		return ErrGenesisMalformed
	case genesis.Header.Hash != wantGenesis.Header.Hash:
		return ErrGenesisMalformed
	}

	if !Matches(genesis.Header.Hash, genesis.Header.Difficulty) {
		return ErrGenesisMalformed
	}

	for i := 1; i < len(chain); i++ {
		prev := chain[i-1]
		cur := chain[i]

		if cur.Header.PrevHash != prev.Header.Hash {
			return ErrBadPrevHash
		}

		hash, err := HashTransactions(cur.Transactions, cur.Nonce)
		if err != nil {
			return err
		}

		if hash != cur.Header.Hash || !Matches(hash, cur.Header.Difficulty) {
			return ErrPOWFailed
		}
	}

	return nil
}

// ValidateNextBlock checks that candidate strictly extends tip: its
// prev-hash matches the tip's hash and its proof of work is correct.
// This is the check TryAddBlock (state package) performs before
// appending; chain reorganization is out of scope.
func ValidateNextBlock(tip Block, candidate Block) error {
	if candidate.Header.PrevHash != tip.Header.Hash {
		return ErrBadPrevHash
	}

	hash, err := HashTransactions(candidate.Transactions, candidate.Nonce)
	if err != nil {
		return err
	}

	if hash != candidate.Header.Hash || !Matches(hash, candidate.Header.Difficulty) {
		return ErrPOWFailed
	}

	return nil
}

// NewMinedBlock assembles a Block around a difficulty, nonce, and hash
// already discovered by the mining engine.
func NewMinedBlock(tip Block, minerID NodeId, difficulty int, transactions []ProvenTransaction, nonce uint32, hash string) Block {
	return Block{
		Header: BlockHeader{
			Index:      tip.Header.Index + 1,
			PrevHash:   tip.Header.Hash,
			Hash:       hash,
			Timestamp:  time.Now().UTC().Unix(),
			Difficulty: difficulty,
		},
		MinedBy:      minerID,
		Transactions: transactions,
		Nonce:        nonce,
	}
}
