package database

// CalculateWallet folds the chain and returns id's balance: the sum of
// mining fees earned for blocks it mined, plus amounts received, minus
// amounts (and fees) sent. Mining-reward transactions have no sender and
// contribute only to the recipient.
func CalculateWallet(id NodeId, chain Blockchain) NoCoin {
	balance := Zero

	for _, block := range chain {
		if block.MinedBy == id {
			balance = balance.Add(miningFees(block))
		}

		for _, proven := range block.Transactions {
			tx := proven.Transaction.Transaction

			if tx.To == id {
				balance = balance.Add(tx.Amount)
			}
			if tx.From != nil && *tx.From == id {
				balance = balance.Sub(tx.Amount).Sub(tx.Fee)
			}
		}
	}

	return balance
}

// CalculateAllWallets returns the balance of every node id touched by
// the chain, either as a sender, a recipient, or a miner. It is used to
// seed the Network's wallet cache, which transaction validation reads
// when warm; each balance it returns equals CalculateWallet for that id.
func CalculateAllWallets(chain Blockchain) map[NodeId]NoCoin {
	balances := make(map[NodeId]NoCoin)

	touch := func(id NodeId) {
		if _, ok := balances[id]; !ok {
			balances[id] = Zero
		}
	}

	for _, block := range chain {
		touch(block.MinedBy)
		balances[block.MinedBy] = balances[block.MinedBy].Add(miningFees(block))

		for _, proven := range block.Transactions {
			tx := proven.Transaction.Transaction

			touch(tx.To)
			balances[tx.To] = balances[tx.To].Add(tx.Amount)

			if tx.From != nil {
				touch(*tx.From)
				balances[*tx.From] = balances[*tx.From].Sub(tx.Amount).Sub(tx.Fee)
			}
		}
	}

	return balances
}

// miningFees sums the fees of every transaction in a block — the
// reward a miner earns on top of the fixed mining reward.
func miningFees(block Block) NoCoin {
	total := Zero
	for _, proven := range block.Transactions {
		total = total.Add(proven.Transaction.Transaction.Fee)
	}
	return total
}
