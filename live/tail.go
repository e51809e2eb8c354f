// Package live keeps the index current against a running node: the tail of
// low-confirmation blocks, the mempool view, and the locked state machine
// that folds confirmed blocks into the canonical store.
package live

import (
	"context"
	"log"

	"github.com/containerman17/btc-utxo-indexer/store"
	"github.com/containerman17/btc-utxo-indexer/wire"
)

// Node is the JSON-RPC surface the updater needs. *rpc.Client implements it.
type Node interface {
	GetRawMempool(ctx context.Context) ([][32]byte, error)
	GetRawTransaction(ctx context.Context, hash [32]byte) (*wire.Transaction, bool, error)
	GetBlockHash(ctx context.Context, height int) ([32]byte, bool, error)
	GetBlock(ctx context.Context, hash [32]byte) ([]byte, error)
}

// mempool holds the node's transactions in the node's returned order.
type mempool struct {
	hashes [][32]byte
	txs    map[[32]byte]*wire.Transaction
}

func (m *mempool) each(cb func(*wire.Transaction)) {
	for _, hash := range m.hashes {
		if tx, ok := m.txs[hash]; ok {
			cb(tx)
		}
	}
}

func (m *mempool) size() int {
	return len(m.txs)
}

// tailBlocks is the single-holder structure of recent blocks above the
// canonical store plus the current mempool.
type tailBlocks struct {
	blocks  []*wire.Block
	mempool mempool
}

// refreshMempool replaces the mempool with the node's current set, reusing
// already-fetched transactions. Transactions the node no longer knows
// (code -5) are dropped for this cycle.
func (t *tailBlocks) refreshMempool(ctx context.Context, node Node) error {
	hashes, err := node.GetRawMempool(ctx)
	if err != nil {
		return err
	}
	txs := make(map[[32]byte]*wire.Transaction, len(hashes))
	for _, hash := range hashes {
		if tx, ok := t.mempool.txs[hash]; ok {
			txs[hash] = tx
			continue
		}
		tx, found, err := node.GetRawTransaction(ctx, hash)
		if err != nil {
			return err
		}
		if !found {
			log.Printf("[updater] could not get transaction %s", wire.ReversedHex(hash))
			continue
		}
		txs[hash] = tx
	}
	t.mempool = mempool{hashes: hashes, txs: txs}
	return nil
}

func (t *tailBlocks) lastHash(canonical *store.IndexedStore) [32]byte {
	if n := len(t.blocks); n > 0 {
		return t.blocks[n-1].Header().Hash
	}
	hash, ok := canonical.LastBlockHash()
	if !ok {
		return [32]byte{}
	}
	return hash
}

// updateBlocks walks getblockhash/getblock from the next height until the
// node runs out. A block that does not extend the current tip pops one tail
// block instead (a shallow reorg); a reorg deeper than the tail empties it,
// and the next block that does not extend the canonical tip is fatal.
func (t *tailBlocks) updateBlocks(ctx context.Context, canonical *store.IndexedStore, node Node) error {
	for {
		height := canonical.Height() + len(t.blocks)
		hash, ok, err := node.GetBlockHash(ctx, height)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		raw, err := node.GetBlock(ctx, hash)
		if err != nil {
			return err
		}
		block := wire.ParseBlock(raw, height)
		if block.Header().PreviousBlockHash == t.lastHash(canonical) {
			t.blocks = append(t.blocks, block)
		} else {
			if len(t.blocks) == 0 {
				log.Fatalf("[updater] reorg deeper than the confirmation window at height %d; restart required", height)
			}
			t.blocks = t.blocks[:len(t.blocks)-1]
		}
	}
}

// pop removes and returns the blocks that have fallen below the confirmation
// window, leaving at most confirmations-1 in the tail.
func (t *tailBlocks) pop(confirmations int) []*wire.Block {
	var promoted []*wire.Block
	for len(t.blocks) > confirmations-1 {
		promoted = append(promoted, t.blocks[0])
		t.blocks = t.blocks[1:]
	}
	return promoted
}

// augmentation builds the overlay for one confirmation level: replay the
// first count tail blocks over base, then the mempool in node order. A
// mempool transaction is included only when every input is visible in the
// already-augmented view; parents appearing later in the list are picked up
// on the next cycle.
func (t *tailBlocks) augmentation(base store.Backend, count int) *store.Augmentation {
	over := store.NewAugmentedTxStore(base)
	for i := 0; i < count; i++ {
		over.AddBlock(t.blocks[i])
	}
	t.mempool.each(func(tx *wire.Transaction) {
		if over.CanAdd(tx) {
			over.AddTransaction(tx)
		}
	})
	return over.Backend().TakeAugmentation()
}

// augmentations builds the full vector: index i reflects the first i tail
// blocks plus the mempool.
func (t *tailBlocks) augmentations(base store.Backend) []*store.Augmentation {
	augs := make([]*store.Augmentation, 0, len(t.blocks)+1)
	for i := 0; i <= len(t.blocks); i++ {
		augs = append(augs, t.augmentation(base, i))
	}
	return augs
}
