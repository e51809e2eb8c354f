package store

import (
	"log"
	"time"

	"github.com/containerman17/btc-utxo-indexer/workers"
)

// FromBlocks builds the canonical store from a chain of blocks in ascending
// height order. With more than one thread the chain is cut into contiguous
// batches, each worker folds its batch into an intermediary store, and the
// batches merge into the canonical store in chain order.
func FromBlocks[T Block](blocks []T, threads, batchSize int) *IndexedStore {
	indexed := NewIndexedStore()
	if len(blocks) == 0 {
		return indexed
	}
	start := time.Now()
	log.Printf("[build] indexing %d blocks on %d threads...", len(blocks), threads)

	if threads <= 1 {
		lastLog := time.Now()
		for i, block := range blocks {
			indexed.AddBlock(block)
			if time.Since(lastLog) > 5*time.Second {
				logBuildProgress(i+1, len(blocks), start)
				lastLog = time.Now()
			}
		}
	} else {
		batches := workers.Batches(anyBlocks(blocks), batchSize)
		merged := 0
		lastLog := time.Now()
		for st := range workers.Sequential(threads, batches, buildBatch) {
			st.MergeInto(indexed)
			merged += st.Height()
			if time.Since(lastLog) > 5*time.Second {
				logBuildProgress(merged, len(blocks), start)
				lastLog = time.Now()
			}
		}
	}

	elapsed := time.Since(start).Seconds()
	if elapsed < 0.001 {
		elapsed = 0.001
	}
	log.Printf("[build] indexed %d blocks in %.1fs (%.0f blk/s), %d utxos",
		len(blocks), elapsed, float64(len(blocks))/elapsed, indexed.Backend().UTXOCount())
	return indexed
}

func buildBatch(batch []Block) *IntermediaryStore {
	st := NewIntermediaryStore()
	for _, block := range batch {
		st.AddBlock(block)
	}
	return st
}

func anyBlocks[T Block](blocks []T) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
	}
	return out
}

func logBuildProgress(done, total int, start time.Time) {
	elapsed := time.Since(start).Seconds()
	if elapsed == 0 {
		elapsed = 0.001
	}
	rate := float64(done) / elapsed
	eta := float64(total-done) / rate / 60
	log.Printf("[build] block %d/%d | %.0f blk/s | ETA %.1f min", done, total, rate, eta)
}
