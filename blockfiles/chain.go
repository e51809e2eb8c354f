package blockfiles

import "log"

// LongestChain selects the deepest chain among the scanned blocks by walking
// parent→child links from the genesis sentinel (the all-zero previous hash).
// Orphans are dropped. When competing branches reach the same depth the first
// tip encountered wins; selection is depth-based, not work-weighted.
func LongestChain(blocks []FileBlock) []FileBlock {
	byHash := make(map[[32]byte]FileBlock, len(blocks))
	children := make(map[[32]byte][][32]byte, len(blocks))
	for _, block := range blocks {
		prev := block.header.PreviousBlockHash
		children[prev] = append(children[prev], block.header.Hash)
		byHash[block.header.Hash] = block
	}

	var zero [32]byte
	height := 0
	tips := [][32]byte{zero}
	for {
		var next [][32]byte
		for _, tip := range tips {
			next = append(next, children[tip]...)
		}
		if len(next) == 0 {
			break
		}
		height++
		tips = next
	}
	if height == 0 {
		return nil
	}

	chain := make([]FileBlock, height)
	current := tips[0]
	for i := height - 1; i >= 0; i-- {
		block, ok := byHash[current]
		if !ok {
			log.Fatalf("[scan] chain walk lost block at height %d", i)
		}
		block.height = i
		chain[i] = block
		current = block.header.PreviousBlockHash
	}
	if current != zero {
		log.Fatalf("[scan] chain walk did not terminate at genesis")
	}
	return chain
}
