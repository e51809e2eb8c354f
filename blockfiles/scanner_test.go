package blockfiles

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/containerman17/btc-utxo-indexer/wire"
)

// rawBlock builds an 80-byte header (prev hash at offset 4, nonce varied to
// make the hash unique) plus a single coinbase-like transaction.
func rawBlock(prev [32]byte, nonce byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(1))
	buf.Write(prev[:])
	filler := make([]byte, 80-4-32)
	filler[len(filler)-1] = nonce
	buf.Write(filler)

	// one transaction: coinbase input, one output
	buf.WriteByte(1)
	binary.Write(&buf, binary.LittleEndian, int32(1))
	buf.WriteByte(1)
	buf.Write(wire.CoinbaseInput.Hash[:])
	binary.Write(&buf, binary.LittleEndian, wire.CoinbaseInput.Index)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, uint32(0xFFFFFFFF))
	buf.WriteByte(1)
	binary.Write(&buf, binary.LittleEndian, uint64(50_0000_0000))
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	return buf.Bytes()
}

func writeBlockFile(t *testing.T, dir, name string, rawBlocks [][]byte, zeroTail bool) {
	t.Helper()
	var buf bytes.Buffer
	for _, raw := range rawBlocks {
		binary.Write(&buf, binary.LittleEndian, uint32(blockMagic))
		binary.Write(&buf, binary.LittleEndian, uint32(len(raw)))
		buf.Write(raw)
	}
	if zeroTail {
		buf.Write(make([]byte, 200))
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanReadsContainers(t *testing.T) {
	dir := t.TempDir()
	var zero [32]byte
	b0 := rawBlock(zero, 0)
	h0 := wire.ParseBlockHeader(b0)
	b1 := rawBlock(h0.Hash, 1)
	writeBlockFile(t, dir, "blk00000.dat", [][]byte{b0, b1}, true)
	// a file the pattern must skip
	if err := os.WriteFile(filepath.Join(dir, "rev00000.dat"), []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}

	blocks, err := NewScanner(dir).Scan(2)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("scanned %d blocks", len(blocks))
	}
	if blocks[0].Offset != 8 || blocks[0].Length != len(b0) {
		t.Errorf("block 0 at %d len %d", blocks[0].Offset, blocks[0].Length)
	}
	if blocks[0].Header() != h0 {
		t.Errorf("block 0 header mismatch")
	}
	if blocks[1].Offset != int64(8+len(b0)+8) {
		t.Errorf("block 1 offset = %d", blocks[1].Offset)
	}
}

func TestScanRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	payload := make([]byte, 96)
	payload[0] = 0xAA // neither the magic nor zero padding
	if err := os.WriteFile(filepath.Join(dir, "blk00000.dat"), payload, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewScanner(dir).Scan(1); err == nil {
		t.Fatal("bad magic accepted")
	}
}

func TestFileBlockEachTransaction(t *testing.T) {
	dir := t.TempDir()
	var zero [32]byte
	raw := rawBlock(zero, 7)
	writeBlockFile(t, dir, "blk00000.dat", [][]byte{raw}, false)

	blocks, err := NewScanner(dir).Scan(1)
	if err != nil {
		t.Fatal(err)
	}
	var txs []*wire.Transaction
	blocks[0].EachTransaction(func(tx *wire.Transaction) { txs = append(txs, tx) })
	if len(txs) != 1 {
		t.Fatalf("decoded %d transactions", len(txs))
	}
	if len(txs[0].Outputs) != 1 || txs[0].Outputs[0].Value != 50_0000_0000 {
		t.Errorf("outputs = %v", txs[0].Outputs)
	}
}

func TestLongestChainPicksDeepestBranch(t *testing.T) {
	var zero [32]byte
	b0 := rawBlock(zero, 0)
	h0 := wire.ParseBlockHeader(b0)
	b1 := rawBlock(h0.Hash, 1)
	h1 := wire.ParseBlockHeader(b1)
	b2 := rawBlock(h1.Hash, 2)
	h2 := wire.ParseBlockHeader(b2)
	// short fork off block 0, and an orphan with an unknown parent
	fork := rawBlock(h0.Hash, 9)
	var unknown [32]byte
	unknown[0] = 0xEE
	orphan := rawBlock(unknown, 3)

	toFile := func(raw []byte) FileBlock {
		return FileBlock{header: wire.ParseBlockHeader(raw)}
	}
	chain := LongestChain([]FileBlock{toFile(orphan), toFile(b2), toFile(fork), toFile(b0), toFile(b1)})
	if len(chain) != 3 {
		t.Fatalf("chain length = %d", len(chain))
	}
	want := [][32]byte{h0.Hash, h1.Hash, h2.Hash}
	for i, block := range chain {
		if block.Header().Hash != want[i] {
			t.Errorf("chain[%d] = %x", i, block.Header().Hash)
		}
		if block.Height() != i {
			t.Errorf("chain[%d].Height = %d", i, block.Height())
		}
	}
}

func TestLongestChainEmpty(t *testing.T) {
	if got := LongestChain(nil); got != nil {
		t.Errorf("LongestChain(nil) = %v", got)
	}
}
