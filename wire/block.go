package wire

// BlockHeader carries the two hashes the indexer needs per block. Both are
// double-SHA-256 of the 80-byte raw header, kept in wire byte order; the
// RPC/display boundary reverses them.
type BlockHeader struct {
	Hash              [32]byte
	PreviousBlockHash [32]byte
}

// ParseBlockHeader hashes the first 80 bytes of a raw block and extracts the
// previous-block hash at offset 4.
func ParseBlockHeader(buf []byte) BlockHeader {
	h := NewHasher()
	r := NewReader(buf)
	raw := r.Bytes(80, h)
	hr := NewReader(raw)
	hr.Skip(4, nil)
	return BlockHeader{
		Hash:              h.Sum(),
		PreviousBlockHash: hr.Hash(nil),
	}
}

// IterateTransactions decodes the transactions of a raw block in declared
// order, calling cb for each.
func IterateTransactions(buf []byte, cb func(*Transaction)) {
	r := NewReader(buf[80:])
	count := r.VarInt(nil)
	for i := uint64(0); i < count; i++ {
		cb(ReadTransaction(r))
	}
}

// Block is a fully decoded block. Height is assigned by whoever places the
// block on a chain (the chain selector or the live updater).
type Block struct {
	BlockHeight  int
	BlockHeader  BlockHeader
	Transactions []*Transaction
}

// ParseBlock decodes a raw block at a known height.
func ParseBlock(buf []byte, height int) *Block {
	header := ParseBlockHeader(buf)
	var txs []*Transaction
	IterateTransactions(buf, func(tx *Transaction) {
		txs = append(txs, tx)
	})
	return &Block{BlockHeight: height, BlockHeader: header, Transactions: txs}
}

func (b *Block) Header() BlockHeader { return b.BlockHeader }
func (b *Block) Height() int        { return b.BlockHeight }

func (b *Block) EachTransaction(cb func(*Transaction)) {
	for _, tx := range b.Transactions {
		cb(tx)
	}
}
