package wire

// Outpoint identifies a single transaction output: txid plus output index.
// Comparable; used as the primary key of the UTXO index.
type Outpoint struct {
	Hash  [32]byte
	Index uint32
}

// CoinbaseInput is the sentinel input of a block's first transaction.
// It creates new coins and is never looked up in the store.
var CoinbaseInput = Outpoint{Index: 0xFFFFFFFF}

// TxOutput is a decoded output: value in satoshis plus the raw script.
type TxOutput struct {
	Value  uint64
	Script []byte
}

// Transaction is the decoded form the indexer works with. Hash is the
// canonical txid: double-SHA-256 over the tx bytes excluding the segwit
// marker/flag and witness data.
type Transaction struct {
	Hash    [32]byte
	Inputs  []Outpoint
	Outputs []TxOutput
}

// ParseTransaction decodes one transaction from the start of buf.
func ParseTransaction(buf []byte) *Transaction {
	return ReadTransaction(NewReader(buf))
}

// ReadTransaction decodes one transaction at the reader's position.
// Witness sections are skipped and excluded from the txid.
func ReadTransaction(r *Reader) *Transaction {
	h := NewHasher()
	_ = r.I32(h) // version
	var flags uint8
	if r.PeekU8() == 0 {
		// segwit marker + flag, not part of the txid
		r.Skip(1, nil)
		flags = r.U8(nil)
	}
	countIn := r.VarInt(h)
	inputs := make([]Outpoint, 0, countIn)
	for i := uint64(0); i < countIn; i++ {
		hash := r.Hash(h)
		index := r.U32(h)
		_ = r.VarBytes(h) // input script
		_ = r.U32(h)      // sequence
		inputs = append(inputs, Outpoint{Hash: hash, Index: index})
	}
	countOut := r.VarInt(h)
	outputs := make([]TxOutput, 0, countOut)
	for i := uint64(0); i < countOut; i++ {
		value := r.U64(h)
		script := r.VarBytes(h)
		outputs = append(outputs, TxOutput{Value: value, Script: script})
	}
	if flags&0x01 != 0 {
		for i := uint64(0); i < countIn; i++ {
			witnesses := r.VarInt(nil)
			for j := uint64(0); j < witnesses; j++ {
				_ = r.VarBytes(nil)
			}
		}
	}
	_ = r.U32(h) // locktime
	return &Transaction{
		Hash:    h.Sum(),
		Inputs:  inputs,
		Outputs: outputs,
	}
}
