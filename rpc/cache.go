package rpc

import (
	"github.com/cockroachdb/pebble/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/containerman17/btc-utxo-indexer/db"
)

// TxCache stores raw transaction bytes keyed by txid. Transaction bytes are
// content-addressed and immutable, so entries never expire; the cache
// directory can be deleted at any time to force re-fetching. Values are
// zstd-compressed.
type TxCache struct {
	db  *pebble.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenTxCache opens (or creates) a cache in dir.
func OpenTxCache(dir string) (*TxCache, error) {
	database, err := pebble.Open(dir, db.CacheOptions())
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		database.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		database.Close()
		return nil, err
	}
	return &TxCache{db: database, enc: enc, dec: dec}, nil
}

// Get returns the cached raw transaction, if present.
func (c *TxCache) Get(hash [32]byte) ([]byte, bool) {
	val, closer, err := c.db.Get(hash[:])
	if err != nil {
		return nil, false
	}
	defer closer.Close()
	raw, err := c.dec.DecodeAll(val, nil)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Put stores a raw transaction. Errors are ignored; the cache is advisory.
func (c *TxCache) Put(hash [32]byte, raw []byte) {
	compressed := c.enc.EncodeAll(raw, nil)
	c.db.Set(hash[:], compressed, pebble.NoSync)
}

// Close closes the underlying database.
func (c *TxCache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}
