package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/containerman17/btc-utxo-indexer/wire"
)

// The canonical store serializes to a single flat little-endian stream:
//
//	u32 n_headers
//	n_headers × { 32B hash, 32B previous_hash }
//	u32 n_utxos
//	n_utxos × { 32B tx_hash, u32 out_index, u64 value,
//	            u8 has_addr, [21B version|hash20] }
//
// No framing, no checksum; a format change means a rebuild.

// WriteTo streams the store in the flat-file format.
func (s *IndexedStore) WriteTo(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], uint32(len(s.headers)))
	bw.Write(scratch[:4])
	for _, header := range s.headers {
		bw.Write(header.Hash[:])
		bw.Write(header.PreviousBlockHash[:])
	}

	binary.LittleEndian.PutUint32(scratch[:4], uint32(s.backend.UTXOCount()))
	bw.Write(scratch[:4])
	s.backend.rangeOutputs(func(op wire.Outpoint, rec outputRecord) {
		bw.Write(op.Hash[:])
		binary.LittleEndian.PutUint32(scratch[:4], op.Index)
		bw.Write(scratch[:4])
		binary.LittleEndian.PutUint64(scratch[:], rec.value)
		bw.Write(scratch[:])
		if rec.addr != nil {
			bw.WriteByte(1)
			bw.Write(rec.addr.Bytes())
		} else {
			bw.WriteByte(0)
		}
	})
	return bw.Flush()
}

// ReadStore rebuilds a store from the flat-file format in a single pass.
func ReadStore(r io.Reader) (*IndexedStore, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	var scratch [64]byte

	readFull := func(n int) ([]byte, error) {
		if _, err := io.ReadFull(br, scratch[:n]); err != nil {
			return nil, err
		}
		return scratch[:n], nil
	}

	store := NewIndexedStore()

	buf, err := readFull(4)
	if err != nil {
		return nil, fmt.Errorf("read header count: %w", err)
	}
	nHeaders := binary.LittleEndian.Uint32(buf)
	for i := uint32(0); i < nHeaders; i++ {
		buf, err := readFull(64)
		if err != nil {
			return nil, fmt.Errorf("read header %d: %w", i, err)
		}
		var header wire.BlockHeader
		copy(header.Hash[:], buf[:32])
		copy(header.PreviousBlockHash[:], buf[32:])
		store.addHeader(header)
	}

	buf, err = readFull(4)
	if err != nil {
		return nil, fmt.Errorf("read utxo count: %w", err)
	}
	nUTXOs := binary.LittleEndian.Uint32(buf)
	store.backend = NewIndexedBackendSized(int(nUTXOs), int(nUTXOs)/2+1)
	for i := uint32(0); i < nUTXOs; i++ {
		buf, err := readFull(32 + 4 + 8 + 1)
		if err != nil {
			return nil, fmt.Errorf("read utxo %d: %w", i, err)
		}
		var op wire.Outpoint
		copy(op.Hash[:], buf[:32])
		op.Index = binary.LittleEndian.Uint32(buf[32:36])
		value := binary.LittleEndian.Uint64(buf[36:44])
		var addr *wire.Address
		if buf[44] != 0 {
			abuf, err := readFull(21)
			if err != nil {
				return nil, fmt.Errorf("read utxo %d address: %w", i, err)
			}
			a, err := wire.AddressFromBytes(abuf)
			if err != nil {
				return nil, fmt.Errorf("utxo %d: %w", i, err)
			}
			addr = &a
		}
		store.backend.Add(op, addr, value)
	}
	return store, nil
}

// Save writes the store to path.
func (s *IndexedStore) Save(path string) error {
	start := time.Now()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := s.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	log.Printf("[store] wrote %d utxos, %d headers to %s in %.1fs",
		s.backend.UTXOCount(), len(s.headers), path, time.Since(start).Seconds())
	return nil
}

// Load reads a store from path. A missing file is not an error: it returns
// (nil, nil) so the caller falls back to a full block scan.
func Load(path string) (*IndexedStore, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	start := time.Now()
	store, err := ReadStore(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Printf("[store] loaded %d utxos, %d headers from %s in %.1fs",
		store.backend.UTXOCount(), len(store.headers), path, time.Since(start).Seconds())
	return store, nil
}
