// Package blockfiles walks the node's on-disk blkNNNNN.dat files and
// reconstructs the best chain from the scanned headers.
package blockfiles

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/containerman17/btc-utxo-indexer/wire"
	"github.com/containerman17/btc-utxo-indexer/workers"
)

// blockMagic prefixes every block container in a block file.
const blockMagic = 0xD9B4BEF9

var fileNamePattern = regexp.MustCompile(`^blk[0-9]{5}\.dat$`)

// FileBlock is one scanned block container: where its raw body lives plus the
// parsed header. Height is zero until the chain selector assigns it.
type FileBlock struct {
	Path   string
	Offset int64
	Length int
	header wire.BlockHeader
	height int
}

func (b FileBlock) Header() wire.BlockHeader { return b.header }
func (b FileBlock) Height() int              { return b.height }

// EachTransaction reads the raw block body from disk and decodes its
// transactions in declared order. I/O failures on block files are fatal.
func (b FileBlock) EachTransaction(cb func(*wire.Transaction)) {
	f, err := os.Open(b.Path)
	if err != nil {
		log.Fatalf("[scan] open %s: %v", b.Path, err)
	}
	defer f.Close()
	buf := make([]byte, b.Length)
	if _, err := f.ReadAt(buf, b.Offset); err != nil {
		log.Fatalf("[scan] read %s @%d: %v", b.Path, b.Offset, err)
	}
	wire.IterateTransactions(buf, cb)
}

// Scanner walks block files in a directory.
type Scanner struct {
	dir string
}

func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir}
}

func (s *Scanner) fileNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list block files in %s: %w", s.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if fileNamePattern.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// scanFile reads the container headers of one block file: for each block,
// [magic u32 | length u32 | raw block], where a zero magic marks the
// zero-padded tail of the file.
func (s *Scanner) scanFile(name string) ([]FileBlock, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var blocks []FileBlock
	var offset int64
	buf := make([]byte, 88)
	for {
		if _, err := f.ReadAt(buf, offset); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read %s @%d: %w", path, offset, err)
		}
		r := wire.NewReader(buf)
		magic := r.U32(nil)
		if magic == 0 {
			break
		}
		if magic != blockMagic {
			return nil, fmt.Errorf("%s @%d: bad magic %#x", path, offset, magic)
		}
		length := int(r.U32(nil))
		blocks = append(blocks, FileBlock{
			Path:   path,
			Offset: offset + 8,
			Length: length,
			header: wire.ParseBlockHeader(buf[8:]),
		})
		offset += 8 + int64(length)
	}
	return blocks, nil
}

// Scan reads every block file across the worker pool and returns the scanned
// containers in no particular order.
func (s *Scanner) Scan(threads int) ([]FileBlock, error) {
	names, err := s.fileNames()
	if err != nil {
		return nil, err
	}
	log.Printf("[scan] scanning %d block files...", len(names))
	start := time.Now()

	type result struct {
		blocks []FileBlock
		err    error
	}
	var blocks []FileBlock
	var firstErr error
	for r := range workers.Pool(threads, names, func(name string) result {
		b, err := s.scanFile(name)
		return result{blocks: b, err: err}
	}) {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		blocks = append(blocks, r.blocks...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	log.Printf("[scan] scanned %d blocks in %.1fs", len(blocks), time.Since(start).Seconds())
	return blocks, nil
}

// Blocks scans the directory and returns the longest chain in ascending
// height order.
func (s *Scanner) Blocks(threads int) ([]FileBlock, error) {
	blocks, err := s.Scan(threads)
	if err != nil {
		return nil, err
	}
	return LongestChain(blocks), nil
}
