package live

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containerman17/btc-utxo-indexer/metrics"
	"github.com/containerman17/btc-utxo-indexer/store"
	"github.com/containerman17/btc-utxo-indexer/wire"
)

// Tip is the payload pushed to tip-stream subscribers after each cycle.
type Tip struct {
	Height  int    `json:"height"`
	Hash    string `json:"hash"`
	Mempool int    `json:"mempool"`
}

// State owns the canonical store, the tail of low-confirmation blocks, and
// the published augmentation vector.
//
// Lock order: writer mutex → store (write) → augmentations (write).
// Readers take store (read) then augmentations (read). The tail mutex is
// held across a whole update cycle and never nested inside the store write
// lock.
type State struct {
	storeMu sync.RWMutex
	store   *store.IndexedStore

	tailMu sync.Mutex
	tail   tailBlocks

	augMu sync.RWMutex
	augs  []*store.Augmentation

	// serializes store-mutating updates and on-disk snapshots; a losing
	// updater still refreshes the published augmentations
	writer sync.Mutex

	node          Node
	confirmations int

	// cached for /status and metrics without touching the update locks
	statHeight  atomic.Int64
	statTail    atomic.Int64
	statMempool atomic.Int64

	listenerMu sync.Mutex
	listeners  []chan Tip
}

func NewState(s *store.IndexedStore, node Node, confirmations int) *State {
	st := &State{
		store:         s,
		node:          node,
		confirmations: confirmations,
	}
	st.statHeight.Store(int64(s.Height()))
	return st
}

func (s *State) Confirmations() int {
	return s.confirmations
}

// update carries the outcome of a compute phase into the apply phase.
type update struct {
	augs   []*store.Augmentation
	blocks []*wire.Block // to promote into the canonical store
}

func (s *State) computeUpdate(ctx context.Context, updateStore bool) (*update, error) {
	s.storeMu.RLock()
	defer s.storeMu.RUnlock()
	s.tailMu.Lock()
	defer s.tailMu.Unlock()

	if err := s.tail.refreshMempool(ctx, s.node); err != nil {
		return nil, err
	}
	if err := s.tail.updateBlocks(ctx, s.store, s.node); err != nil {
		return nil, err
	}

	defer func() {
		s.statTail.Store(int64(len(s.tail.blocks)))
		s.statMempool.Store(int64(s.tail.mempool.size()))
	}()

	// promote on tail length, not on whether this cycle fetched anything:
	// a backlog left by a contended writer drains as soon as the lock frees
	var blocks []*wire.Block
	if updateStore {
		blocks = s.tail.pop(s.confirmations)
	}
	if len(blocks) > 0 {
		// augmentations must compose with the store as it will look after
		// promotion, so build them over a preview of the promoted blocks
		preview := store.NewAugmentedTxStore(s.store.Backend())
		for _, block := range blocks {
			preview.AddBlock(block)
		}
		return &update{augs: s.tail.augmentations(preview.Backend()), blocks: blocks}, nil
	}
	// even with no new block every level is rebuilt, so each one reflects
	// the mempool just refreshed above
	return &update{augs: s.tail.augmentations(s.store.Backend())}, nil
}

func (s *State) applyUpdate(u *update) bool {
	if len(u.blocks) > 0 {
		s.storeMu.Lock()
		for _, block := range u.blocks {
			s.store.AddBlock(block)
		}
		s.augMu.Lock()
		s.augs = u.augs
		s.augMu.Unlock()
		s.storeMu.Unlock()

		s.statHeight.Store(int64(s.store.Height()))
		metrics.BlocksPromotedTotal.Add(float64(len(u.blocks)))
		return true
	}

	s.augMu.Lock()
	s.augs = u.augs
	s.augMu.Unlock()
	return false
}

// Update runs one poll cycle. When the writer mutex is contended (a snapshot
// or another updater holds it) the cycle promotes nothing but still rebuilds
// and replaces the whole augmentation vector, so every confirmation level
// reflects the freshly fetched mempool. Returns whether blocks were promoted.
func (s *State) Update(ctx context.Context) (bool, error) {
	locked := s.writer.TryLock()
	if locked {
		defer s.writer.Unlock()
	}
	u, err := s.computeUpdate(ctx, locked)
	if err != nil {
		metrics.UpdateCyclesTotal.WithLabelValues("error").Inc()
		return false, err
	}
	promoted := s.applyUpdate(u)
	metrics.UpdateCyclesTotal.WithLabelValues("success").Inc()
	metrics.ChainHeight.Set(float64(s.statHeight.Load()))
	metrics.TailLength.Set(float64(s.statTail.Load()))
	metrics.MempoolSize.Set(float64(s.statMempool.Load()))
	s.notify()
	return promoted, nil
}

// Run polls the node on the configured interval until ctx is done. Snapshot
// signals are delivered on snapshots after each promotion.
func (s *State) Run(ctx context.Context, interval time.Duration, snapshots chan<- struct{}) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			promoted, err := s.Update(ctx)
			if err != nil {
				log.Printf("[updater] update failed, retrying next tick: %v", err)
				continue
			}
			if promoted && snapshots != nil {
				select {
				case snapshots <- struct{}{}:
				default: // a snapshot is already pending
				}
			}
		}
	}
}

// WriteStore snapshots the canonical store to path under the writer lock.
func (s *State) WriteStore(path string) error {
	s.writer.Lock()
	defer s.writer.Unlock()
	s.storeMu.RLock()
	defer s.storeMu.RUnlock()
	start := time.Now()
	err := s.store.Save(path)
	metrics.SnapshotSeconds.Observe(time.Since(start).Seconds())
	metrics.UTXOCount.Set(float64(s.store.Backend().UTXOCount()))
	return err
}

// view picks the read view for a confirmation depth. Depth K maps to
// augmentation len-1-K of the published vector (C-1-K once it holds C
// entries); K at or beyond the vector length means the raw canonical store.
// Called with both read locks held.
func (s *State) view(confirmations int) store.View {
	if confirmations >= len(s.augs) {
		return store.View{Base: s.store.Backend()}
	}
	return store.View{
		Base: s.store.Backend(),
		Aug:  s.augs[len(s.augs)-1-confirmations],
	}
}

func (s *State) withView(confirmations int, cb func(store.View)) {
	s.storeMu.RLock()
	defer s.storeMu.RUnlock()
	s.augMu.RLock()
	defer s.augMu.RUnlock()
	cb(s.view(confirmations))
}

// Balance returns the confirmed-or-better balance of an address at the given
// confirmation depth.
func (s *State) Balance(addr wire.Address, confirmations int) uint64 {
	var balance uint64
	s.withView(confirmations, func(v store.View) {
		balance = v.Balance(addr)
	})
	return balance
}

// IterateUTXOs visits the unspent outputs of an address at the given
// confirmation depth. Iteration order is unspecified.
func (s *State) IterateUTXOs(addr wire.Address, confirmations int, cb func(wire.Outpoint, uint64)) {
	s.withView(confirmations, func(v store.View) {
		v.Iterate(addr, cb)
	})
}

// Balances resolves a batch of addresses against one consistent view.
func (s *State) Balances(addrs []wire.Address, confirmations int) []uint64 {
	balances := make([]uint64, len(addrs))
	s.withView(confirmations, func(v store.View) {
		for i, addr := range addrs {
			balances[i] = v.Balance(addr)
		}
	})
	return balances
}

// UTXO is one unspent output in a bulk query result.
type UTXO struct {
	Outpoint wire.Outpoint
	Value    uint64
}

// UTXOSets resolves a batch of addresses against one consistent view.
func (s *State) UTXOSets(addrs []wire.Address, confirmations int) [][]UTXO {
	sets := make([][]UTXO, len(addrs))
	s.withView(confirmations, func(v store.View) {
		for i, addr := range addrs {
			var utxos []UTXO
			v.Iterate(addr, func(op wire.Outpoint, value uint64) {
				utxos = append(utxos, UTXO{Outpoint: op, Value: value})
			})
			sets[i] = utxos
		}
	})
	return sets
}

// Height returns the canonical store height without taking the store lock.
func (s *State) Height() int {
	return int(s.statHeight.Load())
}

// TailLength returns the cached tail length.
func (s *State) TailLength() int {
	return int(s.statTail.Load())
}

// MempoolSize returns the cached mempool transaction count.
func (s *State) MempoolSize() int {
	return int(s.statMempool.Load())
}

// AugmentationCount returns the published vector length.
func (s *State) AugmentationCount() int {
	s.augMu.RLock()
	defer s.augMu.RUnlock()
	return len(s.augs)
}

// Subscribe registers a tip listener. The returned channel receives a Tip
// after every successful update cycle; slow consumers drop updates.
func (s *State) Subscribe() chan Tip {
	ch := make(chan Tip, 4)
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, ch)
	s.listenerMu.Unlock()
	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (s *State) Unsubscribe(ch chan Tip) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for i, c := range s.listeners {
		if c == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			break
		}
	}
}

// CurrentTip reports the store tip plus tail as seen by subscribers.
func (s *State) CurrentTip() Tip {
	s.storeMu.RLock()
	hash, _ := s.store.LastBlockHash()
	s.storeMu.RUnlock()
	s.tailHashOverride(&hash)
	return Tip{
		Height:  s.Height() + s.TailLength(),
		Hash:    wire.ReversedHex(hash),
		Mempool: s.MempoolSize(),
	}
}

// tailHashOverride swaps in the tail tip hash when the tail mutex is free;
// during an update cycle the canonical tip is close enough.
func (s *State) tailHashOverride(hash *[32]byte) {
	if s.tailMu.TryLock() {
		if n := len(s.tail.blocks); n > 0 {
			*hash = s.tail.blocks[n-1].Header().Hash
		}
		s.tailMu.Unlock()
	}
}

func (s *State) notify() {
	tip := s.CurrentTip()
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- tip:
		default:
		}
	}
}
