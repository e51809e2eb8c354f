package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/containerman17/btc-utxo-indexer/api"
	"github.com/containerman17/btc-utxo-indexer/blockfiles"
	"github.com/containerman17/btc-utxo-indexer/config"
	"github.com/containerman17/btc-utxo-indexer/live"
	"github.com/containerman17/btc-utxo-indexer/metrics"
	"github.com/containerman17/btc-utxo-indexer/rpc"
	"github.com/containerman17/btc-utxo-indexer/store"
)

// openStore loads the persisted store or rebuilds it from the block files.
// At build time the last confirmations-1 blocks stay out of the canonical
// store; the updater re-fetches them into its tail on the first cycle.
func openStore(cfg *config.Configuration) *store.IndexedStore {
	s, err := store.Load(cfg.StoreFilePath)
	if err != nil {
		log.Fatalf("[store] %v", err)
	}
	if s != nil {
		return s
	}

	log.Printf("[store] no store file at %s, scanning block files", cfg.StoreFilePath)
	blocks, err := blockfiles.NewScanner(cfg.BlockFilesPath).Blocks(cfg.Threads)
	if err != nil {
		log.Fatalf("[scan] %v", err)
	}
	// the store always stops confirmations-1 below the scanned tip, even on
	// a chain shorter than the window, so shallow reorgs stay in the tail
	keep := len(blocks) - cfg.Confirmations + 1
	if keep < 0 {
		keep = 0
	}
	blocks = blocks[:keep]
	s = store.FromBlocks(blocks, cfg.Threads, cfg.BatchSize)
	if err := s.Save(cfg.StoreFilePath); err != nil {
		log.Fatalf("[store] %v", err)
	}
	return s
}

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsPort != 0 {
		metrics.StartServer(fmt.Sprintf(":%d", cfg.MetricsPort))
	}

	client := rpc.NewClient(cfg.RPCHost, cfg.RPCPort, cfg.RPCUser, cfg.RPCPassword)
	if cfg.RPCCachePath != "" {
		cache, err := rpc.OpenTxCache(cfg.RPCCachePath)
		if err != nil {
			log.Fatalf("[cache] open %s: %v", cfg.RPCCachePath, err)
		}
		defer cache.Close()
		client.SetTxCache(cache)
	}

	s := openStore(cfg)
	metrics.UTXOCount.Set(float64(s.Backend().UTXOCount()))
	state := live.NewState(s, client, cfg.Confirmations)

	// first update runs to completion before the query server starts
	log.Printf("[updater] initial update...")
	if _, err := state.Update(ctx); err != nil {
		log.Fatalf("[updater] initial update: %v", err)
	}
	log.Printf("[updater] initial update done, height %d, tail %d, mempool %d",
		state.Height(), state.TailLength(), state.MempoolSize())

	var wg sync.WaitGroup
	snapshots := make(chan struct{}, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("[updater] polling every %s", cfg.UpdateInterval)
		if err := state.Run(ctx, cfg.UpdateInterval, snapshots); err != nil && err != context.Canceled {
			log.Printf("[updater] stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-snapshots:
				log.Printf("[snapshot] writing store...")
				if err := state.WriteStore(cfg.StoreFilePath); err != nil {
					log.Printf("[snapshot] %v", err)
				}
			}
		}
	}()

	mux := http.NewServeMux()
	queries := api.NewServer(state)
	queries.RegisterRoutes(mux)
	queries.RegisterTipStream(mux)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: mux}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("[http] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[http] server error: %v", err)
		}
	}()

	<-ctx.Done()
	server.Close()
	wg.Wait()
	log.Println("shutdown complete")
}
