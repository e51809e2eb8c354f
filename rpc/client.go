// Package rpc talks to a bitcoind-compatible node over JSON-RPC.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/containerman17/btc-utxo-indexer/metrics"
	"github.com/containerman17/btc-utxo-indexer/wire"
	"golang.org/x/sync/singleflight"
)

// Error codes the indexer consumes; everything else propagates.
const (
	codeUnknownTransaction = -5 // getrawtransaction: tx not found
	codeHeightOutOfRange   = -8 // getblockhash: no block at height
)

// Error is a JSON-RPC error returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Client is a bitcoind JSON-RPC client with connection pooling and request
// deduplication for transaction fetches.
type Client struct {
	url        string
	auth       string
	httpClient *http.Client
	cache      *TxCache

	// dedupes concurrent getrawtransaction calls for the same txid
	sfTx singleflight.Group
}

// NewClient creates a client with a pooled transport. Authorization is HTTP
// basic over plain HTTP, matching bitcoind.
func NewClient(host string, port int, user, password string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	return &Client{
		url:  fmt.Sprintf("http://%s:%d", host, port),
		auth: "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password)),
		httpClient: &http.Client{
			Transport: transport,
		},
	}
}

// SetTxCache attaches a persistent cache for raw transaction fetches.
func (c *Client) SetTxCache(cache *TxCache) {
	c.cache = cache
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "1.0",
		"id":      "indexer",
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RPCRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RPCRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		metrics.RPCRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		metrics.RPCRequestsTotal.WithLabelValues(method, "error").Inc()
		return envelope.Error
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RPCRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, body)
	}
	metrics.RPCRequestsTotal.WithLabelValues(method, "success").Inc()
	if result != nil {
		return json.Unmarshal(envelope.Result, result)
	}
	return nil
}

// errCode extracts the JSON-RPC error code, or 0 for transport errors.
func errCode(err error) int {
	if rpcErr, ok := err.(*Error); ok {
		return rpcErr.Code
	}
	return 0
}

// GetRawMempool returns the node's current mempool txids in the node's
// ordering.
func (c *Client) GetRawMempool(ctx context.Context) ([][32]byte, error) {
	var hexHashes []string
	if err := c.call(ctx, "getrawmempool", []any{false}, &hexHashes); err != nil {
		return nil, err
	}
	hashes := make([][32]byte, 0, len(hexHashes))
	for _, s := range hexHashes {
		hash, err := wire.ParseReversedHex(s)
		if err != nil {
			return nil, fmt.Errorf("getrawmempool: %w", err)
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// GetRawTransaction fetches and decodes a transaction. The second return is
// false when the node does not know the tx (code -5). Concurrent fetches for
// the same txid are deduplicated. When a persistent cache is attached, every
// fetched transaction is stored in it and later requests are served from it.
func (c *Client) GetRawTransaction(ctx context.Context, hash [32]byte) (*wire.Transaction, bool, error) {
	if c.cache != nil {
		if raw, ok := c.cache.Get(hash); ok {
			return wire.ParseTransaction(raw), true, nil
		}
	}

	key := string(hash[:])
	v, err, _ := c.sfTx.Do(key, func() (any, error) {
		var hexTx string
		if err := c.call(ctx, "getrawtransaction", []any{wire.ReversedHex(hash)}, &hexTx); err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(hexTx)
		if err != nil {
			return nil, fmt.Errorf("getrawtransaction: %w", err)
		}
		return raw, nil
	})
	if err != nil {
		if errCode(err) == codeUnknownTransaction {
			return nil, false, nil
		}
		return nil, false, err
	}
	raw := v.([]byte)
	if c.cache != nil {
		c.cache.Put(hash, raw)
	}
	return wire.ParseTransaction(raw), true, nil
}

// GetBlockHash returns the hash of the block at height. The second return is
// false when the node has no block there (code -8).
func (c *Client) GetBlockHash(ctx context.Context, height int) ([32]byte, bool, error) {
	var hexHash string
	if err := c.call(ctx, "getblockhash", []any{height}, &hexHash); err != nil {
		if errCode(err) == codeHeightOutOfRange {
			return [32]byte{}, false, nil
		}
		return [32]byte{}, false, err
	}
	hash, err := wire.ParseReversedHex(hexHash)
	if err != nil {
		return [32]byte{}, false, fmt.Errorf("getblockhash: %w", err)
	}
	return hash, true, nil
}

// GetBlock fetches the raw serialized block for a hash.
func (c *Client) GetBlock(ctx context.Context, hash [32]byte) ([]byte, error) {
	var hexBlock string
	if err := c.call(ctx, "getblock", []any{wire.ReversedHex(hash), 0}, &hexBlock); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(hexBlock)
	if err != nil {
		return nil, fmt.Errorf("getblock: %w", err)
	}
	return raw, nil
}
