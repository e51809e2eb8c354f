package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/containerman17/btc-utxo-indexer/live"
	"github.com/gorilla/websocket"
)

func TestTipStreamSendsCurrentTip(t *testing.T) {
	server, _ := buildFixture(t)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	server.RegisterTipStream(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/tip"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var tip live.Tip
	if err := conn.ReadJSON(&tip); err != nil {
		t.Fatalf("read tip: %v", err)
	}
	if tip.Height != 1 {
		t.Errorf("tip height = %d", tip.Height)
	}
	if len(tip.Hash) != 64 {
		t.Errorf("tip hash = %q", tip.Hash)
	}
	if tip.Mempool != 0 {
		t.Errorf("tip mempool = %d", tip.Mempool)
	}
}
