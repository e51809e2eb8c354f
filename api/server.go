// Package api serves the balance and UTXO query surface.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/containerman17/btc-utxo-indexer/live"
	"github.com/containerman17/btc-utxo-indexer/wire"
)

// Amount renders satoshis as a fixed 8-decimal BTC value in JSON.
type Amount uint64

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(a)/1e8, 'f', 8, 64)), nil
}

type utxoJSON struct {
	Hash  string `json:"hash"`
	Vout  uint32 `json:"vout"`
	Value Amount `json:"value"`
}

type balanceJSON struct {
	Address string `json:"address"`
	Balance Amount `json:"balance"`
}

type addressUTXOsJSON struct {
	Address string     `json:"address"`
	UTXOs   []utxoJSON `json:"utxos"`
}

// Server exposes the query endpoints over a shared State.
type Server struct {
	state *live.State
}

func NewServer(state *live.State) *Server {
	return &Server{state: state}
}

// RegisterRoutes adds the HTTP handlers.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /addresses/{address}/balance", s.handleBalance)
	mux.HandleFunc("GET /addresses/{address}/utxos", s.handleUTXOs)
	mux.HandleFunc("GET /addresses/balance", s.handleBalances)
	mux.HandleFunc("POST /addresses/balance", s.handleBalances)
	mux.HandleFunc("GET /addresses/utxos", s.handleUTXOSets)
	mux.HandleFunc("POST /addresses/utxos", s.handleUTXOSets)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"message": message})
}

func (s *Server) parseConfirmations(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("confirmations")
	if raw == "" {
		return 0, nil
	}
	confirmations, err := strconv.Atoi(raw)
	if err != nil || confirmations < 0 {
		return 0, fmt.Errorf("invalid confirmations parameter %q", raw)
	}
	if confirmations > s.state.Confirmations() {
		return 0, fmt.Errorf("expecting confirmations parameter to be less or equal to %d",
			s.state.Confirmations())
	}
	return confirmations, nil
}

func parsePathAddress(r *http.Request) (wire.Address, error) {
	raw := r.PathValue("address")
	addr, err := wire.ParseAddress(raw)
	if err != nil {
		return wire.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return addr, nil
}

// parseAddressList reads addresses from the query string on GET and from a
// JSON array body on POST.
func parseAddressList(r *http.Request) ([]wire.Address, error) {
	var raw []string
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read body")
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("expecting a JSON array of address strings")
		}
	} else {
		param := r.URL.Query().Get("addresses")
		if param == "" {
			return nil, fmt.Errorf("missing addresses parameter")
		}
		raw = strings.Split(param, ",")
	}
	addrs := make([]wire.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := wire.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := parsePathAddress(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	confirmations, err := s.parseConfirmations(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, Amount(s.state.Balance(addr, confirmations)))
}

func (s *Server) handleUTXOs(w http.ResponseWriter, r *http.Request) {
	addr, err := parsePathAddress(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	confirmations, err := s.parseConfirmations(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	utxos := []utxoJSON{}
	s.state.IterateUTXOs(addr, confirmations, func(op wire.Outpoint, value uint64) {
		utxos = append(utxos, utxoJSON{
			Hash:  wire.ReversedHex(op.Hash),
			Vout:  op.Index,
			Value: Amount(value),
		})
	})
	writeJSON(w, http.StatusOK, utxos)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	addrs, err := parseAddressList(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	confirmations, err := s.parseConfirmations(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	balances := s.state.Balances(addrs, confirmations)
	result := make([]balanceJSON, len(addrs))
	for i, addr := range addrs {
		result[i] = balanceJSON{Address: addr.String(), Balance: Amount(balances[i])}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUTXOSets(w http.ResponseWriter, r *http.Request) {
	addrs, err := parseAddressList(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	confirmations, err := s.parseConfirmations(r)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	sets := s.state.UTXOSets(addrs, confirmations)
	result := make([]addressUTXOsJSON, len(addrs))
	for i, addr := range addrs {
		utxos := make([]utxoJSON, 0, len(sets[i]))
		for _, u := range sets[i] {
			utxos = append(utxos, utxoJSON{
				Hash:  wire.ReversedHex(u.Outpoint.Hash),
				Vout:  u.Outpoint.Index,
				Value: Amount(u.Value),
			})
		}
		result[i] = addressUTXOsJSON{Address: addr.String(), UTXOs: utxos}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "running",
		"height":        s.state.Height(),
		"tail":          s.state.TailLength(),
		"mempool":       s.state.MempoolSize(),
		"augmentations": s.state.AugmentationCount(),
		"confirmations": s.state.Confirmations(),
	})
}
