package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RegisterTipStream adds the websocket endpoint pushing tip updates after
// every successful poll cycle, so clients don't have to poll /status.
func (s *Server) RegisterTipStream(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/tip", s.handleTipStream)
}

func (s *Server) handleTipStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates := s.state.Subscribe()
	defer s.state.Unsubscribe(updates)

	// drain reads so close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.state.CurrentTip()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case tip := <-updates:
			if err := conn.WriteJSON(tip); err != nil {
				return
			}
		}
	}
}
