package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// statsPushInterval is how often a connected stats client receives a fresh
// pool snapshot.
const statsPushInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStatsWS streams pool stats snapshots over a websocket. Operators use
// it to watch refcounts and idle times live while hunting client leaks.
func (s *Server) handleStatsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] stats websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[SERVER] stats stream connected: %s", r.RemoteAddr)

	// Reader goroutine notices the peer going away; the websocket close
	// handshake only surfaces through ReadMessage.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.pool.Stats()); err != nil {
			log.Printf("[SERVER] stats stream write: %v", err)
			return
		}
		select {
		case <-done:
			log.Printf("[SERVER] stats stream disconnected: %s", r.RemoteAddr)
			return
		case <-ticker.C:
		}
	}
}
