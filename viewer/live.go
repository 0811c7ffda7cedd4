package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveLiveStats upgrades to a websocket and pushes a fresh statsResponse
// every interval until the client disconnects, following the teacher's
// battlesnake live-game websocket handler but tailing aggregate archive
// stats instead of board frames.
func serveLiveStats(cache *dbCache, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("viewer: websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			db, err := cache.get()
			if err == nil {
				if stats, err := queryStats(r.Context(), db); err == nil {
					if err := conn.WriteJSON(stats); err != nil {
						return
					}
				}
			}
			select {
			case <-ticker.C:
			case <-r.Context().Done():
				return
			}
		}
	}
}
