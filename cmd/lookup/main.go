// Command lookup is the room code lookup service: a small HTTP front end
// over internal/lobby's in-memory room store, so a client can exchange a
// short code for the host address it should connect rayman to.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/andersfylling/predictsim/internal/lobby"
)

// Version is set at build time.
var Version = "dev"

type createRequest struct {
	Host       string `json:"host"`
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
}

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	ttl := flag.Duration("ttl", 10*time.Minute, "room entry time-to-live")
	flag.Parse()

	fmt.Printf("Room Lookup Service v%s\n", Version)

	store := lobby.NewRoomStore(*ttl)
	log := slog.Default()

	go func() {
		for range time.Tick(time.Minute) {
			store.Cleanup()
		}
	}()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /rooms", func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		room, err := store.Create(req.Host, req.Name, req.MaxPlayers)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(room)
	})

	mux.HandleFunc("GET /rooms/{code}", func(w http.ResponseWriter, r *http.Request) {
		room, err := store.Lookup(r.PathValue("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(room)
	})

	mux.HandleFunc("DELETE /rooms/{code}", func(w http.ResponseWriter, r *http.Request) {
		store.Delete(r.PathValue("code"))
		w.WriteHeader(http.StatusNoContent)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("server stopped", "err", err)
	}
}
