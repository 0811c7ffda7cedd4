// Command viewer serves a small HTTP+websocket API over archived search
// batches, grounded on the teacher's viewer binary (DuckDB glob over
// parquet shards, gorilla/websocket live stream) but reading
// archive.Row shards instead of battlesnake turns.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func parseDataRoots(csv string) []string {
	var roots []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			roots = append(roots, part)
		}
	}
	return roots
}

func main() {
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	listen := fs.String("listen", "127.0.0.1:8090", "HTTP listen address")
	dataDirs := fs.String("data-dirs", "data/archive", "Comma-separated list of directories containing archive parquet shards")
	refresh := fs.Duration("refresh", 5*time.Second, "How often to re-glob the data directories for new shards")
	livePush := fs.Duration("live-push", 1*time.Second, "Interval between /api/live websocket pushes")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	roots := parseDataRoots(*dataDirs)
	log.Printf("viewer data roots: %s", strings.Join(roots, ","))

	cache := newDBCache(roots, *refresh)
	mux := newMux(cache)
	mux.HandleFunc("/api/live", serveLiveStats(cache, *livePush))

	log.Printf("viewer listening on %s", *listen)
	if err := http.ListenAndServe(*listen, mux); err != nil {
		log.Fatalf("viewer: %v", err)
	}
}
