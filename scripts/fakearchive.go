//go:build ignore

// Fakearchive serves a minimal history archive for exercising archive-gate
// by hand.
//
// Usage:
//
//	go run fakearchive.go -port 8081
//	go run fakearchive.go -port 8082 -metadata 404
//	go run fakearchive.go -port 8083 -metadata 503 -root 503 -delay 15s
//
// -metadata and -root set the status returned for the metadata document and
// the archive root. -delay holds every response, which makes probe timeouts
// easy to reproduce.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

const metadataPath = "/.well-known/stellar-history.json"

const metadataBody = `{
  "version": 1,
  "server": "fakearchive",
  "currentLedger": 63,
  "networkPassphrase": "Test SDF Network ; September 2015",
  "currentBuckets": []
}
`

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	metadataStatus := flag.Int("metadata", http.StatusOK, "status for "+metadataPath)
	rootStatus := flag.Int("root", http.StatusOK, "status for the archive root")
	delay := flag.Duration("delay", 0, "delay before every response")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc(metadataPath, func(w http.ResponseWriter, r *http.Request) {
		logRequest(r, *metadataStatus)
		time.Sleep(*delay)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(*metadataStatus)
		if r.Method == http.MethodGet && *metadataStatus == http.StatusOK {
			w.Write([]byte(metadataBody))
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logRequest(r, *rootStatus)
		time.Sleep(*delay)

		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(*rootStatus)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting fake archive on %s (metadata=%d root=%d delay=%s)",
		addr, *metadataStatus, *rootStatus, *delay)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func logRequest(r *http.Request, status int) {
	log.Printf("request: method=%s path=%s from=%s ua=%q status=%d",
		r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent(), status)
}
