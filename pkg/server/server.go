// Package server is the SPARQL 1.1 Protocol HTTP endpoint: an external
// adapter that accepts query text over HTTP and shapes
// pkg/sparql/query.Result into one of the negotiated result formats.
// It is not part of the core query engine: it only ever calls through
// query.Engine and pkg/store.Store's public surface.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/aleksaelezovic/fusiondb/pkg/sparql/query"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

// Server represents the HTTP SPARQL server
type Server struct {
	store  *store.Store
	engine *query.Engine
	addr   string
}

// NewServer creates a new SPARQL HTTP server over store.
func NewServer(st *store.Store, addr string) *Server {
	return &Server{
		store:  st,
		engine: query.NewEngine(st),
		addr:   addr,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", s.handleSPARQL)
	mux.HandleFunc("/data", s.handleDataUpload)
	mux.HandleFunc("/", s.handleRoot)

	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting SPARQL endpoint at http://%s/sparql", s.addr)
	return httpServer.ListenAndServe()
}

// quadCount returns the number of quads visible in the store's current
// snapshot, across the default graph and every named graph.
func (s *Server) quadCount() int {
	snap := s.store.Snapshot()
	return len(snap.Scan(store.Pattern{Graph: store.ActiveGraph{Kind: store.ActiveGraphAll}}))
}
