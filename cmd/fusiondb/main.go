// Command fusiondb is the CLI front end for the in-memory SPARQL 1.1
// engine: a demo loader, a one-shot query runner, an N-Triples/N-Quads
// bulk loader, and an HTTP SPARQL 1.1 Protocol server, all built on
// pkg/store.Store and pkg/sparql/query.Engine.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/server"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/query"
	"github.com/aleksaelezovic/fusiondb/pkg/storage"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		runDemo()
	case "query":
		if len(os.Args) < 3 {
			fmt.Println("Usage: fusiondb query [--persist <path>] <sparql-query>")
			os.Exit(1)
		}
		persist, rest := parsePersistFlag(os.Args[2:])
		if len(rest) < 1 {
			fmt.Println("Usage: fusiondb query [--persist <path>] <sparql-query>")
			os.Exit(1)
		}
		runQuery(persist, rest[0])
	case "load":
		if len(os.Args) < 3 {
			fmt.Println("Usage: fusiondb load [--persist <path>] <file.nq>")
			os.Exit(1)
		}
		persist, rest := parsePersistFlag(os.Args[2:])
		if len(rest) < 1 {
			fmt.Println("Usage: fusiondb load [--persist <path>] <file.nq>")
			os.Exit(1)
		}
		runLoad(persist, rest[0])
	case "serve":
		persist, rest := parsePersistFlag(os.Args[2:])
		addr := "localhost:8080"
		if len(rest) >= 1 {
			addr = rest[0]
		}
		runServer(persist, addr)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: fusiondb <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  demo                           - Run a demo with sample data")
	fmt.Println("  load [--persist <path>] <file> - Bulk-load an N-Quads/N-Triples file")
	fmt.Println("  query [--persist <path>] <q>   - Execute a SPARQL query")
	fmt.Println("  serve [--persist <path>] [addr] - Start HTTP SPARQL endpoint (default: localhost:8080)")
}

// parsePersistFlag pulls a leading "--persist <path>" pair out of args,
// returning the path (empty if absent) and the remaining positional args.
func parsePersistFlag(args []string) (persist string, rest []string) {
	for i := 0; i < len(args); i++ {
		if args[i] == "--persist" && i+1 < len(args) {
			persist = args[i+1]
			rest = append(rest, args[:i]...)
			rest = append(rest, args[i+2:]...)
			return persist, rest
		}
	}
	return "", args
}

// openStore returns a fresh in-memory store, preloaded from path's
// exported snapshot if path is non-empty and the file already exists.
func openStore(path string) (*store.Store, *storage.BadgerStorage, error) {
	if path == "" {
		return store.New(), nil, nil
	}

	bs, err := storage.NewBadgerStorage(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening persistence store at %s: %w", path, err)
	}

	s, err := storage.Import(bs)
	if err != nil {
		// An empty/fresh persistence directory has no TableDict/TableQuads
		// entries yet; treat that as "nothing to import" rather than fatal.
		s = store.New()
	}
	return s, bs, nil
}

// closeStore flushes s's current contents to bs (if persistence is
// enabled) and closes the underlying handle.
func closeStore(s *store.Store, bs *storage.BadgerStorage) {
	if bs == nil {
		return
	}
	if err := storage.Export(bs, s.Snapshot()); err != nil {
		log.Printf("warning: failed to persist store: %v", err)
	}
	_ = bs.Close()
}

func runDemo() {
	fmt.Println("=== FusionDB SPARQL Engine Demo ===")
	fmt.Println()

	s := store.New()

	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	carol := rdf.NewNamedNode("http://example.org/carol")

	knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	age := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age")

	defaultGraphQuads := []rdf.Quad{
		{Subject: alice, Predicate: name, Object: rdf.NewLiteral("Alice")},
		{Subject: alice, Predicate: age, Object: rdf.NewIntegerLiteral(30)},
		{Subject: alice, Predicate: knows, Object: bob},
		{Subject: bob, Predicate: name, Object: rdf.NewLiteral("Bob")},
		{Subject: bob, Predicate: age, Object: rdf.NewIntegerLiteral(25)},
		{Subject: bob, Predicate: knows, Object: carol},
		{Subject: carol, Predicate: name, Object: rdf.NewLiteral("Carol")},
		{Subject: carol, Predicate: age, Object: rdf.NewIntegerLiteral(28)},
	}

	fmt.Println("Inserting sample data into the default graph...")
	for _, q := range defaultGraphQuads {
		fmt.Printf("  + %s %s %s\n", formatTerm(q.Subject), formatTerm(q.Predicate), formatTerm(q.Object))
	}
	if _, err := s.InsertQuads(defaultGraphQuads); err != nil {
		log.Fatalf("insert failed: %v", err)
	}

	fmt.Println("\nInserting data into named graphs...")
	graph1 := rdf.NewNamedNode("http://example.org/graph1")
	graph2 := rdf.NewNamedNode("http://example.org/graph2")

	namedGraphQuads := []rdf.Quad{
		{Subject: alice, Predicate: name, Object: rdf.NewLiteral("Alice in Graph1"), Graph: graph1},
		{Subject: bob, Predicate: name, Object: rdf.NewLiteral("Bob in Graph1"), Graph: graph1},
		{Subject: alice, Predicate: name, Object: rdf.NewLiteral("Alice in Graph2"), Graph: graph2},
		{Subject: carol, Predicate: name, Object: rdf.NewLiteral("Carol in Graph2"), Graph: graph2},
	}
	for _, q := range namedGraphQuads {
		fmt.Printf("  + <%s>: %s %s %s\n", q.Graph.(*rdf.NamedNode).IRI,
			formatTerm(q.Subject), formatTerm(q.Predicate), formatTerm(q.Object))
	}
	if _, err := s.InsertQuads(namedGraphQuads); err != nil {
		log.Fatalf("insert failed: %v", err)
	}

	snap := s.Snapshot()
	total := len(snap.Scan(store.Pattern{Graph: store.ActiveGraph{Kind: store.ActiveGraphAll}}))
	fmt.Printf("\nTotal quads stored: %d\n", total)

	fmt.Println("\n=== Querying Data ===")
	sparqlQuery := `
		SELECT ?person ?name ?age
		WHERE {
			?person <http://xmlns.com/foaf/0.1/name> ?name .
			?person <http://xmlns.com/foaf/0.1/age> ?age .
		}
	`
	fmt.Printf("Query:\n%s\n", sparqlQuery)

	engine := query.NewEngine(s)
	result, err := engine.Execute(context.Background(), sparqlQuery)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	printSelectResult(result)

	fmt.Println("\n=== Demo Complete ===")
}

func runQuery(persistPath, sparqlQuery string) {
	s, bs, err := openStore(persistPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeStore(s, bs)

	engine := query.NewEngine(s)
	result, err := engine.Execute(context.Background(), sparqlQuery)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}

	switch result.Kind {
	case query.KindSolutions:
		printSelectResult(result)
	case query.KindBoolean:
		fmt.Printf("Result: %t\n", result.Boolean)
	case query.KindGraph:
		fmt.Printf("Constructed %d triples:\n", len(result.Triples))
		for _, t := range result.Triples {
			fmt.Printf("%s %s %s .\n", t.Subject, t.Predicate, t.Object)
		}
	}
}

func runLoad(persistPath, path string) {
	s, bs, err := openStore(persistPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeStore(s, bs)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}

	parsed, err := rdf.NewNQuadsParser(string(data)).Parse()
	if err != nil {
		log.Fatalf("parsing %s: %v", path, err)
	}

	batch := make([]rdf.Quad, len(parsed))
	for i, q := range parsed {
		batch[i] = *q
	}
	version, err := s.InsertQuads(batch)
	if err != nil {
		log.Fatalf("inserting quads: %v", err)
	}
	fmt.Printf("Loaded %d quads from %s (log version %d)\n", len(batch), path, version)
}

func runServer(persistPath, addr string) {
	s, bs, err := openStore(persistPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeStore(s, bs)

	snap := s.Snapshot()
	count := len(snap.Scan(store.Pattern{Graph: store.ActiveGraph{Kind: store.ActiveGraphAll}}))
	fmt.Printf("Store loaded with %d quads\n", count)

	srv := server.NewServer(s, addr)
	fmt.Printf("\nFusionDB SPARQL endpoint starting...\n")
	fmt.Printf("   Endpoint: http://%s/sparql\n", addr)
	fmt.Printf("   Web UI:   http://%s/\n\n", addr)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	if err := srv.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func printSelectResult(result *query.Result) {
	fmt.Println("Results:")
	fmt.Print("| ")
	for _, v := range result.Variables {
		fmt.Printf("%-20s | ", v.Name)
	}
	fmt.Println()

	for _, binding := range result.Bindings {
		fmt.Print("| ")
		for _, v := range result.Variables {
			if term, ok := binding[v.Name]; ok {
				fmt.Printf("%-20s | ", formatTerm(term))
			} else {
				fmt.Printf("%-20s | ", "")
			}
		}
		fmt.Println()
	}
	fmt.Printf("\nFound %d results\n", len(result.Bindings))
}

func formatTerm(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		iri := t.IRI
		for i := len(iri) - 1; i >= 0; i-- {
			if iri[i] == '/' || iri[i] == '#' {
				return iri[i+1:]
			}
		}
		return iri
	case *rdf.Literal:
		return t.Value
	default:
		return term.String()
	}
}
