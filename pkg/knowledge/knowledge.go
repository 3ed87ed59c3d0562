// Package knowledge is Munin's embedded top-level API.
//
// A DB ties the pieces together: the persisted knowledge graph, the badger
// chunk store, the embedding client, the sync orchestrator, and the
// authority-aware retrieval engine. CLI commands and embedding programs go
// through this facade instead of wiring packages by hand.
//
// There is no module-level singleton: every DB is an explicit instance, and
// tests construct a fresh one per case.
//
// Example Usage:
//
//	cfg, _ := config.Load("munin.yaml")
//	db, err := knowledge.Open(cfg, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	report, err := db.Sync(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("added %d nodes\n", report.NodesAdded())
//
//	result, _ := db.Retrieve(ctx, "event sourcing", 5)
//	fmt.Println(retrieval.Brief(result))
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/authority"
	"github.com/muninhq/munin/pkg/config"
	"github.com/muninhq/munin/pkg/embed"
	"github.com/muninhq/munin/pkg/graph"
	"github.com/muninhq/munin/pkg/inference"
	"github.com/muninhq/munin/pkg/ingest"
	"github.com/muninhq/munin/pkg/retrieval"
	"github.com/muninhq/munin/pkg/source"
)

// DB is an open Munin knowledge base.
//
// A DB assumes exclusive access to its data directory: one active writer
// session, no cross-process guard.
type DB struct {
	config   *config.Config
	logger   *slog.Logger
	g        *graph.Graph
	chunks   *source.ChunkStore
	embedder embed.Embedder
	orch     *ingest.Orchestrator
	engine   *retrieval.Engine
}

// Open loads (or initializes) the knowledge base described by cfg.
//
// A missing persisted graph yields a fresh empty one; malformed persisted
// data fails loudly here rather than surfacing stale state later.
func Open(cfg *config.Config, logger *slog.Logger) (*DB, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	g, err := graph.Load(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}

	chunks, err := source.OpenChunkStore(cfg.ChunkStoreDir())
	if err != nil {
		return nil, err
	}

	var embedder embed.Embedder
	if cfg.Embedding.Provider != "none" {
		embedder, err = embed.NewEmbedder(&embed.Config{
			Provider:   cfg.Embedding.Provider,
			APIURL:     cfg.Embedding.APIURL,
			APIPath:    apiPathFor(cfg.Embedding.Provider),
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    60 * time.Second,
		})
		if err != nil {
			chunks.Close()
			return nil, err
		}
	}

	matcher, err := retrieval.NewMatcher(cfg.Retrieval.Mode, cfg.Retrieval.MinScore)
	if err != nil {
		chunks.Close()
		return nil, err
	}

	tree := source.NewTree(cfg.Storage.SourcesDir)
	orch := ingest.New(ingest.Config{
		DataDir:     cfg.Storage.DataDir,
		Roadmap:     tree,
		Questions:   tree,
		Decisions:   tree,
		Assessments: tree,
		Chunks:      chunks,
		Embedder:    embedder,
		Inference: &inference.Config{
			SupportThreshold:  cfg.Inference.SupportThreshold,
			MentionThreshold:  cfg.Inference.MentionThreshold,
			OverrideThreshold: cfg.Inference.OverrideThreshold,
		},
		Logger: logger,
	})

	logger.Info("knowledge base opened",
		"data_dir", cfg.Storage.DataDir,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())

	return &DB{
		config:   cfg,
		logger:   logger,
		g:        g,
		chunks:   chunks,
		embedder: embedder,
		orch:     orch,
		engine:   retrieval.NewEngine(matcher),
	}, nil
}

func apiPathFor(provider string) string {
	if provider == "openai" {
		return "/v1/embeddings"
	}
	return "/api/embeddings"
}

// Sync runs one idempotent sync pass over all external sources.
func (db *DB) Sync(ctx context.Context) (*ingest.Report, error) {
	return db.orch.Sync(ctx, db.g)
}

// Rebuild discards the persisted graph and re-syncs from scratch. This is
// the only way a changed external record propagates, since sync never
// updates previously-seen nodes.
func (db *DB) Rebuild(ctx context.Context) (*ingest.Report, error) {
	files := []string{filepath.Join(db.config.Storage.DataDir, graph.GraphFile)}
	for _, kind := range artifact.Kinds() {
		files = append(files, filepath.Join(db.config.Storage.DataDir, graph.IndexFile(kind)))
	}
	for _, path := range files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing %s: %w", path, err)
		}
	}

	db.g = graph.New()
	return db.Sync(ctx)
}

// Retrieve runs an authority-ordered query. In embedding mode the query
// text is embedded first; keyword mode never touches the network.
func (db *DB) Retrieve(ctx context.Context, query string, topK int) (retrieval.Result, error) {
	q := retrieval.Query{Text: query}
	if db.config.Retrieval.Mode == "embedding" {
		if db.embedder == nil {
			return nil, fmt.Errorf("embedding retrieval mode requires an embedding provider")
		}
		vec, err := db.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		q.Embedding = vec
	}
	if topK <= 0 {
		topK = db.config.Retrieval.TopK
	}
	return db.engine.RetrieveWithAuthority(db.g, q, topK), nil
}

// Brief runs Retrieve and flattens the result into the authority-ordered
// text bundle for synthesis consumers.
func (db *DB) Brief(ctx context.Context, query string, topK int) (string, error) {
	result, err := db.Retrieve(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return retrieval.Brief(result), nil
}

// Explore runs a multi-hop traversal from seed node ids. A zero maxHops
// uses the configured default.
func (db *DB) Explore(seeds, topics []string, maxHops int) retrieval.Neighborhood {
	if maxHops <= 0 {
		maxHops = db.config.Retrieval.MaxHops
	}
	return retrieval.Explore(db.g, seeds, topics, maxHops)
}

// SupersedingDecision returns the decision overriding a chunk, if any.
func (db *DB) SupersedingDecision(chunkID string) (*artifact.Decision, bool) {
	return authority.SupersedingDecision(db.g, chunkID)
}

// ChunkStore exposes the vector-store collaborator boundary so the chunking
// collaborator can deposit records through an open DB.
func (db *DB) ChunkStore() *source.ChunkStore {
	return db.chunks
}

// Graph exposes the underlying graph for read-side consumers.
func (db *DB) Graph() *graph.Graph {
	return db.g
}

// Stats summarizes the graph.
type Stats struct {
	Nodes       int
	Edges       int
	NodesByKind map[artifact.Kind]int
}

// Stats returns node/edge counts, broken down per artifact kind.
func (db *DB) Stats() Stats {
	byKind := make(map[artifact.Kind]int, len(artifact.Kinds()))
	for _, kind := range artifact.Kinds() {
		byKind[kind] = len(db.g.NodesByKind(kind))
	}
	return Stats{
		Nodes:       db.g.NodeCount(),
		Edges:       db.g.EdgeCount(),
		NodesByKind: byKind,
	}
}

// Close releases the chunk store. The graph itself is persisted by Sync,
// not by Close.
func (db *DB) Close() error {
	return db.chunks.Close()
}
