// Package main provides the Munin CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/config"
	"github.com/muninhq/munin/pkg/ingest"
	"github.com/muninhq/munin/pkg/knowledge"
	"github.com/muninhq/munin/pkg/retrieval"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "munin",
		Short: "Munin - unified knowledge graph with authority-aware retrieval",
		Long: `Munin ingests heterogeneous knowledge artifacts - source chunks, decisions,
questions, assessments, roadmap items, and gaps - into one graph with a
fixed authority hierarchy, infers relationships from embedding similarity,
and serves authority-ordered context bundles to synthesis consumers.

Features:
  • Idempotent multi-source sync (roadmap, questions, decisions, assessments, chunks)
  • Threshold-driven semantic edge inference (SUPPORTED_BY / MENTIONED_IN / OVERRIDES)
  • Authority-ordered retrieval, decisions first
  • Multi-hop graph traversal with topic filtering`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "munin.yaml", "Config file (optional)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Munin v%s (%s)\n", version, commit)
		},
	})

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one idempotent sync pass over all sources",
		RunE:  runSync,
	}
	syncCmd.Flags().Bool("rebuild", false, "Discard the persisted graph and re-sync from scratch")
	rootCmd.AddCommand(syncCmd)

	queryCmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Authority-ordered retrieval for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}
	queryCmd.Flags().Int("top-k", 0, "Per-category result cap (0 = configured default)")
	rootCmd.AddCommand(queryCmd)

	briefCmd := &cobra.Command{
		Use:   "brief <text>",
		Short: "Flattened authority-ordered context brief for synthesis",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBrief,
	}
	briefCmd.Flags().Int("top-k", 0, "Per-category result cap (0 = configured default)")
	rootCmd.AddCommand(briefCmd)

	exploreCmd := &cobra.Command{
		Use:   "explore <node-id>...",
		Short: "Multi-hop traversal from seed nodes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExplore,
	}
	exploreCmd.Flags().StringSlice("topic", nil, "Topic terms to filter discovered nodes")
	exploreCmd.Flags().Int("max-hops", 0, "Hop budget (0 = configured default)")
	rootCmd.AddCommand(exploreCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Node and edge counts per artifact kind",
		RunE:  runStats,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDB resolves config, sets up logging, and opens the knowledge base.
func openDB() (*knowledge.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return knowledge.Open(cfg, logger)
}

func runSync(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rebuild, _ := cmd.Flags().GetBool("rebuild")
	var report *ingest.Report
	if rebuild {
		report, err = db.Rebuild(cmd.Context())
	} else {
		report, err = db.Sync(cmd.Context())
	}
	if err != nil {
		return err
	}

	fmt.Printf("Sync complete: %d nodes added (%d roadmap, %d questions, %d decisions, %d assessments, %d gaps, %d chunks)\n",
		report.NodesAdded(), report.RoadmapAdded, report.QuestionsAdded, report.DecisionsAdded,
		report.AssessmentsAdded, report.GapsAdded, report.ChunksAdded)
	fmt.Printf("Edges: %d relational", report.RelationalEdges)
	if report.Inference != nil {
		fmt.Printf(", %d inferred (%d SUPPORTED_BY, %d MENTIONED_IN, %d OVERRIDES)",
			report.Inference.Total(), report.Inference.SupportedBy,
			report.Inference.MentionedIn, report.Inference.Overrides)
	}
	fmt.Println()

	for _, stageErr := range report.StageErrors {
		fmt.Printf("  stage %s failed: %v\n", stageErr.Stage, stageErr.Err)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	topK, _ := cmd.Flags().GetInt("top-k")
	result, err := db.Retrieve(cmd.Context(), strings.Join(args, " "), topK)
	if err != nil {
		return err
	}

	if result.Total() == 0 {
		fmt.Println("No matches.")
		return nil
	}
	fmt.Print(retrieval.Brief(result))
	return nil
}

func runBrief(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	topK, _ := cmd.Flags().GetInt("top-k")
	brief, err := db.Brief(cmd.Context(), strings.Join(args, " "), topK)
	if err != nil {
		return err
	}
	fmt.Print(brief)
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	topics, _ := cmd.Flags().GetStringSlice("topic")
	maxHops, _ := cmd.Flags().GetInt("max-hops")

	neighborhood := db.Explore(args, topics, maxHops)
	if neighborhood.Size() == 0 {
		fmt.Println("Nothing discovered.")
		return nil
	}

	for _, kind := range artifact.Kinds() {
		nodes := neighborhood[kind]
		if len(nodes) == 0 {
			continue
		}
		fmt.Printf("%s (%d):\n", kind, len(nodes))
		for _, node := range nodes {
			fmt.Printf("  - [%s] %s\n", node.ID, artifact.Summary(node.Record))
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats := db.Stats()
	fmt.Printf("Nodes: %d  Edges: %d\n", stats.Nodes, stats.Edges)
	for _, kind := range artifact.Kinds() {
		fmt.Printf("  %-13s %d\n", kind, stats.NodesByKind[kind])
	}
	return nil
}
