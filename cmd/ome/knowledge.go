// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helpfulengineering/matching-engine/internal/knowledge"
	"github.com/helpfulengineering/matching-engine/pkg/types"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the substitution knowledge base (store, retrieve, export, feedback)",
	Long: `Knowledge manages a local SQLite knowledge base of substitution rules.
Use subcommands to ingest rule files, query rules, export them, or record
accept/reject feedback that evolves rule confidence.`,
}

// --- store subcommand ---

var knowledgeStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest substitution rule files into the knowledge base",
	Long: `Store reads rule YAML files from knowledge/rules/, ingests them into a
SQLite database with FTS5 indexing, and refreshes the export file.
Unchanged rule files are skipped on subsequent runs. Feedback counters
on existing rules survive re-ingestion.`,
	RunE: runKnowledgeStore,
}

func runKnowledgeStore(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d rule file(s) failed ingestion", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var knowledgeRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query substitution rules with full-text search and filters",
	Long: `Retrieve searches the knowledge base using FTS5 full-text search,
structured filters (kind, original resource, minimum confidence), or a
combination of both. Confidence reflects accumulated feedback.`,
	RunE: runKnowledgeRetrieve,
}

func runKnowledgeRetrieve(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --kind, --original, or --min-confidence")
	}

	rules, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(rules, jsonOutput)
}

func formatRetrieveOutput(rules []types.SubstitutionRule, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}

	if len(rules) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-9s  %-22s  %-22s  %-10s  %s\n",
		"ID", "Kind", "Original", "Substitute", "Confidence", "Feedback")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 92))

	for _, r := range rules {
		fmt.Fprintf(os.Stdout, "%-12s  %-9s  %-22s  %-22s  %-10.2f  +%d/-%d\n",
			r.ID, r.Kind, truncate(r.Original, 22), truncate(r.Substitute, 22),
			r.Confidence, r.Accepted, r.Rejected)
	}

	fmt.Fprintf(os.Stdout, "\n%d rules\n", len(rules))
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// --- export subcommand ---

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base to YAML or JSON",
	Long: `Export writes the full rule set (or a filtered subset) to
knowledge/index/export.yaml or export.json. Supports the same filter
flags as retrieve for partial exports.`,
	RunE: runKnowledgeExport,
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to knowledge/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to knowledge/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- feedback subcommand ---

var knowledgeFeedbackCmd = &cobra.Command{
	Use:   "feedback <rule-id>",
	Short: "Record accept or reject feedback against a substitution rule",
	Long: `Feedback records the outcome of a substitution a reviewer evaluated.
Accepted substitutions pull the rule's confidence up, rejected ones pull
it down, weighted against the rule's authored base confidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runKnowledgeFeedback,
}

func runKnowledgeFeedback(cmd *cobra.Command, args []string) error {
	accept, _ := cmd.Flags().GetBool("accept")
	reject, _ := cmd.Flags().GetBool("reject")
	if accept == reject {
		return fmt.Errorf("provide exactly one of --accept or --reject")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	confidence, err := store.Feedback(context.Background(), args[0], accept)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Rule %s confidence is now %.2f\n", args[0], confidence)
	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*knowledge.Store, error) {
	knowledgeDir, _ := cmd.Flags().GetString("knowledge-dir")
	if knowledgeDir == "" {
		knowledgeDir = "knowledge"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return knowledge.NewStore(types.KnowledgeBaseConfig{
		KnowledgeDir: knowledgeDir,
		MaxResults:   maxResults,
	})
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) knowledge.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	kind, _ := cmd.Flags().GetString("kind")
	original, _ := cmd.Flags().GetString("original")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	limit, _ := cmd.Flags().GetInt("limit")

	return knowledge.QueryOptions{
		Query:         queryText,
		Kind:          types.ResourceType(kind),
		Original:      original,
		MinConfidence: minConfidence,
		MaxResults:    limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	knowledgeCmd.PersistentFlags().String("knowledge-dir", "knowledge", "base directory for knowledge (contains rules/, index/)")
	knowledgeCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Retrieve flags.
	knowledgeRetrieveCmd.Flags().String("query", "", "full-text search query")
	knowledgeRetrieveCmd.Flags().String("kind", "", "filter by resource type: process, material, equipment, skill")
	knowledgeRetrieveCmd.Flags().String("original", "", "filter by the resource being replaced")
	knowledgeRetrieveCmd.Flags().Float64("min-confidence", 0, "drop rules below this confidence")
	knowledgeRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	knowledgeRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	knowledgeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	knowledgeExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	knowledgeExportCmd.Flags().String("kind", "", "filter by resource type for partial export")
	knowledgeExportCmd.Flags().String("original", "", "filter by original resource for partial export")
	knowledgeExportCmd.Flags().Float64("min-confidence", 0, "drop rules below this confidence")
	knowledgeExportCmd.Flags().Int("limit", 0, "maximum rules to export (0 = all)")

	// Feedback flags.
	knowledgeFeedbackCmd.Flags().Bool("accept", false, "record the substitution as accepted")
	knowledgeFeedbackCmd.Flags().Bool("reject", false, "record the substitution as rejected")

	// Wire subcommands.
	knowledgeCmd.AddCommand(knowledgeStoreCmd)
	knowledgeCmd.AddCommand(knowledgeRetrieveCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)
	knowledgeCmd.AddCommand(knowledgeFeedbackCmd)

	rootCmd.AddCommand(knowledgeCmd)
}
