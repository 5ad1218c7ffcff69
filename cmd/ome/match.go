// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helpfulengineering/matching-engine/internal/extract"
	"github.com/helpfulengineering/matching-engine/internal/knowledge"
	"github.com/helpfulengineering/matching-engine/internal/match"
	"github.com/helpfulengineering/matching-engine/internal/registry"
	"github.com/helpfulengineering/matching-engine/internal/report"
	"github.com/helpfulengineering/matching-engine/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match <manifest>",
	Short: "Match an OKH manifest against known facilities",
	Long: `Match extracts requirements from an OKH manifest, loads every facility
record under the facilities directory, and ranks facilities by how well
their capabilities cover the requirements. Substitution rules from the
knowledge base fill gaps direct matching leaves.

Use --report to write the ranking as a reviewable Markdown and YAML
report.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().String("facilities-dir", "facilities", "base directory for OKW records (contains records/)")
	matchCmd.Flags().String("knowledge-dir", "knowledge", "base directory for the knowledge base (contains rules/, index/)")
	matchCmd.Flags().Float64("min-score", 0, "minimum pair score for a direct match (0 = default 0.5)")
	matchCmd.Flags().Float64("substitution-threshold", 0, "minimum substitution confidence (0 = default 0.6)")
	matchCmd.Flags().Int("max-results", 0, "maximum ranked facilities (0 = default 20)")
	matchCmd.Flags().Bool("no-substitutions", false, "disable the knowledge base and built-in substitution rules")
	matchCmd.Flags().Bool("json", false, "output the ranking as JSON")
	matchCmd.Flags().Bool("report", false, "write a Markdown and YAML report")
	matchCmd.Flags().String("output-dir", "output/reports", "directory for written reports")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	manifestPath := args[0]
	ctx := context.Background()

	result, err := extract.ExtractManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("extracting manifest: %w", err)
	}
	if result.Metadata.Quality == types.QualityInsufficient {
		return fmt.Errorf("manifest %s: extraction quality insufficient for matching", manifestPath)
	}
	for _, flag := range result.Metadata.Flags {
		fmt.Fprintf(os.Stderr, "manifest: %s\n", flag)
	}

	reqs := extract.Requirements(&result.Manifest)
	if len(reqs) == 0 {
		return fmt.Errorf("manifest %s declares no matchable requirements", manifestPath)
	}

	facilitiesDir, _ := cmd.Flags().GetString("facilities-dir")
	facilities, err := registry.LoadFacilities(facilitiesDir, os.Stderr)
	if err != nil {
		return err
	}

	provider, cleanup, err := matchProvider(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	minScore, _ := cmd.Flags().GetFloat64("min-score")
	threshold, _ := cmd.Flags().GetFloat64("substitution-threshold")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	matcher := match.NewMatcher(provider, types.MatchConfig{
		MinScore:              minScore,
		SubstitutionThreshold: threshold,
		MaxResults:            maxResults,
	})

	ranking, err := matcher.MatchFacilities(ctx, reqs, facilities, os.Stderr)
	if err != nil {
		return err
	}

	if writeReport, _ := cmd.Flags().GetBool("report"); writeReport {
		outputDir, _ := cmd.Flags().GetString("output-dir")
		rep := report.New(&result.Manifest, manifestPath, reqs, ranking)
		path, err := rep.Write(outputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return match.FormatJSON(ranking, os.Stdout)
	}
	match.FormatTable(ranking, os.Stdout)
	return nil
}

// matchProvider builds the knowledge provider for a match run. With
// --no-substitutions it returns a provider that never proposes, otherwise
// stored rules back the built-in set. The cleanup closes the store.
func matchProvider(cmd *cobra.Command) (match.KnowledgeProvider, func(), error) {
	noop := func() {}

	if noSubs, _ := cmd.Flags().GetBool("no-substitutions"); noSubs {
		return &match.DirectProvider{}, noop, nil
	}

	knowledgeDir, _ := cmd.Flags().GetString("knowledge-dir")
	store, err := knowledge.NewStore(types.KnowledgeBaseConfig{KnowledgeDir: knowledgeDir})
	if err != nil {
		return nil, nil, fmt.Errorf("opening knowledge base: %w", err)
	}
	return &match.RuleProvider{Source: store}, func() { store.Close() }, nil
}
