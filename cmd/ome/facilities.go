// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/helpfulengineering/matching-engine/internal/knowledge"
	"github.com/helpfulengineering/matching-engine/internal/registry"
	"github.com/helpfulengineering/matching-engine/internal/secrets"
	"github.com/helpfulengineering/matching-engine/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "ome/0.1"
)

var facilitiesCmd = &cobra.Command{
	Use:   "facilities",
	Short: "Acquire and index OKW facility records",
	Long: `Facilities manages the local pool of OKW facility records. Use ingest to
download records from registry URLs or copy them from local paths, and
list to browse the indexed facilities.`,
}

// --- ingest subcommand ---

var facilitiesIngestCmd = &cobra.Command{
	Use:   "ingest [identifiers...]",
	Short: "Download or copy OKW records and index the facilities",
	Long: `Ingest resolves facility identifiers (registry URLs or local file paths)
to OKW records, stores them under facilities/records/, extracts them to
verify they parse, and indexes the facilities in the knowledge base.
Existing records are skipped.`,
	RunE: runFacilitiesIngest,
}

func runFacilitiesIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more facility identifiers (registry URLs or file paths)")
	}

	ctx := context.Background()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDelay
	}
	facilitiesDir, _ := cmd.Flags().GetString("facilities-dir")
	apiKey, _ := cmd.Flags().GetString("api-key")

	cfg := types.RegistryConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		FacilitiesDir: facilitiesDir,
		DownloadDelay: delay,
		APIKey:        secrets.Get(loadedSecrets, "registry-api-key", apiKey),
	}

	client := &http.Client{Timeout: cfg.Timeout}

	result := registry.AcquireBatch(ctx, client, args, cfg, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d record(s) failed acquisition", result.Failed)
	}

	return indexFacilities(ctx, cmd, facilitiesDir)
}

// indexFacilities refreshes the facilities table from the records on disk.
func indexFacilities(ctx context.Context, cmd *cobra.Command, facilitiesDir string) error {
	inputs, err := registry.LoadFacilities(facilitiesDir, os.Stderr)
	if err != nil {
		return err
	}

	knowledgeDir, _ := cmd.Flags().GetString("knowledge-dir")
	store, err := knowledge.NewStore(types.KnowledgeBaseConfig{KnowledgeDir: knowledgeDir})
	if err != nil {
		return err
	}
	defer store.Close()

	facilities := make([]types.OKWFacility, 0, len(inputs))
	recordPaths := make(map[string]string, len(inputs))
	for _, in := range inputs {
		facilities = append(facilities, in.Facility)
		recordPaths[in.Facility.ID] = in.RecordPath
	}

	if err := store.IndexFacilities(ctx, facilities, recordPaths); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Indexed %d facilities\n", len(facilities))
	return nil
}

// --- list subcommand ---

var facilitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed facilities",
	RunE:  runFacilitiesList,
}

func runFacilitiesList(cmd *cobra.Command, args []string) error {
	knowledgeDir, _ := cmd.Flags().GetString("knowledge-dir")
	store, err := knowledge.NewStore(types.KnowledgeBaseConfig{KnowledgeDir: knowledgeDir})
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.ListFacilities(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No facilities indexed. Run 'ome facilities ingest' first.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-24s  %-16s  %-9s  %s\n",
		"ID", "Name", "Location", "Equipment", "Processes")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, s := range summaries {
		location := s.City
		if s.Country != "" {
			if location != "" {
				location += ", "
			}
			location += s.Country
		}
		name := s.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-24s  %-16s  %-9d  %s\n",
			s.ID, name, location, s.EquipmentCount, strings.Join(s.Processes, ", "))
	}

	fmt.Fprintf(os.Stdout, "\n%d facilities\n", len(summaries))
	return nil
}

func init() {
	facilitiesCmd.PersistentFlags().String("facilities-dir", "facilities", "base directory for OKW records (contains records/, metadata/)")
	facilitiesCmd.PersistentFlags().String("knowledge-dir", "knowledge", "base directory for the knowledge base (contains index/)")

	facilitiesIngestCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	facilitiesIngestCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	facilitiesIngestCmd.Flags().String("api-key", "", "registry API key (overrides the registry-api-key secret)")

	facilitiesListCmd.Flags().Bool("json", false, "output facilities as JSON")

	facilitiesCmd.AddCommand(facilitiesIngestCmd)
	facilitiesCmd.AddCommand(facilitiesListCmd)

	rootCmd.AddCommand(facilitiesCmd)
}
