// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goal-engine/internal/corpus"
	"github.com/pdiddy/goal-engine/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the reference corpus (seed, search, export, stats)",
	Long: `Corpus manages the local SQLite reference corpus that grounds goal
generation. Use subcommands to seed passages from YAML source files, search
the index, export it, or view category counts.`,
}

// --- seed subcommand ---

var corpusSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest reference passages into the corpus index",
	Long: `Seed reads passage YAML files from corpus/sources/, ingests them into
a SQLite database with FTS5 indexing. Unchanged files are skipped on
subsequent runs; changed files have their passages replaced wholesale.`,
	RunE: runCorpusSeed,
}

func runCorpusSeed(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d source file(s) failed seeding", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var corpusSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the corpus with full-text search and a category filter",
	Long: `Search runs an FTS5 full-text query against the corpus, optionally
restricted to one passage category. An empty query lists passages in corpus
order, which serves category browsing.`,
	RunE: runCorpusSearch,
}

func runCorpusSearch(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	query := strings.Join(args, " ")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	if query == "" && category == "" {
		return fmt.Errorf("query or filter required: provide a search query or --category")
	}

	results, err := store.Search(context.Background(), query, limit, types.PassageCategory(category))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(results, jsonOutput)
}

func formatSearchOutput(results []types.ReferencePassage, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-12s  %-24s  %-30s  %s\n",
		"Rank", "ID", "Category", "Source", "Content")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, p := range results {
		content := strings.Join(strings.Fields(p.Content), " ")
		if len(content) > 40 {
			content = content[:37] + "..."
		}
		source := p.Source
		if len(source) > 30 {
			source = source[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-12s  %-24s  %-30s  %s\n",
			i+1, p.ID, p.Category, source, content)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus to YAML or JSON",
	Long: `Export writes the full corpus (or one category) to
corpus/index/export.yaml or export.json.`,
	RunE: runCorpusExport,
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	format, _ := cmd.Flags().GetString("format")
	category, _ := cmd.Flags().GetString("category")
	cat := types.PassageCategory(category)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), cat); err != nil {
			return err
		}
		fmt.Println("Exported to corpus/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), cat); err != nil {
			return err
		}
		fmt.Println("Exported to corpus/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- stats subcommand ---

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show passage counts per category",
	RunE:  runCorpusStats,
}

func runCorpusStats(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	categories := []types.PassageCategory{
		types.CategoryOccupation,
		types.CategoryStandard,
		types.CategoryEmployabilitySkill,
		types.CategoryPostsecondaryTemplate,
		types.CategoryAnnualGoalTemplate,
		types.CategoryObjectiveTemplate,
		types.CategoryTransitionService,
		types.CategoryLegalReference,
	}

	total, err := store.Count(ctx, "")
	if err != nil {
		return err
	}

	for _, cat := range categories {
		n, err := store.Count(ctx, cat)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%-28s %d\n", cat, n)
	}
	fmt.Fprintf(os.Stdout, "%-28s %d\n", "total", total)

	return nil
}

// --- shared helpers ---

func corpusConfig(cmd *cobra.Command) types.CorpusConfig {
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	if corpusDir == "" {
		corpusDir = "corpus"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.CorpusConfig{
		CorpusDir:  corpusDir,
		MaxResults: maxResults,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	corpusCmd.PersistentFlags().String("corpus-dir", "corpus", "base directory for the corpus (contains sources/, index/)")
	corpusCmd.PersistentFlags().Int("max-results", 5, "default maximum number of search results")

	// Search flags.
	corpusSearchCmd.Flags().String("category", "", "filter by passage category (e.g. occupation-reference, standard)")
	corpusSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	corpusSearchCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	corpusExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	corpusExportCmd.Flags().String("category", "", "restrict export to one passage category")

	// Wire subcommands.
	corpusCmd.AddCommand(corpusSeedCmd)
	corpusCmd.AddCommand(corpusSearchCmd)
	corpusCmd.AddCommand(corpusExportCmd)
	corpusCmd.AddCommand(corpusStatsCmd)

	rootCmd.AddCommand(corpusCmd)
}
