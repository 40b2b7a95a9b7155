// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goal-engine/internal/corpus"
	"github.com/pdiddy/goal-engine/internal/retrieve"
	"github.com/pdiddy/goal-engine/pkg/types"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Preview the context bundle a query would retrieve",
	Long: `Retrieve runs the same category fan-out the generation stages use and
prints the rendered context block. With --categories it issues one top-k
search per listed category and concatenates the results in list order;
without it a single unrestricted search runs.`,
	RunE: runRetrieve,
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if query == "" {
		return fmt.Errorf("query required")
	}

	store, err := corpus.NewStore(corpusConfigFromViper(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	var categories []types.PassageCategory
	if list, _ := cmd.Flags().GetString("categories"); list != "" {
		for _, c := range strings.Split(list, ",") {
			categories = append(categories, types.PassageCategory(strings.TrimSpace(c)))
		}
	}

	k, _ := cmd.Flags().GetInt("k")

	orchestrator := retrieve.NewOrchestrator(store)
	bundle, err := orchestrator.Retrieve(context.Background(), query, k, categories)
	if err != nil {
		return err
	}

	if len(bundle) == 0 {
		fmt.Println("No passages retrieved.")
		return nil
	}

	fmt.Println(retrieve.Render(bundle))
	return nil
}

func init() {
	retrieveCmd.Flags().String("categories", "", "comma-separated passage categories to fan out over")
	retrieveCmd.Flags().Int("k", 5, "passages per category search")
	retrieveCmd.Flags().String("corpus-dir", "", "base directory for the corpus (default: corpus)")

	rootCmd.AddCommand(retrieveCmd)
}
