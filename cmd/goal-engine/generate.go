// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/goal-engine/internal/corpus"
	"github.com/pdiddy/goal-engine/internal/generate"
	"github.com/pdiddy/goal-engine/internal/llm"
	"github.com/pdiddy/goal-engine/internal/retrieve"
	"github.com/pdiddy/goal-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an IEP transition goal document from a student profile",
	Long: `Generate produces an IEP transition goal document grounded in corpus
passages. The student profile comes from a YAML file (--profile) or from
individual flags; flags override file fields.

By default one completion call produces the full document. With --staged the
pipeline runs four dependent stages (postsecondary goals, annual goal,
short-term objectives, explanation) and assembles their outputs.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	profile, err := profileFromFlags(cmd)
	if err != nil {
		return err
	}

	if err := validateProfile(profile); err != nil {
		return err
	}

	cfg := types.PipelineConfig{
		Corpus:     corpusConfigFromViper(cmd),
		Completion: completionConfigFromViper(cmd),
		Generation: generationConfigFromViper(cmd),
	}

	store, err := corpus.NewStore(cfg.Corpus)
	if err != nil {
		return err
	}
	defer store.Close()

	backend, err := llm.New(cfg.Completion)
	if err != nil {
		return err
	}

	pipeline, err := generate.NewPipeline(retrieve.NewOrchestrator(store), backend, cfg.Generation)
	if err != nil {
		return err
	}

	ctx := context.Background()
	staged, _ := cmd.Flags().GetBool("staged")

	var result *types.GenerationResult
	if staged {
		result, err = pipeline.GenerateStaged(ctx, profile)
	} else {
		result, err = pipeline.Generate(ctx, profile)
	}
	if err != nil {
		return err
	}

	return writeResult(cmd, result)
}

// profileFromFlags builds the student profile from --profile YAML (if given)
// with individual flags overriding file fields.
func profileFromFlags(cmd *cobra.Command) (types.StudentProfile, error) {
	var profile types.StudentProfile

	profilePath, _ := cmd.Flags().GetString("profile")
	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return profile, fmt.Errorf("reading profile file: %w", err)
		}
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return profile, fmt.Errorf("parsing profile file %s: %w", profilePath, err)
		}
	}

	override := func(dst *string, flag string) {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*dst = v
		}
	}
	override(&profile.Name, "name")
	override(&profile.Age, "age")
	override(&profile.Grade, "grade")
	override(&profile.Disability, "disability")
	override(&profile.Interests, "interests")
	override(&profile.CareerInterest, "career")
	override(&profile.AssessmentResults, "assessment")
	override(&profile.AdditionalInfo, "notes")

	return profile, nil
}

// validateProfile checks the fields generation queries are built from.
func validateProfile(p types.StudentProfile) error {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Age == "" {
		missing = append(missing, "age")
	}
	if p.Grade == "" {
		missing = append(missing, "grade")
	}
	if p.CareerInterest == "" {
		missing = append(missing, "career")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required profile fields: %s (set via --profile file or flags)", strings.Join(missing, ", "))
	}
	return nil
}

func writeResult(cmd *cobra.Command, result *types.GenerationResult) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	showContext, _ := cmd.Flags().GetBool("show-context")

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(result.Document+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing document: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote document to %s (run %s)\n", outputPath, result.RunID)
	} else {
		fmt.Println(result.Document)
	}

	if showContext {
		fmt.Fprintf(os.Stderr, "\nContext passages (%d):\n", len(result.ContextPassages))
		for i, p := range result.ContextPassages {
			fmt.Fprintf(os.Stderr, "%3d. [%s] %s (%s)\n", i+1, p.Category, p.ID, p.Source)
		}
	}

	return nil
}

// --- config resolution: flags override config file, secrets fill API keys ---

func corpusConfigFromViper(cmd *cobra.Command) types.CorpusConfig {
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	if corpusDir == "" {
		corpusDir = viper.GetString("corpus.corpus_dir")
	}
	if corpusDir == "" {
		corpusDir = "corpus"
	}
	return types.CorpusConfig{
		CorpusDir:  corpusDir,
		MaxResults: viper.GetInt("corpus.max_results"),
	}
}

func completionConfigFromViper(cmd *cobra.Command) types.CompletionConfig {
	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = viper.GetString("completion.provider")
	}
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("completion.model")
	}

	return types.CompletionConfig{
		Provider:    types.CompletionProvider(provider),
		Model:       model,
		APIKey:      secretDefault("openai-api-key", viper.GetString("completion.api_key")),
		BaseURL:     viper.GetString("completion.base_url"),
		Temperature: viper.GetFloat64("completion.temperature"),
		MaxTokens:   viper.GetInt("completion.max_tokens"),
		MaxRetries:  viper.GetInt("completion.max_retries"),
	}
}

func generationConfigFromViper(cmd *cobra.Command) types.GenerationConfig {
	topK, _ := cmd.Flags().GetInt("top-k")
	if topK == 0 {
		topK = viper.GetInt("generation.top_k")
	}
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	if maxRetries == 0 {
		maxRetries = viper.GetInt("generation.max_retries")
	}
	return types.GenerationConfig{
		TopK:       topK,
		MaxRetries: maxRetries,
	}
}

func init() {
	// Profile input.
	generateCmd.Flags().String("profile", "", "path to student profile YAML file")
	generateCmd.Flags().String("name", "", "student name")
	generateCmd.Flags().String("age", "", "student age")
	generateCmd.Flags().String("grade", "", "student grade level")
	generateCmd.Flags().String("disability", "", "disability category")
	generateCmd.Flags().String("interests", "", "student interests")
	generateCmd.Flags().String("career", "", "career interest")
	generateCmd.Flags().String("assessment", "", "assessment results summary")
	generateCmd.Flags().String("notes", "", "additional information")

	// Pipeline behavior.
	generateCmd.Flags().Bool("staged", false, "run the four-stage chain instead of one combined completion")
	generateCmd.Flags().Int("top-k", 0, "default passage count for ad-hoc retrieval (0 = config default)")
	generateCmd.Flags().Int("max-retries", 0, "additional attempts for failed completion calls")

	// Backend selection.
	generateCmd.Flags().String("provider", "", "completion provider: openai or ollama")
	generateCmd.Flags().String("model", "", "model identifier for the completion backend")

	// Corpus location.
	generateCmd.Flags().String("corpus-dir", "", "base directory for the corpus (default: corpus)")

	// Output.
	generateCmd.Flags().String("output", "", "write the document to this file instead of stdout")
	generateCmd.Flags().Bool("json", false, "output the full generation result as JSON")
	generateCmd.Flags().Bool("show-context", false, "list consumed context passages on stderr")

	rootCmd.AddCommand(generateCmd)
}
