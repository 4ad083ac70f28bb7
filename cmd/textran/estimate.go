package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halcyonlab/textran/internal/latex"
	"github.com/halcyonlab/textran/internal/llm"
	"github.com/halcyonlab/textran/internal/template"
	"github.com/halcyonlab/textran/internal/translator"
)

type estimateOptions struct {
	chunkBudget int
	sourceLang  string
	targetLang  string
}

func newEstimateCmd() *cobra.Command {
	opts := estimateOptions{}
	cmd := &cobra.Command{
		Use:   "estimate <main.tex>",
		Short: "Estimate chunk and token work without any API calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, args[0], &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().IntVar(&opts.chunkBudget, "chunk-budget", 3000, "Token budget per chunk")
	cmd.Flags().StringVar(&opts.sourceLang, "source", template.DefaultSourceLang, "Source language name")
	cmd.Flags().StringVar(&opts.targetLang, "target", template.DefaultTargetLang, "Target language name")
	return cmd
}

func runEstimate(cmd *cobra.Command, mainSource string, opts *estimateOptions) error {
	applyConfig(cmd)
	if err := validateMainSourcePath(mainSource); err != nil {
		return err
	}
	mainPath, err := filepath.Abs(mainSource)
	if err != nil {
		return fmt.Errorf("failed to resolve main source path: %w", err)
	}
	proj, err := latex.Load(filepath.Dir(mainPath), filepath.Base(mainPath))
	if err != nil {
		return err
	}

	// No request ever leaves this command, so the client needs no key.
	tr, err := translator.New(translator.Config{
		Project:     proj,
		Template:    template.NewChat(opts.sourceLang, opts.targetLang),
		Completer:   llm.NewClient(llm.Config{}),
		ChunkBudget: opts.chunkBudget,
	})
	if err != nil {
		return err
	}

	estimates, err := tr.EstimateProject()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	totalChunks, totalTokens := 0, 0
	for _, e := range estimates {
		fmt.Fprintf(out, "%-30s chunks=%-5d tokens=%d\n", e.Name, e.Chunks, e.Tokens)
		totalChunks += e.Chunks
		totalTokens += e.Tokens
	}
	fmt.Fprintf(out, "%-30s chunks=%-5d tokens=%d\n", "total", totalChunks, totalTokens)
	return nil
}
