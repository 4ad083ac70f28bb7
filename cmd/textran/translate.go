package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyonlab/textran/internal/files"
	"github.com/halcyonlab/textran/internal/gemini"
	"github.com/halcyonlab/textran/internal/latex"
	"github.com/halcyonlab/textran/internal/llm"
	"github.com/halcyonlab/textran/internal/logger"
	"github.com/halcyonlab/textran/internal/template"
	"github.com/halcyonlab/textran/internal/translator"
)

type translateOptions struct {
	provider    string
	modelName   string
	baseURL     string
	temperature float64
	chunkBudget int
	sourceLang  string
	targetLang  string
	logFilePath string
	allowEnv    bool
	envOnly     bool
	debug       bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <main.tex> <output-dir>",
		Short: "Translate a LaTeX project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				_ = cmd.Usage()
				return fmt.Errorf("main source and output directory are required")
			}
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	cmd.Flags().StringVar(&opts.provider, "provider", "openai", "Completion provider (openai or gemini)")
	cmd.Flags().StringVar(&opts.modelName, "model", "gpt-4o-mini", "Model name")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Override the OpenAI-compatible API base URL")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", 0.3, "Sampling temperature")
	cmd.Flags().IntVar(&opts.chunkBudget, "chunk-budget", 3000, "Token budget per chunk")
	cmd.Flags().StringVar(&opts.sourceLang, "source", template.DefaultSourceLang, "Source language name")
	cmd.Flags().StringVar(&opts.targetLang, "target", template.DefaultTargetLang, "Target language name")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for API keys")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if len(args) < 2 {
		return fmt.Errorf("main source and output directory are required")
	}
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Warning: expected 2 arguments but got %d. Did you forget quotes around paths?\n", len(args))
		fmt.Fprintf(os.Stderr, "  Using main source: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "  Using output directory: %s\n", args[1])
	}
	applyConfig(cmd)
	if err := validateMainSourcePath(args[0]); err != nil {
		return err
	}
	service, err := validateService(opts.provider)
	if err != nil {
		return err
	}

	logLevel := logger.LevelInfo
	if opts.debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if opts.logFilePath != "" {
		if err := files.RejectSymlinkPath(opts.logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logFileW = f
	}
	logger.Init(logLevel, logFileW)

	startTime := time.Now()

	actualKey, source, err := resolveAPIKey(service, opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "service", service, "source", source)

	mainPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve main source path: %w", err)
	}
	proj, err := latex.Load(filepath.Dir(mainPath), filepath.Base(mainPath))
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var client llm.Completer
	switch service {
	case "gemini":
		gc, err := gemini.NewClient(ctx, actualKey, opts.modelName)
		if err != nil {
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		defer gc.Close()
		client = gc
	default:
		client = llm.NewClient(llm.Config{
			BaseURL:     opts.baseURL,
			APIKey:      actualKey,
			Model:       opts.modelName,
			Temperature: opts.temperature,
		})
	}

	tr, err := translator.New(translator.Config{
		Project:     proj,
		Template:    template.NewChat(opts.sourceLang, opts.targetLang),
		Completer:   client,
		ChunkBudget: opts.chunkBudget,
		Model:       opts.modelName,
	})
	if err != nil {
		return err
	}

	totalChunks, totalTokens, err := tr.EstimateTotalWork()
	if err != nil {
		return err
	}
	logger.Info("Starting translation",
		"sources", len(proj.Sources), "chunks", totalChunks, "estimated_tokens", totalTokens)

	tr.OnOngoingFile = func(name string) {
		logger.Info("Translating file", "file", name)
	}
	tr.OnChunkComplete = func() {
		logger.Info("Chunk completed", "done", tr.TranslatedChunks(), "total", totalChunks)
	}

	report, err := tr.TranslateProject(ctx, args[1])

	printUsageStats(report, time.Since(startTime), opts.modelName)

	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled", "error", err)
			return nil
		}
		return err
	}
	logger.Info("Translation finished", "run_id", report.RunID, "output_dir", args[1])
	return nil
}

func validateMainSourcePath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tex" || ext == ".ltx" || ext == ".latex" {
		return nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("unsupported main source extension %q (supported: .tex, .ltx, .latex)", ext)
}
