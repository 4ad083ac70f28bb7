package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/halcyonlab/textran/internal/auth"
	"github.com/halcyonlab/textran/internal/logger"
	"github.com/halcyonlab/textran/internal/translator"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
)

func serviceDisplayName(service string) string {
	if service == "gemini" {
		return "Gemini"
	}
	return "OpenAI"
}

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(service string, allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
		return "", "", fmt.Errorf("env-only set but %s_API_KEY is not set", strings.ToUpper(service))
	}

	if key, source := getKey(service, false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", serviceDisplayName(service)))
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func validateService(service string) (string, error) {
	svc := strings.ToLower(service)
	if svc != "openai" && svc != "gemini" {
		return "", fmt.Errorf("invalid service. Must be 'openai' or 'gemini'")
	}
	return svc, nil
}

func printUsageStats(report *translator.RunReport, duration time.Duration, model string) {
	fmt.Println("\n--- Execution Stats ---")
	fmt.Printf("Time: %s\n", duration)
	fmt.Printf("Model: %s\n", model)
	if report == nil {
		return
	}
	chunks := 0
	for _, b := range report.Bodies {
		chunks += b.Chunks
	}
	fmt.Printf("Bodies: %d, Chunks: %d\n", len(report.Bodies), chunks)
	if report.PromptTokens > 0 || report.CompletionTokens > 0 {
		fmt.Printf("Tokens: In=%d, Out=%d, Total=%d\n",
			report.PromptTokens, report.CompletionTokens,
			report.PromptTokens+report.CompletionTokens)
	}
	if report.ReportPath != "" {
		fmt.Printf("Run report: %s\n", report.ReportPath)
	}
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Cancellation requested")
		cancel()
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
