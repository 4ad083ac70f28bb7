// Package translator drives the translation pipeline: it splits each logical
// text body into budget-sized chunks, submits them to the completion service
// one at a time, extracts the fenced payloads, and reassembles the outputs
// into valid documents on disk.
package translator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/halcyonlab/textran/internal/apperrors"
	"github.com/halcyonlab/textran/internal/extract"
	"github.com/halcyonlab/textran/internal/latex"
	"github.com/halcyonlab/textran/internal/llm"
	"github.com/halcyonlab/textran/internal/logger"
	"github.com/halcyonlab/textran/internal/splitter"
	"github.com/halcyonlab/textran/internal/template"
	"github.com/halcyonlab/textran/internal/token"
)

// TranslatableEnv is the environment whose inner content is submitted for
// translation in the main source. Everything outside it is preserved verbatim.
const TranslatableEnv = "document"

// Config holds the collaborators and limits of one translation run.
type Config struct {
	Project     *latex.Project
	Template    *template.Chat
	Completer   llm.Completer
	Counter     *token.Counter
	ChunkBudget int
	Model       string
}

// Translator orchestrates the per-document and per-project translation flow.
// It is the sole writer of its run state; bodies and chunks are processed
// strictly sequentially, so no locking is needed.
type Translator struct {
	project  *latex.Project
	template *template.Chat
	client   llm.Completer
	counter  *token.Counter
	budget   int
	model    string

	runID            string
	translatedChunks int
	responses        []*llm.Response

	// OnOngoingFile fires when work on a body begins, before any chunk is
	// submitted. OnChunkComplete fires once per finished chunk, after the
	// run state has been updated.
	OnOngoingFile   func(name string)
	OnChunkComplete func()
}

func New(cfg Config) (*Translator, error) {
	if cfg.Project == nil {
		return nil, fmt.Errorf("project is required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if cfg.ChunkBudget <= 0 {
		return nil, fmt.Errorf("chunk budget must be greater than 0, got %d", cfg.ChunkBudget)
	}
	tmpl := cfg.Template
	if tmpl == nil {
		tmpl = &template.Chat{}
	}
	counter := cfg.Counter
	if counter == nil {
		counter = token.NewCounter()
	}
	return &Translator{
		project:  cfg.Project,
		template: tmpl,
		client:   cfg.Completer,
		counter:  counter,
		budget:   cfg.ChunkBudget,
		model:    cfg.Model,
	}, nil
}

// RunID identifies the current run. It is assigned when TranslateProject
// starts and is empty before that.
func (t *Translator) RunID() string {
	return t.runID
}

// TranslatedChunks reports how many chunks have completed in the current run.
func (t *Translator) TranslatedChunks() int {
	return t.translatedChunks
}

// Translate translates one text body. Chunks are submitted one at a time, in
// order, and the extracted payloads are concatenated with no separators. An
// error on any chunk aborts the whole call; partial body output is never
// returned.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	chunks, err := splitter.Split(text, t.budget, t.counter.CountText)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for i, chunk := range chunks {
		logger.Debug("Submitting chunk",
			"index", i, "total", len(chunks), "tokens", chunk.Tokens, "forced", chunk.ForcedCut)
		resp, err := t.client.Complete(ctx, t.template.CreateMessages(chunk.Text))
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		t.responses = append(t.responses, resp)
		t.translatedChunks++
		if t.OnChunkComplete != nil {
			t.OnChunkComplete()
		}
		out.WriteString(extract.Payload(resp.Text()))
	}
	return out.String(), nil
}

// BodyReport records the chunk work done for one logical body.
type BodyReport struct {
	Name   string `json:"name"`
	Output string `json:"output"`
	Chunks int    `json:"chunks"`
}

// RunReport summarizes a completed project run.
type RunReport struct {
	RunID            string       `json:"run_id"`
	Model            string       `json:"model"`
	Bodies           []BodyReport `json:"bodies"`
	PromptTokens     int          `json:"prompt_tokens"`
	CompletionTokens int          `json:"completion_tokens"`

	// ReportPath is where the report was persisted, if it was.
	ReportPath string `json:"-"`
}

// TranslateProject translates every body of the project into outDir: the main
// source first, then the auxiliary sources in their declared order. Each
// body's output is written only after that body completes; an error aborts
// the remaining bodies but leaves already written outputs on disk.
func (t *Translator) TranslateProject(ctx context.Context, outDir string) (*RunReport, error) {
	t.runID = uuid.NewString()
	t.translatedChunks = 0
	t.responses = nil

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	report := &RunReport{RunID: t.runID, Model: t.model}

	main := t.project.MainSource
	if t.OnOngoingFile != nil {
		t.OnOngoingFile(main)
	}
	prefix, inner, suffix, err := splitMainBody(t.project.Sources[main])
	if err != nil {
		return nil, err
	}

	chunksBefore := t.translatedChunks
	logger.Info("Translating main source", "file", main, "run_id", t.runID)
	translated, err := t.Translate(ctx, inner)
	if err != nil {
		return nil, fmt.Errorf("translate %s: %w", main, err)
	}
	outPath := filepath.Join(outDir, outputName(main))
	if err := writeBody(outPath, prefix+translated+suffix); err != nil {
		return nil, err
	}
	report.Bodies = append(report.Bodies, BodyReport{
		Name:   main,
		Output: outPath,
		Chunks: t.translatedChunks - chunksBefore,
	})

	for _, name := range t.project.AuxOrder {
		if t.OnOngoingFile != nil {
			t.OnOngoingFile(name)
		}
		chunksBefore = t.translatedChunks
		logger.Info("Translating auxiliary source", "file", name, "run_id", t.runID)
		translated, err := t.Translate(ctx, latex.Flatten(t.project.Sources[name]))
		if err != nil {
			return nil, fmt.Errorf("translate %s: %w", name, err)
		}
		outPath := filepath.Join(outDir, outputName(name))
		if err := writeBody(outPath, translated); err != nil {
			return nil, err
		}
		report.Bodies = append(report.Bodies, BodyReport{
			Name:   name,
			Output: outPath,
			Chunks: t.translatedChunks - chunksBefore,
		})
	}

	report.PromptTokens, report.CompletionTokens = t.TotalUsage()
	if path, err := writeRunReport(outDir, report); err != nil {
		logger.Warn("Failed to write run report", "error", err)
	} else {
		report.ReportPath = path
	}
	return report, nil
}

// splitMainBody walks the main source's top-level nodes and separates the
// verbatim prefix, the translatable environment's inner text, and the
// verbatim suffix. The environment markers are re-synthesized rather than
// copied, to guard against whitespace drift inside the originals.
func splitMainBody(nodes []latex.Node) (prefix, inner, suffix string, err error) {
	var before, after strings.Builder
	var innerNodes []latex.Node
	found := false
	for _, n := range nodes {
		if !found {
			if env := latex.FindEnv([]latex.Node{n}, TranslatableEnv); env != nil {
				innerNodes = env.Children
				found = true
				continue
			}
			before.WriteString(n.Verbatim())
			continue
		}
		after.WriteString(n.Verbatim())
	}
	if !found {
		return "", "", "", apperrors.MissingEnv(
			fmt.Errorf("no %s environment in main source", TranslatableEnv))
	}
	prefix = before.String() + "\n\\begin{" + TranslatableEnv + "}\n"
	suffix = "\n\\end{" + TranslatableEnv + "}" + after.String()
	return prefix, latex.Flatten(innerNodes), suffix, nil
}

func outputName(source string) string {
	return "translated_" + source
}

// TotalUsage sums token usage across all responses recorded in the current
// run. Responses without a usage record are skipped.
func (t *Translator) TotalUsage() (promptTokens, completionTokens int) {
	for _, resp := range t.responses {
		if resp == nil || resp.Usage == nil {
			continue
		}
		promptTokens += resp.Usage.PromptTokens
		completionTokens += resp.Usage.CompletionTokens
	}
	return promptTokens, completionTokens
}

// EstimateTokensCost estimates the chunk count and prompt token spend for one
// text body without calling the completion service. The raw text is counted
// once more on top of the per-chunk prompt messages, accounting for the
// original content appearing again inside the reply.
func (t *Translator) EstimateTokensCost(text string) (chunkCount, totalTokens int, err error) {
	chunks, err := splitter.Split(text, t.budget, t.counter.CountText)
	if err != nil {
		return 0, 0, err
	}
	for _, chunk := range chunks {
		totalTokens += t.counter.CountMessages(t.template.CreateMessages(chunk.Text))
	}
	totalTokens += t.counter.CountText(text)
	return len(chunks), totalTokens, nil
}

// BodyEstimate is the pre-flight work estimate for one logical body.
type BodyEstimate struct {
	Name   string
	Chunks int
	Tokens int
}

// EstimateProject estimates the work for every body in the project: the main
// source's translatable inner text, then the auxiliary sources in order.
func (t *Translator) EstimateProject() ([]BodyEstimate, error) {
	_, inner, _, err := splitMainBody(t.project.Sources[t.project.MainSource])
	if err != nil {
		return nil, err
	}
	bodies := []struct {
		name string
		text string
	}{{t.project.MainSource, inner}}
	for _, name := range t.project.AuxOrder {
		bodies = append(bodies, struct {
			name string
			text string
		}{name, latex.Flatten(t.project.Sources[name])})
	}

	var estimates []BodyEstimate
	for _, b := range bodies {
		chunks, tokens, err := t.EstimateTokensCost(b.text)
		if err != nil {
			return nil, fmt.Errorf("estimate %s: %w", b.name, err)
		}
		estimates = append(estimates, BodyEstimate{Name: b.name, Chunks: chunks, Tokens: tokens})
	}
	return estimates, nil
}

// EstimateTotalWork aggregates EstimateProject into project-wide chunk and
// token totals, enabling a cost check before any network spend.
func (t *Translator) EstimateTotalWork() (totalChunks, totalTokens int, err error) {
	estimates, err := t.EstimateProject()
	if err != nil {
		return 0, 0, err
	}
	for _, e := range estimates {
		totalChunks += e.Chunks
		totalTokens += e.Tokens
	}
	return totalChunks, totalTokens, nil
}
