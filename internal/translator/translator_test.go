package translator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halcyonlab/textran/internal/apperrors"
	"github.com/halcyonlab/textran/internal/latex"
	"github.com/halcyonlab/textran/internal/llm"
)

// echoUpperCompleter returns the user content upper-cased and fenced,
// mimicking a well-behaved model.
func echoUpperCompleter(usage *llm.Usage) *llm.MockCompleter {
	return &llm.MockCompleter{
		Func: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			var user string
			for _, m := range messages {
				if m.Role == llm.RoleUser {
					user = m.Content
				}
			}
			return &llm.Response{
				Choices: []llm.Choice{{Message: llm.ChoiceMessage{
					Content: "```" + strings.ToUpper(user) + "```",
				}}},
				Usage: usage,
			}, nil
		},
	}
}

func loadProject(t *testing.T, sources map[string]string) *latex.Project {
	t.Helper()
	dir := t.TempDir()
	for name, content := range sources {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	proj, err := latex.Load(dir, "main.tex")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return proj
}

func newTranslator(t *testing.T, proj *latex.Project, client llm.Completer, budget int) *Translator {
	t.Helper()
	tr, err := New(Config{
		Project:     proj,
		Completer:   client,
		ChunkBudget: budget,
		Model:       "test-model",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestNewValidation(t *testing.T) {
	proj := &latex.Project{}
	client := &llm.MockCompleter{}
	if _, err := New(Config{Completer: client, ChunkBudget: 10}); err == nil {
		t.Error("expected error for missing project")
	}
	if _, err := New(Config{Project: proj, ChunkBudget: 10}); err == nil {
		t.Error("expected error for missing completer")
	}
	if _, err := New(Config{Project: proj, Completer: client}); err == nil {
		t.Error("expected error for zero chunk budget")
	}
}

func TestTranslateExtractsFencedPayloads(t *testing.T) {
	proj := loadProject(t, map[string]string{"main.tex": `\begin{document}x\end{document}`})
	client := echoUpperCompleter(nil)
	tr := newTranslator(t, proj, client, 8)

	text := "first part\n\nsecond part\n\nthird part"
	got, err := tr.Translate(context.Background(), text)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != strings.ToUpper(text) {
		t.Errorf("got %q, want %q", got, strings.ToUpper(text))
	}
	if len(client.Calls) < 2 {
		t.Errorf("got %d completion calls, want several chunks", len(client.Calls))
	}
}

func TestTranslateEmptyBody(t *testing.T) {
	proj := loadProject(t, map[string]string{"main.tex": `\begin{document}x\end{document}`})
	client := echoUpperCompleter(nil)
	tr := newTranslator(t, proj, client, 10)

	got, err := tr.Translate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q, want empty output", got)
	}
	if len(client.Calls) != 0 {
		t.Errorf("empty body made %d completion calls", len(client.Calls))
	}
}

func TestTranslateProgressCallbacks(t *testing.T) {
	proj := loadProject(t, map[string]string{"main.tex": `\begin{document}x\end{document}`})
	client := echoUpperCompleter(&llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	tr := newTranslator(t, proj, client, 5)

	var observed []int
	tr.OnChunkComplete = func() {
		observed = append(observed, tr.TranslatedChunks())
	}
	if _, err := tr.Translate(context.Background(), "aaaa bbbb\n\ncccc dddd\n\neeee ffff"); err != nil {
		t.Fatal(err)
	}
	if len(observed) == 0 {
		t.Fatal("progress callback never fired")
	}
	if len(observed) != len(client.Calls) {
		t.Errorf("callback fired %d times for %d chunks", len(observed), len(client.Calls))
	}
	for i, n := range observed {
		if n != i+1 {
			t.Errorf("callback %d observed counter %d, want %d", i, n, i+1)
		}
	}
}

func TestTranslateAbortsOnCompletionError(t *testing.T) {
	proj := loadProject(t, map[string]string{"main.tex": `\begin{document}x\end{document}`})
	boom := apperrors.RateLimit(errors.New("slow down"))
	calls := 0
	client := &llm.MockCompleter{
		Func: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			calls++
			if calls == 2 {
				return nil, boom
			}
			return &llm.Response{Choices: []llm.Choice{{Message: llm.ChoiceMessage{Content: "```ok```"}}}}, nil
		},
	}
	tr := newTranslator(t, proj, client, 5)

	_, err := tr.Translate(context.Background(), "aaaa bbbb\n\ncccc dddd\n\neeee ffff")
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperrors.IsRateLimit(err) {
		t.Errorf("error lost its kind: %v", err)
	}
	if calls != 2 {
		t.Errorf("made %d calls after failure, want stop at 2", calls)
	}
	if tr.TranslatedChunks() != 1 {
		t.Errorf("counter = %d, want only the completed chunk", tr.TranslatedChunks())
	}
}

func TestTotalUsageSkipsMissingRecords(t *testing.T) {
	proj := loadProject(t, map[string]string{"main.tex": `\begin{document}x\end{document}`})
	usages := []*llm.Usage{
		{PromptTokens: 10, CompletionTokens: 5},
		nil,
		{PromptTokens: 3, CompletionTokens: 2},
	}
	call := 0
	client := &llm.MockCompleter{
		Func: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			u := usages[call%len(usages)]
			call++
			return &llm.Response{
				Choices: []llm.Choice{{Message: llm.ChoiceMessage{Content: "```t```"}}},
				Usage:   u,
			}, nil
		},
	}
	tr := newTranslator(t, proj, client, 5)
	if _, err := tr.Translate(context.Background(), "aaaa bbbb\n\ncccc dddd\n\neeee ffff"); err != nil {
		t.Fatal(err)
	}
	if call != 3 {
		t.Fatalf("got %d chunks, want 3 for this fixture", call)
	}
	prompt, completion := tr.TotalUsage()
	if prompt != 13 || completion != 7 {
		t.Errorf("TotalUsage() = (%d, %d), want (13, 7)", prompt, completion)
	}
}

const mainDoc = `\documentclass{article}
\usepackage{amsmath}
\begin{document}
Body text to translate.
\input{extra}
\end{document}
\typeout{done}`

func TestTranslateProject(t *testing.T) {
	proj := loadProject(t, map[string]string{
		"main.tex":  mainDoc,
		"extra.tex": "Auxiliary text.\n",
	})
	client := echoUpperCompleter(&llm.Usage{PromptTokens: 4, CompletionTokens: 4})
	tr := newTranslator(t, proj, client, 100)

	var visited []string
	tr.OnOngoingFile = func(name string) { visited = append(visited, name) }

	outDir := t.TempDir()
	report, err := tr.TranslateProject(context.Background(), outDir)
	if err != nil {
		t.Fatalf("TranslateProject: %v", err)
	}

	wantVisited := []string{"main.tex", "extra.tex"}
	if len(visited) != len(wantVisited) || visited[0] != wantVisited[0] || visited[1] != wantVisited[1] {
		t.Errorf("visited = %v, want %v", visited, wantVisited)
	}

	mainOut, err := os.ReadFile(filepath.Join(outDir, "translated_main.tex"))
	if err != nil {
		t.Fatalf("main output: %v", err)
	}
	got := string(mainOut)
	if !strings.HasPrefix(got, "\\documentclass{article}\n\\usepackage{amsmath}\n\n\\begin{document}\n") {
		t.Errorf("main output prefix wrong:\n%q", got)
	}
	if !strings.HasSuffix(got, "\n\\end{document}\n\\typeout{done}") {
		t.Errorf("main output suffix wrong:\n%q", got)
	}
	if !strings.Contains(got, "BODY TEXT TO TRANSLATE.") {
		t.Errorf("main output body untranslated:\n%q", got)
	}

	auxOut, err := os.ReadFile(filepath.Join(outDir, "translated_extra.tex"))
	if err != nil {
		t.Fatalf("aux output: %v", err)
	}
	if string(auxOut) != "AUXILIARY TEXT.\n" {
		t.Errorf("aux output = %q", auxOut)
	}

	if report.RunID == "" {
		t.Error("report has no run id")
	}
	if report.Model != "test-model" {
		t.Errorf("report model = %q", report.Model)
	}
	if len(report.Bodies) != 2 {
		t.Fatalf("report bodies = %d, want 2", len(report.Bodies))
	}
	if report.PromptTokens == 0 || report.CompletionTokens == 0 {
		t.Error("report usage totals not aggregated")
	}
	if report.ReportPath == "" {
		t.Fatal("report not persisted")
	}
	if _, err := os.Stat(report.ReportPath); err != nil {
		t.Errorf("report file: %v", err)
	}
}

func TestTranslateProjectMissingDocumentEnv(t *testing.T) {
	proj := loadProject(t, map[string]string{
		"main.tex": `\documentclass{article}` + "\nJust a preamble, no body.",
	})
	client := echoUpperCompleter(nil)
	tr := newTranslator(t, proj, client, 100)

	_, err := tr.TranslateProject(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing document environment")
	}
	if kind, ok := apperrors.KindOf(err); !ok || kind != apperrors.KindMissingEnv {
		t.Errorf("error kind = %v, want %v", kind, apperrors.KindMissingEnv)
	}
	if len(client.Calls) != 0 {
		t.Error("completion service called despite structural failure")
	}
}

func TestTranslateProjectAbortKeepsEarlierOutputs(t *testing.T) {
	proj := loadProject(t, map[string]string{
		"main.tex":   `\begin{document}Main body.\end{document}` + "\n" + `\input{broken}` + "\n",
		"broken.tex": "Aux body.\n",
	})
	calls := 0
	client := &llm.MockCompleter{
		Func: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			calls++
			if calls > 1 {
				return nil, apperrors.Transient(errors.New("upstream down"))
			}
			return &llm.Response{Choices: []llm.Choice{{Message: llm.ChoiceMessage{Content: "```done```"}}}}, nil
		},
	}
	tr := newTranslator(t, proj, client, 100)

	outDir := t.TempDir()
	_, err := tr.TranslateProject(context.Background(), outDir)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(filepath.Join(outDir, "translated_main.tex")); err != nil {
		t.Errorf("main output removed after later failure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "translated_broken.tex")); !os.IsNotExist(err) {
		t.Error("failed aux body left a partial output")
	}
}

func TestTranslateProjectResetsRunState(t *testing.T) {
	proj := loadProject(t, map[string]string{
		"main.tex": `\begin{document}Body.\end{document}`,
	})
	client := echoUpperCompleter(&llm.Usage{PromptTokens: 2, CompletionTokens: 2})
	tr := newTranslator(t, proj, client, 100)

	ctx := context.Background()
	if _, err := tr.TranslateProject(ctx, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	firstID := tr.RunID()
	firstChunks := tr.TranslatedChunks()

	if _, err := tr.TranslateProject(ctx, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if tr.RunID() == firstID {
		t.Error("run id not regenerated")
	}
	if tr.TranslatedChunks() != firstChunks {
		t.Errorf("chunk counter not reset: %d vs %d", tr.TranslatedChunks(), firstChunks)
	}
	prompt, completion := tr.TotalUsage()
	if prompt != 2 || completion != 2 {
		t.Errorf("usage not reset: (%d, %d)", prompt, completion)
	}
}

func TestEstimateMakesNoNetworkCalls(t *testing.T) {
	proj := loadProject(t, map[string]string{
		"main.tex":  mainDoc,
		"extra.tex": "Auxiliary text to estimate.\n",
	})
	client := &llm.MockCompleter{}
	tr := newTranslator(t, proj, client, 20)

	chunks, tokens, err := tr.EstimateTotalWork()
	if err != nil {
		t.Fatalf("EstimateTotalWork: %v", err)
	}
	if chunks == 0 || tokens == 0 {
		t.Errorf("estimate = (%d, %d), want non-zero work", chunks, tokens)
	}
	if len(client.Calls) != 0 {
		t.Error("estimation called the completion service")
	}

	estimates, err := tr.EstimateProject()
	if err != nil {
		t.Fatal(err)
	}
	if len(estimates) != 2 {
		t.Fatalf("got %d body estimates, want 2", len(estimates))
	}
	sumChunks, sumTokens := 0, 0
	for _, e := range estimates {
		sumChunks += e.Chunks
		sumTokens += e.Tokens
	}
	if sumChunks != chunks || sumTokens != tokens {
		t.Errorf("per-body estimates (%d, %d) do not add up to totals (%d, %d)",
			sumChunks, sumTokens, chunks, tokens)
	}
}

func TestEstimateTokensCostCountsRawTextOnce(t *testing.T) {
	proj := loadProject(t, map[string]string{"main.tex": `\begin{document}x\end{document}`})
	tr := newTranslator(t, proj, &llm.MockCompleter{}, 1000)

	text := "a body that fits in one chunk"
	chunks, tokens, err := tr.EstimateTokensCost(text)
	if err != nil {
		t.Fatal(err)
	}
	if chunks != 1 {
		t.Fatalf("chunks = %d, want 1", chunks)
	}
	msgTokens := tr.counter.CountMessages(tr.template.CreateMessages(text))
	want := msgTokens + tr.counter.CountText(text)
	if tokens != want {
		t.Errorf("tokens = %d, want %d", tokens, want)
	}
}
