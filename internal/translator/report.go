package translator

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/halcyonlab/textran/internal/files"
)

const reportFileName = "run_report.json"

func writeBody(path, content string) error {
	if err := files.RejectSymlinkPath(path); err != nil {
		return err
	}
	if err := files.AtomicWrite(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeRunReport persists the report next to the outputs. A report from an
// earlier run is never overwritten; a numbered variant is written instead.
func writeRunReport(outDir string, report *RunReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}
	data = append(data, '\n')
	return files.AtomicWriteExclusive(filepath.Join(outDir, reportFileName), data, 0o644)
}
