package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raghavkal/equitypilot/pkg/models"
)

// SnapshotFilename returns the file name used for a saved analysis,
// e.g. "analysis_AAPL_20260829_153000.json".
func SnapshotFilename(ticker string, at time.Time) string {
	return fmt.Sprintf("analysis_%s_%s.json", ticker, at.Format("20060102_150405"))
}

// SaveSnapshot writes the full analysis state as pretty-printed JSON into
// dir and returns the written path. An empty dir means the current
// directory.
func SaveSnapshot(state *models.AnalysisState, dir string) (string, error) {
	if state == nil {
		return "", fmt.Errorf("state is nil")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling analysis: %w", err)
	}

	path := filepath.Join(dir, SnapshotFilename(state.Ticker, time.Now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}
