package application

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hello-prompt-agent/internal/features/slotfilling/domain"
)

// DefaultExportDir is where /export writes session files.
const DefaultExportDir = "exports"

// SessionExport is the on-disk snapshot written by /export.
type SessionExport struct {
	SessionID   string          `json:"session_id"`
	Mode        string          `json:"mode"`
	Slots       *domain.SlotMap `json:"slots"`
	FinalPrompt string          `json:"final_prompt"`
	CreatedAt   string          `json:"created_at"`
}

// Export composes (and, when enabled, refines) the current prompt and
// writes a session snapshot to <exportDir>/session_YYYYMMDD_HHMMSS.json.
// It returns a *domain.ValidationError when no mode is selected.
func (e *Engine) Export(ctx context.Context) (string, error) {
	if !e.state.HasMode() {
		return "", &domain.ValidationError{Message: "Select a mode before exporting."}
	}

	now := e.now()
	payload := SessionExport{
		SessionID:   e.state.SessionID,
		Mode:        e.state.ModeKey(),
		Slots:       e.state.Slots,
		FinalPrompt: e.finalPrompt(ctx),
		CreatedAt:   now.Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.MkdirAll(e.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.exportDir, "session_"+now.Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	e.log.Info("Session exported", "path", path, "session_id", e.state.SessionID)
	return path, nil
}
