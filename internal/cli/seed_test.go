package cli

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoSeed = `
steps:
  - command: create-portfolio
    as: pf
    args:
      name: Grid Upgrade
      budget: 1000
      score: 7
      user: alice
  - command: approve-portfolio
    args: {portfolioId: $pf}
  - command: log-expense
    args: {portfolioId: $pf, amount: 250, description: cabling}
  - command: generate-evidence
    as: ev
    args: {portfolioId: $pf}
`

// seedDatabase runs the demo seed into a fresh SQLite file and returns its path.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(demoSeed), 0o644))

	dbPath := filepath.Join(dir, "veryx.db")
	_, err := executeCommand(t, "seed", seedPath, "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}

func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func TestSeed_TextOutput(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(demoSeed), 0o644))

	out, err := executeCommand(t, "seed", seedPath, "--store", "sqlite", "--db", filepath.Join(dir, "veryx.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create-portfolio")
	assert.Contains(t, out, "(as pf)")
	assert.Contains(t, out, "Seeded 4 command(s)")
}

func TestSeed_StopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	content := `
steps:
  - command: create-portfolio
    as: pf
    args: {name: Depot, budget: 10, score: 1}
  - command: generate-evidence
    args: {portfolioId: $pf}
  - command: approve-portfolio
    args: {portfolioId: $pf}
`
	require.NoError(t, os.WriteFile(seedPath, []byte(content), 0o644))
	dbPath := filepath.Join(dir, "veryx.db")

	_, err := executeCommand(t, "seed", seedPath, "--store", "sqlite", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "steps[1] generate-evidence failed")

	out, err := executeCommand(t, "log", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit Log: 1 event(s)")
}

func TestSeed_InvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "steps: []", "steps list is required"},
		{"unknown field", "steps:\n  - command: request-ai\n    argz: {}", "failed to parse YAML"},
		{"expect_error", "steps:\n  - command: request-ai\n    expect_error: validation", "only valid in test scenarios"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seed.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := executeCommand(t, "seed", path, "--store", "sqlite", "--db", filepath.Join(t.TempDir(), "veryx.db"))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestState_JSON(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := executeCommand(t, "state", "--format", "json", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)

	var snap struct {
		Portfolios []struct {
			Name    string `json:"name"`
			Status  string `json:"status"`
			Balance int64  `json:"balance"`
		} `json:"portfolios"`
		EvidencePacks []struct {
			PortfolioID string `json:"portfolioId"`
		} `json:"evidencePacks"`
		ACUBalance int64 `json:"acuBalance"`
	}
	resp := decodeResponse(t, out, &snap)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, snap.Portfolios, 1)
	assert.Equal(t, "APPROVED", snap.Portfolios[0].Status)
	assert.Equal(t, int64(750), snap.Portfolios[0].Balance)
	assert.Len(t, snap.EvidencePacks, 1)
	assert.Equal(t, int64(100), snap.ACUBalance)
}

func TestState_Text(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := executeCommand(t, "state", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolios: 1")
	assert.Contains(t, out, "Grid Upgrade  APPROVED  balance 750/1000  CPI 0.75")
	assert.Contains(t, out, "Evidence packs: 1")
	assert.Contains(t, out, "ACU balance: 100")
}

func TestLog(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := executeCommand(t, "log", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit Log: 4 event(s)")
	assert.Contains(t, out, "PORTFOLIO_CREATED")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "EVIDENCE_PACK_GENERATED")

	out, err = executeCommand(t, "log", "--format", "json", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	var events []struct {
		EventType string `json:"eventType"`
		Meta      struct {
			AuditHash string `json:"auditHash"`
		} `json:"meta"`
	}
	decodeResponse(t, out, &events)
	require.Len(t, events, 4)
	assert.Equal(t, "STAGE_GATE_APPROVED", events[1].EventType)
	assert.Len(t, events[0].Meta.AuditHash, 64)
}

func TestVerify(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := executeCommand(t, "verify", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ VERIFIED: 4 event(s) checked")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE events SET payload = '{"amount":1,"description":"cabling"}' WHERE event_type = 'EXPENSE_LOGGED'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err = executeCommand(t, "verify", "--store", "sqlite", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ COMPROMISED")
	assert.Contains(t, out, "audit_hash_mismatch at index 2")

	out, err = executeCommand(t, "verify", "--format", "json", "--store", "sqlite", "--db", dbPath)
	require.Error(t, err)
	var report struct {
		Verdict string `json:"systemIntegrity"`
	}
	resp := decodeResponse(t, out, &report)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_INTEGRITY", resp.Error.Code)
	assert.Equal(t, "COMPROMISED", report.Verdict)
}

func TestReplay(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := executeCommand(t, "replay", "-v", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 4 event(s)")
	assert.Contains(t, out, "Portfolios: 1")
	assert.Contains(t, out, "✓ Replay verified deterministic")

	out, err = executeCommand(t, "replay", "--format", "json", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	var summary ReplaySummary
	decodeResponse(t, out, &summary)
	assert.Equal(t, 4, summary.EventCount)
	assert.True(t, summary.Deterministic)
}

func TestReplay_EmptyLog(t *testing.T) {
	out, err := executeCommand(t, "replay", "--store", "sqlite", "--db", filepath.Join(t.TempDir(), "veryx.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 0 event(s)")
}

func TestEvidence(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := executeCommand(t, "state", "--format", "json", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	var snap struct {
		EvidencePacks []struct {
			ID string `json:"id"`
		} `json:"evidencePacks"`
	}
	decodeResponse(t, out, &snap)
	require.Len(t, snap.EvidencePacks, 1)
	hash := snap.EvidencePacks[0].ID

	out, err = executeCommand(t, "evidence", hash, "--format", "json", "--store", "sqlite", "--db", dbPath)
	require.NoError(t, err)
	var export struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		UserID    string `json:"userId"`
		Watermark string `json:"watermark"`
	}
	decodeResponse(t, out, &export)
	assert.Equal(t, hash, export.ID)
	assert.Equal(t, "IMMUTABLE", export.Status)
	assert.Equal(t, "system", export.UserID)
	assert.Equal(t, "WATERMARKED", export.Watermark)

	out, err = executeCommand(t, "evidence", "deadbeef", "--store", "sqlite", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}
