package store

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	// Second migration is a no-op.
	require.NoError(t, db.Migrate())
	return NewRepository(db)
}

func TestNew_EnablesPragmas(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Cascade deletes depend on foreign_keys being on for every connection.
	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))
}

func TestGetOrCreateInput_Dedup(t *testing.T) {
	repo := testRepo(t)

	id1, err := repo.GetOrCreateInput("paper", "/a.md", "Paper A", "same content")
	require.NoError(t, err)
	id2, err := repo.GetOrCreateInput("paper", "/b.md", "Different metadata", "same content")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := repo.GetOrCreateInput("paper", "/c.md", "Paper C", "other content")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	// First write's metadata wins.
	runID, err := repo.CreateRun("brief", "m", "", true, "$", []int64{id1})
	require.NoError(t, err)
	d, err := repo.GetRunDetails(runID)
	require.NoError(t, err)
	require.Len(t, d.Inputs, 1)
	assert.Equal(t, "Paper A", d.Inputs[0].Title)
	assert.Equal(t, "/a.md", d.Inputs[0].SourcePath)
}

func TestRunLifecycle(t *testing.T) {
	repo := testRepo(t)

	inputID, err := repo.GetOrCreateInput("news", "/article.md", "Article", "body")
	require.NoError(t, err)

	runID, err := repo.CreateRun("translate", "deepseek-v3.2", "low", false, "$", []int64{inputID})
	require.NoError(t, err)

	require.NoError(t, repo.AddOutput(runID, "main", "text", "translated"))
	require.NoError(t, repo.AddOutput(runID, "bilingual", "", "interleaved"))
	require.NoError(t, repo.AddTokenUsage(runID, TokenUsage{
		InputTokens:  100,
		OutputTokens: 200,
		CostInput:    0.001,
		CostOutput:   0.002,
		ProcessTime:  1.5,
	}))
	require.NoError(t, repo.UpdateRunStatus(runID, StatusSuccess, ""))

	d, err := repo.GetRunDetails(runID)
	require.NoError(t, err)
	assert.Equal(t, "translate", d.Task)
	assert.Equal(t, "deepseek-v3.2", d.Model)
	assert.Equal(t, "low", d.ThinkingLevel)
	assert.False(t, d.Stream)
	assert.Equal(t, StatusSuccess, d.Status)

	require.Len(t, d.Outputs, 2)
	assert.Equal(t, "main", d.Outputs[0].OutputType)
	assert.Equal(t, "text", d.Outputs[1].ContentType) // defaulted

	require.NotNil(t, d.Usage)
	assert.Equal(t, 100, d.Usage.InputTokens)
	assert.Equal(t, 200, d.Usage.OutputTokens)
	assert.InDelta(t, 1.5, d.Usage.ProcessTime, 1e-9)
}

func TestUpdateRunStatus_Failed(t *testing.T) {
	repo := testRepo(t)
	runID, err := repo.CreateRun("brief", "m", "", true, "$", nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateRunStatus(runID, StatusFailed, "provider exploded"))

	d, err := repo.GetRunDetails(runID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, "provider exploded", d.ErrorMessage)
	assert.Nil(t, d.Usage)

	assert.ErrorIs(t, repo.UpdateRunStatus(99999, StatusFailed, ""), ErrNotFound)
}

func TestDeleteRun_CascadesButKeepsInputs(t *testing.T) {
	repo := testRepo(t)

	inputID, err := repo.GetOrCreateInput("paper", "/p.md", "P", "content")
	require.NoError(t, err)
	runID, err := repo.CreateRun("outline", "m", "", true, "$", []int64{inputID})
	require.NoError(t, err)
	require.NoError(t, repo.AddOutput(runID, "main", "text", "out"))
	require.NoError(t, repo.AddTokenUsage(runID, TokenUsage{InputTokens: 1}))

	require.NoError(t, repo.DeleteRun(runID))
	_, err = repo.GetRunDetails(runID)
	assert.ErrorIs(t, err, ErrNotFound)

	var outputs, usage, inputs int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM outputs`).Scan(&outputs))
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM token_usage`).Scan(&usage))
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM inputs`).Scan(&inputs))
	assert.Zero(t, outputs)
	assert.Zero(t, usage)
	assert.Equal(t, 1, inputs)

	assert.ErrorIs(t, repo.DeleteRun(runID), ErrNotFound)
}

func TestGetRecentRuns(t *testing.T) {
	repo := testRepo(t)

	aID, err := repo.GetOrCreateInput("paper", "", "First Paper", "a")
	require.NoError(t, err)
	bID, err := repo.GetOrCreateInput("news", "", "Second Story", "b")
	require.NoError(t, err)

	run1, err := repo.CreateRun("brief", "m1", "", true, "$", []int64{aID, bID})
	require.NoError(t, err)
	require.NoError(t, repo.AddTokenUsage(run1, TokenUsage{InputTokens: 10, OutputTokens: 20, CostInput: 0.5, CostOutput: 1.0}))
	run2, err := repo.CreateRun("outline", "m2", "", true, "$", []int64{aID})
	require.NoError(t, err)

	runs, err := repo.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, run2, runs[0].ID)
	assert.Equal(t, run1, runs[1].ID)

	assert.Contains(t, runs[1].InputTitles, "First Paper")
	assert.Contains(t, runs[1].InputTitles, "Second Story")
	assert.Equal(t, 10, runs[1].InputTokens)
	assert.InDelta(t, 1.5, runs[1].TotalCost, 1e-9)
	assert.Zero(t, runs[0].InputTokens)
}

func TestGetResumableRuns(t *testing.T) {
	repo := testRepo(t)

	pending, err := repo.CreateRun("brief", "m", "", true, "$", nil)
	require.NoError(t, err)
	done, err := repo.CreateRun("brief", "m", "", true, "$", nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateRunStatus(done, StatusSuccess, ""))

	runs, err := repo.GetResumableRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, pending, runs[0].ID)
	assert.Equal(t, StatusPending, runs[0].Status)
}

func TestSearchByTitle(t *testing.T) {
	repo := testRepo(t)

	aID, err := repo.GetOrCreateInput("paper", "", "Attention Is All You Need", "a")
	require.NoError(t, err)
	bID, err := repo.GetOrCreateInput("paper", "", "Unrelated", "b")
	require.NoError(t, err)

	matched, err := repo.CreateRun("brief", "m", "", true, "$", []int64{aID})
	require.NoError(t, err)
	_, err = repo.CreateRun("brief", "m", "", true, "$", []int64{bID})
	require.NoError(t, err)

	runs, err := repo.SearchByTitle("attention", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, matched, runs[0].ID)
}

func TestGetStats(t *testing.T) {
	repo := testRepo(t)

	for i := 0; i < 3; i++ {
		runID, err := repo.CreateRun("brief", "m1", "", true, "$", nil)
		require.NoError(t, err)
		require.NoError(t, repo.AddTokenUsage(runID, TokenUsage{InputTokens: 10, OutputTokens: 10, CostInput: 0.1, CostOutput: 0.1}))
		require.NoError(t, repo.UpdateRunStatus(runID, StatusSuccess, ""))
	}
	failed, err := repo.CreateRun("outline", "m2", "", true, "$", nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateRunStatus(failed, StatusFailed, "boom"))

	stats, err := repo.GetStats(7)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalRuns)
	assert.Equal(t, 3, stats.ByStatus[StatusSuccess])
	assert.Equal(t, 1, stats.ByStatus[StatusFailed])
	assert.InDelta(t, 0.75, stats.SuccessRate, 1e-9)

	require.Len(t, stats.ByModel, 2)
	assert.Equal(t, "m1", stats.ByModel[0].Model)
	assert.Equal(t, 3, stats.ByModel[0].Runs)
	assert.Equal(t, 60, stats.ByModel[0].TotalTokens)
	assert.InDelta(t, 0.6, stats.ByModel[0].TotalCost, 1e-9)

	require.Len(t, stats.ByTask, 2)
	assert.Equal(t, "brief", stats.ByTask[0].Task)
}

func TestExport(t *testing.T) {
	repo := testRepo(t)

	inputID, err := repo.GetOrCreateInput("paper", "/p.md", "Paper", "content")
	require.NoError(t, err)
	runID, err := repo.CreateRun("brief", "m", "", true, "$", []int64{inputID})
	require.NoError(t, err)
	require.NoError(t, repo.AddOutput(runID, "main", "text", "generated"))
	require.NoError(t, repo.UpdateRunStatus(runID, StatusSuccess, ""))

	var jsonBuf bytes.Buffer
	require.NoError(t, repo.ExportJSON(&jsonBuf, 10))
	var details []RunDetails
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &details))
	require.Len(t, details, 1)
	assert.Equal(t, runID, details[0].ID)
	require.Len(t, details[0].Outputs, 1)
	assert.Equal(t, "generated", details[0].Outputs[0].Content)

	var csvBuf bytes.Buffer
	require.NoError(t, repo.ExportCSV(&csvBuf, 10))
	lines := strings.Split(strings.TrimSpace(csvBuf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "input_tokens")
	assert.Contains(t, lines[1], "brief")
}
