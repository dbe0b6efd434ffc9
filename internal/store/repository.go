package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("store: run not found")

// Repository provides run-history persistence on top of DB.
type Repository struct {
	db *DB
}

// NewRepository creates a Repository over a migrated database.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HashContent returns the hex SHA-256 of content, the input dedup key.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// GetOrCreateInput stores an input document, deduplicating by content hash.
// When the content is already known the existing row's id is returned and the
// new metadata is discarded (first write wins).
func (r *Repository) GetOrCreateInput(typ, sourcePath, title, content string) (int64, error) {
	hash := HashContent(content)
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO inputs (type, source_path, title, content_hash) VALUES (?,?,?,?)`,
		typ, sourcePath, title, hash,
	)
	if err != nil {
		return 0, fmt.Errorf("store.Repository.GetOrCreateInput: insert: %w", err)
	}
	var id int64
	if err := r.db.QueryRow(`SELECT id FROM inputs WHERE content_hash = ?`, hash).Scan(&id); err != nil {
		return 0, fmt.Errorf("store.Repository.GetOrCreateInput: select: %w", err)
	}
	return id, nil
}

// CreateRun inserts a pending run and links it to its inputs atomically.
func (r *Repository) CreateRun(task, model, thinkingLevel string, stream bool, currency string, inputIDs []int64) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store.Repository.CreateRun: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO runs (task, model, thinking_level, stream, currency, status) VALUES (?,?,?,?,?,?)`,
		task, model, thinkingLevel, stream, currency, StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("store.Repository.CreateRun: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store.Repository.CreateRun: last insert id: %w", err)
	}
	for _, inputID := range inputIDs {
		if _, err := tx.Exec(`INSERT INTO run_inputs (run_id, input_id) VALUES (?,?)`, runID, inputID); err != nil {
			return 0, fmt.Errorf("store.Repository.CreateRun: link input %d: %w", inputID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store.Repository.CreateRun: commit: %w", err)
	}
	return runID, nil
}

// UpdateRunStatus sets a run's final status and optional error message.
func (r *Repository) UpdateRunStatus(runID int64, status, errorMessage string) error {
	res, err := r.db.Exec(`UPDATE runs SET status = ?, error_message = ? WHERE id = ?`,
		status, errorMessage, runID)
	if err != nil {
		return fmt.Errorf("store.Repository.UpdateRunStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddOutput stores one named output of a run.
func (r *Repository) AddOutput(runID int64, outputType, contentType, content string) error {
	if contentType == "" {
		contentType = "text"
	}
	_, err := r.db.Exec(
		`INSERT INTO outputs (run_id, output_type, content_type, content) VALUES (?,?,?,?)`,
		runID, outputType, contentType, content,
	)
	if err != nil {
		return fmt.Errorf("store.Repository.AddOutput: %w", err)
	}
	return nil
}

// AddTokenUsage stores the aggregate token accounting of a run.
func (r *Repository) AddTokenUsage(runID int64, u TokenUsage) error {
	_, err := r.db.Exec(
		`INSERT INTO token_usage (run_id, input_tokens, output_tokens, cost_input, cost_output, process_time)
		 VALUES (?,?,?,?,?,?)`,
		runID, u.InputTokens, u.OutputTokens, u.CostInput, u.CostOutput, u.ProcessTime,
	)
	if err != nil {
		return fmt.Errorf("store.Repository.AddTokenUsage: %w", err)
	}
	return nil
}

const summaryQuery = `
	SELECT
		r.id,
		r.timestamp,
		r.task,
		r.model,
		r.status,
		r.currency,
		GROUP_CONCAT(i.title, ', ') AS input_titles,
		t.input_tokens,
		t.output_tokens,
		COALESCE(t.cost_input, 0) + COALESCE(t.cost_output, 0) AS total_cost
	FROM runs r
	LEFT JOIN run_inputs ri ON r.id = ri.run_id
	LEFT JOIN inputs i ON ri.input_id = i.id
	LEFT JOIN token_usage t ON r.id = t.run_id`

// GetRecentRuns returns the most recent runs, newest first.
func (r *Repository) GetRecentRuns(limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(summaryQuery+`
		GROUP BY r.id
		ORDER BY r.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetRecentRuns: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// SearchByTitle returns runs whose input titles match pattern (substring).
func (r *Repository) SearchByTitle(pattern string, limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(summaryQuery+`
		WHERE i.title LIKE ?
		GROUP BY r.id
		ORDER BY r.id DESC
		LIMIT ?`, "%"+pattern+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.SearchByTitle: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// GetResumableRuns returns runs still marked pending, oldest first. These
// are runs interrupted before completion; nothing resumes them automatically.
func (r *Repository) GetResumableRuns() ([]RunSummary, error) {
	rows, err := r.db.Query(summaryQuery+`
		WHERE r.status = ?
		GROUP BY r.id
		ORDER BY r.id ASC`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetResumableRuns: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]RunSummary, error) {
	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var titles sql.NullString
		var inTok, outTok sql.NullInt64
		err := rows.Scan(&s.ID, &s.Timestamp, &s.Task, &s.Model, &s.Status, &s.Currency,
			&titles, &inTok, &outTok, &s.TotalCost)
		if err != nil {
			return nil, fmt.Errorf("store.scanSummaries: %w", err)
		}
		s.InputTitles = titles.String
		s.InputTokens = int(inTok.Int64)
		s.OutputTokens = int(outTok.Int64)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.scanSummaries: %w", err)
	}
	return out, nil
}

// GetRunDetails returns a run with its inputs, outputs, and usage. Returns
// ErrNotFound when the run does not exist.
func (r *Repository) GetRunDetails(runID int64) (*RunDetails, error) {
	var d RunDetails
	err := r.db.QueryRow(
		`SELECT id, timestamp, task, model, thinking_level, stream, currency, status, error_message
		 FROM runs WHERE id = ?`, runID).
		Scan(&d.ID, &d.Timestamp, &d.Task, &d.Model, &d.ThinkingLevel, &d.Stream,
			&d.Currency, &d.Status, &d.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetRunDetails: run: %w", err)
	}

	rows, err := r.db.Query(
		`SELECT i.id, i.type, i.source_path, i.title, i.content_hash, i.created_at
		 FROM inputs i JOIN run_inputs ri ON i.id = ri.input_id
		 WHERE ri.run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetRunDetails: inputs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var in Input
		if err := rows.Scan(&in.ID, &in.Type, &in.SourcePath, &in.Title, &in.ContentHash, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("store.Repository.GetRunDetails: scan input: %w", err)
		}
		d.Inputs = append(d.Inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.Repository.GetRunDetails: inputs: %w", err)
	}

	outRows, err := r.db.Query(
		`SELECT id, run_id, output_type, content_type, content FROM outputs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetRunDetails: outputs: %w", err)
	}
	defer outRows.Close()
	for outRows.Next() {
		var o Output
		if err := outRows.Scan(&o.ID, &o.RunID, &o.OutputType, &o.ContentType, &o.Content); err != nil {
			return nil, fmt.Errorf("store.Repository.GetRunDetails: scan output: %w", err)
		}
		d.Outputs = append(d.Outputs, o)
	}
	if err := outRows.Err(); err != nil {
		return nil, fmt.Errorf("store.Repository.GetRunDetails: outputs: %w", err)
	}

	var u TokenUsage
	err = r.db.QueryRow(
		`SELECT id, run_id, input_tokens, output_tokens, cost_input, cost_output, process_time
		 FROM token_usage WHERE run_id = ?`, runID).
		Scan(&u.ID, &u.RunID, &u.InputTokens, &u.OutputTokens, &u.CostInput, &u.CostOutput, &u.ProcessTime)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Run never reached the accounting stage.
	case err != nil:
		return nil, fmt.Errorf("store.Repository.GetRunDetails: usage: %w", err)
	default:
		d.Usage = &u
	}
	return &d, nil
}

// GetStats aggregates run counts, costs, and tokens over the trailing period.
func (r *Repository) GetStats(days int) (*Stats, error) {
	period := fmt.Sprintf("-%d days", days)
	stats := &Stats{PeriodDays: days, ByStatus: make(map[string]int)}

	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM runs WHERE timestamp > datetime('now', ?)`, period).
		Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetStats: total: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT
			r.model,
			COUNT(*) AS runs,
			SUM(COALESCE(t.cost_input, 0) + COALESCE(t.cost_output, 0)) AS total_cost,
			SUM(COALESCE(t.input_tokens, 0) + COALESCE(t.output_tokens, 0)) AS total_tokens
		FROM runs r
		LEFT JOIN token_usage t ON r.id = t.run_id
		WHERE r.timestamp > datetime('now', ?)
		GROUP BY r.model
		ORDER BY runs DESC`, period)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetStats: by model: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m ModelStats
		if err := rows.Scan(&m.Model, &m.Runs, &m.TotalCost, &m.TotalTokens); err != nil {
			return nil, fmt.Errorf("store.Repository.GetStats: scan model: %w", err)
		}
		stats.ByModel = append(stats.ByModel, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.Repository.GetStats: by model: %w", err)
	}

	taskRows, err := r.db.Query(`
		SELECT r.task, COUNT(*) AS runs
		FROM runs r
		WHERE r.timestamp > datetime('now', ?)
		GROUP BY r.task
		ORDER BY runs DESC`, period)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetStats: by task: %w", err)
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var t TaskStats
		if err := taskRows.Scan(&t.Task, &t.Runs); err != nil {
			return nil, fmt.Errorf("store.Repository.GetStats: scan task: %w", err)
		}
		stats.ByTask = append(stats.ByTask, t)
	}
	if err := taskRows.Err(); err != nil {
		return nil, fmt.Errorf("store.Repository.GetStats: by task: %w", err)
	}

	statusRows, err := r.db.Query(`
		SELECT status, COUNT(*) FROM runs
		WHERE timestamp > datetime('now', ?)
		GROUP BY status`, period)
	if err != nil {
		return nil, fmt.Errorf("store.Repository.GetStats: by status: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("store.Repository.GetStats: scan status: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, fmt.Errorf("store.Repository.GetStats: by status: %w", err)
	}

	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.ByStatus[StatusSuccess]) / float64(stats.TotalRuns)
	}
	return stats, nil
}

// DeleteRun removes a run; outputs, usage, and input links cascade. Inputs
// themselves stay for other runs.
func (r *Repository) DeleteRun(runID int64) error {
	res, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("store.Repository.DeleteRun: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
