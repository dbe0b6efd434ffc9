package store

import "time"

// Run statuses.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run is one generation run.
type Run struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Task          string    `json:"task"`
	Model         string    `json:"model"`
	ThinkingLevel string    `json:"thinking_level,omitempty"`
	Stream        bool      `json:"stream"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

// Input is a deduplicated source document. The same document referenced by
// many runs is stored once, keyed by content hash.
type Input struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	SourcePath  string    `json:"source_path,omitempty"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Output is one named output of a run ("main", "bilingual", ...).
type Output struct {
	ID          int64  `json:"id"`
	RunID       int64  `json:"run_id"`
	OutputType  string `json:"output_type"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// TokenUsage is the aggregate token/cost accounting of a run. ProcessTime is
// in seconds.
type TokenUsage struct {
	ID           int64   `json:"id"`
	RunID        int64   `json:"run_id"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostInput    float64 `json:"cost_input"`
	CostOutput   float64 `json:"cost_output"`
	ProcessTime  float64 `json:"process_time"`
}

// RunSummary is the joined list view of a run.
type RunSummary struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Task         string    `json:"task"`
	Model        string    `json:"model"`
	Status       string    `json:"status"`
	Currency     string    `json:"currency"`
	InputTitles  string    `json:"input_titles"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalCost    float64   `json:"total_cost"`
}

// RunDetails is a run with its inputs, outputs, and usage.
type RunDetails struct {
	Run
	Inputs  []Input     `json:"inputs"`
	Outputs []Output    `json:"outputs"`
	Usage   *TokenUsage `json:"token_usage,omitempty"`
}

// ModelStats aggregates runs per model.
type ModelStats struct {
	Model       string  `json:"model"`
	Runs        int     `json:"runs"`
	TotalCost   float64 `json:"total_cost"`
	TotalTokens int     `json:"total_tokens"`
}

// TaskStats aggregates runs per task.
type TaskStats struct {
	Task string `json:"task"`
	Runs int    `json:"runs"`
}

// Stats is the aggregate usage view over a trailing period.
type Stats struct {
	PeriodDays  int            `json:"period_days"`
	TotalRuns   int            `json:"total_runs"`
	ByModel     []ModelStats   `json:"by_model"`
	ByTask      []TaskStats    `json:"by_task"`
	ByStatus    map[string]int `json:"by_status"`
	SuccessRate float64        `json:"success_rate"`
}
