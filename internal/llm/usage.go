package llm

import (
	"sync"
	"time"
)

// Usage is the accounting record for one completed request. Costs are in the
// provider's currency, computed from per-million-token prices.
type Usage struct {
	RequestName  string
	InputTokens  int
	OutputTokens int
	CostInput    float64
	CostOutput   float64
	TotalCost    float64
	ProcessTime  time.Duration
	Timestamp    time.Time
}

// LedgerTotals aggregates a ledger's entries.
type LedgerTotals struct {
	Requests     int
	InputTokens  int
	OutputTokens int
	TotalCost    float64
}

// Ledger accumulates per-request usage for the lifetime of a client. Safe for
// concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries []Usage
}

// Add appends a usage record.
func (l *Ledger) Add(u Usage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, u)
}

// Entries returns a copy of all recorded usage, in request order.
func (l *Ledger) Entries() []Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Usage, len(l.entries))
	copy(out, l.entries)
	return out
}

// Totals sums all recorded usage.
func (l *Ledger) Totals() LedgerTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	var t LedgerTotals
	for _, u := range l.entries {
		t.Requests++
		t.InputTokens += u.InputTokens
		t.OutputTokens += u.OutputTokens
		t.TotalCost += u.TotalCost
	}
	return t
}
