package tokenizer

import "fmt"

// DefaultPromptOverheadTokens is the budget reserved for prompt template
// text, system framing, and response structure.
const DefaultPromptOverheadTokens = 10000

// ContentTooLargeError is returned when content does not fit the model's
// context window after reserving output and overhead budgets.
type ContentTooLargeError struct {
	Model     string
	Estimated int
	Available int
}

func (e *ContentTooLargeError) Error() string {
	return fmt.Sprintf(
		"content size (%d tokens) exceeds model capacity (%d tokens) for %s: use a smaller document or split manually",
		e.Estimated, e.Available, e.Model,
	)
}

// Guard validates text against a model's context window. Half the window
// (capped at the model's max output tokens) is reserved for the response,
// plus a fixed overhead for template text.
type Guard struct {
	model         string
	contextWindow int
	maxTokens     int
	overhead      int
}

// NewGuard creates a Guard for a model. overhead <= 0 selects the default.
func NewGuard(model string, contextWindow, maxTokens, overhead int) *Guard {
	if overhead <= 0 {
		overhead = DefaultPromptOverheadTokens
	}
	return &Guard{
		model:         model,
		contextWindow: contextWindow,
		maxTokens:     maxTokens,
		overhead:      overhead,
	}
}

// Available returns the token budget left for input content.
func (g *Guard) Available() int {
	reserve := g.maxTokens
	if half := g.contextWindow / 2; reserve > half {
		reserve = half
	}
	return g.contextWindow - g.overhead - reserve
}

// Check returns a *ContentTooLargeError if the estimated token count of text
// exceeds the available budget, or a plain error when the model is
// misconfigured (no budget at all).
func (g *Guard) Check(text string) error {
	available := g.Available()
	if available <= 0 {
		return fmt.Errorf(
			"tokenizer.Guard.Check: model %s has no input budget (context window %d, overhead %d)",
			g.model, g.contextWindow, g.overhead,
		)
	}
	if est := EstimateTokens(text); est > available {
		return &ContentTooLargeError{Model: g.model, Estimated: est, Available: available}
	}
	return nil
}
