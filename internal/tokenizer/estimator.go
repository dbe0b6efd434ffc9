// Package tokenizer provides language-aware token estimation and context
// window budgeting for LLM requests.
package tokenizer

// Character-to-token ratios. Different tokenizers disagree, so these are
// deliberately conservative approximations.
const (
	// LatinCharsPerToken is the ratio for English/ASCII-dominant text.
	LatinCharsPerToken = 3.5
	// CJKCharsPerToken is the ratio for Chinese text (one ideograph is
	// roughly 2-3 tokens on most tokenizers).
	CJKCharsPerToken = 1.5

	// cjkBlendThreshold is the CJK fraction above which the blended ratio
	// kicks in. Below it the text is treated as Latin-only.
	cjkBlendThreshold = 0.2
)

// EstimateTokens estimates the token count of a text string, blending the
// chars-per-token ratio for mixed Chinese/English content. Empty text is 0.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	var total, cjk int
	for _, r := range text {
		total++
		if r >= 0x4E00 && r <= 0x9FFF { // CJK Unified Ideographs
			cjk++
		}
	}

	cjkRatio := float64(cjk) / float64(total)
	blended := LatinCharsPerToken
	if cjkRatio > cjkBlendThreshold {
		blended = cjkRatio*CJKCharsPerToken + (1-cjkRatio)*LatinCharsPerToken
	}
	return int(float64(total) / blended)
}
