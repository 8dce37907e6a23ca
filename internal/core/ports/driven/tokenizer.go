package driven

// TokenCounter counts model tokens so prompts can be bounded before sending.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int
}
