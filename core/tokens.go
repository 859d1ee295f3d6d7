package core

// EstimateTokens approximates the token count of text as 1.3 tokens per
// word. It is only used for budgeting conversation memory.
func EstimateTokens(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		space := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !space && !inWord {
			words++
		}
		inWord = !space
	}
	if words == 0 {
		return 0
	}
	return int(float64(words)*1.3) + 1
}
