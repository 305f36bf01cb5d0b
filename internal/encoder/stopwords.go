package encoder

// defaultStopwords returns the fixed English stop-word set filtered out
// of the vocabulary and of transformed text.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else",
		"for", "to", "of", "in", "on", "at", "by", "with", "as",
		"is", "are", "was", "were", "be", "been", "being",
		"it", "its", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "again", "further", "than",
		"so", "such", "into", "about", "between", "through", "during",
		"before", "after", "above", "below", "out", "off", "own",
		"same", "too", "very", "can", "will", "just", "should", "now",
		"he", "she", "they", "them", "his", "her", "their", "you",
		"your", "we", "our", "i", "me", "my", "do", "does", "did",
		"have", "has", "had", "not", "no", "nor", "only", "some",
		"any", "each", "both", "more", "most", "other", "what",
		"which", "who", "whom", "when", "where", "why", "how", "all",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
