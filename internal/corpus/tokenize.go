// Package corpus provides text normalisation and tokenisation for the
// indexing pipeline. Raw text is folded to lowercase ASCII, then split into
// maximal runs of Latin letters; tokens of length two or less are dropped.
// A filtered mode additionally removes stop words.
package corpus

// Tokenize normalises text and returns its tokens in order. Stop words are
// kept; postings count every term the document actually contains.
func Tokenize(text string) []string {
	return scanTokens(Normalize(text), false)
}

// TokenizeFiltered is Tokenize with stop words removed. Queries and
// top-term extraction use this mode.
func TokenizeFiltered(text string) []string {
	return scanTokens(Normalize(text), true)
}

// TokenCount returns the number of tokens Tokenize would produce without
// materialising them. This is the document's canonical word count and the
// ingestion-acceptance gate.
func TokenCount(text string) int {
	normalized := Normalize(text)
	count := 0
	run := 0
	for i := 0; i <= len(normalized); i++ {
		if i < len(normalized) && isLower(normalized[i]) {
			run++
			continue
		}
		if run > 2 {
			count++
		}
		run = 0
	}
	return count
}

func scanTokens(normalized string, dropStops bool) []string {
	tokens := make([]string, 0, len(normalized)/8)
	start := -1
	for i := 0; i <= len(normalized); i++ {
		if i < len(normalized) && isLower(normalized[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if word := normalized[start:i]; len(word) > 2 {
				if !dropStops || !IsStopWord(word) {
					tokens = append(tokens, word)
				}
			}
			start = -1
		}
	}
	return tokens
}

func isLower(c byte) bool {
	return 'a' <= c && c <= 'z'
}
