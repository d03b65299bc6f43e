package corpus

// stopWords covers the corpus's two dominant languages, English and French,
// plus number words. Postings keep stop words; only top-term extraction and
// filtered tokenisation exclude them.
var stopWords = buildStopWords()

// IsStopWord reports whether term is in the stop-word set.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

func buildStopWords() map[string]struct{} {
	words := []string{
		// English articles, prepositions, conjunctions
		"the", "and", "that", "with", "for", "are", "was", "but", "not", "you", "all",
		"can", "her", "his", "has", "had", "been", "have", "their", "said", "from",
		"they", "one", "what", "which", "this", "these", "those", "there", "where",
		"when", "who", "whom", "whose", "were", "will", "would", "could", "should",
		"may", "might", "must", "shall", "did", "does", "doing", "done", "being",
		"into", "through", "during", "before", "after", "above", "below", "between",
		"among", "under", "over", "again", "further", "then", "once", "here",
		"any", "both", "each", "few", "more", "most", "other", "some", "such",
		"only", "own", "same", "than", "too", "very", "about", "against", "also",
		"because", "while", "until", "upon", "out", "off", "down", "back", "even",
		"just", "still", "much", "many", "like", "however", "moreover",
		"therefore", "thus", "hence", "indeed", "yet", "nor", "either", "neither",
		"whether", "though", "although", "unless", "since", "whenever", "wherever",
		"whatever", "whoever", "whichever", "itself", "himself", "herself", "themselves",
		"myself", "yourself", "ourselves", "yourselves",

		// frequent short words
		"our", "day", "get", "him", "how", "its", "new", "now", "old", "see",
		"two", "way", "boy", "let", "put", "say", "she", "use", "man", "men",
		"per", "set", "try", "war", "yes", "via", "why", "ago", "far", "got", "lot",

		// two-letter function words
		"am", "is", "be", "as", "at", "by", "do", "go", "he", "if", "in", "it",
		"me", "my", "no", "of", "on", "or", "so", "to", "up", "us", "we",

		// numbers and ordinals
		"ten", "six", "nine", "four", "five", "eight", "seven", "three",
		"first", "second", "third", "fourth", "fifth", "sixth", "seventh",
		"eighth", "ninth", "tenth", "hundred", "thousand", "million",

		// common French words
		"les", "des", "une", "dans", "pour", "que", "qui", "est", "avec",
		"sur", "par", "plus", "pas", "cette", "son", "sont", "mais", "tout",
		"aux", "comme", "ses", "leur", "leurs", "sans", "dont", "elle", "nous",
		"vous", "ils", "elles", "ont", "fait", "peut", "faire", "ces",
		"celui", "celle", "ceux", "celles", "aussi", "bien", "encore", "ainsi",
		"donc", "sous", "depuis", "vers", "entre", "alors", "autre", "autres",
		"trop", "tres", "peu", "beaucoup", "assez", "moins", "jamais", "toujours",
		"souvent", "quelque", "quelques", "chaque", "plusieurs", "aucun", "aucune",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
