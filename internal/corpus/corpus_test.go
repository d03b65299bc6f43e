package corpus

import (
	"reflect"
	"testing"
)

// TestNormalize verifies accent folding, case folding, and the ASCII filter.
func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain lowercase", "hello world", "hello world"},
		{"uppercase folded", "Hello WORLD", "hello world"},
		{"accents stripped", "Les Misérables", "les miserables"},
		{"cedilla and circumflex", "français, forêt", "francais, foret"},
		{"ligature decomposed", "ﬁre", "fire"},
		{"non-latin dropped", "war and мир and 平和", "war and  and "},
		{"digits and punctuation kept", "chapter 12: the end.", "chapter 12: the end."},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestNormalizeIdempotent verifies that normalising twice changes nothing.
func TestNormalizeIdempotent(t *testing.T) {
	in := "L'Été de Noël — ﬁn"
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Errorf("Normalize not idempotent: %q then %q", once, twice)
	}
}

// TestTokenize verifies letter-run splitting and the short-token filter.
func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			"separators between runs",
			"the quick-brown fox, 42 jumps!",
			[]string{"the", "quick", "brown", "fox", "jumps"},
		},
		{
			"short tokens dropped",
			"it is an ox of old",
			[]string{"old"},
		},
		{
			"digits break runs",
			"abc123def",
			[]string{"abc", "def"},
		},
		{
			"accents folded before splitting",
			"Été précoce",
			[]string{"ete", "precoce"},
		},
		{
			"stop words kept",
			"the battle and the siege",
			[]string{"the", "battle", "and", "the", "siege"},
		},
		{"empty text", "", []string{}},
		{"no valid tokens", "a b c 1 2 3", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestTokenizeFiltered verifies that the filtered mode removes stop words in
// both corpus languages but keeps content words.
func TestTokenizeFiltered(t *testing.T) {
	got := TokenizeFiltered("The war began because les soldats marched")
	want := []string{"began", "soldats", "marched"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeFiltered = %v, want %v", got, want)
	}
}

// TestTokenCount verifies the count matches the unfiltered token sequence.
func TestTokenCount(t *testing.T) {
	texts := []string{
		"",
		"the quick brown fox",
		"a b c",
		"Été précoce, chapitre 12: naïve ﬁn",
	}
	for _, text := range texts {
		if got, want := TokenCount(text), len(Tokenize(text)); got != want {
			t.Errorf("TokenCount(%q) = %d, want %d", text, got, want)
		}
	}
}

// TestIsStopWord spot-checks membership across the word groups.
func TestIsStopWord(t *testing.T) {
	stops := []string{"the", "and", "war", "two", "les", "dans", "hundred", "of"}
	for _, w := range stops {
		if !IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = false, want true", w)
		}
	}
	content := []string{"love", "whale", "miserables", "battle", "soldats"}
	for _, w := range content {
		if IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = true, want false", w)
		}
	}
}
