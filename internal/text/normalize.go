package text

import (
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Arabic-presentation characters folded into their Persian forms, plus
// characters stripped entirely (diacritics, tatweel). User input and stored
// FAQ text go through the same folding so token comparison is byte-exact.
var persianFolding = strings.NewReplacer(
	"ي", "ی",
	"ك", "ک",
	"ۀ", "ه",
	"ة", "ه",
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ؤ", "و",
	"ـ", "", // tatweel
	"ً", "",
	"ٌ", "",
	"ٍ", "",
	"َ", "",
	"ُ", "",
	"ِ", "",
	"ّ", "",
	"ْ", "",
)

var stopwords = map[string]struct{}{
	// Persian
	"و": {}, "در": {}, "به": {}, "از": {}, "که": {}, "را": {}, "با": {},
	"این": {}, "آن": {}, "برای": {}, "یک": {}, "تا": {}, "هم": {}, "یا": {},
	"من": {}, "شما": {}, "ما": {}, "اگر": {}, "هر": {}, "بر": {}, "چه": {},
	// English
	"the": {}, "a": {}, "an": {}, "of": {}, "to": {}, "in": {}, "on": {},
	"is": {}, "are": {}, "do": {}, "i": {}, "you": {}, "my": {}, "for": {},
	"and": {}, "or": {}, "it": {}, "can": {}, "how": {}, "what": {},
}

// Normalize lower-cases, folds Arabic variants to Persian, and collapses
// zero-width joiners to plain spaces.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = persianFolding.Replace(s)
	s = strings.ReplaceAll(s, "‌", " ") // ZWNJ
	s = strings.ReplaceAll(s, "​", " ")
	return strings.TrimSpace(s)
}

// Tokenize normalizes and splits a message into distinct content tokens,
// dropping punctuation and stopwords. Tokenization runs through prose; if it
// fails on unusual input we fall back to whitespace splitting.
func Tokenize(s string) []string {
	norm := Normalize(s)
	if norm == "" {
		return nil
	}

	var raw []string
	doc, err := prose.NewDocument(norm,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err == nil {
		for _, tok := range doc.Tokens() {
			raw = append(raw, tok.Text)
		}
	} else {
		raw = strings.Fields(norm)
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, t := range raw {
		t = strings.TrimFunc(t, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if t == "" || isNumericOnly(t) {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
