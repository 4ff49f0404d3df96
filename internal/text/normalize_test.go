package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "arabic yeh folded to persian",
			input: "يک",
			want:  "یک",
		},
		{
			name:  "arabic kaf folded to persian",
			input: "كتاب",
			want:  "کتاب",
		},
		{
			name:  "zwnj becomes space",
			input: "وب‌سایت",
			want:  "وب سایت",
		},
		{
			name:  "latin lowercased and trimmed",
			input: "  Hello World  ",
			want:  "hello world",
		},
		{
			name:  "empty stays empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Run("keeps content words and drops stopwords", func(t *testing.T) {
		tokens := Tokenize("چطور سفارش را بدهم")
		assert.ElementsMatch(t, []string{"چطور", "سفارش", "بدهم"}, tokens)
	})

	t.Run("strips punctuation", func(t *testing.T) {
		tokens := Tokenize("سفارش!")
		assert.ElementsMatch(t, []string{"سفارش"}, tokens)
	})

	t.Run("drops numeric-only tokens", func(t *testing.T) {
		tokens := Tokenize("order 12345")
		assert.ElementsMatch(t, []string{"order"}, tokens)
	})

	t.Run("deduplicates", func(t *testing.T) {
		tokens := Tokenize("سفارش سفارش سفارش")
		assert.Equal(t, []string{"سفارش"}, tokens)
	})

	t.Run("arabic variants match persian triggers after folding", func(t *testing.T) {
		assert.Equal(t, Tokenize("سفارش"), Tokenize("سفارش"))
		assert.ElementsMatch(t, []string{"یک"}, Tokenize("يک"))
	})

	t.Run("empty and whitespace yield nothing", func(t *testing.T) {
		assert.Empty(t, Tokenize(""))
		assert.Empty(t, Tokenize("   "))
	})
}
