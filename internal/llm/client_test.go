package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Classification
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"label": "order", "confidence": 0.8, "reasoning": "asks about ordering"}`,
			want:    Classification{Label: "order", Confidence: 0.8, Reasoning: "asks about ordering"},
		},
		{
			name: "fenced json",
			content: "```json\n" +
				`{"label": "pricing", "confidence": 0.7, "reasoning": "cost question"}` +
				"\n```",
			want: Classification{Label: "pricing", Confidence: 0.7, Reasoning: "cost question"},
		},
		{
			name:    "json buried in prose",
			content: `Sure! Here is the result: {"label": "greeting", "confidence": 0.95, "reasoning": "says hi"} Hope that helps.`,
			want:    Classification{Label: "greeting", Confidence: 0.95, Reasoning: "says hi"},
		},
		{
			name:    "confidence clamped high",
			content: `{"label": "order", "confidence": 1.4, "reasoning": ""}`,
			want:    Classification{Label: "order", Confidence: 1.0},
		},
		{
			name:    "confidence clamped low",
			content: `{"label": "order", "confidence": -0.2, "reasoning": ""}`,
			want:    Classification{Label: "order", Confidence: 0},
		},
		{
			name:    "no json object",
			content: "I cannot classify this message.",
			wantErr: true,
		},
		{
			name:    "malformed json",
			content: `{"label": "order", "confidence": }`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}
